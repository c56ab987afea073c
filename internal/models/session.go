package models

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrRequestInFlight is returned when a session is asked to change while a comparison is outstanding
	ErrRequestInFlight = errors.New("a comparison is already in progress")
	// ErrNotRequesting is returned when a result is delivered to a session that is not waiting for one
	ErrNotRequesting = errors.New("session is not waiting for a comparison")
)

// Session holds the images, state and result of one comparison workspace.
// All transitions go through its methods:
//
//	idle -> images_selected -> requesting -> result_ready | failed
//
// result_ready and failed return to images_selected when an image is replaced,
// or to requesting on resubmission.
type Session struct {
	mu sync.Mutex

	id        string
	state     SessionState
	images    [2]*SourceImage
	result    *ComparisonResult
	errMsg    string
	createdAt time.Time
}

// NewSession returns an idle session
func NewSession(id string) *Session {
	return &Session{
		id:        id,
		state:     StateIdle,
		createdAt: time.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Image returns the image in the given slot (0 or 1), or nil
func (s *Session) Image(index int) *SourceImage {
	if index < 0 || index > 1 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images[index]
}

// Result returns the last successful comparison, or nil
func (s *Session) Result() *ComparisonResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// SetImage replaces the image in slot index. A previous result is discarded.
func (s *Session) SetImage(index int, img *SourceImage) error {
	if index < 0 || index > 1 {
		return fmt.Errorf("invalid image index %d", index)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRequesting {
		return ErrRequestInFlight
	}

	s.images[index] = img
	s.result = nil
	s.errMsg = ""
	if s.images[0].Empty() && s.images[1].Empty() {
		s.state = StateIdle
	} else {
		s.state = StateImagesSelected
	}
	return nil
}

// BeginRequest moves the session into requesting and returns the images to compare.
// Missing images are returned as empty values; the comparison service rejects them.
func (s *Session) BeginRequest() (SourceImage, SourceImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRequesting {
		return SourceImage{}, SourceImage{}, ErrRequestInFlight
	}

	s.state = StateRequesting
	s.errMsg = ""

	var first, second SourceImage
	if s.images[0] != nil {
		first = *s.images[0]
	}
	if s.images[1] != nil {
		second = *s.images[1]
	}
	return first, second, nil
}

// Complete stores the result of the outstanding request
func (s *Session) Complete(result *ComparisonResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRequesting {
		return ErrNotRequesting
	}
	s.state = StateResultReady
	s.result = result
	s.errMsg = ""
	return nil
}

// Fail records a failed request. The previous result is not kept.
func (s *Session) Fail(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRequesting {
		return ErrNotRequesting
	}
	s.state = StateFailed
	s.result = nil
	s.errMsg = message
	return nil
}

// View returns a snapshot suitable for JSON encoding
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SessionView{
		ID:        s.id,
		State:     s.state,
		Images:    s.images,
		Result:    s.result,
		Error:     s.errMsg,
		CreatedAt: s.createdAt,
	}
}
