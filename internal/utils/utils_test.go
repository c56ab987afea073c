package utils

import "testing"

func TestCalculateDataMD5(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{name: "empty", data: nil, expected: "d41d8cd98f00b204e9800998ecf8427e"},
		{name: "abc", data: []byte("abc"), expected: "900150983cd24fb0d6963f7d28e17f72"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateDataMD5(tt.data); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
