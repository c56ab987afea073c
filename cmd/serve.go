package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/spotdiff/internal/comparison"
	"github.com/lehigh-university-libraries/spotdiff/internal/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var provider string
	var model string
	var staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for the comparison interface",
		Long: `Starts the spotdiff web interface on the specified port.

The web interface lets you pick two images, compare them with a vision-capable
LLM (Gemini by default) and see each reported difference marked on both images.`,
		Example: `  # Start server on default port 8888
  spotdiff serve

  # Start server on custom port with OpenAI
  spotdiff serve --port 3000 --provider openai`,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := comparison.NewServiceFromEnv(provider, model)
			if err != nil {
				return err
			}
			handler := handlers.New(service, staticDir)

			// Set up routes
			mux := http.NewServeMux()
			handler.Register(mux)
			mux.Handle("GET /metrics", promhttp.Handler())
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("spotdiff interface available", "addr", addr, "url", "http://localhost"+addr, "provider", service.Provider(), "model", service.Model())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give in-flight comparisons time to finish
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (gemini, openai, or ollama); defaults to $SPOTDIFF_PROVIDER or gemini")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to provider's default)")
	cmd.Flags().StringVar(&staticDir, "static-dir", "static", "Directory holding the web interface files")

	return cmd
}
