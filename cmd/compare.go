package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/spotdiff/internal/comparison"
	"github.com/lehigh-university-libraries/spotdiff/internal/images"
	"github.com/lehigh-university-libraries/spotdiff/internal/models"
	"github.com/lehigh-university-libraries/spotdiff/internal/overlay"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCompareCmd() *cobra.Command {
	var provider string
	var model string
	var format string
	var overlayDir string

	cmd := &cobra.Command{
		Use:   "compare IMAGE1 IMAGE2",
		Short: "Compare two images and print the differences",
		Long: `Sends two images to the configured model and prints the summary and the
list of differences it reports. Each IMAGE may be a local path or an http(s) URL.

With --overlay-dir, both images are also written as PNGs with a marker on every difference.`,
		Example: `  # Compare two local files with Gemini
  spotdiff compare before.png after.png

  # JSON output plus marked images
  spotdiff compare before.png https://example.com/after.jpg --format json --overlay-dir ./out`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "yaml" && format != "json" {
				return fmt.Errorf("invalid --format %q. Must be 'yaml' or 'json'", format)
			}

			service, err := comparison.NewServiceFromEnv(provider, model)
			if err != nil {
				return err
			}

			fetcher := images.NewFetcher()
			var sources [2]*models.SourceImage
			for i, ref := range args {
				img, err := fetcher.Open(cmd.Context(), ref)
				if err != nil {
					return fmt.Errorf("image %d: %w", i+1, err)
				}
				sources[i] = img
			}

			result, err := service.Compare(cmd.Context(), *sources[0], *sources[1])
			if err != nil {
				return fmt.Errorf("%s: %w", comparison.UserMessage(err), err)
			}

			if err := writeResult(cmd.OutOrStdout(), result, format); err != nil {
				return err
			}

			if overlayDir == "" {
				return nil
			}
			if err := os.MkdirAll(overlayDir, 0755); err != nil {
				return fmt.Errorf("failed to create overlay directory: %w", err)
			}
			renderer := overlay.NewRenderer()
			for i, img := range sources {
				surface := overlay.NewSurface()
				if err := renderer.Render(cmd.Context(), surface, overlay.FromBytes(img.Data), result.Differences, i); err != nil {
					return fmt.Errorf("failed to render image %d: %w", i+1, err)
				}
				outPath := filepath.Join(overlayDir, overlayName(i, img.Name))
				if err := writeOverlay(surface, outPath); err != nil {
					return err
				}
				slog.Info("Overlay written", "path", outPath, "markers", len(surface.Markers()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (gemini, openai, or ollama); defaults to $SPOTDIFF_PROVIDER or gemini")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to provider's default)")
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format (yaml or json)")
	cmd.Flags().StringVar(&overlayDir, "overlay-dir", "", "Write marked PNGs of both images to this directory")

	return cmd
}

func writeResult(w io.Writer, result *models.ComparisonResult, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

func overlayName(index int, name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if stem == "" || stem == "." {
		stem = "image"
	}
	return fmt.Sprintf("%d_%s_overlay.png", index+1, stem)
}

func writeOverlay(surface *overlay.Surface, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create overlay file: %w", err)
	}
	if err := surface.EncodePNG(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write overlay file: %w", err)
	}
	return nil
}
