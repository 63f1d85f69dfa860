package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/fakeyudi/rumsession/internal/event"
	"github.com/fakeyudi/rumsession/internal/report"
	"github.com/fakeyudi/rumsession/internal/rum"
	"github.com/fakeyudi/rumsession/internal/rumcontext"
	"github.com/fakeyudi/rumsession/internal/telemetry"
)

// monitorOptions wires the logger, telemetry, user info and context
// persistence into a monitor. The returned func releases them.
func monitorOptions() ([]rum.Option, func(), error) {
	store, err := rumcontext.NewStore()
	if err != nil {
		return nil, nil, err
	}
	metrics := telemetry.New(cfg.StatsdAddr, cfg.ApplicationID, logger)
	opts := []rum.Option{
		rum.WithLogger(logger),
		rum.WithTelemetry(metrics),
		rum.WithUser(activeProfile.User()),
		rum.WithContextObserver(rumcontext.NewRecorder(store, clock.New(), logger)),
	}
	release := func() {
		if err := metrics.Close(); err != nil {
			logger.Debug("closing telemetry client", zap.Error(err))
		}
	}
	return opts, release, nil
}

func outputDir() string {
	if cfg.OutputDir == "" {
		return "."
	}
	return cfg.OutputDir
}

func extFor(format string) string {
	if format == "json" {
		return ".json"
	}
	return ".md"
}

// writeEvents writes events as JSON lines to path.
func writeEvents(path string, events []event.Event) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := event.NewJSONLWriter(f)
	for _, e := range events {
		w.Write(e)
	}
	if err := w.Err(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readEvents reads a JSON-lines events file.
func readEvents(path string) ([]event.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, err
	}
	defer f.Close()
	return event.ReadJSONL(f)
}

// renderReport renders rep in format ("markdown" or "json").
func renderReport(rep *report.Report, format string) ([]byte, error) {
	renderer, err := report.RendererFor(format)
	if err != nil {
		return nil, err
	}
	data, err := renderer.Render(rep)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return data, nil
}
