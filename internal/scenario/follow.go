package scenario

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fakeyudi/rumsession/internal/rum"
)

// Follow applies the steps of a JSON-lines file to m as they are appended,
// until ctx is cancelled. Lines already present are applied first. The
// After field is ignored: each step is stamped with m's clock when read.
// Malformed lines are logged and skipped.
func Follow(ctx context.Context, path string, m *rum.Monitor, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory so that a file created after we start is seen.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	t := &tail{path: abs, m: m, logger: logger}
	if err := t.drain(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				t.reset()
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				if err := t.drain(); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// tail reads the complete lines appended to a file since the last drain.
type tail struct {
	path    string
	m       *rum.Monitor
	logger  *zap.Logger
	offset  int64
	line    int
	partial []byte
}

func (t *tail) reset() {
	t.offset, t.line, t.partial = 0, 0, nil
}

func (t *tail) drain() error {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < t.offset {
		// Truncated: start over.
		t.reset()
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	t.offset += int64(len(data))

	data = append(t.partial, data...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		t.apply(data[:i])
		data = data[i+1:]
	}
	t.partial = append([]byte(nil), data...)
	return nil
}

func (t *tail) apply(line []byte) {
	t.line++
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	var step Step
	if err := yaml.Unmarshal(line, &step); err != nil {
		t.logger.Warn("skipping malformed step", zap.Int("line", t.line), zap.Error(err))
		return
	}
	if err := step.Apply(t.m); err != nil {
		t.logger.Warn("skipping invalid step", zap.Int("line", t.line), zap.Error(err))
		return
	}
	t.logger.Debug("step applied", zap.Int("line", t.line), zap.String("op", step.Op))
}
