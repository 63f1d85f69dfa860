// Package rumcontext persists the last RUM context published by a monitor so
// that other processes can correlate their data with it.
package rumcontext

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fakeyudi/rumsession/internal/rum"
)

// ErrNoContext is returned by Load when no context was recorded for the
// requested application.
var ErrNoContext = errors.New("no RUM context recorded")

// ErrNoApplication is returned by Save for a context without application ID.
var ErrNoApplication = errors.New("RUM context has no application ID")

// snapshotVersion is bumped whenever the on-disk layout of Snapshot changes.
const snapshotVersion = 1

// Snapshot is a RUM context and the time it was published.
type Snapshot struct {
	rum.Context
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Store keeps the latest Snapshot of every application.
type Store interface {
	Save(s *Snapshot) error
	// Load returns the snapshot of applicationID, or the most recently
	// updated one when applicationID is empty. Returns ErrNoContext if none
	// exists.
	Load(applicationID string) (*Snapshot, error)
	// List returns every stored snapshot, most recently updated first.
	List() ([]*Snapshot, error)
	Delete(applicationID string) error
}

// diskStore writes one JSON file per application to the XDG data directory.
type diskStore struct {
	dir string
}

// NewStore returns a Store backed by the XDG data directory.
// Path: $XDG_DATA_HOME/rumsession/contexts or ~/.local/share/rumsession/contexts
func NewStore() (Store, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	dir = filepath.Join(dir, "contexts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &diskStore{dir: dir}, nil
}

func dataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "rumsession"), nil
}

// path maps an application ID to its file. IDs are encoded so that any
// string is a safe file name.
func (d *diskStore) path(applicationID string) string {
	return filepath.Join(d.dir, base64.RawURLEncoding.EncodeToString([]byte(applicationID))+".json")
}

// Save replaces the snapshot of s.ApplicationID through a temp file and a
// rename, so readers never see a partial file.
func (d *diskStore) Save(s *Snapshot) error {
	if s.ApplicationID == "" {
		return ErrNoApplication
	}
	stored := *s
	stored.Version = snapshotVersion
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("encoding RUM context of %q: %w", s.ApplicationID, err)
	}

	tmp, err := os.CreateTemp(d.dir, "context-*.json.tmp")
	if err != nil {
		return fmt.Errorf("persisting RUM context of %q: %w", s.ApplicationID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("persisting RUM context of %q: %w", s.ApplicationID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persisting RUM context of %q: %w", s.ApplicationID, err)
	}
	if err := os.Rename(tmp.Name(), d.path(s.ApplicationID)); err != nil {
		return fmt.Errorf("persisting RUM context of %q: %w", s.ApplicationID, err)
	}
	return nil
}

func (d *diskStore) Load(applicationID string) (*Snapshot, error) {
	if applicationID == "" {
		all, err := d.List()
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, ErrNoContext
		}
		return all[0], nil
	}

	s, err := readSnapshot(d.path(applicationID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w for application %q", ErrNoContext, applicationID)
		}
		return nil, err
	}
	if s.ApplicationID != applicationID {
		return nil, fmt.Errorf("RUM context file of %q holds application %q", applicationID, s.ApplicationID)
	}
	return s, nil
}

func (d *diskStore) List() ([]*Snapshot, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("listing RUM contexts: %w", err)
	}
	var out []*Snapshot
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		s, err := readSnapshot(filepath.Join(d.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (d *diskStore) Delete(applicationID string) error {
	if err := os.Remove(d.path(applicationID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting RUM context of %q: %w", applicationID, err)
	}
	return nil
}

func readSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RUM context: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing RUM context %s: %w", filepath.Base(path), err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("RUM context %s has unsupported version %d", filepath.Base(path), s.Version)
	}
	return &s, nil
}
