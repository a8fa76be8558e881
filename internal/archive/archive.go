// Package archive stores completed loot sessions as JSON files, one per
// session, under a state directory.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poelog/poelog-go/pkg/loot"
)

const (
	appDirName = "poelog"
	sessionDir = "sessions"
	fileExt    = ".json"
)

// ErrNotFound is returned by Load for an unknown session ID.
var ErrNotFound = errors.New("archive: session not found")

// Store reads and writes session files in a directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created on the
// first Save. Pass an empty string to use DefaultDir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{dir: dir}
}

// Dir returns the directory holding the session files.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file used for the session with the given ID.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// Save writes the session using an atomic temp-file-then-rename pattern.
// Only completed sessions can be archived.
func (s *Store) Save(sess *loot.Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("archive: session has no ID")
	}
	if !sess.State.IsTerminal() {
		return fmt.Errorf("archive: session %s is %s, not completed", sess.ID, sess.State)
	}
	if strings.ContainsAny(sess.ID, `/\`) {
		return fmt.Errorf("archive: invalid session ID %q", sess.ID)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path(sess.ID)); err != nil {
		return fmt.Errorf("renaming session file: %w", err)
	}
	committed = true

	return nil
}

// Load reads one session by ID.
func (s *Store) Load(id string) (*loot.Session, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var sess loot.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parsing session %s: %w", id, err)
	}
	return &sess, nil
}

// List returns all archived sessions, oldest first. A missing directory
// yields an empty list. Files that fail to parse are skipped and reported
// through the returned error alongside the sessions that did load.
func (s *Store) List() ([]*loot.Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive dir: %w", err)
	}

	var (
		sessions []*loot.Session
		errs     []error
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		sess, err := s.Load(strings.TrimSuffix(name, fileExt))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sessions = append(sessions, sess)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	return sessions, errors.Join(errs...)
}

// DefaultDir returns ~/.local/state/poelog/sessions, respecting
// XDG_STATE_HOME if set.
func DefaultDir() string {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, appDirName, sessionDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".local", "state", appDirName, sessionDir)
}
