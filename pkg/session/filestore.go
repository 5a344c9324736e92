package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	pkgLogger "github.com/kaiwadev/kaiwa/pkg/logger"
)

var logger = pkgLogger.NewComponentLogger("session-store")

const recordExt = ".json"

// FileStore persists sessions as one JSON record per name under a
// directory. Saves go through a temp file plus rename so an interrupted
// write never leaves a half-written record in place.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created
// lazily on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the storage directory.
func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) path(name string) string {
	return filepath.Join(f.dir, name+recordExt)
}

// Load reads the persisted session, or returns ErrNotFound.
func (f *FileStore) Load(name string) (*Session, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "load", Name: name, Err: err}
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &StorageError{Op: "load", Name: name, Err: errors.Wrap(err, "corrupt session record")}
	}
	return fromRecord(rec), nil
}

// Save durably persists the session. The record is written to a temp
// file in the same directory, synced, and renamed into place.
func (f *FileStore) Save(s *Session) error {
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return &StorageError{Op: "save", Name: s.Name, Err: errors.Wrap(err, "failed to create store directory")}
	}

	data, err := json.MarshalIndent(toRecord(s), "", "  ")
	if err != nil {
		return &StorageError{Op: "save", Name: s.Name, Err: errors.Wrap(err, "failed to encode session record")}
	}

	tmp, err := os.CreateTemp(f.dir, s.Name+".tmp-*")
	if err != nil {
		return &StorageError{Op: "save", Name: s.Name, Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &StorageError{Op: "save", Name: s.Name, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &StorageError{Op: "save", Name: s.Name, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &StorageError{Op: "save", Name: s.Name, Err: err}
	}
	if err := os.Rename(tmpPath, f.path(s.Name)); err != nil {
		os.Remove(tmpPath)
		return &StorageError{Op: "save", Name: s.Name, Err: err}
	}

	logger.Debug("Session persisted", "session", s.Name, "turns", len(s.Turns), "cursor", s.Cursor)
	return nil
}

// List returns all persisted session names, lexicographically sorted.
func (f *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Op: "list", Err: err}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), recordExt)
		if ValidateName(name) != nil {
			continue // leftover temp files and strays
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the persisted record. Deleting an absent session fails
// with ErrNotFound.
func (f *FileStore) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(f.path(name)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return &StorageError{Op: "delete", Name: name, Err: err}
	}
	logger.Debug("Session deleted", "session", name)
	return nil
}
