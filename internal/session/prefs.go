// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/ueadmission/ueadmission/internal/xdg"
)

// Preferences is a flat string key/value store scoped to the application,
// the session's channel A. Every write is durable when the call returns.
type Preferences interface {
	// Put stores values, keeping keys not mentioned.
	Put(values map[string]string) error

	// Values returns every stored key. A store that has never been written
	// returns an empty map and no error.
	Values() (map[string]string, error)

	// Delete removes keys; missing keys are ignored.
	Delete(keys ...string) error
}

// FileStore keeps preferences in a YAML document. Writes go to a temporary
// file that is renamed over the target, so readers see either the old or the
// new document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore backed by path. The file and its directory
// are created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Put merges values into the document.
func (s *FileStore) Put(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	for k, v := range values {
		doc[k] = v
	}
	return s.write(doc)
}

// Values returns the document's keys.
func (s *FileStore) Values() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Delete removes keys. The file is removed once it holds no keys.
func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(doc, k)
	}
	if len(doc) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return oops.Code("PREFS_REMOVE_FAILED").
				With("path", s.path).
				Wrap(err)
		}
		return nil
	}
	return s.write(doc)
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, oops.Code("PREFS_READ_FAILED").
			With("path", s.path).
			Wrap(err)
	}

	doc := map[string]string{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("PREFS_DECODE_FAILED").
			With("path", s.path).
			Wrap(err)
	}
	if doc == nil {
		doc = map[string]string{}
	}
	return doc, nil
}

func (s *FileStore) write(doc map[string]string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return oops.Code("PREFS_ENCODE_FAILED").Wrap(err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return oops.Code("PREFS_WRITE_FAILED").
			With("path", s.path).
			Wrap(err)
	}
	return nil
}

// writeFileAtomic writes data next to path and renames it into place. The
// parent directory is created with 0700 permissions if absent.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := xdg.EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) //nolint:errcheck // already renamed on success
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
