package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRoot is the directory FileStore writes under when none is given.
const DefaultRoot = "output"

// FileStore persists artifacts on the local filesystem, one subdirectory per
// run with a <role>.txt file per stage:
//
//	<root>/<runID>/<role>.txt
//
// The run directory is created on first save. Locations returned by Save are
// absolute paths when resolvable.
type FileStore struct {
	root string
}

// NewFileStore returns a store rooted at dir ("" selects DefaultRoot). The
// root itself is created lazily.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultRoot
	}
	return &FileStore{root: dir}
}

// Root returns the store's root directory.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) path(runID, role string) string {
	return filepath.Join(s.root, runID, role+".txt")
}

// Save writes the artifact file, creating the run directory as needed.
func (s *FileStore) Save(_ context.Context, runID, role string, data []byte) (string, error) {
	runDir := filepath.Join(s.root, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("artifact: create run dir %s: %w", runDir, err)
	}

	path := s.path(runID, role)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", path, err)
	}

	if abs, err := filepath.Abs(path); err == nil {
		return abs, nil
	}
	return path, nil
}

// Get reads the artifact file or returns ErrNotFound.
func (s *FileStore) Get(_ context.Context, runID, role string) ([]byte, error) {
	data, err := os.ReadFile(s.path(runID, role))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, runID, role)
		}
		return nil, fmt.Errorf("artifact: read %s/%s: %w", runID, role, err)
	}
	return data, nil
}

// List returns the roles with a stored artifact for the run.
func (s *FileStore) List(_ context.Context, runID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, runID))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("artifact: list %s: %w", runID, err)
	}

	roles := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		roles = append(roles, strings.TrimSuffix(e.Name(), ".txt"))
	}
	return roles, nil
}

// Delete removes the artifact file if present or returns ErrNotFound.
func (s *FileStore) Delete(_ context.Context, runID, role string) error {
	err := os.Remove(s.path(runID, role))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, runID, role)
	}
	if err != nil {
		return fmt.Errorf("artifact: delete %s/%s: %w", runID, role, err)
	}
	return nil
}
