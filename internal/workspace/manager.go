// Package workspace allocates and removes the temporary directories that release attempts clone into.
package workspace

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidRepoID error = fmt.Errorf("invalid repository identifier")
	ErrNotManaged    error = fmt.Errorf("path is not a workspace under the workspace root")
)

// DefaultRoot returns the directory workspaces are created under when no root is configured
func DefaultRoot() string {
	return filepath.Join(os.TempDir(), "changeset-releaser")
}

// Manager hands out one exclusively-owned directory per release attempt. It keeps no record of the workspaces it has
// allocated; the random suffix in each path keeps concurrent attempts apart
type Manager struct {
	root string
}

// NewManager creates a Manager that allocates workspaces under root
func NewManager(root string) *Manager {
	if root == "" {
		root = DefaultRoot()
	}
	return &Manager{root: filepath.Clean(root)}
}

// Root returns the directory workspaces are allocated under
func (m *Manager) Root() string {
	return m.root
}

// Allocate computes a fresh workspace path for repoID, ensuring the root exists and that nothing occupies the path.
// The directory itself is left for the clone to create
func (m *Manager) Allocate(repoID string) (string, error) {
	name := sanitizeRepoID(repoID)
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRepoID, repoID)
	}

	if err := os.MkdirAll(m.root, 0755); err != nil {
		return "", fmt.Errorf("failed to create workspace root %s: %w", m.root, err)
	}

	path := filepath.Join(m.root, fmt.Sprintf("%s-%s", name, randomSuffix()))

	// Stale directory from an earlier attempt
	if _, err := os.Lstat(path); err == nil {
		log.Printf("Removing stale workspace %s", path)
		if err := os.RemoveAll(path); err != nil {
			return "", fmt.Errorf("failed to remove stale workspace %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to stat workspace %s: %w", path, err)
	}

	return path, nil
}

// Release removes the workspace at path and everything in it. It is a no-op if path is empty or does not exist, so it
// may be called any number of times, including after a failed Allocate. Paths outside the root are refused with
// ErrNotManaged and left untouched, whether or not they exist
func (m *Manager) Release(path string) error {
	if path == "" {
		return nil
	}
	if !m.owns(path) {
		return fmt.Errorf("%w: %s", ErrNotManaged, path)
	}

	if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	log.Printf("Cleaning up %s", path)
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", path, err)
	}
	return nil
}

// Exists returns true if a directory exists at path
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// owns returns true if path is strictly inside the workspace root
func (m *Manager) owns(path string) bool {
	rel, err := filepath.Rel(m.root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// randomSuffix returns 8 hex characters, the 32 random bits of the first group of a version 4 UUID
func randomSuffix() string {
	group, _, _ := strings.Cut(uuid.NewString(), "-")
	return group
}

// sanitizeRepoID turns a repository identifier such as "owner/repo" into a single path element
func sanitizeRepoID(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, " ", "-")

	invalidChars := []string{"~", "^", ":", "?", "*", "[", "]", "..", "<", ">", "|", "\""}
	for _, char := range invalidChars {
		s = strings.ReplaceAll(s, char, "")
	}

	return strings.Trim(s, "-.")
}
