package changeset

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultDir is the changeset directory relative to the repository root
	DefaultDir = ".changeset"

	fileExtension = ".md"
	idPrefix      = "release-"
)

// Writer writes changeset files into a checked-out repository
type Writer struct {
	dir string // Relative to the repository root
}

// NewWriter creates a Writer that writes into the DefaultDir of a repository
func NewWriter() *Writer {
	return &Writer{dir: DefaultDir}
}

// Dir returns the changeset directory relative to the repository root
func (w *Writer) Dir() string {
	return w.dir
}

// Write writes a new changeset for packageName into the repository at workspacePath and returns its ID. Each call
// generates a fresh random ID; an existing file is never overwritten
func (w *Writer) Write(workspacePath string, packageName string, opts ReleaseOptions) (string, error) {
	record := Record{
		ID:          newID(),
		PackageName: packageName,
		Type:        opts.Type,
		Message:     opts.Message,
	}

	content, err := Format(record)
	if err != nil {
		return "", fmt.Errorf("failed to format changeset: %w", err)
	}

	dir := filepath.Join(workspacePath, w.dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create changeset directory: %w", err)
	}

	path := filepath.Join(dir, record.ID+fileExtension)
	log.Printf("Writing changeset to %s", path)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create changeset file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write changeset file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close changeset file: %w", err)
	}

	return record.ID, nil
}

// Path returns the path of the changeset file with the given ID inside the repository at workspacePath
func (w *Writer) Path(workspacePath string, id string) string {
	return filepath.Join(workspacePath, w.dir, id+fileExtension)
}

// newID returns "release-" followed by 8 random hex characters. The first group of a version 4 UUID is 32 random bits
func newID() string {
	group, _, _ := strings.Cut(uuid.NewString(), "-")
	return idPrefix + group
}
