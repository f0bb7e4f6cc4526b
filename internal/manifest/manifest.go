// Package manifest reads package metadata from a repository's package.json.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// FileName is the manifest file at the repository root
const FileName = "package.json"

var ErrManifest error = fmt.Errorf("invalid package manifest")

// Manifest holds the fields of a package manifest a release needs
type Manifest struct {
	Name    string
	Version string
}

// Read reads the manifest at the root of the repository in dir. A missing file, malformed JSON, or a missing or
// non-string name or version is an ErrManifest
func Read(dir string) (Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Manifest{}, fmt.Errorf("%w: %s not found", ErrManifest, FileName)
	} else if err != nil {
		return Manifest{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses manifest content
func Parse(data []byte) (Manifest, error) {
	if !gjson.ValidBytes(data) {
		return Manifest{}, fmt.Errorf("%w: %s is not valid JSON", ErrManifest, FileName)
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Manifest{}, fmt.Errorf("%w: %s is not a JSON object", ErrManifest, FileName)
	}

	name, err := requiredString(root, "name")
	if err != nil {
		return Manifest{}, err
	}
	version, err := requiredString(root, "version")
	if err != nil {
		return Manifest{}, err
	}

	return Manifest{Name: name, Version: version}, nil
}

func requiredString(root gjson.Result, field string) (string, error) {
	v := root.Get(field)
	if !v.Exists() {
		return "", fmt.Errorf("%w: missing '%s' field", ErrManifest, field)
	}
	if v.Type != gjson.String || v.Str == "" {
		return "", fmt.Errorf("%w: '%s' must be a non-empty string", ErrManifest, field)
	}
	return v.Str, nil
}
