package changeset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterMarker = "---"

// Format serializes a record into the changeset file format:
//
//	---
//	"<package>": <type>
//	---
//
//	<message>
func Format(r Record) ([]byte, error) {
	if err := validatePackageName(r.PackageName); err != nil {
		return nil, err
	}
	if !r.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReleaseType, r.Type)
	}

	var sb strings.Builder
	sb.WriteString(frontMatterMarker + "\n")
	sb.WriteString(`"` + r.PackageName + `": ` + string(r.Type) + "\n")
	sb.WriteString(frontMatterMarker + "\n")
	sb.WriteString("\n")
	sb.WriteString(r.Message)
	sb.WriteString("\n")

	return []byte(sb.String()), nil
}

// Parse parses the contents of a changeset file. The returned record has no ID; see ParseFile
func Parse(data []byte) (Record, error) {
	s := string(data)

	if !strings.HasPrefix(s, frontMatterMarker+"\n") {
		return Record{}, fmt.Errorf("%w: missing opening front matter marker", ErrMalformedChangeset)
	}
	s = s[len(frontMatterMarker)+1:]

	closing := "\n" + frontMatterMarker + "\n"
	end := strings.Index(s, closing)
	if end < 0 {
		return Record{}, fmt.Errorf("%w: missing closing front matter marker", ErrMalformedChangeset)
	}
	frontMatter, body := s[:end], s[end+len(closing):]

	var releases map[string]string
	if err := yaml.Unmarshal([]byte(frontMatter), &releases); err != nil {
		return Record{}, fmt.Errorf("%w: failed to parse front matter: %v", ErrMalformedChangeset, err)
	}
	if len(releases) != 1 {
		return Record{}, fmt.Errorf("%w: expected exactly one release entry, found %d", ErrMalformedChangeset, len(releases))
	}

	var r Record
	for name, typ := range releases {
		rt, err := ParseReleaseType(typ)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %w", ErrMalformedChangeset, err)
		}
		r.PackageName = name
		r.Type = rt
	}

	if !strings.HasPrefix(body, "\n") || !strings.HasSuffix(body, "\n") || len(body) < 2 {
		return Record{}, fmt.Errorf("%w: message must be preceded by a blank line and end with a newline", ErrMalformedChangeset)
	}
	r.Message = body[1 : len(body)-1]

	return r, nil
}

// ParseFile reads and parses a changeset file, taking the record ID from the file name
func ParseFile(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read changeset: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return Record{}, fmt.Errorf("failed to parse changeset %s: %w", path, err)
	}
	r.ID = strings.TrimSuffix(filepath.Base(path), fileExtension)
	return r, nil
}

// validatePackageName rejects names that cannot be written verbatim inside a double-quoted front matter key
func validatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPackageName)
	}
	if strings.ContainsAny(name, "\"\\\n\r") {
		return fmt.Errorf("%w: %q", ErrInvalidPackageName, name)
	}
	return nil
}
