// Package changeset reads and writes changeset records, the small markdown files that tell
// downstream release tooling which package to bump and why.
package changeset

import (
	"fmt"
	"strings"
)

var (
	ErrInvalidReleaseType error = fmt.Errorf("invalid release type")
	ErrMalformedChangeset error = fmt.Errorf("malformed changeset")
	ErrInvalidPackageName error = fmt.Errorf("invalid package name")
)

// ReleaseType is a semantic versioning bump category
type ReleaseType string

const (
	Patch ReleaseType = "patch"
	Minor ReleaseType = "minor"
	Major ReleaseType = "major"
)

// ParseReleaseType parses a release type case-insensitively, ignoring surrounding whitespace
func ParseReleaseType(s string) (ReleaseType, error) {
	rt := ReleaseType(strings.ToLower(strings.TrimSpace(s)))
	if !rt.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidReleaseType, s)
	}
	return rt, nil
}

// Valid returns true if rt is one of patch, minor or major
func (rt ReleaseType) Valid() bool {
	switch rt {
	case Patch, Minor, Major:
		return true
	}
	return false
}

func (rt ReleaseType) String() string {
	return string(rt)
}

// ReleaseOptions describes the release a caller wants to cut
type ReleaseOptions struct {
	Type    ReleaseType
	Message string
}

// Record is a single changeset. It is written once and never modified
type Record struct {
	ID          string
	PackageName string
	Type        ReleaseType
	Message     string
}
