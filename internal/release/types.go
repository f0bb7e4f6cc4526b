// Package release cuts a release: it clones a repository into a fresh workspace, commits a changeset on a new branch
// and pushes the branch for the downstream release pipeline.
package release

import (
	"context"
	"fmt"

	"github.com/cchalm/changeset-releaser/internal/changeset"
)

// Steps of a release run, in order. A StepError names the step that failed
const (
	StepAllocate  = "allocate"
	StepClone     = "clone"
	StepBranch    = "branch"
	StepManifest  = "manifest"
	StepHistory   = "history"
	StepDescribe  = "describe"
	StepChangeset = "changeset"
	StepCommit    = "commit"
	StepPush      = "push"
	StepRelease   = "release"
)

var (
	ErrInvalidRequest error = fmt.Errorf("invalid release request")
	ErrNoDescriber    error = fmt.Errorf("AI features requested but no describer configured")
)

// RepoConfig identifies the remote repository a run targets
type RepoConfig struct {
	Repo     string // Identifier used to name the workspace, e.g. "demo" or "owner/demo"
	CloneURL string
}

// Request describes the release a caller wants
type Request struct {
	Branch        string // Must not exist in the clone; choosing a unique name is the caller's job
	CommitMessage string // Defaults to "Release <package>"
	PackageName   string // Defaults to the name in the repository's package manifest

	Options changeset.ReleaseOptions

	// GenerateMessage asks the describer for the changeset message. If generation fails, Options.Message is used
	// instead when it is set; otherwise the run fails
	GenerateMessage bool
	// SuggestType asks the describer for the release type, replacing Options.Type
	SuggestType bool
	// CommitCount is the number of recent commits shown to the describer. Zero or less means the default of 10
	CommitCount int
}

// Result describes a completed run
type Result struct {
	RunID          string
	Branch         string
	PackageName    string
	PackageVersion string // Empty if the manifest could not be read and the package name was given
	ChangesetID    string
	CommitSHA      string
	Options        changeset.ReleaseOptions // As written to the changeset
	MessageSource  MessageSource
}

// MessageSource records where the changeset message came from
type MessageSource string

const (
	MessageFromCaller   MessageSource = "caller"
	MessageFromAI       MessageSource = "ai"
	MessageFromFallback MessageSource = "fallback"
)

// Describer writes release descriptions and suggests release types
type Describer interface {
	// DescribeRelease returns an error if no description could be produced
	DescribeRelease(ctx context.Context, packageName string, releaseType changeset.ReleaseType, recentCommits []string) (string, error)
	// SuggestReleaseType always returns a valid release type
	SuggestReleaseType(ctx context.Context, recentCommits []string) changeset.ReleaseType
}

// StepError is returned by Run when a step fails. It unwraps to the underlying cause
type StepError struct {
	Step string
	Err  error
}

func (se *StepError) Error() string {
	return fmt.Sprintf("release step '%s' failed: %v", se.Step, se.Err)
}

func (se *StepError) Unwrap() error {
	return se.Err
}
