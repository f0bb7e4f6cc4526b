// Package git provides the version control operations a release needs: clone, branch, stage, commit, push and log.
package git

import (
	"context"
	"fmt"
	"time"
)

var (
	ErrBranchExists    error = fmt.Errorf("branch already exists")
	ErrNothingToCommit error = fmt.Errorf("nothing to commit")
)

// DefaultRemote is the remote a clone's origin is registered under
const DefaultRemote = "origin"

// Commit is a single entry of a repository's history
type Commit struct {
	Hash    string
	Summary string // First line of the commit message
	Author  string
	When    time.Time
}

// Cloner clones remote repositories
type Cloner interface {
	// Clone clones url into dir. A depth of 0 clones full history
	Clone(ctx context.Context, url string, dir string, depth int) (Repo, error)
}

// Repo provides operations on a local clone
type Repo interface {
	// Dir returns the root of the working tree
	Dir() string

	// CreateBranch creates a branch from HEAD and checks it out. It returns ErrBranchExists if a local branch of that
	// name already exists
	CreateBranch(ctx context.Context, name string) error

	// Add stages the file or directory at path, relative to the working tree root
	Add(ctx context.Context, path string) error

	// Commit commits staged changes and returns the new commit hash. It returns ErrNothingToCommit if nothing is staged
	Commit(ctx context.Context, message string) (string, error)

	// Push pushes a local branch to the branch of the same name on remote, creating it if needed. A shallow clone is
	// deepened first
	Push(ctx context.Context, remote string, branch string) error

	// Unshallow fetches the full history of a shallow clone. It is a no-op on a complete clone
	Unshallow(ctx context.Context) error

	// Log returns up to count commits reachable from HEAD, most recent first
	Log(ctx context.Context, count int) ([]Commit, error)

	// Head returns the hash of the commit HEAD points to
	Head(ctx context.Context) (string, error)
}
