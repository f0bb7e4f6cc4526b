// Package repository scopes version control operations to a single release workspace.
package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/cchalm/changeset-releaser/internal/changeset"
	"github.com/cchalm/changeset-releaser/internal/git"
	"github.com/cchalm/changeset-releaser/internal/manifest"
)

const (
	// CloneDepth is the depth of the initial clone. History is fetched on demand by ReadRecentCommits
	CloneDepth = 1

	// DefaultCommitCount is the number of commits ReadRecentCommits returns when asked for zero or fewer
	DefaultCommitCount = 10
)

var ErrNotCloned error = fmt.Errorf("repository has not been cloned")

// Client wraps the clone of one repository inside one workspace. It is not safe for concurrent use; a release runs
// its steps one after another
type Client struct {
	cloner git.Cloner
	writer *changeset.Writer

	repo     git.Repo
	manifest *manifest.Manifest // Cached after the first read
	deepened bool
}

// New creates a client that clones with cloner and writes changesets with writer
func New(cloner git.Cloner, writer *changeset.Writer) *Client {
	if writer == nil {
		writer = changeset.NewWriter()
	}
	return &Client{
		cloner: cloner,
		writer: writer,
	}
}

// Clone makes a shallow clone of cloneURL into path
func (c *Client) Clone(ctx context.Context, cloneURL string, path string) error {
	repo, err := c.cloner.Clone(ctx, cloneURL, path, CloneDepth)
	if err != nil {
		return err
	}
	c.repo = repo
	c.manifest = nil
	c.deepened = false
	log.Printf("Cloned to %s", path)
	return nil
}

// Dir returns the working tree root, or "" before Clone
func (c *Client) Dir() string {
	if c.repo == nil {
		return ""
	}
	return c.repo.Dir()
}

// CreateBranch creates and switches to a new local branch from HEAD
func (c *Client) CreateBranch(ctx context.Context, name string) error {
	if c.repo == nil {
		return ErrNotCloned
	}
	log.Printf("Creating branch: %s", name)
	if err := c.repo.CreateBranch(ctx, name); err != nil {
		return err
	}
	log.Printf("Switched to branch: %s", name)
	return nil
}

// WriteAndStageChangeset writes a changeset for packageName and stages the changeset directory, and nothing else
func (c *Client) WriteAndStageChangeset(ctx context.Context, packageName string, opts changeset.ReleaseOptions) (string, error) {
	if c.repo == nil {
		return "", ErrNotCloned
	}

	id, err := c.writer.Write(c.repo.Dir(), packageName, opts)
	if err != nil {
		return "", err
	}

	log.Printf("Staging changes...")
	if err := c.repo.Add(ctx, c.writer.Dir()); err != nil {
		return "", err
	}

	return id, nil
}

// Commit commits staged changes and returns the commit hash
func (c *Client) Commit(ctx context.Context, message string) (string, error) {
	if c.repo == nil {
		return "", ErrNotCloned
	}
	log.Printf("Committing: %s", message)
	return c.repo.Commit(ctx, message)
}

// Push pushes branch to origin
func (c *Client) Push(ctx context.Context, branch string) error {
	if c.repo == nil {
		return ErrNotCloned
	}
	log.Printf("Pushing branch %s to %s...", branch, git.DefaultRemote)
	if err := c.repo.Push(ctx, git.DefaultRemote, branch); err != nil {
		return err
	}
	log.Printf("Push complete")
	return nil
}

// HeadSHA returns the hash of the commit HEAD points to
func (c *Client) HeadSHA(ctx context.Context) (string, error) {
	if c.repo == nil {
		return "", ErrNotCloned
	}
	return c.repo.Head(ctx)
}

// ReadPackageName returns the name declared in the repository's package manifest
func (c *Client) ReadPackageName() (string, error) {
	m, err := c.readManifest()
	if err != nil {
		return "", err
	}
	return m.Name, nil
}

// ReadPackageVersion returns the version declared in the repository's package manifest
func (c *Client) ReadPackageVersion() (string, error) {
	m, err := c.readManifest()
	if err != nil {
		return "", err
	}
	return m.Version, nil
}

func (c *Client) readManifest() (manifest.Manifest, error) {
	if c.repo == nil {
		return manifest.Manifest{}, ErrNotCloned
	}
	if c.manifest != nil {
		return *c.manifest, nil
	}
	m, err := manifest.Read(c.repo.Dir())
	if err != nil {
		return manifest.Manifest{}, err
	}
	c.manifest = &m
	return m, nil
}

// ReadRecentCommits returns up to count commit summaries, most recent first. The shallow clone is deepened to full
// history on the first call
func (c *Client) ReadRecentCommits(ctx context.Context, count int) ([]string, error) {
	if c.repo == nil {
		return nil, ErrNotCloned
	}
	if count <= 0 {
		count = DefaultCommitCount
	}

	log.Printf("Fetching last %d commits...", count)
	if !c.deepened {
		if err := c.repo.Unshallow(ctx); err != nil {
			return nil, err
		}
		c.deepened = true
	}

	commits, err := c.repo.Log(ctx, count)
	if err != nil {
		return nil, err
	}

	summaries := make([]string, 0, len(commits))
	for _, commit := range commits {
		summaries = append(summaries, commit.Summary)
	}
	return summaries, nil
}
