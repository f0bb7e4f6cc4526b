package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// unshallowDepth is the depth git itself requests for --unshallow
const unshallowDepth = math.MaxInt32

// Signature identifies the author of commits created by a client
type Signature struct {
	Name  string
	Email string
}

// DefaultSignature is used when no author is configured
var DefaultSignature = Signature{
	Name:  "changeset-releaser",
	Email: "changeset-releaser@users.noreply.github.com",
}

// goGitClient implements Cloner with go-git, without shelling out to a git binary
type goGitClient struct {
	token  string
	author Signature
}

// Option configures a go-git client
type Option func(*goGitClient)

// WithTokenAuth authenticates HTTPS transfers with a GitHub-style access token. An empty token leaves transfers
// unauthenticated. The token is never sent to ssh or file URLs
func WithTokenAuth(token string) Option {
	return func(c *goGitClient) {
		c.token = token
	}
}

// WithAuthor sets the author and committer of new commits
func WithAuthor(author Signature) Option {
	return func(c *goGitClient) {
		if author.Name != "" {
			c.author.Name = author.Name
		}
		if author.Email != "" {
			c.author.Email = author.Email
		}
	}
}

// NewGoGitClient creates a Cloner backed by go-git
func NewGoGitClient(opts ...Option) Cloner {
	c := &goGitClient{author: DefaultSignature}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *goGitClient) Clone(ctx context.Context, url string, dir string, depth int) (Repo, error) {
	log.Printf("Cloning %s to %s (depth %d)", url, dir, depth)

	auth := c.authFor(url)
	repo, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
		URL:   url,
		Auth:  auth,
		Depth: depth,
		Tags:  gogit.NoTags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", url, err)
	}

	return &goGitRepo{
		repo:   repo,
		dir:    dir,
		auth:   auth,
		author: c.author,
	}, nil
}

// authFor returns the credentials to use for url, or nil if the token does not apply to its transport
func (c *goGitClient) authFor(url string) transport.AuthMethod {
	if c.token == "" {
		return nil
	}
	endpoint, err := transport.NewEndpoint(url)
	if err != nil || (endpoint.Protocol != "http" && endpoint.Protocol != "https") {
		return nil
	}
	return &http.BasicAuth{
		Username: "x-access-token",
		Password: c.token,
	}
}

// goGitRepo implements Repo on a local go-git repository
type goGitRepo struct {
	repo   *gogit.Repository
	dir    string
	auth   transport.AuthMethod
	author Signature
}

func (r *goGitRepo) Dir() string {
	return r.dir
}

func (r *goGitRepo) CreateBranch(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	refName := plumbing.NewBranchReferenceName(name)
	_, err := r.repo.Reference(refName, false)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrBranchExists, name)
	} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("unexpected error while checking if branch exists: %w", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	err = wt.Checkout(&gogit.CheckoutOptions{
		Branch: refName,
		Create: true,
		Keep:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to create branch '%s': %w", name, err)
	}

	return nil
}

func (r *goGitRepo) Add(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	if _, err := wt.Add(filepath.ToSlash(path)); err != nil {
		return fmt.Errorf("failed to stage %s: %w", path, err)
	}

	return nil
}

func (r *goGitRepo) Commit(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree status: %w", err)
	}
	if !hasStagedChanges(status) {
		return "", ErrNothingToCommit
	}

	sig := &object.Signature{
		Name:  r.author.Name,
		Email: r.author.Email,
		When:  time.Now(),
	}
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	return hash.String(), nil
}

func (r *goGitRepo) Push(ctx context.Context, remote string, branch string) error {
	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	if err := refSpec.Validate(); err != nil {
		return fmt.Errorf("invalid refspec for branch '%s': %w", branch, err)
	}

	// go-git walks back from the remote's head when building the pack and fails at the shallow boundary
	if err := r.Unshallow(ctx); err != nil {
		return fmt.Errorf("failed to push branch '%s' to %s: %w", branch, remote, err)
	}

	err := r.repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       r.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push branch '%s' to %s: %w", branch, remote, err)
	}

	return nil
}

func (r *goGitRepo) Unshallow(ctx context.Context) error {
	shallows, err := r.repo.Storer.Shallow()
	if err != nil {
		return fmt.Errorf("failed to read shallow commits: %w", err)
	}
	if len(shallows) == 0 {
		return nil
	}

	log.Printf("Fetching full history of %s", r.dir)
	err = r.repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: DefaultRemote,
		Depth:      unshallowDepth,
		Auth:       r.auth,
		Tags:       gogit.NoTags,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch full history: %w", err)
	}

	// go-git only ever adds to the shallow list; the history behind it is complete now
	if err := r.repo.Storer.SetShallow(nil); err != nil {
		return fmt.Errorf("failed to clear shallow commits: %w", err)
	}

	return nil
}

func (r *goGitRepo) Log(ctx context.Context, count int) ([]Commit, error) {
	if count <= 0 {
		return []Commit{}, nil
	}

	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	iter, err := r.repo.Log(&gogit.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	commits := []Commit{}
	for len(commits) < count {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if errors.Is(err, plumbing.ErrObjectNotFound) {
			// The history of a shallow clone ends early
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to read log: %w", err)
		}

		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Summary: summary(c.Message),
			Author:  c.Author.Name,
			When:    c.Author.When,
		})
	}

	return commits, nil
}

func (r *goGitRepo) Head(_ context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// hasStagedChanges returns true if any file differs between the index and HEAD
func hasStagedChanges(status gogit.Status) bool {
	for _, s := range status {
		if s.Staging != gogit.Unmodified && s.Staging != gogit.Untracked {
			return true
		}
	}
	return false
}

// summary returns the first line of a commit message
func summary(message string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(line)
}
