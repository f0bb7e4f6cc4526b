// Package gittest provides an in-memory implementation of the git interfaces for tests.
package gittest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cchalm/changeset-releaser/internal/git"
)

// CommitRecord is a commit created through a FakeRepo
type CommitRecord struct {
	Hash    string
	Branch  string
	Message string
	Files   map[string]string // Path relative to the working tree root -> content
}

// FakeCloner "clones" by writing Files into the destination directory. It remembers every repo it hands out
type FakeCloner struct {
	Files   map[string]string // Working tree content of the remote
	History []string          // Commit summaries of the remote, most recent first
	Branch  string            // Default branch, "main" if empty

	CloneErr  error
	PushErr   error
	LogErr    error
	CommitErr error

	Repos []*FakeRepo
}

func (fc *FakeCloner) Clone(ctx context.Context, url string, dir string, depth int) (git.Repo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fc.CloneErr != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", url, fc.CloneErr)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	for path, content := range fc.Files {
		full := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			return nil, err
		}
	}

	branch := fc.Branch
	if branch == "" {
		branch = "main"
	}

	repo := &FakeRepo{
		cloner:   fc,
		URL:      url,
		dir:      dir,
		Depth:    depth,
		Shallow:  depth > 0,
		Branches: map[string]struct{}{branch: {}},
		Current:  branch,
		history:  append([]string{}, fc.History...),
		Pushed:   map[string]string{},
	}
	fc.Repos = append(fc.Repos, repo)
	return repo, nil
}

// FakeRepo is a git.Repo that tracks its state in memory, reading staged files from disk
type FakeRepo struct {
	cloner *FakeCloner

	URL     string
	dir     string
	Depth   int
	Shallow bool

	Branches map[string]struct{}
	Current  string

	staged  map[string]string
	history []string

	Commits        []CommitRecord
	Pushed         map[string]string // Branch -> pushed commit hash
	UnshallowCalls int
}

func (fr *FakeRepo) Dir() string {
	return fr.dir
}

func (fr *FakeRepo) CreateBranch(_ context.Context, name string) error {
	if _, ok := fr.Branches[name]; ok {
		return fmt.Errorf("%w: %s", git.ErrBranchExists, name)
	}
	fr.Branches[name] = struct{}{}
	fr.Current = name
	return nil
}

func (fr *FakeRepo) Add(_ context.Context, path string) error {
	root := filepath.Join(fr.dir, path)
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("failed to stage %s: %w", path, err)
	}
	if fr.staged == nil {
		fr.staged = map[string]string{}
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(fr.dir, p)
		if err != nil {
			return err
		}
		if existing, ok := fr.cloner.Files[filepath.ToSlash(rel)]; ok && existing == string(content) {
			return nil // Unmodified
		}
		fr.staged[filepath.ToSlash(rel)] = string(content)
		return nil
	})
}

func (fr *FakeRepo) Commit(_ context.Context, message string) (string, error) {
	if fr.cloner.CommitErr != nil {
		return "", fr.cloner.CommitErr
	}
	if len(fr.staged) == 0 {
		return "", git.ErrNothingToCommit
	}

	sum := sha1.Sum([]byte(fmt.Sprintf("%s/%d/%s", fr.Current, len(fr.Commits), message)))
	record := CommitRecord{
		Hash:    hex.EncodeToString(sum[:]),
		Branch:  fr.Current,
		Message: message,
		Files:   fr.staged,
	}
	fr.staged = nil
	fr.Commits = append(fr.Commits, record)
	fr.history = append([]string{message}, fr.history...)

	return record.Hash, nil
}

// Push deepens a shallow repo before pushing, as the go-git implementation does
func (fr *FakeRepo) Push(ctx context.Context, remote string, branch string) error {
	if fr.Shallow {
		if err := fr.Unshallow(ctx); err != nil {
			return err
		}
	}
	if fr.cloner.PushErr != nil {
		return fmt.Errorf("failed to push branch '%s' to %s: %w", branch, remote, fr.cloner.PushErr)
	}
	if _, ok := fr.Branches[branch]; !ok {
		return fmt.Errorf("src refspec %s does not match any", branch)
	}
	head, _ := fr.Head(context.Background())
	fr.Pushed[branch] = head
	return nil
}

func (fr *FakeRepo) Unshallow(_ context.Context) error {
	fr.UnshallowCalls++
	fr.Shallow = false
	return nil
}

func (fr *FakeRepo) Log(_ context.Context, count int) ([]git.Commit, error) {
	if fr.cloner.LogErr != nil {
		return nil, fr.cloner.LogErr
	}

	available := fr.history
	if fr.Shallow && len(available) > 1 {
		available = available[:1]
	}
	if count < len(available) {
		available = available[:count]
	}

	commits := []git.Commit{}
	for _, s := range available {
		commits = append(commits, git.Commit{Summary: s})
	}
	return commits, nil
}

func (fr *FakeRepo) Head(_ context.Context) (string, error) {
	if len(fr.Commits) == 0 {
		return "0000000000000000000000000000000000000000", nil
	}
	return fr.Commits[len(fr.Commits)-1].Hash, nil
}

// LastCommit returns the most recent commit made through the repo, or nil
func (fr *FakeRepo) LastCommit() *CommitRecord {
	if len(fr.Commits) == 0 {
		return nil
	}
	return &fr.Commits[len(fr.Commits)-1]
}

// CommittedPaths returns the sorted paths in a commit
func CommittedPaths(c CommitRecord) []string {
	paths := []string{}
	for p := range c.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
