package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cchalm/changeset-releaser/internal/changeset"
	"github.com/cchalm/changeset-releaser/internal/github"
	"github.com/cchalm/changeset-releaser/internal/release"
)

type repositoryServiceStub struct {
	info  github.RepositoryInfo
	err   error
	calls int
}

func (rss *repositoryServiceStub) GetRepository(_ context.Context, owner, repo string) (github.RepositoryInfo, error) {
	rss.calls++
	return rss.info, rss.err
}

type pullRequestServiceStub struct {
	existing *github.PullRequest
	created  []string // base:head
	title    string
	body     string
}

func (prss *pullRequestServiceStub) CreatePullRequest(_ context.Context, owner, repo, baseBranch, sourceBranch, title, body string) (github.PullRequest, error) {
	prss.created = append(prss.created, baseBranch+":"+sourceBranch)
	prss.title = title
	prss.body = body
	return github.PullRequest{Number: 7, URL: "https://github.com/acme/demo/pull/7"}, nil
}

func (prss *pullRequestServiceStub) GetPullRequestByBranch(_ context.Context, owner, repo, branch string) (*github.PullRequest, error) {
	return prss.existing, nil
}

func TestBuildRequest(t *testing.T) {
	request, err := buildRequest(releaseFlags{
		Branch:        "release-demo",
		ReleaseType:   "Minor",
		Message:       "Adds X.",
		CommitMessage: "Release demo-pkg",
		CommitCount:   5,
	})
	require.NoError(t, err)
	require.Equal(t, release.Request{
		Branch:        "release-demo",
		CommitMessage: "Release demo-pkg",
		CommitCount:   5,
		Options:       changeset.ReleaseOptions{Type: changeset.Minor, Message: "Adds X."},
	}, request)
}

func TestBuildRequest_InvalidType(t *testing.T) {
	_, err := buildRequest(releaseFlags{Branch: "b", ReleaseType: "huge"})
	require.ErrorIs(t, err, changeset.ErrInvalidReleaseType)
}

func TestBuildRequest_SuggestedType(t *testing.T) {
	request, err := buildRequest(releaseFlags{Branch: "b", SuggestType: true, GenerateMessage: true})
	require.NoError(t, err)
	require.Equal(t, changeset.ReleaseType(""), request.Options.Type)
	require.True(t, request.SuggestType)
}

func TestBuildRequest_NoType(t *testing.T) {
	_, err := buildRequest(releaseFlags{Branch: "b", Message: "x"})
	require.Error(t, err)
}

func TestResolveTarget_ExplicitCloneURL(t *testing.T) {
	repoService := &repositoryServiceStub{}
	tgt, err := resolveTarget(context.Background(), repoService, releaseFlags{
		QualifiedRepoName: "acme/demo",
		CloneURL:          "https://git.example.com/demo.git",
	})
	require.NoError(t, err)
	require.Equal(t, 0, repoService.calls)
	require.Equal(t, release.RepoConfig{Repo: "acme/demo", CloneURL: "https://git.example.com/demo.git"}, tgt.repoConfig)
}

func TestResolveTarget_LooksUpCloneURL(t *testing.T) {
	repoService := &repositoryServiceStub{info: github.RepositoryInfo{
		Owner:         "acme",
		Repo:          "demo",
		CloneURL:      "https://github.com/acme/demo.git",
		DefaultBranch: "trunk",
	}}
	tgt, err := resolveTarget(context.Background(), repoService, releaseFlags{QualifiedRepoName: "acme/demo", OpenPR: true})
	require.NoError(t, err)
	require.Equal(t, 1, repoService.calls)
	require.Equal(t, "https://github.com/acme/demo.git", tgt.repoConfig.CloneURL)
	require.Equal(t, "trunk", tgt.baseBranch)
	require.Equal(t, "acme", tgt.owner)
	require.Equal(t, "demo", tgt.repo)
}

func TestResolveTarget_LookupError(t *testing.T) {
	repoService := &repositoryServiceStub{err: errors.New("not found")}
	_, err := resolveTarget(context.Background(), repoService, releaseFlags{QualifiedRepoName: "acme/demo"})
	require.ErrorIs(t, err, repoService.err)
}

func TestResolveTarget_InvalidName(t *testing.T) {
	_, err := resolveTarget(context.Background(), &repositoryServiceStub{}, releaseFlags{QualifiedRepoName: "demo"})
	require.Error(t, err)
}

func testResult() *release.Result {
	return &release.Result{
		RunID:          "run-1",
		Branch:         "release-demo",
		PackageName:    "demo-pkg",
		PackageVersion: "0.3.1",
		ChangesetID:    "release-0a1b2c3d",
		CommitSHA:      "abc123",
		Options:        changeset.ReleaseOptions{Type: changeset.Minor, Message: "Adds X."},
		MessageSource:  release.MessageFromCaller,
	}
}

func TestOpenPullRequest(t *testing.T) {
	prService := &pullRequestServiceStub{}
	tgt := target{owner: "acme", repo: "demo", baseBranch: "main"}

	pr, err := openPullRequest(context.Background(), prService, tgt, testResult())
	require.NoError(t, err)
	require.Equal(t, 7, pr.Number)
	require.Equal(t, []string{"main:release-demo"}, prService.created)
	require.Equal(t, "Release demo-pkg (minor)", prService.title)
	require.Contains(t, prService.body, "Adds X.")
	require.Contains(t, prService.body, "release-0a1b2c3d")
}

func TestOpenPullRequest_AlreadyOpen(t *testing.T) {
	prService := &pullRequestServiceStub{existing: &github.PullRequest{Number: 3, URL: "https://github.com/acme/demo/pull/3"}}
	tgt := target{owner: "acme", repo: "demo", baseBranch: "main"}

	pr, err := openPullRequest(context.Background(), prService, tgt, testResult())
	require.NoError(t, err)
	require.Equal(t, 3, pr.Number)
	require.Empty(t, prService.created)
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, testResult())

	require.Equal(t, "Run:       run-1\n"+
		"Package:   demo-pkg (currently 0.3.1)\n"+
		"Type:      minor\n"+
		"Changeset: release-0a1b2c3d (message from caller)\n"+
		"Branch:    release-demo\n"+
		"Commit:    abc123\n", buf.String())
}
