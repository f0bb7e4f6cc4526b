package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v72/github"
)

// PullRequestService handles GitHub pull request operations
type PullRequestService interface {
	CreatePullRequest(ctx context.Context, owner, repo, baseBranch, sourceBranch, title, body string) (PullRequest, error)
	GetPullRequestByBranch(ctx context.Context, owner, repo, branch string) (*PullRequest, error)
}

// pullRequestService implements PullRequestService using GitHub API
type pullRequestService struct {
	client *github.Client
}

// NewPullRequestService creates a new PullRequestService
func NewPullRequestService(client *github.Client) PullRequestService {
	return &pullRequestService{
		client: client,
	}
}

func (prs *pullRequestService) CreatePullRequest(ctx context.Context, owner, repo, baseBranch, sourceBranch, title, body string) (PullRequest, error) {
	newPR := &github.NewPullRequest{
		Title:               github.Ptr(title),
		Head:                github.Ptr(sourceBranch),
		Base:                github.Ptr(baseBranch),
		Body:                github.Ptr(body),
		MaintainerCanModify: github.Ptr(true),
	}

	pr, resp, err := prs.client.PullRequests.Create(ctx, owner, repo, newPR)
	if err != nil {
		err = checkPermissions("create pull requests", resp, err)
		return PullRequest{}, fmt.Errorf("failed to create pull request: %w", err)
	}

	return PullRequest{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}, nil
}

// GetPullRequestByBranch returns the open pull request from branch, or nil if there is none
func (prs *pullRequestService) GetPullRequestByBranch(ctx context.Context, owner, repo, branch string) (*PullRequest, error) {
	opts := &github.PullRequestListOptions{
		Head:        fmt.Sprintf("%s:%s", owner, branch),
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	prList, _, err := prs.client.PullRequests.List(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}

	for _, pr := range prList {
		if strings.EqualFold(pr.GetHead().GetRef(), branch) {
			return &PullRequest{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}, nil
		}
	}

	return nil, nil // No PR found
}
