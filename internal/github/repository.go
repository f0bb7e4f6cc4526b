package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v72/github"
)

// RepositoryService resolves repository metadata
type RepositoryService interface {
	GetRepository(ctx context.Context, owner, repo string) (RepositoryInfo, error)
}

type repositoryService struct {
	client *github.Client
}

// NewRepositoryService creates a new RepositoryService
func NewRepositoryService(client *github.Client) RepositoryService {
	return &repositoryService{client: client}
}

func (rs *repositoryService) GetRepository(ctx context.Context, owner, repo string) (RepositoryInfo, error) {
	r, _, err := rs.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return RepositoryInfo{}, fmt.Errorf("failed to get repository %s/%s: %w", owner, repo, err)
	}
	if r.GetCloneURL() == "" {
		return RepositoryInfo{}, fmt.Errorf("repository %s/%s has no clone URL", owner, repo)
	}

	return RepositoryInfo{
		Owner:         owner,
		Repo:          repo,
		CloneURL:      r.GetCloneURL(),
		DefaultBranch: r.GetDefaultBranch(),
	}, nil
}
