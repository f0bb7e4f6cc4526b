package github

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v72/github"
)

// RepositoryInfo is what a release needs to know about a GitHub repository before cloning it
type RepositoryInfo struct {
	Owner         string
	Repo          string
	CloneURL      string
	DefaultBranch string
}

// PullRequest is a pull request opened for a release branch
type PullRequest struct {
	Number int
	URL    string
}

// InsufficientPermissionsError indicates that the token cannot perform an operation.
type InsufficientPermissionsError struct {
	Operation string
	Reason    string
}

func (ipe InsufficientPermissionsError) Error() string {
	return fmt.Sprintf("insufficient permissions to %s: %s", ipe.Operation, ipe.Reason)
}

// checkPermissions converts a 403 response into an InsufficientPermissionsError
func checkPermissions(operation string, resp *github.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusForbidden {
		reason := "forbidden"
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && errResp.Message != "" {
			reason = errResp.Message
		}
		return InsufficientPermissionsError{Operation: operation, Reason: reason}
	}
	return err
}
