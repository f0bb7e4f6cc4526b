// Package github looks up repositories and opens release pull requests through the GitHub API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v72/github"
	"golang.org/x/oauth2"
)

// NewClient creates a GitHub client. The token may be empty for unauthenticated access to public repositories. base
// is the transport requests are sent through, http.DefaultTransport if nil
func NewClient(ctx context.Context, token string, base http.RoundTripper) *github.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient := &http.Client{Transport: base}
	if token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		tokenSource := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(ctx, tokenSource)
	}
	return github.NewClient(httpClient)
}

// ParseQualifiedName splits "owner/repo"
func ParseQualifiedName(qualified string) (string, string, error) {
	parts := strings.Split(qualified, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format '%s', expected owner/repo", qualified)
	}
	return parts[0], parts[1], nil
}
