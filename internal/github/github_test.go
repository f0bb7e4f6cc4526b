package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v72/github"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *github.Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(context.Background(), "test-token", nil)
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = baseURL
	return client
}

func TestGetRepository(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/demo", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"name": "demo", "clone_url": "https://github.com/acme/demo.git", "default_branch": "main"}`))
	})

	info, err := NewRepositoryService(newTestClient(t, mux)).GetRepository(context.Background(), "acme", "demo")
	require.NoError(t, err)
	require.Equal(t, RepositoryInfo{
		Owner:         "acme",
		Repo:          "demo",
		CloneURL:      "https://github.com/acme/demo.git",
		DefaultBranch: "main",
	}, info)
}

func TestGetRepository_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	})

	_, err := NewRepositoryService(newTestClient(t, mux)).GetRepository(context.Background(), "acme", "missing")
	require.Error(t, err)
}

func TestCreatePullRequest(t *testing.T) {
	var received map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/demo/pulls", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number": 42, "html_url": "https://github.com/acme/demo/pull/42"}`))
	})

	pr, err := NewPullRequestService(newTestClient(t, mux)).CreatePullRequest(
		context.Background(), "acme", "demo", "main", "release-demo", "Release demo-pkg", "Adds X.")
	require.NoError(t, err)
	require.Equal(t, PullRequest{Number: 42, URL: "https://github.com/acme/demo/pull/42"}, pr)

	require.Equal(t, "main", received["base"])
	require.Equal(t, "release-demo", received["head"])
	require.Equal(t, "Release demo-pkg", received["title"])
	require.Equal(t, "Adds X.", received["body"])
}

func TestCreatePullRequest_Forbidden(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/demo/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "Resource not accessible by integration"}`))
	})

	_, err := NewPullRequestService(newTestClient(t, mux)).CreatePullRequest(context.Background(), "acme", "demo", "main", "release-demo", "t", "b")

	var permErr InsufficientPermissionsError
	require.ErrorAs(t, err, &permErr)
	require.Equal(t, "create pull requests", permErr.Operation)
	require.Equal(t, "Resource not accessible by integration", permErr.Reason)
}

func TestGetPullRequestByBranch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/demo/pulls", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "acme:release-demo", r.URL.Query().Get("head"))
		_, _ = w.Write([]byte(`[{"number": 7, "html_url": "https://github.com/acme/demo/pull/7", "head": {"ref": "release-demo"}}]`))
	})

	pr, err := NewPullRequestService(newTestClient(t, mux)).GetPullRequestByBranch(context.Background(), "acme", "demo", "release-demo")
	require.NoError(t, err)
	require.NotNil(t, pr)
	require.Equal(t, 7, pr.Number)
}

func TestParseQualifiedName(t *testing.T) {
	owner, repo, err := ParseQualifiedName("acme/demo")
	require.NoError(t, err)
	require.Equal(t, "acme", owner)
	require.Equal(t, "demo", repo)

	for _, invalid := range []string{"demo", "acme/", "/demo", "a/b/c"} {
		_, _, err := ParseQualifiedName(invalid)
		require.Error(t, err, invalid)
	}
}
