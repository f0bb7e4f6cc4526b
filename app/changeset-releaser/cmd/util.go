package cmd

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	gogithub "github.com/google/go-github/v72/github"

	"github.com/cchalm/changeset-releaser/internal/git"
	"github.com/cchalm/changeset-releaser/internal/github"
	"github.com/cchalm/changeset-releaser/internal/telemetry"
	"github.com/cchalm/changeset-releaser/internal/transport"
)

func setupContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		log.Println("Interrupt signal detected, shutting down gracefully...")
		cancel()
		<-interrupt
		log.Fatal("Forcing shutdown")
	}()

	return ctx
}

func createGithubClient(ctx context.Context, token string) *gogithub.Client {
	return github.NewClient(ctx, token, transport.WithRateLimiting(nil))
}

func createAnthropicClient(apiKey string) anthropic.Client {
	rateLimitedHTTPClient := &http.Client{
		Transport: transport.WithRateLimiting(nil),
	}
	return anthropic.NewClient(
		option.WithHTTPClient(rateLimitedHTTPClient),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(5),
	)
}

func createCloner() git.Cloner {
	return git.NewGoGitClient(
		git.WithTokenAuth(cfg.GitHubToken),
		git.WithAuthor(git.Signature{Name: cfg.GitAuthorName, Email: cfg.GitAuthorEmail}),
	)
}

func createTelemetryProvider(ctx context.Context) (*telemetry.Provider, error) {
	telemetryConfig := telemetry.Config{
		Enabled:        cfg.TelemetryEnabled,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		ServiceVersion: versionInfo.version,
	}
	return telemetry.NewProvider(ctx, telemetryConfig)
}
