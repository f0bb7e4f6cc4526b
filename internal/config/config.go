// Package config loads the releaser's environment configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cchalm/changeset-releaser/internal/ai"
	"github.com/cchalm/changeset-releaser/internal/workspace"
)

// Config holds settings that come from the environment rather than from flags
type Config struct {
	AnthropicAPIKey string // Required only for AI features
	GitHubToken     string // Optional: clone URL lookup, push credentials, pull requests

	WorkspaceRoot string
	Model         string

	GitAuthorName  string
	GitAuthorEmail string

	TelemetryEnabled bool
	OTLPEndpoint     string
	OTLPInsecure     bool
}

// Load reads configuration from environment variables, applying defaults for anything unset
func Load() (Config, error) {
	config := Config{
		WorkspaceRoot: workspace.DefaultRoot(),
		Model:         ai.DefaultModel,
	}

	loadOptionalFromEnv(&config.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	loadOptionalFromEnv(&config.GitHubToken, "GITHUB_TOKEN")
	loadOptionalFromEnv(&config.WorkspaceRoot, "RELEASE_TEMP_DIR")
	loadOptionalFromEnv(&config.Model, "RELEASE_MODEL")
	loadOptionalFromEnv(&config.GitAuthorName, "RELEASE_GIT_AUTHOR_NAME")
	loadOptionalFromEnv(&config.GitAuthorEmail, "RELEASE_GIT_AUTHOR_EMAIL")
	loadOptionalFromEnv(&config.OTLPEndpoint, "OTLP_ENDPOINT")

	if err := parseOptionalFromEnv(&config.TelemetryEnabled, "TELEMETRY_ENABLED", strconv.ParseBool); err != nil {
		return Config{}, err
	}
	if err := parseOptionalFromEnv(&config.OTLPInsecure, "OTLP_INSECURE", strconv.ParseBool); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks that the configuration can serve a run. needsAI is set when message generation or release type
// suggestion is requested
func (c Config) Validate(needsAI bool) error {
	if needsAI && c.AnthropicAPIKey == "" {
		return fmt.Errorf("missing required environment variable: ANTHROPIC_API_KEY")
	}
	if c.WorkspaceRoot == "" {
		return fmt.Errorf("workspace root must not be empty")
	}
	if !filepath.IsAbs(c.WorkspaceRoot) {
		return fmt.Errorf("workspace root '%s' must be an absolute path", c.WorkspaceRoot)
	}
	return nil
}

func loadOptionalFromEnv(dest *string, key string) {
	// Parsing a string cannot fail
	_ = parseOptionalFromEnv(dest, key, func(v string) (string, error) { return v, nil })
}

func parseOptionalFromEnv[T any](dest *T, key string, parseFn func(string) (T, error)) error {
	str := os.Getenv(key)
	if str == "" {
		return nil // Leave default value
	}
	v, err := parseFn(str)
	if err != nil {
		return fmt.Errorf("failed to parse environment variable '%s' value '%s' as '%T': %w", key, str, *dest, err)
	}
	*dest = v
	return nil
}
