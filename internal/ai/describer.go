package ai

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log"
	"strings"
	"text/template"

	"github.com/cchalm/changeset-releaser/internal/changeset"
)

//go:embed describe_prompt.tmpl
var describePromptTemplate string

//go:embed suggest_prompt.tmpl
var suggestPromptTemplate string

var (
	describePrompt = template.Must(template.New("describe").Parse(describePromptTemplate))
	suggestPrompt  = template.Must(template.New("suggest").Parse(suggestPromptTemplate))
)

// Describer writes release descriptions and suggests release types.
//
// The two operations fail differently on purpose. DescribeRelease returns the completion error, because there is no
// safe stand-in for a description and the caller must choose between a manual message and aborting.
// SuggestReleaseType never fails: patch is always an acceptable, conservative answer
type Describer struct {
	completer Completer
	model     string
}

// NewDescriber creates a Describer that sends prompts to model through completer
func NewDescriber(completer Completer, model string) *Describer {
	if model == "" {
		model = DefaultModel
	}
	return &Describer{
		completer: completer,
		model:     model,
	}
}

type describePromptData struct {
	PackageName string
	ReleaseType changeset.ReleaseType
	Commits     []string
}

type suggestPromptData struct {
	Commits []string
}

// DescribeRelease asks for a one to three sentence plain text description of a release of packageName
func (d *Describer) DescribeRelease(ctx context.Context, packageName string, releaseType changeset.ReleaseType, recentCommits []string) (string, error) {
	log.Printf("Generating changeset description with AI...")

	prompt, err := render(describePrompt, describePromptData{
		PackageName: packageName,
		ReleaseType: releaseType,
		Commits:     recentCommits,
	})
	if err != nil {
		return "", err
	}

	text, err := d.completer.Complete(ctx, d.model, prompt)
	if err != nil {
		log.Printf("AI generation failed: %v", err)
		return "", fmt.Errorf("failed to generate release description: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("failed to generate release description: %w", ErrEmptyCompletion)
	}

	return text, nil
}

// SuggestReleaseType asks which release type recentCommits warrant. It returns patch without asking when there are
// no commits, and falls back to patch on any failure or unrecognized answer
func (d *Describer) SuggestReleaseType(ctx context.Context, recentCommits []string) changeset.ReleaseType {
	log.Printf("Analyzing commits to suggest release type...")

	if len(recentCommits) == 0 {
		return changeset.Patch
	}

	prompt, err := render(suggestPrompt, suggestPromptData{Commits: recentCommits})
	if err != nil {
		log.Printf("Failed to build release type prompt, defaulting to %s: %v", changeset.Patch, err)
		return changeset.Patch
	}

	text, err := d.completer.Complete(ctx, d.model, prompt)
	if err != nil {
		log.Printf("Release type suggestion failed, defaulting to %s: %v", changeset.Patch, err)
		return changeset.Patch
	}

	releaseType, err := changeset.ParseReleaseType(text)
	if err != nil {
		log.Printf("Unrecognized release type suggestion %q, defaulting to %s", strings.TrimSpace(text), changeset.Patch)
		return changeset.Patch
	}

	return releaseType
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s prompt template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
