package release

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cchalm/changeset-releaser/internal/changeset"
	"github.com/cchalm/changeset-releaser/internal/git"
	"github.com/cchalm/changeset-releaser/internal/repository"
	"github.com/cchalm/changeset-releaser/internal/telemetry"
	"github.com/cchalm/changeset-releaser/internal/workspace"
)

// Releaser runs releases. Each call to Run uses its own workspace, so a Releaser may run several releases at once
type Releaser struct {
	workspaces *workspace.Manager
	cloner     git.Cloner
	writer     *changeset.Writer
	describer  Describer
	tracer     trace.Tracer
}

// Option configures a Releaser
type Option func(*Releaser)

// WithDescriber enables AI generated messages and release types
func WithDescriber(d Describer) Option {
	return func(r *Releaser) {
		r.describer = d
	}
}

// WithTracer records a span per run and per step
func WithTracer(t trace.Tracer) Option {
	return func(r *Releaser) {
		r.tracer = t
	}
}

// New creates a Releaser that allocates workspaces from workspaces and clones with cloner
func New(workspaces *workspace.Manager, cloner git.Cloner, opts ...Option) *Releaser {
	r := &Releaser{
		workspaces: workspaces,
		cloner:     cloner,
		writer:     changeset.NewWriter(),
		tracer:     noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run cuts a release of cfg's repository. Steps run strictly in order and the first failure aborts the run with a
// *StepError. The workspace is removed whatever the outcome. If the push succeeded but the workspace could not be
// removed, Run returns both the Result and the error
func (r *Releaser) Run(ctx context.Context, cfg RepoConfig, req Request) (result *Result, err error) {
	if err := r.validate(cfg, req); err != nil {
		return nil, err
	}

	runID := telemetry.NewRunID()
	ctx, span := r.tracer.Start(ctx, "release.run", trace.WithAttributes(
		attribute.String("release.run_id", runID),
		attribute.String("release.repo", cfg.Repo),
		attribute.String("release.branch", req.Branch),
	))
	defer func() { telemetry.EndSpan(span, err) }()

	log.Printf("Starting release %s of %s on branch %s", runID, cfg.Repo, req.Branch)

	var path string
	defer func() {
		cleanupErr := r.step(ctx, StepRelease, func(context.Context) error {
			return r.workspaces.Release(path)
		})
		if cleanupErr == nil {
			return
		}
		if err != nil {
			log.Printf("Failed to clean up workspace after error: %v", cleanupErr)
			return
		}
		err = cleanupErr
	}()

	err = r.step(ctx, StepAllocate, func(context.Context) error {
		var allocErr error
		path, allocErr = r.workspaces.Allocate(cfg.Repo)
		return allocErr
	})
	if err != nil {
		return nil, err
	}

	client := repository.New(r.cloner, r.writer)
	res := &Result{
		RunID:   runID,
		Branch:  req.Branch,
		Options: req.Options,
	}

	err = r.step(ctx, StepClone, func(ctx context.Context) error {
		return client.Clone(ctx, cfg.CloneURL, path)
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, StepBranch, func(ctx context.Context) error {
		return client.CreateBranch(ctx, req.Branch)
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, StepManifest, func(context.Context) error {
		return r.resolvePackage(client, req, res)
	})
	if err != nil {
		return nil, err
	}

	if req.GenerateMessage || req.SuggestType {
		var commits []string
		err = r.step(ctx, StepHistory, func(ctx context.Context) error {
			var historyErr error
			commits, historyErr = client.ReadRecentCommits(ctx, req.CommitCount)
			return historyErr
		})
		if err != nil {
			return nil, err
		}

		if req.SuggestType {
			res.Options.Type = r.describer.SuggestReleaseType(ctx, commits)
			log.Printf("Suggested release type: %s", res.Options.Type)
		}

		if req.GenerateMessage {
			err = r.step(ctx, StepDescribe, func(ctx context.Context) error {
				return r.describe(ctx, req, commits, res)
			})
			if err != nil {
				return nil, err
			}
		}
	}
	if res.MessageSource == "" {
		res.MessageSource = MessageFromCaller
	}

	err = r.step(ctx, StepChangeset, func(ctx context.Context) error {
		var writeErr error
		res.ChangesetID, writeErr = client.WriteAndStageChangeset(ctx, res.PackageName, res.Options)
		return writeErr
	})
	if err != nil {
		return nil, err
	}

	commitMessage := req.CommitMessage
	if commitMessage == "" {
		commitMessage = fmt.Sprintf("Release %s", res.PackageName)
	}
	err = r.step(ctx, StepCommit, func(ctx context.Context) error {
		var commitErr error
		res.CommitSHA, commitErr = client.Commit(ctx, commitMessage)
		return commitErr
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, StepPush, func(ctx context.Context) error {
		return client.Push(ctx, req.Branch)
	})
	if err != nil {
		return nil, err
	}

	head, err := client.HeadSHA(ctx)
	if err != nil {
		// The push already happened; a missing head is only a reporting problem
		log.Printf("Failed to read HEAD after push: %v", err)
		head = res.CommitSHA
	}
	log.Printf("Released %s: changeset %s, commit %s on branch %s", res.PackageName, res.ChangesetID, head, res.Branch)
	return res, nil
}

func (r *Releaser) validate(cfg RepoConfig, req Request) error {
	switch {
	case cfg.Repo == "":
		return fmt.Errorf("%w: repository identifier is required", ErrInvalidRequest)
	case cfg.CloneURL == "":
		return fmt.Errorf("%w: clone URL is required", ErrInvalidRequest)
	case req.Branch == "":
		return fmt.Errorf("%w: branch name is required", ErrInvalidRequest)
	case (req.GenerateMessage || req.SuggestType) && r.describer == nil:
		return ErrNoDescriber
	case !req.SuggestType && !req.Options.Type.Valid():
		return fmt.Errorf("%w: %w: %q", ErrInvalidRequest, changeset.ErrInvalidReleaseType, req.Options.Type)
	}
	return nil
}

// resolvePackage fills in the package name and version from the request and the manifest
func (r *Releaser) resolvePackage(client *repository.Client, req Request, res *Result) error {
	if req.PackageName == "" {
		name, err := client.ReadPackageName()
		if err != nil {
			return err
		}
		res.PackageName = name
	} else {
		res.PackageName = req.PackageName
	}

	version, err := client.ReadPackageVersion()
	if err != nil {
		if req.PackageName == "" {
			return err
		}
		log.Printf("Could not read package version: %v", err)
		return nil
	}
	res.PackageVersion = version
	return nil
}

func (r *Releaser) describe(ctx context.Context, req Request, commits []string, res *Result) error {
	message, err := r.describer.DescribeRelease(ctx, res.PackageName, res.Options.Type, commits)
	if err == nil {
		res.Options.Message = message
		res.MessageSource = MessageFromAI
		return nil
	}
	if req.Options.Message == "" {
		return err
	}
	log.Printf("Using the provided message instead of a generated one: %v", err)
	res.Options.Message = req.Options.Message
	res.MessageSource = MessageFromFallback
	return nil
}

// step runs fn in its own span and wraps any error in a StepError
func (r *Releaser) step(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "release."+name)
	err := fn(ctx)
	telemetry.EndSpan(span, err)
	if err != nil {
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			return err
		}
		return &StepError{Step: name, Err: err}
	}
	return nil
}
