package cmd

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/cchalm/changeset-releaser/internal/ai"
	"github.com/cchalm/changeset-releaser/internal/changeset"
	"github.com/cchalm/changeset-releaser/internal/github"
	"github.com/cchalm/changeset-releaser/internal/release"
	"github.com/cchalm/changeset-releaser/internal/repository"
	"github.com/cchalm/changeset-releaser/internal/workspace"
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Push a branch with a changeset releasing the repository's package",
	Long: `Clones the repository into a temporary workspace, creates the given branch, writes a
changeset for the package named in package.json, commits it and pushes the branch. The
workspace is removed afterwards whether or not the release succeeded.

The changeset message and release type can be generated from recent commit history
with --generate-message and --suggest-type, which require ANTHROPIC_API_KEY.`,
	RunE: runRelease,
}

func init() {
	releaseCmd.Flags().StringVar(&flags.QualifiedRepoName, "repo", "", "Repository in the format 'owner/repo'")
	releaseCmd.Flags().StringVar(&flags.CloneURL, "clone-url", "", "URL to clone from. Looked up through the GitHub API if omitted")
	releaseCmd.Flags().StringVar(&flags.PackageName, "package", "", "Package to release. Defaults to the name in package.json")
	releaseCmd.Flags().StringVar(&flags.Branch, "branch", "", "Branch to create and push. Must not already exist")
	releaseCmd.Flags().StringVar(&flags.ReleaseType, "type", "", "Release type: patch, minor or major")
	releaseCmd.Flags().StringVar(&flags.Message, "message", "", "Changeset message. Used as the fallback when --generate-message fails")
	releaseCmd.Flags().StringVar(&flags.CommitMessage, "commit-message", "", "Commit message. Defaults to 'Release <package>'")
	releaseCmd.Flags().BoolVar(&flags.GenerateMessage, "generate-message", false, "Generate the changeset message from recent commits")
	releaseCmd.Flags().BoolVar(&flags.SuggestType, "suggest-type", false, "Choose the release type from recent commits")
	releaseCmd.Flags().IntVar(&flags.CommitCount, "commit-count", repository.DefaultCommitCount, "Number of recent commits to read for AI features")
	releaseCmd.Flags().BoolVar(&flags.OpenPR, "open-pr", false, "Open a pull request from the pushed branch")
	releaseCmd.Flags().StringVar(&flags.BaseBranch, "base", "", "Base branch of the pull request. Defaults to the repository's default branch")

	_ = releaseCmd.MarkFlagRequired("repo")
	_ = releaseCmd.MarkFlagRequired("branch")
	releaseCmd.MarkFlagsOneRequired("type", "suggest-type")
	releaseCmd.MarkFlagsOneRequired("message", "generate-message")

	rootCmd.AddCommand(releaseCmd)
}

func runRelease(cmd *cobra.Command, args []string) error {
	ctx := setupContext()

	if err := cfg.Validate(flags.needsAI()); err != nil {
		return err
	}
	request, err := buildRequest(flags)
	if err != nil {
		return err
	}

	log.Printf("Starting release of %s", flags.QualifiedRepoName)

	telemetryProvider, err := createTelemetryProvider(ctx)
	if err != nil {
		return fmt.Errorf("failed to create telemetry provider: %w", err)
	}
	defer func() {
		if err := telemetryProvider.Shutdown(context.Background()); err != nil {
			log.Printf("Failed to shut down telemetry: %v", err)
		}
	}()

	githubClient := createGithubClient(ctx, cfg.GitHubToken)
	target, err := resolveTarget(ctx, github.NewRepositoryService(githubClient), flags)
	if err != nil {
		return err
	}

	opts := []release.Option{release.WithTracer(telemetryProvider.Tracer())}
	if flags.needsAI() {
		completer := ai.NewAnthropicCompleter(createAnthropicClient(cfg.AnthropicAPIKey))
		opts = append(opts, release.WithDescriber(ai.NewDescriber(completer, cfg.Model)))
	}
	releaser := release.New(workspace.NewManager(cfg.WorkspaceRoot), createCloner(), opts...)

	result, err := releaser.Run(ctx, target.repoConfig, request)
	if result == nil {
		return err
	}
	printResult(cmd.OutOrStdout(), result)
	if err != nil {
		// The branch was pushed; only cleanup failed
		return err
	}

	if flags.OpenPR {
		pr, err := openPullRequest(ctx, github.NewPullRequestService(githubClient), target, result)
		if err != nil {
			return fmt.Errorf("branch '%s' was pushed but no pull request was opened: %w", result.Branch, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pull request: %s\n", pr.URL)
	}

	return nil
}

func buildRequest(rf releaseFlags) (release.Request, error) {
	request := release.Request{
		Branch:          rf.Branch,
		CommitMessage:   rf.CommitMessage,
		PackageName:     rf.PackageName,
		GenerateMessage: rf.GenerateMessage,
		SuggestType:     rf.SuggestType,
		CommitCount:     rf.CommitCount,
		Options:         changeset.ReleaseOptions{Message: rf.Message},
	}

	if rf.ReleaseType != "" {
		releaseType, err := changeset.ParseReleaseType(rf.ReleaseType)
		if err != nil {
			return release.Request{}, err
		}
		request.Options.Type = releaseType
	} else if !rf.SuggestType {
		return release.Request{}, fmt.Errorf("one of --type or --suggest-type is required")
	}

	return request, nil
}

// target is the resolved repository a release runs against
type target struct {
	owner      string
	repo       string
	baseBranch string
	repoConfig release.RepoConfig
}

// resolveTarget works out the clone URL and pull request base, asking GitHub only for what the flags leave out
func resolveTarget(ctx context.Context, repoService github.RepositoryService, rf releaseFlags) (target, error) {
	owner, repo, err := github.ParseQualifiedName(rf.QualifiedRepoName)
	if err != nil {
		return target{}, err
	}

	t := target{
		owner:      owner,
		repo:       repo,
		baseBranch: rf.BaseBranch,
		repoConfig: release.RepoConfig{
			Repo:     rf.QualifiedRepoName,
			CloneURL: rf.CloneURL,
		},
	}

	needsLookup := t.repoConfig.CloneURL == "" || (rf.OpenPR && t.baseBranch == "")
	if !needsLookup {
		return t, nil
	}

	info, err := repoService.GetRepository(ctx, owner, repo)
	if err != nil {
		return target{}, err
	}
	if t.repoConfig.CloneURL == "" {
		t.repoConfig.CloneURL = info.CloneURL
	}
	if t.baseBranch == "" {
		t.baseBranch = info.DefaultBranch
	}
	return t, nil
}

// openPullRequest opens a pull request for the release branch, or returns the one already open for it
func openPullRequest(ctx context.Context, prService github.PullRequestService, t target, result *release.Result) (github.PullRequest, error) {
	existing, err := prService.GetPullRequestByBranch(ctx, t.owner, t.repo, result.Branch)
	if err != nil {
		return github.PullRequest{}, err
	}
	if existing != nil {
		log.Printf("Pull request #%d already open for branch %s", existing.Number, result.Branch)
		return *existing, nil
	}

	title := fmt.Sprintf("Release %s (%s)", result.PackageName, result.Options.Type)
	body := fmt.Sprintf("Adds changeset `%s`:\n\n%s\n", result.ChangesetID, result.Options.Message)
	log.Printf("Opening pull request %s -> %s", result.Branch, t.baseBranch)
	return prService.CreatePullRequest(ctx, t.owner, t.repo, t.baseBranch, result.Branch, title, body)
}

func printResult(w io.Writer, result *release.Result) {
	fmt.Fprintf(w, "Run:       %s\n", result.RunID)
	fmt.Fprintf(w, "Package:   %s", result.PackageName)
	if result.PackageVersion != "" {
		fmt.Fprintf(w, " (currently %s)", result.PackageVersion)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Type:      %s\n", result.Options.Type)
	fmt.Fprintf(w, "Changeset: %s (message from %s)\n", result.ChangesetID, result.MessageSource)
	fmt.Fprintf(w, "Branch:    %s\n", result.Branch)
	fmt.Fprintf(w, "Commit:    %s\n", result.CommitSHA)
}
