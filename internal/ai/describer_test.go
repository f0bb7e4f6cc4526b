package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cchalm/changeset-releaser/internal/changeset"
)

type completerStub struct {
	response string
	err      error

	prompts []string
	models  []string
}

func (cs *completerStub) Complete(_ context.Context, model string, prompt string) (string, error) {
	cs.models = append(cs.models, model)
	cs.prompts = append(cs.prompts, prompt)
	return cs.response, cs.err
}

func testSuggest(t *testing.T, response string, expected changeset.ReleaseType) {
	t.Helper()
	stub := &completerStub{response: response}
	d := NewDescriber(stub, "test-model")

	result := d.SuggestReleaseType(context.Background(), []string{"feat: add X"})
	require.Equal(t, expected, result)
	require.Len(t, stub.prompts, 1)
}

func TestSuggestReleaseType_NoCommitsSkipsRequest(t *testing.T) {
	stub := &completerStub{response: "major"}
	d := NewDescriber(stub, "test-model")

	require.Equal(t, changeset.Patch, d.SuggestReleaseType(context.Background(), nil))
	require.Equal(t, changeset.Patch, d.SuggestReleaseType(context.Background(), []string{}))
	require.Empty(t, stub.prompts)
}

func TestSuggestReleaseType_Major(t *testing.T) {
	testSuggest(t, "Major", changeset.Major)
}

func TestSuggestReleaseType_MinorWithWhitespace(t *testing.T) {
	testSuggest(t, "  minor\n", changeset.Minor)
}

func TestSuggestReleaseType_Patch(t *testing.T) {
	testSuggest(t, "PATCH", changeset.Patch)
}

func TestSuggestReleaseType_UnrecognizedFallsBackToPatch(t *testing.T) {
	testSuggest(t, "refactor", changeset.Patch)
}

func TestSuggestReleaseType_SentenceFallsBackToPatch(t *testing.T) {
	testSuggest(t, "I think this is a major release", changeset.Patch)
}

func TestSuggestReleaseType_FailureFallsBackToPatch(t *testing.T) {
	stub := &completerStub{err: errors.New("service unavailable")}
	d := NewDescriber(stub, "test-model")

	require.Equal(t, changeset.Patch, d.SuggestReleaseType(context.Background(), []string{"feat!: drop Node 16"}))
	require.Len(t, stub.prompts, 1)
}

func TestSuggestReleaseType_PromptListsCommits(t *testing.T) {
	stub := &completerStub{response: "minor"}
	d := NewDescriber(stub, "test-model")

	d.SuggestReleaseType(context.Background(), []string{"feat: add X", "fix: Y"})
	require.Contains(t, stub.prompts[0], "- feat: add X\n- fix: Y\n")
	require.Contains(t, stub.prompts[0], "patch, minor, or major")
	require.Equal(t, []string{"test-model"}, stub.models)
}

func TestDescribeRelease_TrimsResponse(t *testing.T) {
	stub := &completerStub{response: "\n  Adds X so that users can do Y.  \n"}
	d := NewDescriber(stub, "test-model")

	text, err := d.DescribeRelease(context.Background(), "demo-pkg", changeset.Minor, []string{"feat: add X"})
	require.NoError(t, err)
	require.Equal(t, "Adds X so that users can do Y.", text)
}

func TestDescribeRelease_PromptWithCommits(t *testing.T) {
	stub := &completerStub{response: "Adds X."}
	d := NewDescriber(stub, "test-model")

	_, err := d.DescribeRelease(context.Background(), "demo-pkg", changeset.Minor, []string{"feat: add X", "fix: Y"})
	require.NoError(t, err)

	prompt := stub.prompts[0]
	require.Contains(t, prompt, "Package: demo-pkg\n")
	require.Contains(t, prompt, "Release type: minor\n")
	require.Contains(t, prompt, "Recent commits:\n- feat: add X\n- fix: Y\n")
	require.NotContains(t, prompt, "No recent commits provided.")
	require.Contains(t, prompt, "one to three sentences")
}

func TestDescribeRelease_PromptWithoutCommits(t *testing.T) {
	stub := &completerStub{response: "Maintenance release."}
	d := NewDescriber(stub, "test-model")

	_, err := d.DescribeRelease(context.Background(), "demo-pkg", changeset.Patch, nil)
	require.NoError(t, err)
	require.Contains(t, stub.prompts[0], "No recent commits provided.\n")
	require.NotContains(t, stub.prompts[0], "Recent commits:")
}

func TestDescribeRelease_PropagatesFailure(t *testing.T) {
	cause := errors.New("service unavailable")
	d := NewDescriber(&completerStub{err: cause}, "test-model")

	_, err := d.DescribeRelease(context.Background(), "demo-pkg", changeset.Patch, nil)
	require.ErrorIs(t, err, cause)
}

func TestDescribeRelease_EmptyResponse(t *testing.T) {
	d := NewDescriber(&completerStub{response: "   \n"}, "test-model")

	_, err := d.DescribeRelease(context.Background(), "demo-pkg", changeset.Patch, nil)
	require.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestNewDescriber_DefaultModel(t *testing.T) {
	stub := &completerStub{response: "minor"}
	d := NewDescriber(stub, "")

	d.SuggestReleaseType(context.Background(), []string{"feat: add X"})
	require.Equal(t, []string{DefaultModel}, stub.models)
}
