package cmd

import (
	"github.com/cchalm/changeset-releaser/internal/config"
)

// cfg is loaded from the environment before any command runs
var cfg = config.Config{}

var flags = releaseFlags{}

type releaseFlags struct {
	// Target
	QualifiedRepoName string
	CloneURL          string
	PackageName       string

	// Changeset
	Branch        string
	ReleaseType   string
	Message       string
	CommitMessage string

	// AI options
	GenerateMessage bool
	SuggestType     bool
	CommitCount     int

	// Pull request options
	OpenPR     bool
	BaseBranch string
}

func (rf releaseFlags) needsAI() bool {
	return rf.GenerateMessage || rf.SuggestType
}
