package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cchalm/changeset-releaser/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "changeset-releaser",
	Short: "Cut package releases by pushing changesets",
	Long: `Changeset Releaser clones a repository, writes a changeset describing a release of its
package, commits it on a new branch and pushes the branch. The changesets tooling in the
repository's own pipeline versions and publishes the package from there.`,
	PersistentPreRunE: loadRootConfig,
	SilenceUsage:      true,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadRootConfig(_ *cobra.Command, _ []string) error {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err = config.Load()
	return err
}
