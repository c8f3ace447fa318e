package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piston-launch/pistonmeta/version"
)

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <version>",
		Short: "Install a version's manifest into the local store",
		Long: `Install fetches the manifest of the given version from the remote index,
verifies it against the index checksum and stores it in the game
directory. Artifacts are not downloaded; use "sync" for that.`,
		Args: cobra.ExactArgs(1),
		RunE: runInstall,
	}
}

func runInstall(cmd *cobra.Command, args []string) error {
	id := version.Parse(args[0])
	m, err := newResolver().EnsureByID(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("could not install %s: %w", id, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "installed %s (%s)\n", m.ID, m.Type)
	return nil
}
