package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piston-launch/pistonmeta/download"
	"github.com/piston-launch/pistonmeta/version"
)

const flagNoProgress = "no-progress"

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <version>",
		Short: "Install a version and download every artifact it requires",
		Long: `Sync resolves the given version, following its inheritance chain, and
downloads the game jar, all applicable libraries and all asset objects,
verifying each file against its trusted checksum. Files already present
and verified are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: runSync,
	}
	cmd.Flags().Bool(flagNoProgress, false, "disable the terminal progress bar")
	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	id := version.Parse(args[0])
	opts := jobOptions()

	noProgress, err := cmd.Flags().GetBool(flagNoProgress)
	if err != nil {
		return err
	}
	if !noProgress {
		sink, stop := newTerminalSink(cmd.ErrOrStderr())
		defer stop()
		opts = append(opts, download.WithProgress(sink))
	}

	if err := newResolver().Sync(cmd.Context(), id, opts...); err != nil {
		return fmt.Errorf("could not sync %s: %w", id, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "synced %s\n", id)
	return nil
}
