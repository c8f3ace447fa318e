package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const flagRemote = "remote"

func newVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List installed versions, or the remote index with --remote",
		Args:  cobra.NoArgs,
		RunE:  runVersions,
	}
	cmd.Flags().Bool(flagRemote, false, "list the remote version index instead of the local store")
	return cmd
}

func runVersions(cmd *cobra.Command, _ []string) error {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	remote, err := cmd.Flags().GetBool(flagRemote)
	if err != nil {
		return err
	}
	if remote {
		list, err := newResolver().Refresh(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not list remote versions: %w", err)
		}
		t.AppendHeader(table.Row{"ID", "Type", "Released"})
		for _, v := range list.Versions {
			t.AppendRow(table.Row{v.ID, v.Type, v.ReleaseTime.Format(time.DateOnly)})
		}
		t.Render()
		return nil
	}

	s := newStore()
	ids, err := s.List()
	if err != nil {
		return fmt.Errorf("could not list installed versions: %w", err)
	}
	t.AppendHeader(table.Row{"ID", "Jar"})
	for _, id := range ids {
		jar := "missing"
		if s.HasJar(id) {
			jar = "present"
		}
		t.AppendRow(table.Row{id, jar})
	}
	t.Render()
	return nil
}
