package cli

import (
	"fmt"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/me/clustersim/pkg/model"
	"github.com/spf13/cobra"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save, list and restore server state snapshots",
	}

	var label string
	save := &cobra.Command{
		Use:   "save",
		Short: "Save the current state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Post("/api/v1/snapshots", map[string]string{"label": label})
			if err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
			var info model.SnapshotInfo
			if err := decodeData(resp, &info); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot saved: %s (time %d)\n", info.ID, info.Time)
			return nil
		},
	}
	save.Flags().StringVar(&label, "label", "", "Snapshot label")

	var listLabel string
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/snapshots"
			if listLabel != "" {
				path += "?label=" + url.QueryEscape(listLabel)
			}
			resp, err := client.Get(path)
			if err != nil {
				return fmt.Errorf("list snapshots: %w", err)
			}
			var infos []model.SnapshotInfo
			if err := decodeData(resp, &infos); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No snapshots.")
				return nil
			}
			fmt.Fprintf(out, "%-42s %-16s %-6s %-6s %-8s %-8s %-10s %s\n",
				"ID", "LABEL", "TIME", "NODES", "PENDING", "RUNNING", "COMPLETED", "SAVED")
			for _, s := range infos {
				fmt.Fprintf(out, "%-42s %-16s %-6d %-6d %-8d %-8d %-10d %s\n",
					s.ID, s.Label, s.Time, s.Nodes, s.Pending, s.Running, s.Completed, humanize.Time(s.CreatedAt))
			}
			return nil
		},
	}
	list.Flags().StringVar(&listLabel, "label", "", "Only snapshots with this label")

	restore := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the server state with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Post("/api/v1/snapshots/"+url.PathEscape(args[0])+"/restore", nil)
			if err != nil {
				return fmt.Errorf("restore snapshot: %w", err)
			}
			var info model.SnapshotInfo
			if err := decodeData(resp, &info); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s restored (time %d)\n", info.ID, info.Time)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := client.Delete("/api/v1/snapshots/" + url.PathEscape(args[0])); err != nil {
				return fmt.Errorf("delete snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s deleted\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(save, list, restore, del)
	return cmd
}
