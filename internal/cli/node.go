package cli

import (
	"fmt"

	"github.com/me/clustersim/pkg/model"
	"github.com/spf13/cobra"
)

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage resource nodes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <cpu> <ram>",
			Short: "Register a node with the given CPU and RAM totals",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := parseInts([]string{"cpu", "ram"}, args)
				if err != nil {
					return err
				}
				resp, err := client.Post("/api/v1/nodes", model.NodeRequest{CPU: v[0], RAM: v[1]})
				if err != nil {
					return fmt.Errorf("add node: %w", err)
				}
				var node model.ResourceNode
				if err := decodeData(resp, &node); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added node %d: CPU=%d, RAM=%d\n", node.ID, node.TotalCPU, node.TotalRAM)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List nodes with available and total capacity",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := client.Get("/api/v1/nodes")
				if err != nil {
					return fmt.Errorf("list nodes: %w", err)
				}
				var nodes []model.ResourceNode
				if err := decodeData(resp, &nodes); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(nodes) == 0 {
					fmt.Fprintln(out, "No nodes.")
					return nil
				}
				fmt.Fprintf(out, "%-6s %-12s %-12s\n", "NODE", "CPU", "RAM")
				for _, n := range nodes {
					fmt.Fprintf(out, "%-6d %-12s %-12s\n", n.ID,
						fmt.Sprintf("%d/%d", n.AvailableCPU, n.TotalCPU),
						fmt.Sprintf("%d/%d", n.AvailableRAM, n.TotalRAM))
				}
				return nil
			},
		},
	)
	return cmd
}
