package cli

import (
	"fmt"

	"github.com/me/clustersim/pkg/model"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show nodes and all job stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/status")
			if err != nil {
				return fmt.Errorf("get status: %w", err)
			}
			var st model.Status
			if err := decodeData(resp, &st); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newTickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick [n]",
		Short: "Advance the simulation by n ticks (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				v, err := parseInts([]string{"n"}, args)
				if err != nil {
					return err
				}
				n = v[0]
			}
			resp, err := client.Post("/api/v1/tick", map[string]int{"count": n})
			if err != nil {
				return fmt.Errorf("tick: %w", err)
			}
			var res struct {
				Time      int   `json:"time"`
				Completed []int `json:"completed"`
				Admitted  []int `json:"admitted"`
			}
			if err := decodeData(resp, &res); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Simulation advanced to time %d\n", res.Time)
			if len(res.Completed) > 0 {
				fmt.Fprintf(out, "  Completed: %v\n", res.Completed)
			}
			if len(res.Admitted) > 0 {
				fmt.Fprintf(out, "  Admitted:  %v\n", res.Admitted)
			}
			return nil
		},
	}
}
