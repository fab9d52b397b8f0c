package cli

import (
	"fmt"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/me/clustersim/pkg/model"
	"github.com/spf13/cobra"
)

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Submit and inspect jobs",
	}
	cmd.AddCommand(newJobSubmitCmd(), newJobListCmd(), newJobGetCmd())
	return cmd
}

func newJobSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <priority> <cpu> <ram> <duration>",
		Short: "Submit a job (lower priority runs first)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseInts([]string{"priority", "cpu", "ram", "duration"}, args)
			if err != nil {
				return err
			}
			resp, err := client.Post("/api/v1/jobs", model.JobRequest{Priority: v[0], CPU: v[1], RAM: v[2], Duration: v[3]})
			if err != nil {
				return fmt.Errorf("submit job: %w", err)
			}
			var job model.Job
			if err := decodeData(resp, &job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added job %d: Priority=%d, CPU=%d, RAM=%d, Duration=%d\n",
				job.ID, job.Priority, job.CPU, job.RAM, job.Duration)
			return nil
		},
	}
}

func newJobListCmd() *cobra.Command {
	var state string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if state != "" {
				q.Set("state", state)
			}
			q.Set("limit", fmt.Sprint(limit))
			q.Set("offset", fmt.Sprint(offset))

			resp, err := client.Get("/api/v1/jobs?" + q.Encode())
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			var jobs []model.RunningJob
			if err := decodeData(resp, &jobs); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs found.")
				return nil
			}
			fmt.Fprintf(out, "%-6s %-10s %-8s %-5s %-5s %-8s %-7s %s\n",
				"ID", "STATUS", "PRIORITY", "CPU", "RAM", "DURATION", "ARRIVAL", "NODE")
			for _, j := range jobs {
				node := "-"
				if j.NodeID != 0 {
					node = fmt.Sprint(j.NodeID)
				}
				fmt.Fprintf(out, "%-6d %-10s %-8d %-5d %-5d %-8d %-7d %s\n",
					j.ID, j.Status, j.Priority, j.CPU, j.RAM, j.Duration, j.ArrivalTime, node)
			}
			if pg := resp.Pagination; pg != nil {
				fmt.Fprintf(out, "\nShowing %d of %s", len(jobs), humanize.Comma(int64(pg.Total)))
				if pg.HasMore {
					fmt.Fprintf(out, " (use --offset %d for more)", pg.Offset+pg.Limit)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Filter by status (pending, running, completed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Result offset")
	return cmd
}

func newJobGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/jobs/" + url.PathEscape(args[0]))
			if err != nil {
				return fmt.Errorf("get job: %w", err)
			}
			var j model.RunningJob
			if err := decodeData(resp, &j); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %d\n", j.ID)
			fmt.Fprintf(out, "  Status:    %s\n", j.Status)
			fmt.Fprintf(out, "  Priority:  %d\n", j.Priority)
			fmt.Fprintf(out, "  CPU:       %d\n", j.CPU)
			fmt.Fprintf(out, "  RAM:       %d\n", j.RAM)
			fmt.Fprintf(out, "  Remaining: %d ticks\n", j.Duration)
			fmt.Fprintf(out, "  Arrived:   time %d\n", j.ArrivalTime)
			if j.NodeID != 0 {
				fmt.Fprintf(out, "  Node:      %d\n", j.NodeID)
			}
			return nil
		},
	}
}
