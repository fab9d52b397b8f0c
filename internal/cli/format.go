package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/me/clustersim/pkg/model"
)

// printStatus renders a status report. Pending jobs are summarized by count
// and the job at the head of the queue.
func printStatus(w io.Writer, st model.Status) {
	fmt.Fprintf(w, "\n=== Scheduler Status (time %s) ===\n\n", humanize.Comma(int64(st.Time)))

	fmt.Fprintln(w, "Nodes:")
	if len(st.Nodes) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, n := range st.Nodes {
		fmt.Fprintf(w, "  Node %d: CPU %d/%d, RAM %d/%d\n",
			n.ID, n.AvailableCPU, n.TotalCPU, n.AvailableRAM, n.TotalRAM)
	}

	fmt.Fprintln(w, "\nPending Jobs (Priority Queue):")
	if len(st.Pending) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		fmt.Fprintf(w, "  Total: %s jobs\n", humanize.Comma(int64(len(st.Pending))))
		top := st.Pending[0]
		fmt.Fprintf(w, "  Next: Job %d (Priority=%d, CPU=%d, RAM=%d, Duration=%d)\n",
			top.ID, top.Priority, top.CPU, top.RAM, top.Duration)
	}

	fmt.Fprintln(w, "\nRunning Jobs:")
	if len(st.Running) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		fmt.Fprintf(w, "  Total: %s jobs\n", humanize.Comma(int64(len(st.Running))))
		for _, rj := range st.Running {
			fmt.Fprintf(w, "  %s (Node %d)\n", jobLine(rj.Job), rj.NodeID)
		}
	}

	fmt.Fprintln(w, "\nCompleted Jobs:")
	if len(st.Completed) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, j := range st.Completed {
		fmt.Fprintf(w, "  %s\n", jobLine(j))
	}
	fmt.Fprintln(w)
}

func jobLine(j model.Job) string {
	return fmt.Sprintf("Job %d: Priority=%d, CPU=%d, RAM=%d, Duration=%d", j.ID, j.Priority, j.CPU, j.RAM, j.Duration)
}

// parseInts converts args, one per name, to ints.
func parseInts(names []string, args []string) ([]int, error) {
	if len(args) != len(names) {
		return nil, fmt.Errorf("want %d arguments, got %d", len(names), len(args))
	}
	out := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer, got %q", names[i], a)
		}
		out[i] = v
	}
	return out, nil
}
