package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/me/clustersim/internal/scheduler"
	"github.com/me/clustersim/pkg/model"
	"github.com/spf13/cobra"
)

const shellHelp = `
Available commands:
  add-node <cpu> <ram>                         - Add a resource node
  add-job <priority> <cpu> <ram> <duration>    - Add a job
  run-tick [n]                                 - Advance simulation by n time steps (default 1)
  status                                       - Show current status
  save <filename>                              - Save state to file
  load <filename>                              - Load state from file
  exit                                         - Exit the program
`

// Shell is a line-oriented command interpreter over an in-process Loop.
type Shell struct {
	loop *scheduler.Loop
	out  io.Writer
}

// NewShell creates a shell that writes command output to out.
func NewShell(loop *scheduler.Loop, out io.Writer) *Shell {
	return &Shell{loop: loop, out: out}
}

// Run reads commands from in until EOF or exit.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, "=== Cloud Job Scheduler Simulator ===")
	fmt.Fprintln(s.out, "Type 'help' for available commands, or 'exit' to quit.")
	fmt.Fprintln(s.out)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !sc.Scan() {
			break
		}
		if !s.Execute(ctx, sc.Text()) {
			break
		}
	}
	fmt.Fprintln(s.out, "Goodbye!")
	return sc.Err()
}

// Execute runs one command line and reports whether the shell should continue.
// Errors are printed, never returned.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "add-node":
		v, err := parseInts([]string{"cpu", "ram"}, args)
		if err != nil {
			s.errorf("Usage: add-node <cpu> <ram>")
			return true
		}
		node, err := s.loop.AddNode(v[0], v[1])
		if err != nil {
			s.errorf("%v", err)
			return true
		}
		fmt.Fprintf(s.out, "Added node %d: CPU=%d, RAM=%d\n", node.ID, node.TotalCPU, node.TotalRAM)

	case "add-job":
		v, err := parseInts([]string{"priority", "cpu", "ram", "duration"}, args)
		if err != nil {
			s.errorf("Usage: add-job <priority> <cpu> <ram> <duration>")
			return true
		}
		job, err := s.loop.AddJob(model.JobRequest{Priority: v[0], CPU: v[1], RAM: v[2], Duration: v[3]})
		if err != nil {
			s.errorf("%v", err)
			return true
		}
		fmt.Fprintf(s.out, "Added job %d: Priority=%d, CPU=%d, RAM=%d, Duration=%d\n",
			job.ID, job.Priority, job.CPU, job.RAM, job.Duration)

	case "run-tick":
		n := 1
		if len(args) > 0 {
			v, err := parseInts([]string{"n"}, args)
			if err != nil || v[0] < 1 {
				s.errorf("Usage: run-tick [n]")
				return true
			}
			n = v[0]
		}
		now, err := s.loop.Advance(ctx, n)
		if err != nil {
			s.errorf("%v", err)
		}
		fmt.Fprintf(s.out, "Simulation advanced to time %d\n", now)

	case "status":
		printStatus(s.out, s.loop.Status())

	case "save":
		if len(args) != 1 {
			s.errorf("Usage: save <filename>")
			return true
		}
		if err := s.loop.SaveFile(args[0]); err != nil {
			s.errorf("Failed to save state to %s: %v", args[0], err)
			return true
		}
		fmt.Fprintf(s.out, "State saved to %s\n", args[0])

	case "load":
		if len(args) != 1 {
			s.errorf("Usage: load <filename>")
			return true
		}
		if err := s.loop.LoadFile(args[0]); err != nil {
			s.errorf("Failed to load state from %s: %v", args[0], err)
			return true
		}
		fmt.Fprintf(s.out, "State loaded from %s\n", args[0])

	case "help":
		fmt.Fprint(s.out, shellHelp)

	case "exit", "quit":
		return false

	default:
		fmt.Fprintf(s.out, "Unknown command: %s\n", cmd)
		fmt.Fprintln(s.out, "Available commands: add-node, add-job, run-tick, status, save, load, help, exit")
	}
	return true
}

func (s *Shell) errorf(format string, args ...any) {
	fmt.Fprintf(s.out, "Error: "+format+"\n", args...)
}

func newShellCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive simulator on an in-process engine",
		Long: `shell starts an interactive session with the commands add-node, add-job,
run-tick, status, save, load, help and exit. State lives in this process
only; save and load use the flat state file format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loopConfig(configPath)
			if err != nil {
				return err
			}
			loop := scheduler.NewLoop(nil, cfg, logger)
			return NewShell(loop, cmd.OutOrStdout()).Run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file (engine section is used)")
	return cmd
}
