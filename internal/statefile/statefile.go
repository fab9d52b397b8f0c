// Package statefile reads and writes the line-oriented scheduler state file.
//
// The file is a sequence of keyword lines:
//
//	# Cloud Job Scheduler State File
//	TIME <t>
//	NEXT_JOB_ID <n>
//	NODES <count>
//	NODE <id> <total_cpu> <total_ram> <avail_cpu> <avail_ram>
//	PENDING_JOBS <count>
//	JOB <id> <priority> <cpu> <ram> <duration> <status> <arrival>
//	RUNNING_JOBS <count>
//	RUNNING_JOB <job_id> <node_id>
//	JOB ...
//	COMPLETED_JOBS <count>
//	JOB ...
//
// Status is written as its numeric code (0 pending, 1 running, 2 completed).
package statefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/me/clustersim/pkg/model"
)

// Header is the first line of every state file.
const Header = "# Cloud Job Scheduler State File"

// ErrMalformed is wrapped by every decoding error.
var ErrMalformed = errors.New("malformed state file")

// Encode writes snap to w. Pending jobs are written in the order given, which
// for an engine snapshot is heap array order.
func Encode(w io.Writer, snap *model.Snapshot) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, Header)
	fmt.Fprintf(bw, "TIME %d\n", snap.Time)
	fmt.Fprintf(bw, "NEXT_JOB_ID %d\n", snap.NextJobID)

	fmt.Fprintf(bw, "NODES %d\n", len(snap.Nodes))
	for _, n := range snap.Nodes {
		fmt.Fprintf(bw, "NODE %d %d %d %d %d\n",
			n.ID, n.TotalCPU, n.TotalRAM, n.AvailableCPU, n.AvailableRAM)
	}

	fmt.Fprintf(bw, "PENDING_JOBS %d\n", len(snap.Pending))
	for _, j := range snap.Pending {
		writeJob(bw, j)
	}

	fmt.Fprintf(bw, "RUNNING_JOBS %d\n", len(snap.Running))
	for _, rj := range snap.Running {
		fmt.Fprintf(bw, "RUNNING_JOB %d %d\n", rj.ID, rj.NodeID)
		writeJob(bw, rj.Job)
	}

	fmt.Fprintf(bw, "COMPLETED_JOBS %d\n", len(snap.Completed))
	for _, j := range snap.Completed {
		writeJob(bw, j)
	}
	return bw.Flush()
}

func writeJob(w io.Writer, j model.Job) {
	fmt.Fprintf(w, "JOB %d %d %d %d %d %d %d\n",
		j.ID, j.Priority, j.CPU, j.RAM, j.Duration, j.Status.Code(), j.ArrivalTime)
}

// decoder carries the parse state across lines.
type decoder struct {
	snap *model.Snapshot
	line int

	// Declared section sizes, checked once the input is exhausted.
	nodes, pending, running, completed int

	// A RUNNING_JOB line names the job that the next JOB line describes.
	awaitJob  bool
	runningID int
	runningOn int
}

// Decode parses a state file. Blank lines and lines starting with '#' are
// skipped. A JOB line directly after a RUNNING_JOB line with the same id is a
// running job; any other JOB line is routed by its status code.
func Decode(r io.Reader) (*model.Snapshot, error) {
	d := &decoder{snap: &model.Snapshot{
		Nodes:     []model.ResourceNode{},
		Pending:   []model.Job{},
		Running:   []model.RunningJob{},
		Completed: []model.Job{},
	}}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		d.line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := d.parseLine(strings.Fields(text)); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, d.line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if d.awaitJob {
		return nil, fmt.Errorf("%w: RUNNING_JOB %d has no JOB line", ErrMalformed, d.runningID)
	}
	if err := d.checkCounts(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return d.snap, nil
}

func (d *decoder) parseLine(fields []string) error {
	keyword, args := fields[0], fields[1:]
	if d.awaitJob && keyword != "JOB" {
		return fmt.Errorf("expected JOB after RUNNING_JOB %d, got %s", d.runningID, keyword)
	}

	switch keyword {
	case "TIME":
		return scanInts(args, &d.snap.Time)
	case "NEXT_JOB_ID":
		return scanInts(args, &d.snap.NextJobID)
	case "NODES":
		return scanInts(args, &d.nodes)
	case "PENDING_JOBS":
		return scanInts(args, &d.pending)
	case "RUNNING_JOBS":
		return scanInts(args, &d.running)
	case "COMPLETED_JOBS":
		return scanInts(args, &d.completed)
	case "NODE":
		var n model.ResourceNode
		if err := scanInts(args, &n.ID, &n.TotalCPU, &n.TotalRAM, &n.AvailableCPU, &n.AvailableRAM); err != nil {
			return err
		}
		d.snap.Nodes = append(d.snap.Nodes, n)
	case "RUNNING_JOB":
		if err := scanInts(args, &d.runningID, &d.runningOn); err != nil {
			return err
		}
		d.awaitJob = true
	case "JOB":
		return d.parseJob(args)
	default:
		return fmt.Errorf("unknown keyword %q", keyword)
	}
	return nil
}

func (d *decoder) parseJob(args []string) error {
	var j model.Job
	var code int
	if err := scanInts(args, &j.ID, &j.Priority, &j.CPU, &j.RAM, &j.Duration, &code, &j.ArrivalTime); err != nil {
		return err
	}
	status, err := model.JobStatusFromCode(code)
	if err != nil {
		return err
	}
	j.Status = status

	if d.awaitJob {
		if j.ID != d.runningID {
			return fmt.Errorf("JOB %d does not match RUNNING_JOB %d", j.ID, d.runningID)
		}
		d.awaitJob = false
		j.Status = model.JobStatusRunning
		d.snap.Running = append(d.snap.Running, model.RunningJob{Job: j, NodeID: d.runningOn})
		return nil
	}

	switch status {
	case model.JobStatusPending:
		d.snap.Pending = append(d.snap.Pending, j)
	case model.JobStatusCompleted:
		d.snap.Completed = append(d.snap.Completed, j)
	default:
		return fmt.Errorf("running JOB %d has no RUNNING_JOB line", j.ID)
	}
	return nil
}

func (d *decoder) checkCounts() error {
	checks := []struct {
		name      string
		want, got int
	}{
		{"NODES", d.nodes, len(d.snap.Nodes)},
		{"PENDING_JOBS", d.pending, len(d.snap.Pending)},
		{"RUNNING_JOBS", d.running, len(d.snap.Running)},
		{"COMPLETED_JOBS", d.completed, len(d.snap.Completed)},
	}
	for _, c := range checks {
		if c.want != c.got {
			return fmt.Errorf("%s declares %d entries, found %d", c.name, c.want, c.got)
		}
	}
	return nil
}

// scanInts parses args into dst, requiring exactly len(dst) integers.
func scanInts(args []string, dst ...*int) error {
	if len(args) != len(dst) {
		return fmt.Errorf("want %d fields, got %d", len(dst), len(args))
	}
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("field %d: %w", i+1, err)
		}
		*dst[i] = v
	}
	return nil
}

// Save writes snap to path, replacing any existing file.
func Save(path string, snap *model.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}
	if err := Encode(f, snap); err != nil {
		f.Close()
		return fmt.Errorf("write state file %s: %w", path, err)
	}
	return f.Close()
}

// Load reads the state file at path.
func Load(path string) (*model.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return snap, nil
}
