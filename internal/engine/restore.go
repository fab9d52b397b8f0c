package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/me/clustersim/pkg/model"
)

// RestoreNode appends node with its available capacity taken verbatim.
func (e *Engine) RestoreNode(node model.ResourceNode) error {
	n := node
	if err := e.nodes.Add(&n); err != nil {
		return fmt.Errorf("restore node: %w", err)
	}
	e.observe()
	return nil
}

// RestoreJob inserts job directly into the store named by status, bypassing
// admission and resource accounting. nodeID is used only for RUNNING jobs and
// must name a registered node.
func (e *Engine) RestoreJob(status model.JobStatus, job model.Job, nodeID int) error {
	if _, ok := e.jobs[job.ID]; ok {
		return fmt.Errorf("restore job %d: %w", job.ID, ErrConflict)
	}
	j := job
	j.Status = status
	switch status {
	case model.JobStatusPending:
		if err := e.queue.Insert(&j); err != nil {
			return fmt.Errorf("restore job %d: %w", j.ID, err)
		}
	case model.JobStatusRunning:
		if _, ok := e.nodes.Get(nodeID); !ok {
			return fmt.Errorf("restore job %d on node %d: %w", j.ID, nodeID, ErrNotFound)
		}
		e.running.Insert(&j, nodeID)
	case model.JobStatusCompleted:
		e.completed.Append(&j)
	default:
		return fmt.Errorf("restore job %d: unknown status %q", j.ID, status)
	}
	e.jobs[j.ID] = &j
	e.observe()
	return nil
}

// RestoreClock sets the simulated time and the job identifier counter.
func (e *Engine) RestoreClock(now, nextJobID int) {
	e.clock = now
	e.nextJobID = nextJobID
}

// Snapshot captures the complete engine state.
func (e *Engine) Snapshot() *model.Snapshot {
	return &model.Snapshot{
		Time:      e.clock,
		NextJobID: e.nextJobID,
		Nodes:     e.Nodes(),
		Pending:   e.Pending(),
		Running:   e.Running(),
		Completed: e.Completed(),
		CreatedAt: time.Now().UTC(),
	}
}

// FromSnapshot rebuilds an engine from snap. Pending jobs are replayed in heap
// array order, which reproduces the array exactly. Running jobs are replayed
// in reverse traversal order because inserts link at the chain head.
func FromSnapshot(cfg Config, snap *model.Snapshot, logger *slog.Logger) (*Engine, error) {
	e := New(cfg, logger)
	for _, n := range snap.Nodes {
		if err := e.RestoreNode(n); err != nil {
			return nil, err
		}
	}
	for _, j := range snap.Pending {
		if err := e.RestoreJob(model.JobStatusPending, j, 0); err != nil {
			return nil, err
		}
	}
	for _, rj := range slices.Backward(snap.Running) {
		if err := e.RestoreJob(model.JobStatusRunning, rj.Job, rj.NodeID); err != nil {
			return nil, err
		}
	}
	for _, j := range snap.Completed {
		if err := e.RestoreJob(model.JobStatusCompleted, j, 0); err != nil {
			return nil, err
		}
	}
	e.RestoreClock(snap.Time, snap.NextJobID)
	e.logger.Info("engine restored",
		"time", snap.Time,
		"nodes", len(snap.Nodes),
		"pending", len(snap.Pending),
		"running", len(snap.Running),
		"completed", len(snap.Completed),
	)
	return e, nil
}
