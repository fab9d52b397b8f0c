// Package engine implements the job scheduling core: the pending queue, the
// running index, the node ledger, the completed log and the per-tick
// algorithm that moves jobs between them.
//
// An Engine is not safe for concurrent use. Hosts that share one between
// goroutines must serialize every call.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/me/clustersim/pkg/model"
)

// Config sizes the engine's stores.
type Config struct {
	QueueCapacity int `yaml:"queue_capacity"`
	NodeCapacity  int `yaml:"node_capacity"`
	Buckets       int `yaml:"buckets"`
	MaxPending    int `yaml:"max_pending"` // 0 = unbounded
	MaxNodes      int `yaml:"max_nodes"`   // 0 = unbounded
}

// DefaultConfig returns the default store sizes.
func DefaultConfig() Config {
	return Config{
		QueueCapacity: DefaultQueueCapacity,
		NodeCapacity:  DefaultNodeCapacity,
		Buckets:       DefaultBuckets,
	}
}

// TickResult reports what the latest tick changed.
type TickResult struct {
	Time      int   `json:"time"`
	Completed []int `json:"completed"`
	Admitted  []int `json:"admitted"`
}

// Engine owns every job and node of one simulation together with the
// simulated clock and the job identifier counter.
type Engine struct {
	config    Config
	queue     *JobQueue
	running   *RunningIndex
	nodes     *NodeLedger
	completed *CompletedLog

	// jobs indexes every job by identifier; the job's Status names the one
	// store that currently holds it.
	jobs map[int]*model.Job

	clock     int
	nextJobID int
	last      TickResult

	metrics *Metrics
	logger  *slog.Logger
}

// New creates an empty engine at time 0 whose first job identifier is 1.
func New(cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		config:    cfg,
		queue:     NewJobQueue(cfg.QueueCapacity, cfg.MaxPending),
		running:   NewRunningIndex(cfg.Buckets),
		nodes:     NewNodeLedger(cfg.NodeCapacity, cfg.MaxNodes),
		completed: &CompletedLog{},
		jobs:      make(map[int]*model.Job),
		nextJobID: 1,
		metrics:   newMetrics(),
		logger:    logger.With("component", "engine"),
	}
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config { return e.config }

// SubmitJob places a copy of job in the pending queue with status PENDING.
// It fails with ErrConflict if the identifier is already known and with
// ErrAllocation if the queue cannot grow; neither failure changes any state.
func (e *Engine) SubmitJob(job model.Job) error {
	if _, ok := e.jobs[job.ID]; ok {
		e.metrics.rejected.Inc(1)
		return fmt.Errorf("submit job %d: %w", job.ID, ErrConflict)
	}
	j := job
	j.Status = model.JobStatusPending
	if err := e.queue.Insert(&j); err != nil {
		e.metrics.rejected.Inc(1)
		e.logger.Warn("job rejected", "job_id", j.ID, "error", err)
		return fmt.Errorf("submit job %d: %w", j.ID, err)
	}
	e.jobs[j.ID] = &j
	if j.ID >= e.nextJobID {
		e.nextJobID = j.ID + 1
	}
	e.metrics.submitted.Inc(1)
	e.observe()
	e.logger.Debug("job submitted", "job_id", j.ID, "priority", j.Priority, "cpu", j.CPU, "ram", j.RAM, "duration", j.Duration)
	return nil
}

// RegisterNode adds a copy of node to the ledger.
func (e *Engine) RegisterNode(node model.ResourceNode) error {
	n := node
	if err := e.nodes.Add(&n); err != nil {
		e.logger.Warn("node rejected", "node_id", n.ID, "error", err)
		return fmt.Errorf("register node: %w", err)
	}
	e.observe()
	e.logger.Debug("node registered", "node_id", n.ID, "cpu", n.TotalCPU, "ram", n.TotalRAM)
	return nil
}

// AllocateJobID returns the next job identifier and advances the counter.
func (e *Engine) AllocateJobID() int {
	id := e.nextJobID
	e.nextJobID++
	return id
}

// Clock returns the current simulated time.
func (e *Engine) Clock() int { return e.clock }

// NextJobID returns the identifier the next allocation will hand out.
func (e *Engine) NextJobID() int { return e.nextJobID }

// LastTick returns what the most recent Tick changed.
func (e *Engine) LastTick() TickResult { return e.last }

// Metrics returns the engine's metrics.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// ShareMetrics makes the engine report into m instead of its own registry,
// so counters carry over when one engine replaces another. The gauges are
// refreshed from this engine's stores.
func (e *Engine) ShareMetrics(m *Metrics) {
	e.metrics = m
	e.observe()
}

// MaxNodeTotals returns the largest CPU and RAM totals of any single node.
func (e *Engine) MaxNodeTotals() (cpu, ram int) { return e.nodes.MaxTotals() }

// NodeCount returns the number of registered nodes.
func (e *Engine) NodeCount() int { return e.nodes.Len() }

// Pending returns copies of the pending jobs in heap array order.
func (e *Engine) Pending() []model.Job {
	jobs := e.queue.Jobs()
	out := make([]model.Job, len(jobs))
	for i, j := range jobs {
		out[i] = *j
	}
	return out
}

// Running returns copies of the running jobs in index traversal order.
func (e *Engine) Running() []model.RunningJob {
	out := make([]model.RunningJob, 0, e.running.Len())
	e.running.Traverse(func(job *model.Job, nodeID int) {
		out = append(out, model.RunningJob{Job: *job, NodeID: nodeID})
	})
	return out
}

// Completed returns copies of the completed jobs in completion order.
func (e *Engine) Completed() []model.Job {
	jobs := e.completed.Jobs()
	out := make([]model.Job, len(jobs))
	for i, j := range jobs {
		out[i] = *j
	}
	return out
}

// Nodes returns copies of the nodes in registration order.
func (e *Engine) Nodes() []model.ResourceNode {
	nodes := e.nodes.Nodes()
	out := make([]model.ResourceNode, len(nodes))
	for i, n := range nodes {
		out[i] = *n
	}
	return out
}

// Lookup returns a copy of the job with the given identifier. NodeID is set
// only while the job is running.
func (e *Engine) Lookup(jobID int) (model.RunningJob, bool) {
	j, ok := e.jobs[jobID]
	if !ok {
		return model.RunningJob{}, false
	}
	rj := model.RunningJob{Job: *j}
	if j.Status == model.JobStatusRunning {
		if _, nodeID, ok := e.running.Find(jobID); ok {
			rj.NodeID = nodeID
		}
	}
	return rj, true
}

// observe refreshes the store-size gauges.
func (e *Engine) observe() {
	e.metrics.pending.Update(int64(e.queue.Len()))
	e.metrics.running.Update(int64(e.running.Len()))
	e.metrics.nodes.Update(int64(e.nodes.Len()))
}
