package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/me/clustersim/internal/engine"
	"github.com/me/clustersim/internal/statefile"
	"github.com/me/clustersim/internal/store"
	"github.com/me/clustersim/pkg/model"
)

var (
	// ErrNoNodes is returned by AddJob before any node is registered.
	ErrNoNodes = errors.New("no nodes available, add nodes first")

	// ErrUnschedulable is returned by AddJob when the request exceeds the
	// largest CPU or RAM total of any node.
	ErrUnschedulable = errors.New("job requires more resources than any node can provide")

	// ErrNoStore is returned by snapshot operations on a loop without a store.
	ErrNoStore = errors.New("no snapshot store configured")

	// ErrSnapshotNotFound is returned by Restore for an unknown snapshot id.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("scheduler already started")
)

// Config holds scheduler configuration.
type Config struct {
	TickInterval  time.Duration // 0 disables automatic ticking in Start
	AutosaveEvery int           // Save a snapshot every N ticks, 0 = off
	Engine        engine.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		Engine:       engine.DefaultConfig(),
	}
}

// Loop implements the Scheduler interface. It owns one engine, serializes
// every call into it, and assigns node and job identifiers on behalf of
// callers.
type Loop struct {
	mu     sync.Mutex
	engine *engine.Engine

	store   store.Store // optional
	config  Config
	base    *slog.Logger // handed to rebuilt engines
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	stop    sync.Once
	started atomic.Bool
}

// NewLoop creates a loop around an empty engine. st may be nil, in which case
// snapshot operations fail with ErrNoStore.
func NewLoop(st store.Store, cfg Config, logger *slog.Logger) *Loop {
	return &Loop{
		engine: engine.New(cfg.Engine, logger),
		store:  st,
		config: cfg,
		base:   logger,
		logger: logger.With("component", "scheduler"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start runs Tick every TickInterval. Blocks until ctx is cancelled or Stop is called.
// A loop can be started once; later calls return ErrAlreadyStarted.
func (l *Loop) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer close(l.doneCh)

	select {
	case <-l.stopCh:
		return nil
	default:
	}

	var tickC <-chan time.Time
	if l.config.TickInterval > 0 {
		ticker := time.NewTicker(l.config.TickInterval)
		defer ticker.Stop()
		tickC = ticker.C
	}
	l.logger.Info("scheduler started", "tick_interval", l.config.TickInterval, "autosave_every", l.config.AutosaveEvery)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler stopping (context cancelled)")
			return ctx.Err()
		case <-l.stopCh:
			l.logger.Info("scheduler stopping (stop called)")
			return nil
		case <-tickC:
			if err := l.Tick(ctx); err != nil {
				l.logger.Error("tick error", "error", err)
			}
		}
	}
}

// Stop shuts down the loop and waits for the current tick to finish.
// It is safe to call more than once.
func (l *Loop) Stop() error {
	l.stop.Do(func() { close(l.stopCh) })
	if l.started.Load() {
		<-l.doneCh
	}
	return nil
}

// Tick advances the simulation by one time step and autosaves when due.
func (l *Loop) Tick(ctx context.Context) error {
	_, err := l.step(ctx)
	return err
}

// Run advances the simulation by n ticks and returns what each one changed.
// It stops early when ctx is cancelled.
func (l *Loop) Run(ctx context.Context, n int) ([]engine.TickResult, error) {
	var results []engine.TickResult
	for range n {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := l.step(ctx)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Advance is Run without the per-tick results. It returns the clock after
// the last completed tick.
func (l *Loop) Advance(ctx context.Context, n int) (int, error) {
	l.mu.Lock()
	now := l.engine.Clock()
	l.mu.Unlock()
	for range n {
		if err := ctx.Err(); err != nil {
			return now, err
		}
		res, err := l.step(ctx)
		now = res.Time
		if err != nil {
			return now, err
		}
	}
	return now, nil
}

func (l *Loop) step(ctx context.Context) (engine.TickResult, error) {
	l.mu.Lock()
	l.engine.Tick()
	res := l.engine.LastTick()
	var snap *model.Snapshot
	if l.autosaveDue(res.Time) {
		snap = l.engine.Snapshot()
	}
	l.mu.Unlock()

	if snap == nil {
		return res, nil
	}
	snap.Label = fmt.Sprintf("autosave-t%d", res.Time)
	if err := l.store.SaveSnapshot(ctx, snap); err != nil {
		return res, fmt.Errorf("autosave at time %d: %w", res.Time, err)
	}
	l.logger.Info("autosaved", "snapshot_id", snap.ID, "time", res.Time)
	return res, nil
}

func (l *Loop) autosaveDue(now int) bool {
	return l.store != nil && l.config.AutosaveEvery > 0 && now%l.config.AutosaveEvery == 0
}

// AddNode registers a node with the given totals. Its identifier is the
// ledger size plus one.
func (l *Loop) AddNode(cpu, ram int) (model.ResourceNode, error) {
	if apiErr := (model.NodeRequest{CPU: cpu, RAM: ram}).Validate(); apiErr != nil {
		return model.ResourceNode{}, apiErr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	node := model.NewResourceNode(l.engine.NodeCount()+1, cpu, ram)
	if err := l.engine.RegisterNode(node); err != nil {
		return model.ResourceNode{}, err
	}
	l.logger.Info("node added", "node_id", node.ID, "cpu", cpu, "ram", ram)
	return node, nil
}

// AddJob submits a new job arriving at the current time. It requires at
// least one node and rejects requests that exceed the largest CPU total or
// the largest RAM total across all nodes.
func (l *Loop) AddJob(req model.JobRequest) (model.Job, error) {
	if apiErr := req.Validate(); apiErr != nil {
		return model.Job{}, apiErr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine.NodeCount() == 0 {
		return model.Job{}, ErrNoNodes
	}
	maxCPU, maxRAM := l.engine.MaxNodeTotals()
	if req.CPU > maxCPU || req.RAM > maxRAM {
		return model.Job{}, fmt.Errorf("%w (CPU=%d, RAM=%d, max CPU=%d, max RAM=%d)",
			ErrUnschedulable, req.CPU, req.RAM, maxCPU, maxRAM)
	}

	job := model.Job{
		ID:          l.engine.AllocateJobID(),
		Priority:    req.Priority,
		CPU:         req.CPU,
		RAM:         req.RAM,
		Duration:    req.Duration,
		Status:      model.JobStatusPending,
		ArrivalTime: l.engine.Clock(),
	}
	if err := l.engine.SubmitJob(job); err != nil {
		return model.Job{}, err
	}
	l.logger.Info("job added", "job_id", job.ID, "priority", job.Priority, "cpu", job.CPU, "ram", job.RAM, "duration", job.Duration)
	return job, nil
}

// Job returns the job with the given identifier in whichever store holds it.
func (l *Loop) Job(id int) (model.RunningJob, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Lookup(id)
}

// Status returns a consistent copy of the whole simulation.
func (l *Loop) Status() model.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return model.Status{
		Time:      l.engine.Clock(),
		NextJobID: l.engine.NextJobID(),
		Nodes:     l.engine.Nodes(),
		Pending:   l.engine.Pending(),
		Running:   l.engine.Running(),
		Completed: l.engine.Completed(),
	}
}

// LastTick reports what the most recent tick changed.
func (l *Loop) LastTick() engine.TickResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.LastTick()
}

// Metrics returns the current engine counters and gauges.
func (l *Loop) Metrics() map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Metrics().Values()
}

// Save stores a snapshot of the current state under label.
func (l *Loop) Save(ctx context.Context, label string) (model.SnapshotInfo, error) {
	if l.store == nil {
		return model.SnapshotInfo{}, ErrNoStore
	}
	l.mu.Lock()
	snap := l.engine.Snapshot()
	l.mu.Unlock()

	snap.Label = label
	if err := l.store.SaveSnapshot(ctx, snap); err != nil {
		return model.SnapshotInfo{}, fmt.Errorf("save snapshot: %w", err)
	}
	l.logger.Info("snapshot saved", "snapshot_id", snap.ID, "label", label, "time", snap.Time)
	return snap.Info(), nil
}

// Restore replaces the current state with the stored snapshot id. On any
// failure the current state is left untouched.
func (l *Loop) Restore(ctx context.Context, id string) (model.SnapshotInfo, error) {
	if l.store == nil {
		return model.SnapshotInfo{}, ErrNoStore
	}
	snap, err := l.store.GetSnapshot(ctx, id)
	if err != nil {
		return model.SnapshotInfo{}, fmt.Errorf("get snapshot: %w", err)
	}
	if snap == nil {
		return model.SnapshotInfo{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err := l.replace(snap); err != nil {
		return model.SnapshotInfo{}, err
	}
	l.logger.Info("snapshot restored", "snapshot_id", id, "time", snap.Time)
	return snap.Info(), nil
}

// SaveFile writes the current state to a flat state file.
func (l *Loop) SaveFile(path string) error {
	l.mu.Lock()
	snap := l.engine.Snapshot()
	l.mu.Unlock()
	return statefile.Save(path, snap)
}

// LoadFile replaces the current state with the contents of a flat state
// file. On any failure the current state is left untouched.
func (l *Loop) LoadFile(path string) error {
	snap, err := statefile.Load(path)
	if err != nil {
		return err
	}
	if err := l.replace(snap); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	l.logger.Info("state loaded", "path", path, "time", snap.Time)
	return nil
}

func (l *Loop) replace(snap *model.Snapshot) error {
	next, err := engine.FromSnapshot(l.config.Engine, snap, l.base)
	if err != nil {
		return fmt.Errorf("rebuild engine: %w", err)
	}
	l.mu.Lock()
	next.ShareMetrics(l.engine.Metrics())
	l.engine = next
	l.mu.Unlock()
	return nil
}
