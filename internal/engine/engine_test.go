package engine

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/me/clustersim/pkg/model"
)

func testEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func submit(t *testing.T, e *Engine, priority, cpu, ram, duration int) int {
	t.Helper()
	id := e.AllocateJobID()
	job := model.Job{ID: id, Priority: priority, CPU: cpu, RAM: ram, Duration: duration, ArrivalTime: e.Clock()}
	if err := e.SubmitJob(job); err != nil {
		t.Fatalf("SubmitJob(%d): %v", id, err)
	}
	return id
}

func register(t *testing.T, e *Engine, cpu, ram int) int {
	t.Helper()
	id := e.NodeCount() + 1
	if err := e.RegisterNode(model.NewResourceNode(id, cpu, ram)); err != nil {
		t.Fatalf("RegisterNode(%d): %v", id, err)
	}
	return id
}

func ids[T any](items []T, id func(T) int) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}

func jobID(j model.Job) int         { return j.ID }
func runningID(j model.RunningJob) int { return j.ID }

// checkInvariants verifies single ownership and resource bounds. When
// accounted is true it also checks that every node's available capacity plus
// the requirements of the jobs running on it equals its total.
func checkInvariants(t *testing.T, e *Engine, accounted bool) {
	t.Helper()
	seen := make(map[int]model.JobStatus)
	own := func(id int, s model.JobStatus) {
		if prev, ok := seen[id]; ok {
			t.Fatalf("job %d owned by %s and %s", id, prev, s)
		}
		seen[id] = s
	}
	for _, j := range e.Pending() {
		own(j.ID, model.JobStatusPending)
		if j.Status != model.JobStatusPending {
			t.Fatalf("pending job %d has status %s", j.ID, j.Status)
		}
	}
	used := make(map[int][2]int)
	for _, j := range e.Running() {
		own(j.ID, model.JobStatusRunning)
		if j.Status != model.JobStatusRunning {
			t.Fatalf("running job %d has status %s", j.ID, j.Status)
		}
		u := used[j.NodeID]
		used[j.NodeID] = [2]int{u[0] + j.CPU, u[1] + j.RAM}
	}
	for _, j := range e.Completed() {
		own(j.ID, model.JobStatusCompleted)
		if j.Status != model.JobStatusCompleted {
			t.Fatalf("completed job %d has status %s", j.ID, j.Status)
		}
	}
	for _, n := range e.Nodes() {
		if !n.InBounds() {
			t.Fatalf("node %d out of bounds: %+v", n.ID, n)
		}
		if accounted {
			u := used[n.ID]
			if n.AvailableCPU+u[0] != n.TotalCPU || n.AvailableRAM+u[1] != n.TotalRAM {
				t.Fatalf("node %d ledger mismatch: available %d/%d used %d/%d total %d/%d",
					n.ID, n.AvailableCPU, n.AvailableRAM, u[0], u[1], n.TotalCPU, n.TotalRAM)
			}
		}
	}
}

func TestTick_AdmitsOnlyHeadThatFits(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	register(t, e, 4, 4)
	low := submit(t, e, 3, 2, 2, 5)
	urgent := submit(t, e, 1, 4, 4, 5)
	mid := submit(t, e, 2, 2, 2, 5)

	e.Tick()

	running := e.Running()
	if len(running) != 1 || running[0].ID != urgent {
		t.Fatalf("running = %v, want only job %d", ids(running, runningID), urgent)
	}
	pending := ids(e.Pending(), jobID)
	if len(pending) != 2 {
		t.Fatalf("pending = %v, want jobs %d and %d", pending, low, mid)
	}
	if got := e.LastTick().Admitted; !reflect.DeepEqual(got, []int{urgent}) {
		t.Errorf("LastTick().Admitted = %v, want [%d]", got, urgent)
	}
	n := e.Nodes()[0]
	if n.AvailableCPU != 0 || n.AvailableRAM != 0 {
		t.Errorf("node available = %d/%d, want 0/0", n.AvailableCPU, n.AvailableRAM)
	}
	checkInvariants(t, e, true)
}

func TestTick_CompletesAndCreditsExactlyOnce(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	if err := e.RestoreNode(model.ResourceNode{ID: 1, TotalCPU: 4, TotalRAM: 8, AvailableCPU: 1, AvailableRAM: 5}); err != nil {
		t.Fatalf("RestoreNode: %v", err)
	}
	job := model.Job{ID: 9, Priority: 0, CPU: 3, RAM: 3, Duration: 1}
	if err := e.RestoreJob(model.JobStatusRunning, job, 1); err != nil {
		t.Fatalf("RestoreJob: %v", err)
	}

	e.Tick()

	n := e.Nodes()[0]
	if n.AvailableCPU != 4 || n.AvailableRAM != 8 {
		t.Errorf("node available = %d/%d, want 4/8", n.AvailableCPU, n.AvailableRAM)
	}
	if len(e.Running()) != 0 {
		t.Errorf("running = %v, want none", ids(e.Running(), runningID))
	}
	completed := e.Completed()
	if len(completed) != 1 || completed[0].ID != 9 || completed[0].Status != model.JobStatusCompleted {
		t.Fatalf("completed = %+v, want job 9 once", completed)
	}

	e.Tick()
	e.Tick()
	if got := len(e.Completed()); got != 1 {
		t.Errorf("completed count after more ticks = %d, want 1", got)
	}
	if n := e.Nodes()[0]; n.AvailableCPU != 4 || n.AvailableRAM != 8 {
		t.Errorf("node available drifted to %d/%d", n.AvailableCPU, n.AvailableRAM)
	}
}

func TestTick_HeadOfLineBlocking(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	if err := e.RestoreNode(model.ResourceNode{ID: 1, TotalCPU: 8, TotalRAM: 8, AvailableCPU: 4, AvailableRAM: 8}); err != nil {
		t.Fatalf("RestoreNode: %v", err)
	}
	submit(t, e, 1, 8, 1, 3)
	small := submit(t, e, 2, 2, 1, 3)

	e.Tick()

	if len(e.Running()) != 0 {
		t.Fatalf("running = %v, want none", ids(e.Running(), runningID))
	}
	if len(e.LastTick().Admitted) != 0 {
		t.Errorf("admitted = %v, want none", e.LastTick().Admitted)
	}
	if _, ok := e.Lookup(small); !ok {
		t.Fatalf("Lookup(%d) missed", small)
	}
	if n := e.Nodes()[0]; n.AvailableCPU != 4 {
		t.Errorf("available cpu = %d, want 4", n.AvailableCPU)
	}
}

func TestTick_CompletionFreesCapacityForSameTickAdmission(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	register(t, e, 4, 4)
	first := submit(t, e, 0, 4, 4, 1)
	second := submit(t, e, 0, 4, 4, 2)

	e.Tick() // admits first
	if got := ids(e.Running(), runningID); !reflect.DeepEqual(got, []int{first}) {
		t.Fatalf("tick 1 running = %v, want [%d]", got, first)
	}

	e.Tick() // first completes, second admitted
	if got := ids(e.Completed(), jobID); !reflect.DeepEqual(got, []int{first}) {
		t.Fatalf("tick 2 completed = %v, want [%d]", got, first)
	}
	if got := ids(e.Running(), runningID); !reflect.DeepEqual(got, []int{second}) {
		t.Fatalf("tick 2 running = %v, want [%d]", got, second)
	}
	checkInvariants(t, e, true)
}

func TestTick_AdvancesClock(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	for range 3 {
		e.Tick()
	}
	if e.Clock() != 3 {
		t.Errorf("Clock = %d, want 3", e.Clock())
	}
	if e.LastTick().Time != 3 {
		t.Errorf("LastTick().Time = %d, want 3", e.LastTick().Time)
	}
}

func TestSubmitJob_Rejections(t *testing.T) {
	e := testEngine(t, Config{QueueCapacity: 1, MaxPending: 2, Buckets: 4})
	submit(t, e, 1, 1, 1, 1)
	submit(t, e, 1, 1, 1, 1)

	if err := e.SubmitJob(model.Job{ID: 1, Priority: 0, CPU: 1, RAM: 1, Duration: 1}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate err = %v, want ErrConflict", err)
	}
	if err := e.SubmitJob(model.Job{ID: 50, Priority: 0, CPU: 1, RAM: 1, Duration: 1}); !errors.Is(err, ErrAllocation) {
		t.Errorf("full queue err = %v, want ErrAllocation", err)
	}
	if _, ok := e.Lookup(50); ok {
		t.Error("rejected job 50 must not be registered")
	}
	if got := len(e.Pending()); got != 2 {
		t.Errorf("pending = %d, want 2", got)
	}
	if got := e.Metrics().Values()["submit.rejected"]; got != 2 {
		t.Errorf("submit.rejected = %d, want 2", got)
	}
}

func TestLookup(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	node := register(t, e, 4, 4)
	id := submit(t, e, 0, 1, 1, 2)

	got, ok := e.Lookup(id)
	if !ok || got.Status != model.JobStatusPending || got.NodeID != 0 {
		t.Fatalf("Lookup pending = %+v, %v", got, ok)
	}
	e.Tick()
	got, _ = e.Lookup(id)
	if got.Status != model.JobStatusRunning || got.NodeID != node {
		t.Fatalf("Lookup running = %+v", got)
	}
	if _, ok := e.Lookup(404); ok {
		t.Error("Lookup(404) should miss")
	}
}

func TestRestoreJob_Errors(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	register(t, e, 4, 4)
	if err := e.RestoreJob(model.JobStatusRunning, model.Job{ID: 1, CPU: 1, RAM: 1, Duration: 1}, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown node err = %v, want ErrNotFound", err)
	}
	if err := e.RestoreJob(model.JobStatusCompleted, model.Job{ID: 2}, 0); err != nil {
		t.Fatalf("RestoreJob completed: %v", err)
	}
	if err := e.RestoreJob(model.JobStatusPending, model.Job{ID: 2}, 0); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate err = %v, want ErrConflict", err)
	}
	if err := e.RestoreJob("FAILED", model.Job{ID: 3}, 0); err == nil {
		t.Error("expected error for unknown status")
	}
	if err := e.RestoreNode(model.ResourceNode{ID: 2, TotalCPU: 1, TotalRAM: 1, AvailableCPU: -1}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("negative available err = %v, want ErrOutOfBounds", err)
	}
}

// buildWorkload registers m nodes and submits n jobs with varied shapes.
func buildWorkload(t *testing.T, e *Engine, n, m int) {
	t.Helper()
	for i := range m {
		register(t, e, 4+2*(i%3), 4+3*(i%2))
	}
	for i := range n {
		submit(t, e, (i*7)%5, 1+(i*3)%6, 1+(i*5)%7, 1+(i*11)%4)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	const n, m, k = 40, 3, 6

	straight := testEngine(t, DefaultConfig())
	buildWorkload(t, straight, n, m)
	for range 2 * k {
		straight.Tick()
		checkInvariants(t, straight, true)
	}

	first := testEngine(t, DefaultConfig())
	buildWorkload(t, first, n, m)
	for range k {
		first.Tick()
	}
	restored, err := FromSnapshot(DefaultConfig(), first.Snapshot(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if !reflect.DeepEqual(restored.Running(), first.Running()) {
		t.Fatalf("restored running order differs:\n got %v\nwant %v",
			ids(restored.Running(), runningID), ids(first.Running(), runningID))
	}
	for range k {
		restored.Tick()
		checkInvariants(t, restored, true)
	}

	if restored.Clock() != straight.Clock() || restored.NextJobID() != straight.NextJobID() {
		t.Errorf("clock/next id = %d/%d, want %d/%d",
			restored.Clock(), restored.NextJobID(), straight.Clock(), straight.NextJobID())
	}
	if !reflect.DeepEqual(restored.Pending(), straight.Pending()) {
		t.Errorf("pending differs:\n got %v\nwant %v", ids(restored.Pending(), jobID), ids(straight.Pending(), jobID))
	}
	if !reflect.DeepEqual(restored.Running(), straight.Running()) {
		t.Errorf("running differs:\n got %v\nwant %v", ids(restored.Running(), runningID), ids(straight.Running(), runningID))
	}
	if !reflect.DeepEqual(restored.Completed(), straight.Completed()) {
		t.Errorf("completed differs:\n got %v\nwant %v", ids(restored.Completed(), jobID), ids(straight.Completed(), jobID))
	}
	if !reflect.DeepEqual(restored.Nodes(), straight.Nodes()) {
		t.Errorf("nodes differ:\n got %+v\nwant %+v", restored.Nodes(), straight.Nodes())
	}
}

func TestMetricsTrackTicks(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	register(t, e, 2, 2)
	submit(t, e, 0, 1, 1, 1)
	submit(t, e, 0, 1, 1, 1)
	e.Tick()
	e.Tick()

	v := e.Metrics().Values()
	want := map[string]int64{
		"ticks":          2,
		"jobs.submitted": 2,
		"jobs.admitted":  2,
		"jobs.completed": 2,
		"jobs.pending":   0,
		"jobs.running":   0,
		"nodes":          1,
	}
	for name, w := range want {
		if v[name] != w {
			t.Errorf("%s = %d, want %d", name, v[name], w)
		}
	}
}
