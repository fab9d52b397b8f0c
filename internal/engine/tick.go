package engine

import (
	"github.com/me/clustersim/pkg/model"
)

// Tick advances the simulated clock by one and runs the two scheduling
// phases in order: running jobs advance and finish, then pending jobs are
// admitted. Its effects are observable through the accessors and LastTick.
func (e *Engine) Tick() {
	e.clock++
	result := TickResult{Time: e.clock}

	// Phase 1: advance running jobs and retire the finished ones.
	result.Completed = e.advanceRunning()

	// Phase 2: admit pending jobs until the head cannot be placed.
	result.Admitted = e.admitPending()

	e.last = result
	e.metrics.ticks.Inc(1)
	e.metrics.completed.Inc(int64(len(result.Completed)))
	e.metrics.admitted.Inc(int64(len(result.Admitted)))
	e.observe()
	e.logger.Debug("tick",
		"time", e.clock,
		"completed", len(result.Completed),
		"admitted", len(result.Admitted),
		"pending", e.queue.Len(),
		"running", e.running.Len(),
	)
}

// advanceRunning decrements every running job's remaining duration. Jobs that
// reach zero release their node and become COMPLETED during the walk; they
// are moved from the index to the completed log only after the walk ends.
func (e *Engine) advanceRunning() []int {
	var finished []int
	e.running.Traverse(func(job *model.Job, nodeID int) {
		if job.Status != model.JobStatusRunning {
			return
		}
		job.Duration--
		if job.Duration > 0 {
			return
		}
		e.release(job, nodeID)
		finished = append(finished, job.ID)
	})

	completed := finished[:0]
	for _, id := range finished {
		job, ok := e.running.Remove(id)
		if !ok {
			continue
		}
		e.completed.Append(job)
		completed = append(completed, id)
	}
	return completed
}

// release credits the job's resources back to its node and marks it
// COMPLETED. The credit is applied first.
func (e *Engine) release(job *model.Job, nodeID int) {
	clamped, err := e.nodes.Credit(nodeID, job.CPU, job.RAM)
	if err != nil {
		e.logger.Warn("release resources", "job_id", job.ID, "node_id", nodeID, "error", err)
	} else if clamped {
		e.logger.Warn("credit clamped to node total", "job_id", job.ID, "node_id", nodeID)
	}
	if err := e.transition(job, model.JobStatusCompleted); err != nil {
		e.logger.Error("complete job", "error", err)
	}
	e.logger.Debug("job completed", "job_id", job.ID, "node_id", nodeID, "time", e.clock)
}

// admitPending places pending jobs strictly in queue order. When the head job
// fits no node, admission stops for this tick even if a later job would fit.
func (e *Engine) admitPending() []int {
	var admitted []int
	for {
		head := e.queue.Peek()
		if head == nil {
			return admitted
		}
		i, ok := e.nodes.FindAvailable(head.CPU, head.RAM)
		if !ok {
			e.logger.Debug("admission blocked", "job_id", head.ID, "cpu", head.CPU, "ram", head.RAM)
			return admitted
		}
		if err := e.nodes.Debit(i, head.CPU, head.RAM); err != nil {
			e.logger.Error("debit node", "job_id", head.ID, "error", err)
			return admitted
		}
		job := e.queue.ExtractMin()
		if err := e.transition(job, model.JobStatusRunning); err != nil {
			e.logger.Error("admit job", "error", err)
		}
		node := e.nodes.At(i)
		e.running.Insert(job, node.ID)
		admitted = append(admitted, job.ID)
		e.logger.Debug("job admitted", "job_id", job.ID, "node_id", node.ID, "time", e.clock)
	}
}

// transition moves job to next, refusing moves the job lifecycle does not allow.
func (e *Engine) transition(job *model.Job, next model.JobStatus) error {
	if !job.Status.CanTransitionTo(next) {
		return &model.InvalidTransitionError{JobID: job.ID, From: job.Status, To: next}
	}
	job.Status = next
	return nil
}
