package engine

import "github.com/me/clustersim/pkg/model"

// CompletedLog is the append-only record of finished jobs in completion order.
type CompletedLog struct {
	jobs []*model.Job
}

// Append records a finished job.
func (c *CompletedLog) Append(job *model.Job) {
	c.jobs = append(c.jobs, job)
}

// Len returns the number of completed jobs.
func (c *CompletedLog) Len() int { return len(c.jobs) }

// Jobs returns the completed jobs in the order they finished.
func (c *CompletedLog) Jobs() []*model.Job {
	out := make([]*model.Job, len(c.jobs))
	copy(out, c.jobs)
	return out
}
