package engine

import (
	"container/heap"
	"fmt"

	"github.com/me/clustersim/pkg/model"
)

// DefaultQueueCapacity is the initial capacity of the pending queue.
const DefaultQueueCapacity = 10

// jobHeap orders jobs by priority alone. Jobs with equal priority have no
// defined relative order.
type jobHeap []*model.Job

func (h jobHeap) Len() int           { return len(h) }
func (h jobHeap) Less(i, j int) bool { return h[i].Priority < h[j].Priority }
func (h jobHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) {
	*h = append(*h, x.(*model.Job))
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return job
}

// JobQueue is a binary min-heap of pending jobs. The most urgent job (lowest
// priority value) is at the root.
type JobQueue struct {
	jobs  jobHeap
	limit int // 0 means unbounded
}

// NewJobQueue creates a queue with the given initial capacity. A positive
// limit caps how far the backing array may grow.
func NewJobQueue(capacity, limit int) *JobQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if limit > 0 && capacity > limit {
		capacity = limit
	}
	return &JobQueue{
		jobs:  make(jobHeap, 0, capacity),
		limit: limit,
	}
}

// Insert adds a job and restores heap order. It returns ErrAllocation when the
// queue is full and cannot grow; the queue is unchanged in that case.
func (q *JobQueue) Insert(job *model.Job) error {
	if len(q.jobs) == cap(q.jobs) {
		if err := q.grow(); err != nil {
			return err
		}
	}
	heap.Push(&q.jobs, job)
	return nil
}

// grow doubles the backing array. The new array is filled before it replaces
// the old one so a refused growth leaves nothing half-copied.
func (q *JobQueue) grow() error {
	old := cap(q.jobs)
	next := old * 2
	if next == 0 {
		next = DefaultQueueCapacity
	}
	if q.limit > 0 && next > q.limit {
		next = q.limit
	}
	if next <= old {
		return fmt.Errorf("pending queue full at %d jobs: %w", old, ErrAllocation)
	}
	jobs := make(jobHeap, len(q.jobs), next)
	copy(jobs, q.jobs)
	q.jobs = jobs
	return nil
}

// ExtractMin removes and returns the root, or nil when the queue is empty.
func (q *JobQueue) ExtractMin() *model.Job {
	if len(q.jobs) == 0 {
		return nil
	}
	return heap.Pop(&q.jobs).(*model.Job)
}

// Peek returns the root without removing it, or nil when the queue is empty.
func (q *JobQueue) Peek() *model.Job {
	if len(q.jobs) == 0 {
		return nil
	}
	return q.jobs[0]
}

// Len returns the number of pending jobs.
func (q *JobQueue) Len() int { return len(q.jobs) }

// Cap returns the current capacity of the backing array.
func (q *JobQueue) Cap() int { return cap(q.jobs) }

// Jobs returns the pending jobs in heap array order, not sorted order.
func (q *JobQueue) Jobs() []*model.Job {
	out := make([]*model.Job, len(q.jobs))
	copy(out, q.jobs)
	return out
}
