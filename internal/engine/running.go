package engine

import "github.com/me/clustersim/pkg/model"

// DefaultBuckets is the bucket count used when none is configured.
const DefaultBuckets = 16

type runningEntry struct {
	job    *model.Job
	nodeID int
	next   *runningEntry
}

// RunningIndex maps job identifiers to running jobs and the node each one
// occupies. It is a separate-chaining hash table with a bucket count fixed at
// creation. The number of running jobs is bounded by cluster capacity, so the
// table never resizes.
type RunningIndex struct {
	buckets []*runningEntry
	count   int
	walkers int
}

// NewRunningIndex creates an index with the given bucket count.
func NewRunningIndex(buckets int) *RunningIndex {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	return &RunningIndex{buckets: make([]*runningEntry, buckets)}
}

func (x *RunningIndex) bucket(jobID int) int {
	b := jobID % len(x.buckets)
	if b < 0 {
		b += len(x.buckets)
	}
	return b
}

func (x *RunningIndex) mustNotWalk(op string) {
	if x.walkers > 0 {
		panic("engine: running index " + op + " during traversal")
	}
}

// Insert records job as running on nodeID. An existing entry for the same
// identifier is overwritten in place. New entries go to the head of the chain.
func (x *RunningIndex) Insert(job *model.Job, nodeID int) {
	x.mustNotWalk("insert")
	b := x.bucket(job.ID)
	for e := x.buckets[b]; e != nil; e = e.next {
		if e.job.ID == job.ID {
			e.job = job
			e.nodeID = nodeID
			return
		}
	}
	x.buckets[b] = &runningEntry{job: job, nodeID: nodeID, next: x.buckets[b]}
	x.count++
}

// Find returns the job with the given identifier and its node.
func (x *RunningIndex) Find(jobID int) (*model.Job, int, bool) {
	for e := x.buckets[x.bucket(jobID)]; e != nil; e = e.next {
		if e.job.ID == jobID {
			return e.job, e.nodeID, true
		}
	}
	return nil, 0, false
}

// Remove detaches the entry for jobID and returns its job.
func (x *RunningIndex) Remove(jobID int) (*model.Job, bool) {
	x.mustNotWalk("remove")
	b := x.bucket(jobID)
	var prev *runningEntry
	for e := x.buckets[b]; e != nil; prev, e = e, e.next {
		if e.job.ID != jobID {
			continue
		}
		if prev == nil {
			x.buckets[b] = e.next
		} else {
			prev.next = e.next
		}
		x.count--
		return e.job, true
	}
	return nil, false
}

// Traverse calls visit for every entry in bucket order, then chain order.
// visit may modify the job it is given but must not insert or remove entries;
// callers collect the keys to remove and apply them after Traverse returns.
func (x *RunningIndex) Traverse(visit func(job *model.Job, nodeID int)) {
	x.walkers++
	defer func() { x.walkers-- }()
	for _, head := range x.buckets {
		for e := head; e != nil; e = e.next {
			visit(e.job, e.nodeID)
		}
	}
}

// Len returns the number of running jobs.
func (x *RunningIndex) Len() int { return x.count }

// Buckets returns the fixed bucket count.
func (x *RunningIndex) Buckets() int { return len(x.buckets) }
