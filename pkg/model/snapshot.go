package model

import "time"

// Snapshot is a complete copy of the engine state: the simulated clock, the id
// counter, every node with its available capacity, and the three job stores.
// Pending is in heap array order, Running in index traversal order and
// Completed in log order.
type Snapshot struct {
	ID        string         `json:"id,omitempty"`
	Label     string         `json:"label,omitempty"`
	Time      int            `json:"time"`
	NextJobID int            `json:"next_job_id"`
	Nodes     []ResourceNode `json:"nodes"`
	Pending   []Job          `json:"pending"`
	Running   []RunningJob   `json:"running"`
	Completed []Job          `json:"completed"`
	CreatedAt time.Time      `json:"created_at"`
}

// SnapshotInfo is the summary returned when listing snapshots.
type SnapshotInfo struct {
	ID        string    `json:"id"`
	Label     string    `json:"label,omitempty"`
	Time      int       `json:"time"`
	Nodes     int       `json:"nodes"`
	Pending   int       `json:"pending"`
	Running   int       `json:"running"`
	Completed int       `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Info summarizes the snapshot.
func (s *Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		ID:        s.ID,
		Label:     s.Label,
		Time:      s.Time,
		Nodes:     len(s.Nodes),
		Pending:   len(s.Pending),
		Running:   len(s.Running),
		Completed: len(s.Completed),
		CreatedAt: s.CreatedAt,
	}
}

// Status is the read-only view of the scheduler served to clients.
type Status struct {
	Time      int            `json:"time"`
	NextJobID int            `json:"next_job_id"`
	Nodes     []ResourceNode `json:"nodes"`
	Pending   []Job          `json:"pending"`
	Running   []RunningJob   `json:"running"`
	Completed []Job          `json:"completed"`
}
