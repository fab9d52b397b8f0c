package model

import "fmt"

// JobStatus represents the lifecycle state of a Job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
)

// String returns the string representation of the job status.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the job can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted
}

// ValidJobTransitions defines the allowed state transitions for Jobs.
var ValidJobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending: {JobStatusRunning},
	JobStatusRunning: {JobStatusCompleted},
}

// CanTransitionTo returns true if moving from the current status to next is valid.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range ValidJobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Code returns the numeric status used by the flat state file.
func (s JobStatus) Code() int {
	switch s {
	case JobStatusRunning:
		return 1
	case JobStatusCompleted:
		return 2
	default:
		return 0
	}
}

// JobStatusFromCode is the inverse of Code.
func JobStatusFromCode(code int) (JobStatus, error) {
	switch code {
	case 0:
		return JobStatusPending, nil
	case 1:
		return JobStatusRunning, nil
	case 2:
		return JobStatusCompleted, nil
	}
	return "", fmt.Errorf("unknown job status code %d", code)
}

// ParseJobStatus accepts either the upper- or lower-case status name.
func ParseJobStatus(s string) (JobStatus, error) {
	switch s {
	case "PENDING", "pending":
		return JobStatusPending, nil
	case "RUNNING", "running":
		return JobStatusRunning, nil
	case "COMPLETED", "completed":
		return JobStatusCompleted, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}
