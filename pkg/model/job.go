package model

// Job is a unit of simulated work. Identifiers are assigned by the submitter
// in increasing order and are never reused.
type Job struct {
	ID          int       `json:"id" yaml:"id"`
	Priority    int       `json:"priority" yaml:"priority"` // Lower value is more urgent
	CPU         int       `json:"cpu" yaml:"cpu"`
	RAM         int       `json:"ram" yaml:"ram"`
	Duration    int       `json:"duration" yaml:"duration"` // Remaining ticks
	Status      JobStatus `json:"status" yaml:"status"`
	ArrivalTime int       `json:"arrival_time" yaml:"arrival_time"`
}

// RunningJob is a job together with the node it occupies.
type RunningJob struct {
	Job
	NodeID int `json:"node_id,omitempty" yaml:"node_id,omitempty"`
}

// JobRequest carries the caller-supplied fields of a new job.
type JobRequest struct {
	Priority int `json:"priority" yaml:"priority"`
	CPU      int `json:"cpu" yaml:"cpu"`
	RAM      int `json:"ram" yaml:"ram"`
	Duration int `json:"duration" yaml:"duration"`
}

// Validate checks the ranges every job must satisfy before submission.
func (r JobRequest) Validate() *APIError {
	var details []FieldError
	if r.Priority < 0 {
		details = append(details, FieldError{Field: "priority", Message: "must be non-negative"})
	}
	if r.CPU <= 0 {
		details = append(details, FieldError{Field: "cpu", Message: "must be positive"})
	}
	if r.RAM <= 0 {
		details = append(details, FieldError{Field: "ram", Message: "must be positive"})
	}
	if r.Duration <= 0 {
		details = append(details, FieldError{Field: "duration", Message: "must be positive"})
	}
	if len(details) > 0 {
		return NewValidationError("invalid job", details...)
	}
	return nil
}
