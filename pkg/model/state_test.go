package model

import "testing"

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusPending, JobStatusRunning, true},
		{JobStatusRunning, JobStatusCompleted, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusRunning, JobStatusPending, false},
		{JobStatusCompleted, JobStatusPending, false},
		{JobStatusCompleted, JobStatusRunning, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	if JobStatusPending.IsTerminal() || JobStatusRunning.IsTerminal() {
		t.Error("PENDING and RUNNING must not be terminal")
	}
	if !JobStatusCompleted.IsTerminal() {
		t.Error("COMPLETED must be terminal")
	}
}

func TestJobStatus_CodeRoundTrip(t *testing.T) {
	for _, s := range []JobStatus{JobStatusPending, JobStatusRunning, JobStatusCompleted} {
		got, err := JobStatusFromCode(s.Code())
		if err != nil {
			t.Fatalf("JobStatusFromCode(%d): %v", s.Code(), err)
		}
		if got != s {
			t.Errorf("JobStatusFromCode(%d) = %s, want %s", s.Code(), got, s)
		}
	}
	if _, err := JobStatusFromCode(7); err == nil {
		t.Error("expected error for unknown code")
	}
}

func TestParseJobStatus(t *testing.T) {
	if s, err := ParseJobStatus("running"); err != nil || s != JobStatusRunning {
		t.Errorf("ParseJobStatus(running) = %q, %v", s, err)
	}
	if _, err := ParseJobStatus("failed"); err == nil {
		t.Error("expected error for unknown status")
	}
}
