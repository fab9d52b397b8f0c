package statefile

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/me/clustersim/internal/engine"
	"github.com/me/clustersim/internal/logging"
	"github.com/me/clustersim/pkg/model"
)

const sample = `# Cloud Job Scheduler State File
TIME 4
NEXT_JOB_ID 5
NODES 1
NODE 1 8 16 6 12
PENDING_JOBS 1
JOB 3 2 4 4 3 0 2
RUNNING_JOBS 1
RUNNING_JOB 2 1
JOB 2 1 2 4 1 1 1
COMPLETED_JOBS 1
JOB 1 0 1 1 0 2 0
`

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Time:      4,
		NextJobID: 5,
		Nodes:     []model.ResourceNode{{ID: 1, TotalCPU: 8, TotalRAM: 16, AvailableCPU: 6, AvailableRAM: 12}},
		Pending: []model.Job{
			{ID: 3, Priority: 2, CPU: 4, RAM: 4, Duration: 3, Status: model.JobStatusPending, ArrivalTime: 2},
		},
		Running: []model.RunningJob{
			{Job: model.Job{ID: 2, Priority: 1, CPU: 2, RAM: 4, Duration: 1, Status: model.JobStatusRunning, ArrivalTime: 1}, NodeID: 1},
		},
		Completed: []model.Job{
			{ID: 1, Priority: 0, CPU: 1, RAM: 1, Duration: 0, Status: model.JobStatusCompleted, ArrivalTime: 0},
		},
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleSnapshot()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got := buf.String(); got != sample {
		t.Errorf("Encode mismatch:\ngot:\n%s\nwant:\n%s", got, sample)
	}
}

func TestDecode(t *testing.T) {
	snap, err := Decode(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(snap, sampleSnapshot()) {
		t.Errorf("Decode = %+v\nwant %+v", snap, sampleSnapshot())
	}
}

func TestDecode_SkipsBlankAndComments(t *testing.T) {
	input := "# comment\n\nTIME 7\n   \nNEXT_JOB_ID 1\n# trailing\n"
	snap, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Time != 7 || snap.NextJobID != 1 {
		t.Errorf("snap = %+v", snap)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown keyword", "TIME 1\nBOGUS 3\n", "line 2"},
		{"short node", "NODES 1\nNODE 1 2 3\n", "want 5 fields"},
		{"non-numeric", "TIME soon\n", "line 1"},
		{"bad status code", "PENDING_JOBS 1\nJOB 1 0 1 1 1 9 0\n", "status code 9"},
		{"running without marker", "RUNNING_JOBS 1\nJOB 1 0 1 1 1 1 0\n", "no RUNNING_JOB"},
		{"marker without job", "RUNNING_JOBS 1\nRUNNING_JOB 4 1\n", "has no JOB line"},
		{"marker id mismatch", "RUNNING_JOB 4 1\nJOB 5 0 1 1 1 1 0\n", "does not match"},
		{"marker then other", "RUNNING_JOB 4 1\nTIME 2\n", "expected JOB"},
		{"count mismatch", "NODES 2\nNODE 1 1 1 1 1\n", "NODES declares 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestSaveLoad_EngineRoundTrip(t *testing.T) {
	cfg := engine.DefaultConfig()
	e := engine.New(cfg, logging.Discard())
	for i, size := range [][2]int{{8, 16}, {4, 4}} {
		if err := e.RegisterNode(model.NewResourceNode(i+1, size[0], size[1])); err != nil {
			t.Fatalf("RegisterNode: %v", err)
		}
	}
	for i := range 12 {
		job := model.Job{ID: e.AllocateJobID(), Priority: (i * 7) % 5, CPU: 1 + i%4, RAM: 2 + i%3, Duration: 1 + i%4, ArrivalTime: e.Clock()}
		if err := e.SubmitJob(job); err != nil {
			t.Fatalf("SubmitJob: %v", err)
		}
		if i%3 == 2 {
			e.Tick()
		}
	}

	path := filepath.Join(t.TempDir(), "state.txt")
	want := e.Snapshot()
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	restored, err := engine.FromSnapshot(cfg, loaded, logging.Discard())
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	got := restored.Snapshot()
	got.CreatedAt = want.CreatedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}

	// Both engines continue identically.
	e.Tick()
	restored.Tick()
	if !reflect.DeepEqual(e.Running(), restored.Running()) {
		t.Errorf("running diverged after tick")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error")
	}
}
