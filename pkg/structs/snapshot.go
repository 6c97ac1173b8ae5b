package structs

// Snapshot records are the versioned, serialized capture of orchestrator
// state used for reload recovery. The version key exists so future field
// additions can be migrated instead of silently dropped on parse.

const SnapshotVersion = 1

// WorkspaceSnapshot captures the scan / generate / select / run flow.
//
// Invariant: SelectedTestIDs is always a subset of the test ids present in
// Spec; the workspace orchestrator reconciles this whenever a new spec is
// generated by replacing the selection wholesale.
type WorkspaceSnapshot struct {
	Version int `json:"v"`

	URL    string `json:"url,omitempty"`
	Prompt string `json:"prompt,omitempty"`

	ScanJob   *Job   `json:"scan_job,omitempty"`
	ScanError string `json:"scan_error,omitempty"`

	Spec      *FlowSpecResponse `json:"spec,omitempty"`
	SpecError string            `json:"spec_error,omitempty"`

	SelectedTestIDs []string `json:"selected_test_ids,omitempty"`

	RunJob    *Job            `json:"run_job,omitempty"`
	RunResult *RunTestsResult `json:"run_result,omitempty"`
	RunError  string          `json:"run_error,omitempty"`
}

// EvaluationSnapshot captures the evaluation flow, including the latest
// completed job per eval kind so metric panels stay populated across runs.
type EvaluationSnapshot struct {
	Version int `json:"v"`

	SampleSize int `json:"sample_size"`
	TopK       int `json:"top_k"`
	FetchK     int `json:"fetch_k"`

	CurrentJob *Job   `json:"current_job,omitempty"`
	LastError  string `json:"last_error,omitempty"`

	LatestCompleted map[Kind]*Job `json:"latest_completed,omitempty"`
}
