package structs

import (
	"encoding/json"
	"time"
)

// Job is one unit of asynchronous work tracked by the runner.
//
// Only the runner mutates a job; this client only ever reads it back.
// Once the status is final the record is immutable.
type Job struct {
	ID     string `json:"job_id"`
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`

	// Phase is a free-text, kind specific label for the stage currently
	// executing. May be empty.
	Phase string `json:"phase,omitempty"`

	// Progress runs 0-100 and is monotonically non-decreasing while the
	// job is non-final (runner contract).
	Progress int `json:"progress"`

	CreatedAt  *time.Time `json:"created_at,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Result is the kind-specific payload of a completed job. Callers
	// narrow it per kind, see results.go.
	Result json.RawMessage `json:"result,omitempty"`

	Error *JobError `json:"error,omitempty"`
}

// JobError is attached to jobs whose status is failed or timeout.
type JobError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CreateJobRequest submits new work of the given kind. Payload is opaque
// at this layer, see payloads.go for the per-kind shapes.
type CreateJobRequest struct {
	Kind    Kind        `json:"kind"`
	Payload interface{} `json:"payload"`
}

// CreateJobResponse acknowledges a created job. The runner replies with
// job_id; older deployments used jobId, so both are accepted on decode.
type CreateJobResponse struct {
	JobID       string `json:"job_id"`
	JobIDLegacy string `json:"jobId,omitempty"`
	Status      Status `json:"status"`
}

// ID returns whichever identifier field the runner populated.
func (r *CreateJobResponse) ID() string {
	if r.JobID != "" {
		return r.JobID
	}
	return r.JobIDLegacy
}
