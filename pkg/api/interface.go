package api

import (
	"context"

	"github.com/flowpilot/flowpilot/pkg/structs"
)

// Workspace is the scan -> generate-spec -> select -> run surface the
// presentation layer drives. Implemented in internal/core.Workspace.
//
// Operations block until their job reaches a final status; callers that
// don't care run them in their own goroutine. State() is always safe to
// read concurrently and returns a copy.
type Workspace interface {
	State() structs.WorkspaceSnapshot
	Busy() bool

	SetTarget(ctx context.Context, url, prompt string)
	Scan(ctx context.Context) error
	GenerateSpec(ctx context.Context) error

	SelectTest(ctx context.Context, id string)
	DeselectTest(ctx context.Context, id string)
	SelectAll(ctx context.Context)
	ClearSelection(ctx context.Context)

	RunSelected(ctx context.Context) error
	RerunFailed(ctx context.Context) error
	CancelRun(ctx context.Context) error

	Load(ctx context.Context)
	Restore(ctx context.Context) error
}

// Evaluation is the ingest -> retrieve -> evaluate surface.
// Implemented in internal/core.Evaluation.
type Evaluation interface {
	State() structs.EvaluationSnapshot
	Busy() bool

	SetParams(ctx context.Context, sampleSize, topK, fetchK int) error
	Run(ctx context.Context, kind structs.Kind, ov *structs.EvalOverrides) error

	CanRecover() bool
	RetrySafeDefaults(ctx context.Context) error
	RunBaselineOnly(ctx context.Context) error

	Ingest(ctx context.Context, force bool) (*structs.IngestResponse, error)
	IngestState() (*structs.IngestResponse, string)
	Retrieve(ctx context.Context, query string) (*structs.RetrieveResponse, error)
	RetrieveState() (*structs.RetrieveResponse, string)

	Load(ctx context.Context)
	Restore(ctx context.Context) error
}
