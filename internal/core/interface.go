package core

import (
	"context"

	"github.com/flowpilot/flowpilot/pkg/structs"
)

//go:generate mockgen -source=interface.go -destination=../mocks/core_mock/runner_mock.go -package=core_mock

// JobService is the slice of the runner the poller and orchestrators need
// to drive jobs: create, read, cancel, list. No retry or backoff here.
type JobService interface {
	CreateJob(ctx context.Context, in *structs.CreateJobRequest) (*structs.CreateJobResponse, error)
	Job(ctx context.Context, id string) (*structs.Job, error)
	CancelJob(ctx context.Context, id string) (*structs.Job, error)
	Jobs(ctx context.Context, q *structs.Query) ([]*structs.Job, error)
}

// Runner adds the synchronous agent & retrieval endpoints.
type Runner interface {
	JobService

	FlowSpec(ctx context.Context, in *structs.FlowSpecRequest) (*structs.FlowSpecResponse, error)
	Ingest(ctx context.Context, force bool) (*structs.IngestResponse, error)
	Retrieve(ctx context.Context, in *structs.RetrieveRequest) (*structs.RetrieveResponse, error)
}
