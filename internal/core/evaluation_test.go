package core

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/flowpilot/flowpilot/internal/mocks/core_mock"
	fe "github.com/flowpilot/flowpilot/pkg/errors"
	"github.com/flowpilot/flowpilot/pkg/store"
	"github.com/flowpilot/flowpilot/pkg/structs"
)

func newTestEvaluation(t *testing.T) (*Evaluation, *core_mock.MockRunner) {
	svc := core_mock.NewMockRunner(gomock.NewController(t))
	return NewEvaluation(svc, NewPoller(svc, time.Millisecond), store.NewMemory()), svc
}

func TestEvaluationDefaults(t *testing.T) {
	e, _ := newTestEvaluation(t)

	state := e.State()
	assert.Equal(t, state.SampleSize, defaultSampleSize)
	assert.Equal(t, state.TopK, defaultTopK)
	assert.Equal(t, state.FetchK, defaultFetchK)
}

func TestSetParams(t *testing.T) {
	cases := []struct {
		Name       string
		SampleSize int
		TopK       int
		FetchK     int
		ExpectOk   bool
	}{
		{"Valid", 20, 8, 30, true},
		{"SampleTooSmall", 3, 5, 20, false},
		{"TopKTooLarge", 12, 11, 20, false},
		{"FetchKTooSmall", 12, 5, 4, false},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			e, _ := newTestEvaluation(t)
			err := e.SetParams(context.Background(), c.SampleSize, c.TopK, c.FetchK)
			if c.ExpectOk {
				assert.Nil(t, err)
				assert.Equal(t, e.State().SampleSize, c.SampleSize)
			} else {
				assert.ErrorIs(t, err, fe.ErrInvalidArg)
				// rejected params never reach the form state
				assert.Equal(t, e.State().SampleSize, defaultSampleSize)
			}
		})
	}
}

func TestRunRejectsNonEvalKinds(t *testing.T) {
	e, _ := newTestEvaluation(t)

	for _, kind := range []structs.Kind{structs.KindScan, structs.KindRunTests, structs.KindReportPDF, ""} {
		assert.ErrorIs(t, e.Run(context.Background(), kind, nil), fe.ErrInvalidArg)
	}
}

func TestRunBusy(t *testing.T) {
	e, _ := newTestEvaluation(t)
	e.polling = true

	assert.ErrorIs(t, e.Run(context.Background(), structs.KindEvalBaseline, nil), fe.ErrBusy)
}

func TestRun(t *testing.T) {
	e, svc := newTestEvaluation(t)
	ctx := context.Background()

	result := json.RawMessage(`{"metrics": {"faithfulness": 0.8, "context_precision": 0.7, "context_recall": 0.6}}`)

	svc.EXPECT().CreateJob(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, in *structs.CreateJobRequest) (*structs.CreateJobResponse, error) {
			assert.Equal(t, in.Kind, structs.KindEvalBaseline)
			payload := in.Payload.(*structs.EvalPayload)
			assert.Equal(t, payload.SampleSize, defaultSampleSize)
			assert.Equal(t, payload.TopK, defaultTopK)
			assert.Equal(t, payload.FetchK, defaultFetchK)
			return &structs.CreateJobResponse{JobID: "j-1", Status: structs.QUEUED}, nil
		},
	)
	gomock.InOrder(
		svc.EXPECT().Job(gomock.Any(), "j-1").Return(&structs.Job{ID: "j-1", Kind: structs.KindEvalBaseline, Status: structs.RUNNING, Phase: "retrieval", Progress: 50}, nil),
		svc.EXPECT().Job(gomock.Any(), "j-1").Return(&structs.Job{ID: "j-1", Kind: structs.KindEvalBaseline, Status: structs.COMPLETED, Progress: 100, Result: result}, nil),
	)

	err := e.Run(ctx, structs.KindEvalBaseline, nil)

	assert.Nil(t, err)
	state := e.State()
	assert.Equal(t, state.LastError, "")
	assert.Equal(t, state.CurrentJob.Status, structs.COMPLETED)
	assert.NotNil(t, state.LatestCompleted[structs.KindEvalBaseline])
}

func TestRunOverridesReplaceFormValues(t *testing.T) {
	e, svc := newTestEvaluation(t)
	ctx := context.Background()

	svc.EXPECT().CreateJob(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, in *structs.CreateJobRequest) (*structs.CreateJobResponse, error) {
			payload := in.Payload.(*structs.EvalPayload)
			assert.Equal(t, payload.SampleSize, 8)
			assert.Equal(t, payload.TopK, defaultTopK) // zero override falls back
			assert.Equal(t, payload.FetchK, 12)
			return &structs.CreateJobResponse{JobID: "j-1", Status: structs.QUEUED}, nil
		},
	)
	svc.EXPECT().Job(gomock.Any(), "j-1").Return(&structs.Job{ID: "j-1", Kind: structs.KindEvalBaseline, Status: structs.COMPLETED, Progress: 100}, nil)

	err := e.Run(ctx, structs.KindEvalBaseline, &structs.EvalOverrides{SampleSize: 8, FetchK: 12})

	assert.Nil(t, err)
	// overrides are per-run, the stored form state is untouched
	assert.Equal(t, e.State().SampleSize, defaultSampleSize)
}

func TestRunInvalidOverridesFailLocally(t *testing.T) {
	e, _ := newTestEvaluation(t) // no CreateJob expectation: nothing may be submitted

	err := e.Run(context.Background(), structs.KindEvalBaseline, &structs.EvalOverrides{SampleSize: 99})

	assert.ErrorIs(t, err, fe.ErrInvalidArg)
	assert.NotEqual(t, e.State().LastError, "")
}

func TestRunFailureOfOneKindKeepsOtherPanels(t *testing.T) {
	e, svc := newTestEvaluation(t)
	ctx := context.Background()

	baseline := &structs.Job{ID: "j-0", Kind: structs.KindEvalBaseline, Status: structs.COMPLETED, Progress: 100}
	e.state.LatestCompleted[structs.KindEvalBaseline] = baseline

	svc.EXPECT().CreateJob(gomock.Any(), gomock.Any()).Return(&structs.CreateJobResponse{JobID: "j-1", Status: structs.QUEUED}, nil)
	svc.EXPECT().Job(gomock.Any(), "j-1").Return(&structs.Job{
		ID: "j-1", Kind: structs.KindEvalAdvanced, Status: structs.FAILED,
		Error: &structs.JobError{Code: "EVAL_TIMEOUT", Message: "deadline exceeded"},
	}, nil)

	err := e.Run(ctx, structs.KindEvalAdvanced, nil)

	assert.Nil(t, err)
	state := e.State()
	assert.Equal(t, state.LastError, msgTimeout)
	assert.Nil(t, state.LatestCompleted[structs.KindEvalAdvanced])
	assert.Equal(t, state.LatestCompleted[structs.KindEvalBaseline].ID, "j-0")
}

func TestCanRecover(t *testing.T) {
	cases := []struct {
		Name    string
		Job     *structs.Job
		Polling bool
		Expect  bool
	}{
		{"NoJob", nil, false, false},
		{"StillPolling", &structs.Job{Kind: structs.KindEvalBaseline, Status: structs.FAILED}, true, false},
		{"NotAnEvalJob", &structs.Job{Kind: structs.KindScan, Status: structs.FAILED}, false, false},
		{"Running", &structs.Job{Kind: structs.KindEvalBaseline, Status: structs.RUNNING}, false, false},
		{"Completed", &structs.Job{Kind: structs.KindEvalBaseline, Status: structs.COMPLETED}, false, false},
		{"Failed", &structs.Job{Kind: structs.KindEvalBaseline, Status: structs.FAILED}, false, true},
		{"Timeout", &structs.Job{Kind: structs.KindEvalCompare, Status: structs.TIMEOUT}, false, true},
		{"Canceled", &structs.Job{Kind: structs.KindEvalAdvanced, Status: structs.CANCELED}, false, true},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			e, _ := newTestEvaluation(t)
			e.state.CurrentJob = c.Job
			e.polling = c.Polling

			assert.Equal(t, e.CanRecover(), c.Expect)
		})
	}
}

func TestRetrySafeDefaults(t *testing.T) {
	e, svc := newTestEvaluation(t)
	ctx := context.Background()
	e.state.CurrentJob = &structs.Job{ID: "j-1", Kind: structs.KindEvalCompare, Status: structs.TIMEOUT}

	svc.EXPECT().CreateJob(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, in *structs.CreateJobRequest) (*structs.CreateJobResponse, error) {
			assert.Equal(t, in.Kind, structs.KindEvalCompare) // same kind as the failed run
			payload := in.Payload.(*structs.EvalPayload)
			assert.Equal(t, payload.SampleSize, safeSampleSize)
			assert.Equal(t, payload.TopK, safeTopK)
			assert.Equal(t, payload.FetchK, safeFetchK)
			return &structs.CreateJobResponse{JobID: "j-2", Status: structs.QUEUED}, nil
		},
	)
	svc.EXPECT().Job(gomock.Any(), "j-2").Return(&structs.Job{ID: "j-2", Kind: structs.KindEvalCompare, Status: structs.COMPLETED, Progress: 100}, nil)

	err := e.RetrySafeDefaults(ctx)

	assert.Nil(t, err)
	// the conservative values stick as the new form state
	state := e.State()
	assert.Equal(t, state.SampleSize, safeSampleSize)
	assert.Equal(t, state.FetchK, safeFetchK)
}

func TestRetrySafeDefaultsRequiresRecoverableJob(t *testing.T) {
	e, _ := newTestEvaluation(t)
	assert.ErrorIs(t, e.RetrySafeDefaults(context.Background()), fe.ErrInvalidArg)
}

func TestRunBaselineOnly(t *testing.T) {
	e, svc := newTestEvaluation(t)
	ctx := context.Background()
	e.state.CurrentJob = &structs.Job{ID: "j-1", Kind: structs.KindEvalCompare, Status: structs.FAILED}

	svc.EXPECT().CreateJob(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, in *structs.CreateJobRequest) (*structs.CreateJobResponse, error) {
			assert.Equal(t, in.Kind, structs.KindEvalBaseline)
			return &structs.CreateJobResponse{JobID: "j-2", Status: structs.QUEUED}, nil
		},
	)
	svc.EXPECT().Job(gomock.Any(), "j-2").Return(&structs.Job{ID: "j-2", Kind: structs.KindEvalBaseline, Status: structs.COMPLETED, Progress: 100}, nil)

	assert.Nil(t, e.RunBaselineOnly(ctx))
}

func TestIngest(t *testing.T) {
	e, svc := newTestEvaluation(t)
	ctx := context.Background()

	svc.EXPECT().Ingest(gomock.Any(), true).Return(&structs.IngestResponse{Collection: "docs", Ingested: true, ChunksTotal: 12}, nil)

	resp, err := e.Ingest(ctx, true)

	assert.Nil(t, err)
	assert.Equal(t, resp.ChunksTotal, 12)

	last, msg := e.IngestState()
	assert.Equal(t, last, resp)
	assert.Equal(t, msg, "")
}

func TestIngestErrorIsLocal(t *testing.T) {
	e, svc := newTestEvaluation(t)

	svc.EXPECT().Ingest(gomock.Any(), false).Return(nil, assert.AnError)

	_, err := e.Ingest(context.Background(), false)

	assert.NotNil(t, err)
	_, msg := e.IngestState()
	assert.NotEqual(t, msg, "")
	// the job-error slot is a different concern and stays clean
	assert.Equal(t, e.State().LastError, "")
}

func TestRetrieve(t *testing.T) {
	e, svc := newTestEvaluation(t)

	svc.EXPECT().Retrieve(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, in *structs.RetrieveRequest) (*structs.RetrieveResponse, error) {
			assert.Equal(t, in.Query, "refund policy")
			assert.Equal(t, in.TopK, retrieveTopK)
			return &structs.RetrieveResponse{Query: in.Query, Chunks: []structs.RetrievedChunk{{ID: "c-1", Score: 0.9}}}, nil
		},
	)

	resp, err := e.Retrieve(context.Background(), "refund policy")

	assert.Nil(t, err)
	assert.Equal(t, len(resp.Chunks), 1)
}

func TestRetrieveQueryTooShort(t *testing.T) {
	e, _ := newTestEvaluation(t) // no Retrieve expectation

	_, err := e.Retrieve(context.Background(), "a")

	assert.ErrorIs(t, err, fe.ErrInvalidArg)
}

func TestRestoreSeedsLatestCompletedAndResumes(t *testing.T) {
	kv := store.NewMemory()
	ctx := context.Background()
	svc := core_mock.NewMockRunner(gomock.NewController(t))
	e := NewEvaluation(svc, NewPoller(svc, time.Millisecond), kv)

	// most-recent-first, mixing kinds; the running compare job must resume,
	// the newest completed job per eval kind seeds the panels
	listed := []*structs.Job{
		{ID: "j-5", Kind: structs.KindEvalCompare, Status: structs.RUNNING, Progress: 40},
		{ID: "j-4", Kind: structs.KindScan, Status: structs.COMPLETED, Progress: 100},
		{ID: "j-3", Kind: structs.KindEvalBaseline, Status: structs.COMPLETED, Progress: 100},
		{ID: "j-2", Kind: structs.KindEvalBaseline, Status: structs.COMPLETED, Progress: 100},
		{ID: "j-1", Kind: structs.KindEvalAdvanced, Status: structs.FAILED},
	}

	svc.EXPECT().Jobs(gomock.Any(), &structs.Query{Limit: recoverListLimit}).Return(listed, nil)
	svc.EXPECT().Job(gomock.Any(), "j-5").Return(&structs.Job{
		ID: "j-5", Kind: structs.KindEvalCompare, Status: structs.COMPLETED, Progress: 100,
		Result: json.RawMessage(`{"baseline": {"metrics": {}}, "advanced": {"metrics": {}}, "delta": {}}`),
	}, nil)

	err := e.Restore(ctx)

	assert.Nil(t, err)
	state := e.State()
	assert.Equal(t, state.CurrentJob.Status, structs.COMPLETED)
	assert.Equal(t, state.LatestCompleted[structs.KindEvalBaseline].ID, "j-3")
	assert.Nil(t, state.LatestCompleted[structs.KindEvalAdvanced])
	assert.Equal(t, state.LatestCompleted[structs.KindEvalCompare].ID, "j-5")
}

func TestRestoreNewerCompletionReplacesPersistedPanel(t *testing.T) {
	kv := store.NewMemory()
	ctx := context.Background()

	// the persisted snapshot still points at an older baseline run; a newer
	// one completed server-side while the session was away
	old := &structs.Job{ID: "j-old", Kind: structs.KindEvalBaseline, Status: structs.COMPLETED, Progress: 100}
	stale := &structs.EvaluationSnapshot{
		Version:         structs.SnapshotVersion,
		SampleSize:      defaultSampleSize,
		TopK:            defaultTopK,
		FetchK:          defaultFetchK,
		LatestCompleted: map[structs.Kind]*structs.Job{structs.KindEvalBaseline: old},
	}
	saveSnapshot(ctx, kv, keyEvaluation, stale)

	svc := core_mock.NewMockRunner(gomock.NewController(t))
	e := NewEvaluation(svc, NewPoller(svc, time.Millisecond), kv)

	svc.EXPECT().Jobs(gomock.Any(), gomock.Any()).Return([]*structs.Job{
		{ID: "j-new", Kind: structs.KindEvalBaseline, Status: structs.COMPLETED, Progress: 100},
		{ID: "j-old", Kind: structs.KindEvalBaseline, Status: structs.COMPLETED, Progress: 100},
	}, nil)

	err := e.Restore(ctx)

	assert.Nil(t, err)
	assert.Equal(t, e.State().LatestCompleted[structs.KindEvalBaseline].ID, "j-new")
}

func TestRestoreNothingToResume(t *testing.T) {
	svc := core_mock.NewMockRunner(gomock.NewController(t))
	e := NewEvaluation(svc, NewPoller(svc, time.Millisecond), store.NewMemory())

	svc.EXPECT().Jobs(gomock.Any(), gomock.Any()).Return([]*structs.Job{
		{ID: "j-1", Kind: structs.KindEvalBaseline, Status: structs.COMPLETED, Progress: 100},
	}, nil)

	err := e.Restore(context.Background())

	assert.Nil(t, err)
	assert.Nil(t, e.State().CurrentJob)
	assert.Equal(t, e.State().LatestCompleted[structs.KindEvalBaseline].ID, "j-1")
}
