package core

import (
	"context"
	"fmt"
	"sync"

	fe "github.com/flowpilot/flowpilot/pkg/errors"
	"github.com/flowpilot/flowpilot/pkg/store"
	"github.com/flowpilot/flowpilot/pkg/structs"
)

// Form defaults, matching the runner's own payload defaults.
const (
	defaultSampleSize = 12
	defaultTopK       = 5
	defaultFetchK     = 20
)

// Conservative parameters for "retry with safe defaults".
const (
	safeSampleSize = 8
	safeTopK       = 5
	safeFetchK     = 12
)

// How many jobs to list when recovering in-flight work after a reload.
const recoverListLimit = 50

// How many chunks a retrieval probe asks for.
const retrieveTopK = 5

// Evaluation owns the ingest -> retrieve -> run (baseline/advanced/compare)
// flow. It tracks the latest completed job per eval kind independently, so
// a fresh run of one kind never disturbs the panels of the others.
type Evaluation struct {
	svc    Runner
	poller *Poller
	kv     store.Store

	mu      sync.Mutex
	state   structs.EvaluationSnapshot
	polling bool

	lastIngest    *structs.IngestResponse
	ingestError   string
	lastRetrieve  *structs.RetrieveResponse
	retrieveError string
}

func NewEvaluation(svc Runner, poller *Poller, kv store.Store) *Evaluation {
	return &Evaluation{
		svc:    svc,
		poller: poller,
		kv:     kv,
		state: structs.EvaluationSnapshot{
			Version:         structs.SnapshotVersion,
			SampleSize:      defaultSampleSize,
			TopK:            defaultTopK,
			FetchK:          defaultFetchK,
			LatestCompleted: map[structs.Kind]*structs.Job{},
		},
	}
}

// State returns a copy of the current evaluation state for presentation.
func (e *Evaluation) State() structs.EvaluationSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyEvaluation(&e.state)
}

// Busy reports whether a poll loop is currently active.
func (e *Evaluation) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.polling
}

// IngestState returns the last ingest response and its local error.
func (e *Evaluation) IngestState() (*structs.IngestResponse, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastIngest, e.ingestError
}

// RetrieveState returns the last retrieval probe and its local error.
func (e *Evaluation) RetrieveState() (*structs.RetrieveResponse, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRetrieve, e.retrieveError
}

// SetParams records the numeric form state the next run will use.
func (e *Evaluation) SetParams(ctx context.Context, sampleSize, topK, fetchK int) error {
	payload := &structs.EvalPayload{SampleSize: sampleSize, TopK: topK, FetchK: fetchK}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%w: %v", fe.ErrInvalidArg, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.SampleSize = sampleSize
	e.state.TopK = topK
	e.state.FetchK = fetchK
	e.save(ctx)
	return nil
}

// Run submits an evaluation job of the given kind and polls it to a final
// status. Overrides replace the stored form values where non-zero. On
// completion only kind's latest-completed slot is updated.
func (e *Evaluation) Run(ctx context.Context, kind structs.Kind, ov *structs.EvalOverrides) error {
	if !structs.IsEvalKind(kind) {
		return fmt.Errorf("%w: %q is not an evaluation kind", fe.ErrInvalidArg, kind)
	}

	e.mu.Lock()
	if e.polling {
		e.mu.Unlock()
		return fe.ErrBusy
	}

	payload := &structs.EvalPayload{
		SampleSize:  e.state.SampleSize,
		TopK:        e.state.TopK,
		FetchK:      e.state.FetchK,
		ForceIngest: false,
	}
	if ov != nil {
		if ov.SampleSize > 0 {
			payload.SampleSize = ov.SampleSize
		}
		if ov.TopK > 0 {
			payload.TopK = ov.TopK
		}
		if ov.FetchK > 0 {
			payload.FetchK = ov.FetchK
		}
	}
	if err := payload.Validate(); err != nil {
		e.state.LastError = err.Error()
		e.save(ctx)
		e.mu.Unlock()
		return fmt.Errorf("%w: %v", fe.ErrInvalidArg, err)
	}

	// a new attempt clears the displayed job & error
	e.state.CurrentJob = nil
	e.state.LastError = ""
	e.polling = true
	e.save(ctx)
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.polling = false
		e.save(ctx)
		e.mu.Unlock()
	}()

	created, err := e.svc.CreateJob(ctx, &structs.CreateJobRequest{Kind: kind, Payload: payload})
	if err != nil {
		e.setError(ctx, HumanizeJobError(err.Error(), nil))
		return err
	}

	e.mu.Lock()
	e.state.CurrentJob = &structs.Job{ID: created.ID(), Kind: kind, Status: created.Status}
	e.save(ctx)
	e.mu.Unlock()

	return e.pollCurrent(ctx, created.ID())
}

// pollCurrent drives the current job to a final status and applies it.
func (e *Evaluation) pollCurrent(ctx context.Context, id string) error {
	final, err := e.poller.Poll(ctx, id, func(job *structs.Job) {
		e.mu.Lock()
		e.state.CurrentJob = job
		e.save(ctx)
		e.mu.Unlock()
	})
	if err != nil {
		e.setError(ctx, HumanizeJobError(err.Error(), nil))
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if final.Status == structs.COMPLETED {
		if e.state.LatestCompleted == nil {
			e.state.LatestCompleted = map[structs.Kind]*structs.Job{}
		}
		e.state.LatestCompleted[final.Kind] = final
	} else {
		e.state.LastError = HumanizeJobError("", final)
	}
	e.save(ctx)
	return nil
}

// CanRecover reports whether the recovery actions (retry with safe
// defaults, run baseline only) apply: a current eval-kind job exists, no
// poll loop is active, and the job ended failed, timed out or canceled.
func (e *Evaluation) CanRecover() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	job := e.state.CurrentJob
	if job == nil || !structs.IsEvalKind(job.Kind) || e.polling {
		return false
	}
	switch job.Status {
	case structs.FAILED, structs.TIMEOUT, structs.CANCELED:
		return true
	default:
		return false
	}
}

// RetrySafeDefaults overwrites the numeric parameters with conservative
// values and reruns the current job's kind (baseline when unknown).
func (e *Evaluation) RetrySafeDefaults(ctx context.Context) error {
	if !e.CanRecover() {
		return fmt.Errorf("%w: nothing to recover", fe.ErrInvalidArg)
	}

	e.mu.Lock()
	kind := structs.KindEvalBaseline
	if e.state.CurrentJob != nil && structs.IsEvalKind(e.state.CurrentJob.Kind) {
		kind = e.state.CurrentJob.Kind
	}
	e.state.SampleSize = safeSampleSize
	e.state.TopK = safeTopK
	e.state.FetchK = safeFetchK
	e.save(ctx)
	e.mu.Unlock()

	return e.Run(ctx, kind, nil)
}

// RunBaselineOnly reruns just the baseline evaluation with the current
// parameters, the cheapest way to get metric panels populated again.
func (e *Evaluation) RunBaselineOnly(ctx context.Context) error {
	if !e.CanRecover() {
		return fmt.Errorf("%w: nothing to recover", fe.ErrInvalidArg)
	}
	return e.Run(ctx, structs.KindEvalBaseline, nil)
}

// Ingest synchronously (re)ingests the retrieval corpus. Its error is local
// to this operation and unrelated to the job-error path.
func (e *Evaluation) Ingest(ctx context.Context, force bool) (*structs.IngestResponse, error) {
	e.mu.Lock()
	e.ingestError = ""
	e.mu.Unlock()

	resp, err := e.svc.Ingest(ctx, force)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.ingestError = err.Error()
		return nil, err
	}
	e.lastIngest = resp
	return resp, nil
}

// Retrieve synchronously probes the retriever with a free-text query.
func (e *Evaluation) Retrieve(ctx context.Context, query string) (*structs.RetrieveResponse, error) {
	if len(query) < 2 {
		return nil, fmt.Errorf("%w: query is too short", fe.ErrInvalidArg)
	}

	e.mu.Lock()
	e.retrieveError = ""
	e.mu.Unlock()

	resp, err := e.svc.Retrieve(ctx, &structs.RetrieveRequest{Query: query, TopK: retrieveTopK})

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.retrieveError = err.Error()
		return nil, err
	}
	e.lastRetrieve = resp
	return resp, nil
}

// Load seeds evaluation state from the persisted snapshot without touching
// the runner. Absence, a parse failure or an unknown version all mean fresh
// defaults, never an error.
func (e *Evaluation) Load(ctx context.Context) {
	snap := structs.EvaluationSnapshot{}
	if !loadSnapshot(ctx, e.kv, keyEvaluation, &snap) || snap.Version != structs.SnapshotVersion {
		return
	}
	if snap.LatestCompleted == nil {
		snap.LatestCompleted = map[structs.Kind]*structs.Job{}
	}
	e.mu.Lock()
	e.state = snap
	e.mu.Unlock()
}

// Restore loads persisted evaluation state, then reconciles against the
// runner: it lists recent jobs to seed the latest-completed slot of each
// eval kind and, when the most recent eval job overall is still queued or
// running, resumes polling it.
func (e *Evaluation) Restore(ctx context.Context) error {
	e.Load(ctx)

	q := &structs.Query{Limit: recoverListLimit}
	q.Sanitize()
	jobs, err := e.svc.Jobs(ctx, q)
	if err != nil {
		return err
	}

	var resume *structs.Job
	seeded := map[structs.Kind]bool{}
	e.mu.Lock()
	for _, job := range jobs { // most-recent-first (runner contract)
		if !structs.IsEvalKind(job.Kind) {
			continue
		}
		if resume == nil {
			resume = job
		}
		// the listing is authoritative: the newest completed job of each
		// kind replaces whatever the persisted snapshot held, which may
		// predate a completion that happened while the session was away
		if job.Status == structs.COMPLETED && !seeded[job.Kind] {
			e.state.LatestCompleted[job.Kind] = job
			seeded[job.Kind] = true
		}
	}
	resumable := resume != nil && (resume.Status == structs.QUEUED || resume.Status == structs.RUNNING)
	if resumable {
		if e.polling {
			e.mu.Unlock()
			return fe.ErrBusy
		}
		e.state.CurrentJob = resume
		e.state.LastError = ""
		e.polling = true
	}
	e.save(ctx)
	e.mu.Unlock()

	if !resumable {
		return nil
	}

	defer func() {
		e.mu.Lock()
		e.polling = false
		e.save(ctx)
		e.mu.Unlock()
	}()
	return e.pollCurrent(ctx, resume.ID)
}

func (e *Evaluation) setError(ctx context.Context, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.LastError = msg
	e.save(ctx)
}

// save persists the current state. Callers hold e.mu.
func (e *Evaluation) save(ctx context.Context) {
	saveSnapshot(ctx, e.kv, keyEvaluation, &e.state)
}

func copyEvaluation(in *structs.EvaluationSnapshot) structs.EvaluationSnapshot {
	out := *in
	if in.CurrentJob != nil {
		job := *in.CurrentJob
		out.CurrentJob = &job
	}
	out.LatestCompleted = map[structs.Kind]*structs.Job{}
	for kind, job := range in.LatestCompleted {
		if job == nil {
			continue
		}
		j := *job
		out.LatestCompleted[kind] = &j
	}
	return out
}
