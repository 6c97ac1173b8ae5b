package core

import (
	"context"
	"fmt"
	"log"
	"sync"

	fe "github.com/flowpilot/flowpilot/pkg/errors"
	"github.com/flowpilot/flowpilot/pkg/store"
	"github.com/flowpilot/flowpilot/pkg/structs"
)

// Fixed parameters the web client always submits.
const (
	scanMaxPages = 30
	scanMaxDepth = 2
	runBatchSize = 4
)

// Workspace owns the scan -> generate-spec -> select-tests -> run-tests
// flow. It runs at most one active poll loop per slot (scan, run); a submit
// while that slot's loop is live fails with ErrBusy rather than racing it.
type Workspace struct {
	svc    Runner
	poller *Poller
	kv     store.Store

	mu          sync.Mutex
	state       structs.WorkspaceSnapshot
	scanPolling bool
	runPolling  bool
}

func NewWorkspace(svc Runner, poller *Poller, kv store.Store) *Workspace {
	return &Workspace{
		svc:    svc,
		poller: poller,
		kv:     kv,
		state:  structs.WorkspaceSnapshot{Version: structs.SnapshotVersion},
	}
}

// State returns a copy of the current workspace state for presentation.
func (w *Workspace) State() structs.WorkspaceSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copyWorkspace(&w.state)
}

// Busy reports whether a poll loop for either slot is currently active.
func (w *Workspace) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scanPolling || w.runPolling
}

// SetTarget records the url & prompt the next scan will use.
func (w *Workspace) SetTarget(ctx context.Context, url, prompt string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.URL = url
	w.state.Prompt = prompt
	w.save(ctx)
}

// Scan submits a scan job for the current target and polls it to a final
// status, keeping the displayed job current on every observed state.
func (w *Workspace) Scan(ctx context.Context) error {
	w.mu.Lock()
	if w.scanPolling {
		w.mu.Unlock()
		return fe.ErrBusy
	}
	if w.state.URL == "" {
		w.mu.Unlock()
		return fmt.Errorf("%w: url is required", fe.ErrInvalidArg)
	}

	payload := &structs.ScanPayload{
		URL:      w.state.URL,
		Prompt:   w.state.Prompt,
		MaxPages: scanMaxPages,
		MaxDepth: scanMaxDepth,
	}
	if err := payload.Validate(); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("%w: %v", fe.ErrInvalidArg, err)
	}

	// a new attempt clears the previous error & job
	w.state.ScanError = ""
	w.state.ScanJob = nil
	w.scanPolling = true
	w.save(ctx)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.scanPolling = false
		w.save(ctx)
		w.mu.Unlock()
	}()

	created, err := w.svc.CreateJob(ctx, &structs.CreateJobRequest{Kind: structs.KindScan, Payload: payload})
	if err != nil {
		w.setScanError(ctx, err.Error())
		return err
	}

	w.mu.Lock()
	w.state.ScanJob = &structs.Job{ID: created.ID(), Kind: structs.KindScan, Status: created.Status}
	w.save(ctx)
	w.mu.Unlock()

	final, err := w.poller.Poll(ctx, created.ID(), func(job *structs.Job) {
		w.mu.Lock()
		w.state.ScanJob = job
		w.save(ctx)
		w.mu.Unlock()
	})
	if err != nil {
		w.setScanError(ctx, err.Error())
		return err
	}

	if final.Status != structs.COMPLETED {
		w.setScanError(ctx, HumanizeJobError("", final))
	}
	return nil
}

// GenerateSpec asks the agent for a flow spec. This is a synchronous
// request, not a job, and requires a completed scan result; without one it
// fails locally and never contacts the runner. A fresh spec invalidates
// prior run evidence: the selection resets to every generated test id and
// the last run job/result/error are cleared.
func (w *Workspace) GenerateSpec(ctx context.Context) error {
	w.mu.Lock()
	scan := w.state.ScanJob
	if scan == nil || scan.Status != structs.COMPLETED || len(scan.Result) == 0 {
		w.state.SpecError = fe.ErrScanRequired.Error()
		w.save(ctx)
		w.mu.Unlock()
		return fe.ErrScanRequired
	}
	w.state.SpecError = ""
	req := &structs.FlowSpecRequest{
		URL:    w.state.URL,
		Prompt: w.state.Prompt,
		Scan:   scan.Result,
	}
	w.save(ctx)
	w.mu.Unlock()

	spec, err := w.svc.FlowSpec(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.state.SpecError = err.Error()
		w.save(ctx)
		return err
	}
	w.state.Spec = spec
	w.state.SelectedTestIDs = spec.TestIDs()
	w.state.RunJob = nil
	w.state.RunResult = nil
	w.state.RunError = ""
	w.save(ctx)
	return nil
}

// SelectTest adds a test id to the selection. Ids not present in the
// current spec are meaningless; callers are expected not to pass them.
func (w *Workspace) SelectTest(ctx context.Context, id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, have := range w.state.SelectedTestIDs {
		if have == id {
			return
		}
	}
	w.state.SelectedTestIDs = append(w.state.SelectedTestIDs, id)
	w.save(ctx)
}

func (w *Workspace) DeselectTest(ctx context.Context, id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.state.SelectedTestIDs[:0]
	for _, have := range w.state.SelectedTestIDs {
		if have != id {
			kept = append(kept, have)
		}
	}
	w.state.SelectedTestIDs = kept
	w.save(ctx)
}

func (w *Workspace) SelectAll(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Spec == nil {
		return
	}
	w.state.SelectedTestIDs = w.state.Spec.TestIDs()
	w.save(ctx)
}

func (w *Workspace) ClearSelection(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.SelectedTestIDs = nil
	w.save(ctx)
}

// RunSelected submits a run_tests job for the currently selected tests and
// polls it to a final status.
func (w *Workspace) RunSelected(ctx context.Context) error {
	w.mu.Lock()
	if w.runPolling {
		w.mu.Unlock()
		return fe.ErrBusy
	}
	if w.state.Spec == nil {
		w.mu.Unlock()
		return fe.ErrScanRequired
	}
	selected := w.selectedTests()
	if len(selected) == 0 {
		w.mu.Unlock()
		return fe.ErrNoTestsSelected
	}

	url := w.state.Spec.URL
	if url == "" {
		url = w.state.URL
	}
	payload := &structs.RunTestsPayload{
		URL:       url,
		Tests:     selected,
		BatchSize: runBatchSize,
	}

	// a new attempt clears the previous run evidence
	w.state.RunError = ""
	w.state.RunResult = nil
	w.state.RunJob = nil
	w.runPolling = true
	w.save(ctx)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.runPolling = false
		w.save(ctx)
		w.mu.Unlock()
	}()

	created, err := w.svc.CreateJob(ctx, &structs.CreateJobRequest{Kind: structs.KindRunTests, Payload: payload})
	if err != nil {
		w.setRunError(ctx, err.Error())
		return err
	}

	w.mu.Lock()
	w.state.RunJob = &structs.Job{ID: created.ID(), Kind: structs.KindRunTests, Status: created.Status}
	w.save(ctx)
	w.mu.Unlock()

	final, err := w.poller.Poll(ctx, created.ID(), func(job *structs.Job) {
		w.mu.Lock()
		w.state.RunJob = job
		w.save(ctx)
		w.mu.Unlock()
	})
	if err != nil {
		w.setRunError(ctx, err.Error())
		return err
	}

	w.finishRun(ctx, final)
	return nil
}

// finishRun applies a final run_tests job to workspace state.
func (w *Workspace) finishRun(ctx context.Context, final *structs.Job) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch final.Status {
	case structs.COMPLETED:
		result, err := structs.NarrowRunTestsResult(final.Result)
		if err != nil {
			// a completed run whose payload isn't run-shaped is
			// discarded rather than displayed
			log.Println("[Workspace] discarding run result:", err)
		} else {
			w.state.RunResult = result
		}
	case structs.CANCELED:
		// cancellation is a non-completed outcome, not an error
	default:
		// run-tests errors surface raw, not humanized: their error
		// domain is the target site, not the evaluation pipeline
		w.state.RunError = RawJobError(final)
	}
	w.save(ctx)
}

// RerunFailed reruns exactly the tests that failed in the last run. When
// nothing failed, or the submit would be refused, it performs no state
// mutation and issues no request.
func (w *Workspace) RerunFailed(ctx context.Context) error {
	w.mu.Lock()
	if w.state.RunResult == nil {
		w.mu.Unlock()
		return nil
	}
	failed := w.state.RunResult.FailedIDs()
	if len(failed) == 0 {
		w.mu.Unlock()
		return nil
	}
	// a submit that would be refused must not have touched the selection
	if w.runPolling {
		w.mu.Unlock()
		return fe.ErrBusy
	}
	if w.state.Spec == nil {
		w.mu.Unlock()
		return fe.ErrScanRequired
	}
	w.state.SelectedTestIDs = failed
	w.save(ctx)
	w.mu.Unlock()

	return w.RunSelected(ctx)
}

// CancelRun requests cancellation of the in-flight run_tests job. The
// displayed job is replaced with the runner's response; the active poll
// loop keeps going until the runner itself reports the canceled status.
func (w *Workspace) CancelRun(ctx context.Context) error {
	w.mu.Lock()
	job := w.state.RunJob
	if job == nil || job.Kind != structs.KindRunTests || structs.IsFinalStatus(job.Status) {
		w.mu.Unlock()
		return fmt.Errorf("%w: no cancellable run in progress", fe.ErrInvalidArg)
	}
	id := job.ID
	w.mu.Unlock()

	canceled, err := w.svc.CancelJob(ctx, id)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.RunJob = canceled
	w.save(ctx)
	return nil
}

// Load seeds workspace state from the persisted snapshot without resuming
// anything. Absence, a parse failure or an unknown version all mean fresh
// defaults, never an error.
func (w *Workspace) Load(ctx context.Context) {
	snap := structs.WorkspaceSnapshot{}
	if !loadSnapshot(ctx, w.kv, keyWorkspace, &snap) || snap.Version != structs.SnapshotVersion {
		return
	}
	w.mu.Lock()
	w.state = snap
	w.mu.Unlock()
}

// Restore loads the persisted workspace state and, if a scan or run job
// was left non-final, resumes polling it rather than treating it as stale.
func (w *Workspace) Restore(ctx context.Context) error {
	w.Load(ctx)

	snap := w.State()
	if job := snap.ScanJob; job != nil && !structs.IsFinalStatus(job.Status) {
		if err := w.resumeScan(ctx, job.ID); err != nil {
			return err
		}
	}
	if job := snap.RunJob; job != nil && !structs.IsFinalStatus(job.Status) {
		return w.resumeRun(ctx, job.ID)
	}
	return nil
}

func (w *Workspace) resumeScan(ctx context.Context, id string) error {
	w.mu.Lock()
	if w.scanPolling {
		w.mu.Unlock()
		return fe.ErrBusy
	}
	w.state.ScanError = ""
	w.scanPolling = true
	w.save(ctx)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.scanPolling = false
		w.save(ctx)
		w.mu.Unlock()
	}()

	final, err := w.poller.Poll(ctx, id, func(job *structs.Job) {
		w.mu.Lock()
		w.state.ScanJob = job
		w.save(ctx)
		w.mu.Unlock()
	})
	if err != nil {
		w.setScanError(ctx, err.Error())
		return err
	}
	if final.Status != structs.COMPLETED {
		w.setScanError(ctx, HumanizeJobError("", final))
	}
	return nil
}

func (w *Workspace) resumeRun(ctx context.Context, id string) error {
	w.mu.Lock()
	if w.runPolling {
		w.mu.Unlock()
		return fe.ErrBusy
	}
	w.state.RunError = ""
	w.runPolling = true
	w.save(ctx)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.runPolling = false
		w.save(ctx)
		w.mu.Unlock()
	}()

	final, err := w.poller.Poll(ctx, id, func(job *structs.Job) {
		w.mu.Lock()
		w.state.RunJob = job
		w.save(ctx)
		w.mu.Unlock()
	})
	if err != nil {
		w.setRunError(ctx, err.Error())
		return err
	}
	w.finishRun(ctx, final)
	return nil
}

// selectedTests resolves the selected ids against the current spec, in
// spec order. Callers hold w.mu.
func (w *Workspace) selectedTests() []structs.FlowSpecTest {
	selected := map[string]bool{}
	for _, id := range w.state.SelectedTestIDs {
		selected[id] = true
	}
	tests := []structs.FlowSpecTest{}
	for _, t := range w.state.Spec.Tests {
		if selected[t.ID] {
			tests = append(tests, t)
		}
	}
	return tests
}

func (w *Workspace) setScanError(ctx context.Context, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.ScanError = msg
	w.save(ctx)
}

func (w *Workspace) setRunError(ctx context.Context, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.RunError = msg
	w.save(ctx)
}

// save persists the current state. Callers hold w.mu.
func (w *Workspace) save(ctx context.Context) {
	saveSnapshot(ctx, w.kv, keyWorkspace, &w.state)
}

// copyWorkspace deep-copies the mutable parts handed to presentation.
func copyWorkspace(in *structs.WorkspaceSnapshot) structs.WorkspaceSnapshot {
	out := *in
	out.SelectedTestIDs = append([]string(nil), in.SelectedTestIDs...)
	if in.ScanJob != nil {
		job := *in.ScanJob
		out.ScanJob = &job
	}
	if in.RunJob != nil {
		job := *in.RunJob
		out.RunJob = &job
	}
	if in.Spec != nil {
		spec := *in.Spec
		spec.Tests = append([]structs.FlowSpecTest(nil), in.Spec.Tests...)
		out.Spec = &spec
	}
	if in.RunResult != nil {
		res := *in.RunResult
		res.Items = append([]structs.TestRunItem(nil), in.RunResult.Items...)
		out.RunResult = &res
	}
	return out
}
