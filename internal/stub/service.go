package stub

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/flowpilot/flowpilot/pkg/api/http/common"
	"github.com/flowpilot/flowpilot/pkg/structs"
)

// Service is an in-memory runner: it speaks the runner's wire contract and
// simulates job lifecycles with a deterministic, tick-driven script per
// kind. It exists for local development and the end-to-end tests; it does
// no scanning, execution or retrieval of any sort.
type Service struct {
	// TickInterval is how often simulated jobs advance one script step.
	TickInterval time.Duration

	mu    sync.Mutex
	jobs  map[string]*structs.Job
	order []string // creation order, oldest first

	failNext map[structs.Kind]*structs.JobError
}

func New(tick time.Duration) *Service {
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}
	return &Service{
		TickInterval: tick,
		jobs:         map[string]*structs.Job{},
		failNext:     map[structs.Kind]*structs.JobError{},
	}
}

// FailNext makes the next created job of the given kind end failed with
// the given error instead of completing. Test hook.
func (s *Service) FailNext(kind structs.Kind, jerr *structs.JobError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[kind] = jerr
}

// Router wires the runner wire contract onto a mux router.
func (s *Service) Router(debug bool) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.Health).Methods(http.MethodGet)
	router.HandleFunc(common.API_JOBS, s.CreateJob).Methods(http.MethodPost)
	router.HandleFunc(common.API_JOBS, s.Jobs).Methods(http.MethodGet)
	router.HandleFunc(common.API_JOB, s.Job).Methods(http.MethodGet)
	router.HandleFunc(common.API_JOB_CANCEL, s.Cancel).Methods(http.MethodPost)
	router.HandleFunc(common.API_FLOW_SPEC, s.FlowSpec).Methods(http.MethodPost)
	router.HandleFunc(common.API_RAG_INGEST, s.Ingest).Methods(http.MethodPost)
	router.HandleFunc(common.API_RAG_RETRIEVE, s.Retrieve).Methods(http.MethodPost)

	if debug {
		router.Use(loggingMiddleware)
	}
	return router
}

// loggingMiddleware shims in a handler middleware that logs requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Println(r.Method, r.RequestURI, r.ContentLength)
		next.ServeHTTP(w, r)
	})
}

func (s *Service) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Service) CreateJob(w http.ResponseWriter, r *http.Request) {
	req := &createJobRequest{}
	if err := unmarshalJson(w, r, req); err != nil {
		return
	}
	if structs.ToKind(string(req.Kind)) == "" {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", fmt.Sprintf("unsupported job kind %q", req.Kind))
		return
	}

	now := time.Now().UTC()
	job := &structs.Job{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		Status:    structs.QUEUED,
		CreatedAt: &now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	forced := s.failNext[req.Kind]
	delete(s.failNext, req.Kind)
	s.mu.Unlock()

	go s.run(job.ID, buildScript(req.Kind, req.Payload, forced))

	writeJson(w, http.StatusAccepted, &structs.CreateJobResponse{JobID: job.ID, Status: structs.QUEUED})
}

func (s *Service) Job(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["job_id"]

	s.mu.Lock()
	job, ok := s.jobs[id]
	var out structs.Job
	if ok {
		out = *job
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
		return
	}
	writeJson(w, http.StatusOK, &out)
}

func (s *Service) Jobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := q.Get("kind")
	status := q.Get("status")
	limit := 50
	if q.Has("limit") {
		fmt.Sscanf(q.Get("limit"), "%d", &limit)
	}

	s.mu.Lock()
	out := []*structs.Job{}
	// most-recent-first
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		job := s.jobs[s.order[i]]
		if kind != "" && string(job.Kind) != kind {
			continue
		}
		if status != "" && string(job.Status) != status {
			continue
		}
		j := *job
		out = append(out, &j)
	}
	s.mu.Unlock()

	writeJson(w, http.StatusOK, out)
}

// Cancel marks a run_tests job canceled. Matching the real runner, any
// other kind is rejected and final jobs are returned as-is.
func (s *Service) Cancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["job_id"]

	s.mu.Lock()
	job, ok := s.jobs[id]
	if ok && job.Kind != structs.KindRunTests {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "INVALID_OPERATION", "Only run_tests jobs can be canceled.")
		return
	}
	var out structs.Job
	if ok {
		if !structs.IsFinalStatus(job.Status) {
			now := time.Now().UTC()
			job.Status = structs.CANCELED
			job.Phase = "canceled"
			job.FinishedAt = &now
			job.Error = &structs.JobError{Code: "CANCELED_BY_USER", Message: "Run tests canceled by user."}
		}
		out = *job
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
		return
	}
	writeJson(w, http.StatusOK, &out)
}

func (s *Service) FlowSpec(w http.ResponseWriter, r *http.Request) {
	req := &structs.FlowSpecRequest{}
	if err := unmarshalJson(w, r, req); err != nil {
		return
	}
	if req.URL == "" || len(req.Scan) == 0 {
		writeError(w, http.StatusBadRequest, "FLOW_SPEC_FAILED", "a completed scan result is required")
		return
	}
	writeJson(w, http.StatusOK, cannedFlowSpec(req.URL, req.Prompt))
}

func (s *Service) Ingest(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	msg := "Collection already populated; skipped ingest."
	if force {
		msg = "Re-ingested documentation corpus."
	}
	writeJson(w, http.StatusOK, &structs.IngestResponse{
		Collection:  "playwright_docs",
		Ingested:    force,
		ChunksTotal: 128,
		Message:     msg,
	})
}

func (s *Service) Retrieve(w http.ResponseWriter, r *http.Request) {
	req := &structs.RetrieveRequest{}
	if err := unmarshalJson(w, r, req); err != nil {
		return
	}
	if len(req.Query) < 2 {
		writeError(w, http.StatusBadRequest, "RETRIEVE_FAILED", "query is too short")
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 5
	}
	chunks := make([]structs.RetrievedChunk, 0, topK)
	for i := 0; i < topK; i++ {
		chunks = append(chunks, structs.RetrievedChunk{
			ID:     fmt.Sprintf("chunk-%03d", i+1),
			Score:  1.0 - float64(i)*0.1,
			Source: fmt.Sprintf("docs/page-%02d", i+1),
			Text:   fmt.Sprintf("stub passage %d for %q", i+1, req.Query),
		})
	}
	writeJson(w, http.StatusOK, &structs.RetrieveResponse{
		Query:      req.Query,
		Collection: "playwright_docs",
		Chunks:     chunks,
	})
}

// run advances a job through its script, one step per tick, stopping early
// if something else (cancellation) drove it to a final status.
func (s *Service) run(id string, script []step) {
	for _, st := range script {
		time.Sleep(s.TickInterval)

		s.mu.Lock()
		job, ok := s.jobs[id]
		if !ok || structs.IsFinalStatus(job.Status) {
			s.mu.Unlock()
			return
		}
		now := time.Now().UTC()
		if job.StartedAt == nil && st.status == structs.RUNNING {
			job.StartedAt = &now
		}
		job.Status = st.status
		job.Phase = st.phase
		if st.progress > job.Progress { // monotonic while non-final
			job.Progress = st.progress
		}
		if structs.IsFinalStatus(st.status) {
			job.FinishedAt = &now
			job.Result = st.result
			job.Error = st.err
		}
		s.mu.Unlock()
	}
}

// createJobRequest mirrors structs.CreateJobRequest but keeps the payload
// raw so per-kind scripts can inspect it.
type createJobRequest struct {
	Kind    structs.Kind    `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}
