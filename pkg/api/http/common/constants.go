package common

const (
	// API_JOBS is used to create or list jobs
	API_JOBS = "/jobs"

	// API_JOB is used to get a single job by id
	API_JOB = "/jobs/{job_id}"

	// API_JOB_CANCEL is used to request cancellation of a job
	API_JOB_CANCEL = "/jobs/{job_id}/cancel"

	// API_FLOW_SPEC is used to generate a flow spec from a scan result
	API_FLOW_SPEC = "/agent/flow-spec"

	// API_RAG_INGEST is used to (re)ingest the retrieval corpus
	API_RAG_INGEST = "/rag/ingest"

	// API_RAG_RETRIEVE is used to probe the retriever with a query
	API_RAG_RETRIEVE = "/rag/retrieve"
)
