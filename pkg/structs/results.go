package structs

import (
	"encoding/json"
	"fmt"
)

// Result shapes carried inside a completed Job's opaque result field, plus
// the request/response records of the runner's synchronous endpoints.
// This client only needs the fields that drive state, not their semantics.

// ScanResult is the result payload of a completed scan job.
type ScanResult struct {
	Scan   ScanSummary `json:"scan"`
	Prompt string      `json:"prompt,omitempty"`
}

type ScanSummary struct {
	BaseURL       string     `json:"base_url"`
	PagesFound    int        `json:"pages_found"`
	FormsDetected int        `json:"forms_detected"`
	Pages         []ScanPage `json:"pages,omitempty"`
}

type ScanPage struct {
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	FormsCount int    `json:"forms_count"`
}

// FlowSpecTest is one suggested end-to-end test case.
type FlowSpecTest struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Tags           []string `json:"tags"`
	Risk           string   `json:"risk"`
	DurationSec    int      `json:"duration_sec"`
	Steps          []string `json:"steps"`
	ExpectedResult string   `json:"expected_result"`
	WhySuggested   string   `json:"why_suggested"`
}

// FlowSpecRequest asks the agent for a flow spec; scan carries the raw
// result payload of a completed scan job.
type FlowSpecRequest struct {
	URL    string          `json:"url"`
	Prompt string          `json:"prompt,omitempty"`
	Scan   json.RawMessage `json:"scan"`
}

type FlowSpecResponse struct {
	URL       string         `json:"url"`
	Prompt    string         `json:"prompt,omitempty"`
	Tests     []FlowSpecTest `json:"tests"`
	Citations []string       `json:"citations"`
}

// TestIDs returns the ids of every suggested test, in order.
func (r *FlowSpecResponse) TestIDs() []string {
	ids := make([]string, 0, len(r.Tests))
	for _, t := range r.Tests {
		ids = append(ids, t.ID)
	}
	return ids
}

// RunTestsResult is the result payload of a completed run_tests job.
type RunTestsResult struct {
	Total  int           `json:"total"`
	Passed int           `json:"passed"`
	Failed int           `json:"failed"`
	Items  []TestRunItem `json:"items"`
}

type TestRunItem struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	Status    string `json:"status"`
	Technical string `json:"technical,omitempty"`
	Friendly  string `json:"friendly,omitempty"`
}

// FailedIDs returns the ids of items whose status is "failed".
func (r *RunTestsResult) FailedIDs() []string {
	ids := []string{}
	for _, item := range r.Items {
		if item.Status == "failed" {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// EvalRunResult is the result payload of a completed eval_baseline or
// eval_advanced job.
type EvalRunResult struct {
	Metrics    EvalMetrics            `json:"metrics"`
	Samples    []EvalSample           `json:"samples,omitempty"`
	Config     map[string]interface{} `json:"config,omitempty"`
	Conclusion string                 `json:"conclusion,omitempty"`
}

type EvalMetrics struct {
	Faithfulness     float64 `json:"faithfulness"`
	ContextPrecision float64 `json:"context_precision"`
	ContextRecall    float64 `json:"context_recall"`
}

type EvalSample struct {
	SampleID         string   `json:"sample_id"`
	Query            string   `json:"query"`
	ExpectedSource   string   `json:"expected_source"`
	RetrievedSources []string `json:"retrieved_sources"`
}

// EvalCompareResult is the result payload of a completed eval_compare job.
type EvalCompareResult struct {
	Baseline   EvalRunResult          `json:"baseline"`
	Advanced   EvalRunResult          `json:"advanced"`
	Delta      EvalMetrics            `json:"delta"`
	Conclusion string                 `json:"conclusion,omitempty"`
	Config     map[string]interface{} `json:"config,omitempty"`
}

// IngestResponse reports a synchronous document-ingest call.
type IngestResponse struct {
	Collection  string `json:"collection"`
	Ingested    bool   `json:"ingested"`
	ChunksTotal int    `json:"chunks_total"`
	Message     string `json:"message"`
}

// RetrieveRequest probes the retriever with a free-text query.
type RetrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type RetrieveResponse struct {
	Query      string           `json:"query"`
	Collection string           `json:"collection"`
	Chunks     []RetrievedChunk `json:"chunks"`
}

type RetrievedChunk struct {
	ID     string  `json:"id"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
	Title  string  `json:"title,omitempty"`
	Text   string  `json:"text"`
}

// NarrowScanResult decodes a scan job's result payload.
func NarrowScanResult(raw json.RawMessage) (*ScanResult, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no result payload")
	}
	out := &ScanResult{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

// NarrowRunTestsResult decodes a run_tests job's result payload, rejecting
// payloads that don't look like a test run (eg. a flow-spec shaped blob).
func NarrowRunTestsResult(raw json.RawMessage) (*RunTestsResult, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no result payload")
	}
	out := &RunTestsResult{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	if out.Total == 0 && out.Items == nil {
		return nil, fmt.Errorf("result payload is not a test run")
	}
	return out, nil
}

// NarrowEvalRunResult decodes an eval_baseline / eval_advanced result payload.
func NarrowEvalRunResult(raw json.RawMessage) (*EvalRunResult, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no result payload")
	}
	out := &EvalRunResult{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

// NarrowEvalCompareResult decodes an eval_compare result payload.
func NarrowEvalCompareResult(raw json.RawMessage) (*EvalCompareResult, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no result payload")
	}
	out := &EvalCompareResult{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}
