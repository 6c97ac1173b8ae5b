package stub

import (
	"encoding/json"
	"fmt"

	"github.com/flowpilot/flowpilot/pkg/structs"
)

// step is one scripted lifecycle transition of a simulated job.
type step struct {
	status   structs.Status
	phase    string
	progress int
	result   json.RawMessage
	err      *structs.JobError
}

// buildScript returns the lifecycle a job of the given kind walks through.
// When forced is non-nil the job ends failed with that error instead.
func buildScript(kind structs.Kind, payload json.RawMessage, forced *structs.JobError) []step {
	var script []step
	switch kind {
	case structs.KindScan:
		script = scanScript(payload)
	case structs.KindRunTests:
		script = runTestsScript(payload)
	case structs.KindEvalBaseline, structs.KindEvalAdvanced:
		script = evalScript(kind, payload)
	case structs.KindEvalCompare:
		script = compareScript(payload)
	default:
		script = []step{
			{status: structs.RUNNING, phase: "initializing", progress: 5},
			{status: structs.COMPLETED, phase: "completed", progress: 100, result: mustJson(map[string]interface{}{})},
		}
	}

	if forced != nil {
		// keep the non-final prefix, replace the ending
		for i, st := range script {
			if structs.IsFinalStatus(st.status) {
				script = script[:i]
				break
			}
		}
		script = append(script, step{status: structs.FAILED, phase: "failed", progress: 0, err: forced})
	}
	return script
}

func scanScript(payload json.RawMessage) []step {
	p := &structs.ScanPayload{}
	_ = json.Unmarshal(payload, p)

	result := &structs.ScanResult{
		Scan: structs.ScanSummary{
			BaseURL:       p.URL,
			PagesFound:    5,
			FormsDetected: 2,
			Pages: []structs.ScanPage{
				{URL: p.URL + "/", Title: "Home", FormsCount: 1},
				{URL: p.URL + "/about", Title: "About", FormsCount: 0},
				{URL: p.URL + "/pricing", Title: "Pricing", FormsCount: 0},
				{URL: p.URL + "/contact", Title: "Contact", FormsCount: 1},
				{URL: p.URL + "/docs", Title: "Docs", FormsCount: 0},
			},
		},
		Prompt: p.Prompt,
	}
	return []step{
		{status: structs.RUNNING, phase: "initializing", progress: 5},
		{status: structs.RUNNING, phase: "crawling", progress: 40},
		{status: structs.RUNNING, phase: "crawling", progress: 80},
		{status: structs.COMPLETED, phase: "completed", progress: 100, result: mustJson(result)},
	}
}

// runTestsScript passes every test except those tagged "flaky", so reruns
// are deterministic.
func runTestsScript(payload json.RawMessage) []step {
	p := &structs.RunTestsPayload{}
	_ = json.Unmarshal(payload, p)

	items := make([]structs.TestRunItem, 0, len(p.Tests))
	passed := 0
	for _, t := range p.Tests {
		status := "passed"
		technical := ""
		if hasTag(t, "flaky") {
			status = "failed"
			technical = "Locator timed out waiting for selector."
		} else {
			passed++
		}
		items = append(items, structs.TestRunItem{
			ID:        t.ID,
			Title:     t.Title,
			Status:    status,
			Technical: technical,
		})
	}
	result := &structs.RunTestsResult{
		Total:  len(items),
		Passed: passed,
		Failed: len(items) - passed,
		Items:  items,
	}

	script := []step{{status: structs.RUNNING, phase: "initializing", progress: 5}}
	for i := range items {
		script = append(script, step{
			status:   structs.RUNNING,
			phase:    "executing",
			progress: 5 + (i+1)*90/(len(items)+1),
		})
	}
	return append(script, step{status: structs.COMPLETED, phase: "completed", progress: 100, result: mustJson(result)})
}

func evalScript(kind structs.Kind, payload json.RawMessage) []step {
	p := &structs.EvalPayload{}
	_ = json.Unmarshal(payload, p)

	result := evalRunResult(kind, p)
	return []step{
		{status: structs.RUNNING, phase: "initializing", progress: 5},
		{status: structs.RUNNING, phase: "dataset_generation", progress: 25},
		{status: structs.RUNNING, phase: "retrieval", progress: 55},
		{status: structs.RUNNING, phase: "scoring", progress: 85},
		{status: structs.COMPLETED, phase: "completed", progress: 100, result: mustJson(result)},
	}
}

func compareScript(payload json.RawMessage) []step {
	p := &structs.EvalPayload{}
	_ = json.Unmarshal(payload, p)

	baseline := evalRunResult(structs.KindEvalBaseline, p)
	advanced := evalRunResult(structs.KindEvalAdvanced, p)
	result := &structs.EvalCompareResult{
		Baseline: *baseline,
		Advanced: *advanced,
		Delta: structs.EvalMetrics{
			Faithfulness:     round4(advanced.Metrics.Faithfulness - baseline.Metrics.Faithfulness),
			ContextPrecision: round4(advanced.Metrics.ContextPrecision - baseline.Metrics.ContextPrecision),
			ContextRecall:    round4(advanced.Metrics.ContextRecall - baseline.Metrics.ContextRecall),
		},
		Conclusion: "Advanced retriever improved average score over baseline on this run.",
		Config:     evalConfig(structs.KindEvalCompare, p),
	}

	return []step{
		{status: structs.RUNNING, phase: "baseline_initializing", progress: 5},
		{status: structs.RUNNING, phase: "dataset_generation", progress: 15},
		{status: structs.RUNNING, phase: "retrieval", progress: 30},
		{status: structs.RUNNING, phase: "scoring", progress: 45},
		{status: structs.RUNNING, phase: "advanced_initializing", progress: 50},
		{status: structs.RUNNING, phase: "dataset_generation", progress: 60},
		{status: structs.RUNNING, phase: "retrieval", progress: 75},
		{status: structs.RUNNING, phase: "scoring", progress: 90},
		{status: structs.COMPLETED, phase: "completed", progress: 100, result: mustJson(result)},
	}
}

func evalRunResult(kind structs.Kind, p *structs.EvalPayload) *structs.EvalRunResult {
	metrics := structs.EvalMetrics{Faithfulness: 0.82, ContextPrecision: 0.74, ContextRecall: 0.69}
	if kind == structs.KindEvalAdvanced {
		metrics = structs.EvalMetrics{Faithfulness: 0.88, ContextPrecision: 0.81, ContextRecall: 0.77}
	}

	sampleSize := p.SampleSize
	if sampleSize <= 0 {
		sampleSize = 12
	}
	samples := make([]structs.EvalSample, 0, sampleSize)
	for i := 0; i < sampleSize; i++ {
		samples = append(samples, structs.EvalSample{
			SampleID:         fmt.Sprintf("sample-%03d", i+1),
			Query:            fmt.Sprintf("stub question %d", i+1),
			ExpectedSource:   "ragas_reference",
			RetrievedSources: []string{"docs/page-01", "docs/page-02"},
		})
	}

	return &structs.EvalRunResult{
		Metrics:    metrics,
		Samples:    samples,
		Config:     evalConfig(kind, p),
		Conclusion: "Stubbed benchmark scores.",
	}
}

func evalConfig(kind structs.Kind, p *structs.EvalPayload) map[string]interface{} {
	return map[string]interface{}{
		"sample_size": p.SampleSize,
		"top_k":       p.TopK,
		"fetch_k":     p.FetchK,
		"mode":        string(kind),
	}
}

func cannedFlowSpec(url, prompt string) *structs.FlowSpecResponse {
	tests := []structs.FlowSpecTest{
		{ID: "t-001", Title: "Home page loads", Tags: []string{"smoke"}, Risk: "low", DurationSec: 20,
			Steps: []string{"Open the home page", "Wait for the hero section"}, ExpectedResult: "Page renders without errors", WhySuggested: "Every flow starts here."},
		{ID: "t-002", Title: "Contact form submits", Tags: []string{"forms", "flaky"}, Risk: "high", DurationSec: 45,
			Steps: []string{"Open /contact", "Fill the form", "Submit"}, ExpectedResult: "Confirmation message shown", WhySuggested: "A form was detected on /contact."},
		{ID: "t-003", Title: "Pricing table visible", Tags: []string{"content"}, Risk: "medium", DurationSec: 25,
			Steps: []string{"Open /pricing", "Check plan cards"}, ExpectedResult: "Three plans listed", WhySuggested: "Pricing is a conversion-critical page."},
		{ID: "t-004", Title: "Docs search responds", Tags: []string{"search", "flaky"}, Risk: "medium", DurationSec: 40,
			Steps: []string{"Open /docs", "Search for 'install'"}, ExpectedResult: "Results appear", WhySuggested: "Docs expose a search box."},
		{ID: "t-005", Title: "About page navigation", Tags: []string{"nav"}, Risk: "low", DurationSec: 15,
			Steps: []string{"Open the home page", "Click About"}, ExpectedResult: "About page opens", WhySuggested: "Primary navigation link."},
	}
	return &structs.FlowSpecResponse{
		URL:       url,
		Prompt:    prompt,
		Tests:     tests,
		Citations: []string{"playwright-docs#locators", "playwright-docs#assertions"},
	}
}

func hasTag(t structs.FlowSpecTest, tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

func round4(f float64) float64 {
	return float64(int(f*10000+0.5)) / 10000
}

func mustJson(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
