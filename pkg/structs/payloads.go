package structs

import (
	"github.com/go-playground/validator/v10"
)

// Bounds mirror the runner's request validation so obviously bad input
// fails locally instead of burning a job on an INVALID_INPUT error.
var validate = validator.New()

// ScanPayload asks the runner to crawl a site.
type ScanPayload struct {
	URL      string `json:"url" validate:"required,min=1"`
	Prompt   string `json:"prompt,omitempty"`
	MaxPages int    `json:"max_pages" validate:"min=1,max=120"`
	MaxDepth int    `json:"max_depth" validate:"min=1,max=4"`
}

func (p *ScanPayload) Validate() error {
	return validate.Struct(p)
}

// EvalPayload parameterises a retrieval evaluation run of any eval kind.
type EvalPayload struct {
	SampleSize  int  `json:"sample_size" validate:"min=4,max=40"`
	TopK        int  `json:"top_k" validate:"min=1,max=10"`
	FetchK      int  `json:"fetch_k" validate:"min=5,max=50"`
	ForceIngest bool `json:"force_ingest"`
}

func (p *EvalPayload) Validate() error {
	return validate.Struct(p)
}

// EvalOverrides optionally replaces the stored form values for one run;
// zero fields fall back to the current form state.
type EvalOverrides struct {
	SampleSize int
	TopK       int
	FetchK     int
}

// RunTestsPayload executes the given flow tests against a site.
type RunTestsPayload struct {
	URL       string         `json:"url" validate:"required,min=1"`
	Tests     []FlowSpecTest `json:"tests" validate:"required,min=1"`
	BatchSize int            `json:"batch_size" validate:"min=1,max=8"`
}

func (p *RunTestsPayload) Validate() error {
	return validate.Struct(p)
}
