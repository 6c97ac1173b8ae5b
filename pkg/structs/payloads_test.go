package structs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanPayloadValidate(t *testing.T) {
	cases := []struct {
		Name     string
		Given    *ScanPayload
		ExpectOk bool
	}{
		{"Valid", &ScanPayload{URL: "https://example.com", MaxPages: 30, MaxDepth: 2}, true},
		{"MissingURL", &ScanPayload{MaxPages: 30, MaxDepth: 2}, false},
		{"ZeroPages", &ScanPayload{URL: "https://example.com", MaxPages: 0, MaxDepth: 2}, false},
		{"TooManyPages", &ScanPayload{URL: "https://example.com", MaxPages: 121, MaxDepth: 2}, false},
		{"TooDeep", &ScanPayload{URL: "https://example.com", MaxPages: 30, MaxDepth: 5}, false},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			err := c.Given.Validate()
			if c.ExpectOk {
				assert.Nil(t, err)
			} else {
				assert.NotNil(t, err)
			}
		})
	}
}

func TestEvalPayloadValidate(t *testing.T) {
	cases := []struct {
		Name     string
		Given    *EvalPayload
		ExpectOk bool
	}{
		{"Valid", &EvalPayload{SampleSize: 12, TopK: 5, FetchK: 20}, true},
		{"MinBounds", &EvalPayload{SampleSize: 4, TopK: 1, FetchK: 5}, true},
		{"MaxBounds", &EvalPayload{SampleSize: 40, TopK: 10, FetchK: 50}, true},
		{"SampleTooSmall", &EvalPayload{SampleSize: 3, TopK: 5, FetchK: 20}, false},
		{"SampleTooLarge", &EvalPayload{SampleSize: 41, TopK: 5, FetchK: 20}, false},
		{"TopKTooSmall", &EvalPayload{SampleSize: 12, TopK: 0, FetchK: 20}, false},
		{"TopKTooLarge", &EvalPayload{SampleSize: 12, TopK: 11, FetchK: 20}, false},
		{"FetchKTooSmall", &EvalPayload{SampleSize: 12, TopK: 5, FetchK: 4}, false},
		{"FetchKTooLarge", &EvalPayload{SampleSize: 12, TopK: 5, FetchK: 51}, false},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			err := c.Given.Validate()
			if c.ExpectOk {
				assert.Nil(t, err)
			} else {
				assert.NotNil(t, err)
			}
		})
	}
}

func TestRunTestsPayloadValidate(t *testing.T) {
	tests := []FlowSpecTest{{ID: "t-001", Title: "login"}}

	cases := []struct {
		Name     string
		Given    *RunTestsPayload
		ExpectOk bool
	}{
		{"Valid", &RunTestsPayload{URL: "https://example.com", Tests: tests, BatchSize: 4}, true},
		{"MissingURL", &RunTestsPayload{Tests: tests, BatchSize: 4}, false},
		{"NoTests", &RunTestsPayload{URL: "https://example.com", Tests: []FlowSpecTest{}, BatchSize: 4}, false},
		{"BatchTooLarge", &RunTestsPayload{URL: "https://example.com", Tests: tests, BatchSize: 9}, false},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			err := c.Given.Validate()
			if c.ExpectOk {
				assert.Nil(t, err)
			} else {
				assert.NotNil(t, err)
			}
		})
	}
}
