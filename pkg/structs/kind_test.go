package structs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEvalKind(t *testing.T) {
	cases := []struct {
		Name   string
		Given  Kind
		Expect bool
	}{
		{"KindUndefined", "x", false},
		{"KindScan", KindScan, false},
		{"KindRunTests", KindRunTests, false},
		{"KindReportPDF", KindReportPDF, false},
		{"KindEvalBaseline", KindEvalBaseline, true},
		{"KindEvalAdvanced", KindEvalAdvanced, true},
		{"KindEvalCompare", KindEvalCompare, true},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			assert.Equal(t, IsEvalKind(c.Given), c.Expect)
		})
	}
}

func TestToKind(t *testing.T) {
	cases := []struct {
		Name   string
		Given  string
		Expect Kind
	}{
		{"KindUndefined", "x", ""},
		{"KindScan", "scan", KindScan},
		{"KindRunTests", "run_tests", KindRunTests},
		{"KindEvalBaseline", "eval_baseline", KindEvalBaseline},
		{"KindEvalAdvanced", "eval_advanced", KindEvalAdvanced},
		{"KindEvalCompare", "eval_compare", KindEvalCompare},
		{"KindReportPDF", "report_pdf", KindReportPDF},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			assert.Equal(t, ToKind(c.Given), c.Expect)
		})
	}
}
