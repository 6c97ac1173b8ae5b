package structs

// Kind is the type of work a job performs.
//
// The runner multiplexes all asynchronous work over a single jobs endpoint;
// the kind tag plus an opaque payload & result is what tells them apart.
type Kind string

const (
	// KindScan crawls a target site and reports the pages it found
	KindScan Kind = "scan"

	// KindRunTests executes a selection of generated flow tests
	KindRunTests Kind = "run_tests"

	// KindEvalBaseline scores the baseline retriever
	KindEvalBaseline Kind = "eval_baseline"

	// KindEvalAdvanced scores the advanced (reranked) retriever
	KindEvalAdvanced Kind = "eval_advanced"

	// KindEvalCompare runs baseline then advanced and reports deltas
	KindEvalCompare Kind = "eval_compare"

	// KindReportPDF renders a report; declared by the runner, not driven here
	KindReportPDF Kind = "report_pdf"
)

func IsEvalKind(k Kind) bool {
	switch k {
	case KindEvalBaseline, KindEvalAdvanced, KindEvalCompare:
		return true
	default:
		return false
	}
}

func ToKind(s string) Kind {
	switch Kind(s) {
	case KindScan, KindRunTests, KindEvalBaseline, KindEvalAdvanced, KindEvalCompare, KindReportPDF:
		return Kind(s)
	default:
		return ""
	}
}
