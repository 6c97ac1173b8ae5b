package core

import (
	"github.com/flowpilot/flowpilot/pkg/structs"
)

// A compare job runs two conceptually sequential sub-pipelines (baseline,
// then advanced) over a single 0-100 progress scale, with both reporting
// the same three raw phase labels and no explicit sub-pipeline marker.
// Progress below this split is attributed to the baseline sub-pipeline.
// This is a heuristic, not a runner guarantee; the boundary is approximate.
const comparePhaseSplit = 50

// Raw phase labels the evaluation pipelines report.
const (
	phaseDatasetGeneration = "dataset_generation"
	phaseRetrieval         = "retrieval"
	phaseScoring           = "scoring"
)

var (
	evalSteps = []string{
		phaseDatasetGeneration,
		phaseRetrieval,
		phaseScoring,
	}
	compareSteps = []string{
		"baseline_" + phaseDatasetGeneration,
		"baseline_" + phaseRetrieval,
		"baseline_" + phaseScoring,
		"advanced_" + phaseDatasetGeneration,
		"advanced_" + phaseRetrieval,
		"advanced_" + phaseScoring,
	}
)

// NormalizePhase maps a job's raw phase label onto a canonical step key.
//
// The two initializing labels always remap to the matching sub-pipeline's
// dataset_generation key. Compare jobs disambiguate the shared raw labels
// by progress. Everything else passes through unchanged; an empty phase
// stays empty.
func NormalizePhase(kind structs.Kind, phase string, progress int) string {
	if phase == "" {
		return ""
	}

	switch phase {
	case "baseline_initializing":
		return "baseline_" + phaseDatasetGeneration
	case "advanced_initializing":
		return "advanced_" + phaseDatasetGeneration
	}

	if kind != structs.KindEvalCompare {
		return phase
	}

	switch phase {
	case phaseDatasetGeneration, phaseRetrieval, phaseScoring:
		if progress < comparePhaseSplit {
			return "baseline_" + phase
		}
		return "advanced_" + phase
	}
	return phase
}

// Steps returns the ordered step list used for progress visualization of
// the given kind: 3 for a single evaluation, 6 for a compare run.
func Steps(kind structs.Kind) []string {
	switch kind {
	case structs.KindEvalBaseline, structs.KindEvalAdvanced:
		return evalSteps
	case structs.KindEvalCompare:
		return compareSteps
	default:
		return nil
	}
}

// StepIndex resolves the active step of a job, or -1 when the normalized
// phase matches no step (an unknown phase is not an error).
func StepIndex(kind structs.Kind, phase string, progress int) int {
	canonical := NormalizePhase(kind, phase, progress)
	if canonical == "" {
		return -1
	}
	for i, step := range Steps(kind) {
		if step == canonical {
			return i
		}
	}
	return -1
}
