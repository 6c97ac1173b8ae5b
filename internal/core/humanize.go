package core

import (
	"fmt"
	"strings"

	"github.com/flowpilot/flowpilot/pkg/structs"
)

// Runner error codes with dedicated guidance.
const (
	codeInvalidInput = "INVALID_INPUT"
	codeEvalTimeout  = "EVAL_TIMEOUT"
)

const (
	msgInvalidInput = "Invalid evaluation input. Sample size, Top K, and Fetch K are the usual culprits; check their ranges and try again."
	msgTimeout      = "The evaluation timed out. Retry with a smaller sample size and a lower Fetch K."
	msgQuota        = "The model provider reported a rate/quota limit. Wait for the quota window to reset, then retry."
	msgTokenLimit   = "The model hit its token/output limit before finishing. Retry with a smaller sample size or a higher max-tokens budget."
)

// HumanizeJobError maps a local request failure and/or a job's terminal
// error onto a single user-actionable message. Returns "" when there is
// nothing to report. Pure and total: rules are evaluated in order, first
// match wins.
func HumanizeJobError(local string, job *structs.Job) string {
	if local != "" {
		return local
	}
	if job == nil {
		return ""
	}
	if job.Error == nil && job.Status != structs.TIMEOUT {
		return ""
	}

	var code, message string
	if job.Error != nil {
		code = job.Error.Code
		message = job.Error.Message
	}
	text := strings.ToLower(code + " " + message)

	switch {
	case code == codeInvalidInput:
		return msgInvalidInput
	case code == codeEvalTimeout || job.Status == structs.TIMEOUT || strings.Contains(text, "timed out"):
		return msgTimeout
	case strings.Contains(text, "rate limit") || strings.Contains(text, "rpd") || strings.Contains(text, "quota"):
		return msgQuota
	case strings.Contains(text, "max_tokens") ||
		strings.Contains(text, "increase the max_tokens") ||
		strings.Contains(text, "llm generation was not completed"):
		return msgTokenLimit
	default:
		return fmt.Sprintf("%s: %s", code, message)
	}
}

// RawJobError reports a job's terminal error as the literal "code: message"
// form. Test-run failures deliberately skip humanization: their error domain
// is the target site, not the evaluation pipeline.
func RawJobError(job *structs.Job) string {
	if job == nil || job.Error == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", job.Error.Code, job.Error.Message)
}
