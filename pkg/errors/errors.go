package errors

import (
	"fmt"
)

var (
	// ErrRequestFailed wraps any non-success or undecodable runner response.
	ErrRequestFailed = fmt.Errorf("request failed")

	// ErrMalformedResponse marks a create response missing a job identifier.
	ErrMalformedResponse = fmt.Errorf("malformed response")

	// ErrScanRequired: flow-spec generation needs a completed scan result.
	ErrScanRequired = fmt.Errorf("run a scan first")

	// ErrNoTestsSelected: running tests needs a non-empty selection.
	ErrNoTestsSelected = fmt.Errorf("select at least one test")

	// ErrBusy: a poll loop for this slot is still active.
	ErrBusy = fmt.Errorf("a job is already in progress")

	ErrInvalidArg = fmt.Errorf("invalid arg")
	ErrNotFound   = fmt.Errorf("not found")
)
