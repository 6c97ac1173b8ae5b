package structs

import (
	"strings"
)

type Status string

const (
	// transient states
	QUEUED  Status = "queued"
	RUNNING Status = "running"

	// end states
	COMPLETED Status = "completed"
	FAILED    Status = "failed"
	TIMEOUT   Status = "timeout"
	CANCELED  Status = "canceled"
)

func IsFinalStatus(status Status) bool {
	switch status {
	case COMPLETED, FAILED, TIMEOUT, CANCELED:
		return true
	default:
		return false
	}
}

func ToStatus(s string) Status {
	switch strings.ToLower(s) {
	case "queued":
		return QUEUED
	case "running":
		return RUNNING
	case "completed":
		return COMPLETED
	case "failed":
		return FAILED
	case "timeout":
		return TIMEOUT
	case "canceled":
		return CANCELED
	default:
		return ""
	}
}
