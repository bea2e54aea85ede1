package domain

import (
	"strings"
	"time"
)

// GenerationResult is what a Generator returns. Generators never fail with an
// error: an absent answer together with FailureReason signals the failure.
type GenerationResult struct {
	Answer        string
	Sources       []SourceRef
	ModelUsed     string
	Latency       time.Duration
	FailureReason string
}

// Absent reports whether the generation layer failed to produce an answer.
func (r GenerationResult) Absent() bool {
	return r.FailureReason != "" || strings.TrimSpace(r.Answer) == ""
}

func (r GenerationResult) Failure() string {
	if r.FailureReason != "" {
		return r.FailureReason
	}
	if strings.TrimSpace(r.Answer) == "" {
		return "empty answer"
	}
	return ""
}
