package instagram

import (
	"errors"
	"fmt"
)

// Reason classifies why an upstream surface refused to produce a profile.
type Reason string

const (
	ReasonAuthRequired Reason = "auth-required"
	ReasonNotFound     Reason = "not-found"
	ReasonRateLimited  Reason = "rate-limited"
	ReasonParseError   Reason = "parse-error"
	ReasonNetworkError Reason = "network-error"
)

// UpstreamError is the typed failure every client method returns instead of
// leaking transport details. callers switch on Reason, not on error text.
type UpstreamError struct {
	Reason Reason
	Op     string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("instagram: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("instagram: %s: %s: %s", e.Op, e.Reason, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstreamErr(reason Reason, op string, err error) *UpstreamError {
	return &UpstreamError{Reason: reason, Op: op, Err: err}
}

// ReasonOf extracts the upstream reason from an error chain, defaulting to
// network-error for transport faults that never reached classification.
func ReasonOf(err error) Reason {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Reason
	}
	return ReasonNetworkError
}

func classifyStatus(status int, op string) *UpstreamError {
	switch {
	case status == 404:
		return upstreamErr(ReasonNotFound, op, nil)
	case status == 401 || status == 403:
		return upstreamErr(ReasonAuthRequired, op, nil)
	case status == 429:
		return upstreamErr(ReasonRateLimited, op, nil)
	case status >= 400:
		return upstreamErr(ReasonNetworkError, op, fmt.Errorf("status %d", status))
	}
	return nil
}
