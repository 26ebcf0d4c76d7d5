package llm

import "fmt"

// Reason classifies a ProviderError for retry/failover decisions. Grounded
// on the teacher's internal/agent/providers/errors.go FailoverReason enum,
// trimmed to a handful of buckets. The providers' retry loops decide
// retryability from the error text, not from Reason.
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonRateLimited
	ReasonServerError
	ReasonTimeout
	ReasonConnection
	ReasonInvalidRequest
)

// IsRetryable reports whether a request that failed for this reason is
// worth retrying with backoff.
func (r Reason) IsRetryable() bool {
	switch r {
	case ReasonRateLimited, ReasonServerError, ReasonTimeout, ReasonConnection:
		return true
	default:
		return false
	}
}

// ProviderError wraps a failure from an LLM backend with enough context to
// decide retryability and to surface a useful message to the dispatcher.
type ProviderError struct {
	Provider string
	Model    string
	Reason   Reason
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: model %s: %v", e.Provider, e.Model, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError wraps cause with an unknown-reason ProviderError.
func NewProviderError(provider, model string, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Model: model, Reason: ReasonUnknown, Cause: cause}
}
