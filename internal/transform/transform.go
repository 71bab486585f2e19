package transform

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"
)

// Reason classifies why a transform did not produce output.
type Reason string

const (
	// ReasonServiceUnavailable covers transport faults and unusable upstream answers.
	ReasonServiceUnavailable Reason = "service_unavailable"
	// ReasonClientError is a non-retryable status; retrying the same input will not help.
	ReasonClientError Reason = "client_error"
	// ReasonExhaustedRetries means every attempt got a retryable status.
	ReasonExhaustedRetries Reason = "exhausted_retries"
	// ReasonInvalidInput is returned before any request is sent.
	ReasonInvalidInput Reason = "invalid_input"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 2 * time.Second
)

// Request is one transform call. Fields are set once by NewRequest.
type Request struct {
	input    string
	endpoint string
	token    string
}

func NewRequest(input, endpoint, token string) Request {
	return Request{
		input:    input,
		endpoint: endpoint,
		token:    token,
	}
}

func (r Request) Input() string {
	return r.input
}

func (r Request) Endpoint() string {
	return r.endpoint
}

func (r Request) Token() string {
	return r.token
}

// Failure describes a transform that produced no output.
type Failure struct {
	Reason Reason
	Detail string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Reason, f.Detail)
}

// Result is either a success carrying Output or a Failure. Attempts counts
// the HTTP requests that were sent.
type Result struct {
	Output   string
	Failure  *Failure
	Attempts int
}

func (r Result) OK() bool {
	return r.Failure == nil
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}

	return r.Failure
}

func success(output string, attempts int) Result {
	return Result{Output: output, Attempts: attempts}
}

func failure(reason Reason, detail string, attempts int) Result {
	return Result{
		Failure:  &Failure{Reason: reason, Detail: detail},
		Attempts: attempts,
	}
}

// RetryPolicy bounds the attempts of a single Transform call. Backoff is a
// fixed delay between attempts.
type RetryPolicy struct {
	MaxAttempts          int
	Backoff              time.Duration
	RetryableStatusCodes []int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:          defaultMaxAttempts,
		Backoff:              defaultBackoff,
		RetryableStatusCodes: []int{http.StatusServiceUnavailable},
	}
}

func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1, got %d", p.MaxAttempts)
	}

	if p.Backoff < 0 {
		return errors.New("backoff must not be negative")
	}

	return nil
}

func (p RetryPolicy) Retryable(status int) bool {
	return slices.Contains(p.RetryableStatusCodes, status)
}
