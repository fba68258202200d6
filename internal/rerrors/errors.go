package rerrors

import (
	"errors"
	"fmt"
)

// RuneError is the structured error type threaded through the engine. It
// carries enough context for the orchestrator to decide whether to degrade,
// retry, or abort, and for logging to report a stable code.
type RuneError struct {
	Kind       Kind
	Message    string
	Details    map[string]string
	Cause      error
	Retryable  bool
	Suggestion string
}

func (e *RuneError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RuneError) Unwrap() error {
	return e.Cause
}

// Is matches on Kind so errors.Is(err, &RuneError{Kind: KindEmbed}) works
// regardless of message or cause.
func (e *RuneError) Is(target error) bool {
	t, ok := target.(*RuneError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a key/value pair of diagnostic context, returning e for
// chaining.
func (e *RuneError) WithDetail(key, value string) *RuneError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches operator-facing remediation text.
func (e *RuneError) WithSuggestion(s string) *RuneError {
	e.Suggestion = s
	return e
}

// New builds a RuneError of the given kind, deriving Retryable from the kind's
// default policy.
func New(kind Kind, message string, cause error) *RuneError {
	return &RuneError{
		Kind:      kind,
		Message:   message,
		Cause:     cause,
		Retryable: retryableKinds[kind],
	}
}

// Wrap is New with the cause's message as the message ("" when cause is nil).
func Wrap(kind Kind, cause error) *RuneError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return New(kind, msg, cause)
}

func ConfigError(message string, cause error) *RuneError {
	return New(KindConfig, message, cause)
}

func IOError(message string, cause error) *RuneError {
	return New(KindIO, message, cause)
}

func ParseError(message string, cause error) *RuneError {
	return New(KindParse, message, cause)
}

func IndexWriteError(message string, cause error) *RuneError {
	return New(KindIndexWrite, message, cause)
}

func VectorStoreUnavailable(message string, cause error) *RuneError {
	return New(KindVectorStoreUnavailable, message, cause)
}

func EmbedError(message string, cause error) *RuneError {
	return New(KindEmbed, message, cause)
}

func RegexError(message string, cause error) *RuneError {
	return New(KindRegex, message, cause)
}

func DeadlineExceededError(message string, cause error) *RuneError {
	return New(KindDeadlineExceeded, message, cause)
}

func ShutdownInProgressError(message string) *RuneError {
	return New(KindShutdownInProgress, message, nil)
}

// IsRetryable reports whether err (or a wrapped *RuneError within it) allows
// a later attempt to succeed.
func IsRetryable(err error) bool {
	var re *RuneError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// IsFatal reports whether err should abort the engine rather than degrade a
// single file, chunk, or search mode.
func IsFatal(err error) bool {
	re, ok := err.(*RuneError)
	if !ok {
		return false
	}
	return fatalKinds[re.Kind]
}

// GetKind extracts the Kind from err, or "" if err is not a *RuneError.
func GetKind(err error) Kind {
	re, ok := err.(*RuneError)
	if !ok {
		return ""
	}
	return re.Kind
}
