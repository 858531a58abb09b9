package domain

import "encoding/json"

// FailureKind classifies why a handler execution failed.
type FailureKind string

const (
	FailureTimeout       FailureKind = "timeout"
	FailureNotConnected  FailureKind = "not_connected"
	FailureRemoteError   FailureKind = "remote_error"
	FailureHandlerError  FailureKind = "handler_error"
	FailureUnknownAction FailureKind = "unknown_action"
)

// Outcome is the tagged result of one handler execution. Exactly one of the
// success and failure arms is meaningful: when OK is true, Data may carry the
// remote actor's response; otherwise Kind, Message and Retryable describe the
// failure. Retryable defaults to false; a failure class must opt in to retry.
type Outcome struct {
	OK        bool
	Data      json.RawMessage
	Kind      FailureKind
	Message   string
	Retryable bool
}

// Success builds a successful outcome carrying the handler's result data.
func Success(data json.RawMessage) Outcome {
	return Outcome{OK: true, Data: data}
}

// Failure builds a failed outcome with an explicit retryability classification.
func Failure(kind FailureKind, message string, retryable bool) Outcome {
	return Outcome{Kind: kind, Message: message, Retryable: retryable}
}
