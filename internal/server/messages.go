package server

import (
	"time"

	"github.com/ipm-pk/fingerprint/internal/service"
)

// MQTT message types exchanged between automation clients and the
// fingerprint service.

// Request is one operation call.
// Topic: fingerprint/service/{Operation}/request
type Request struct {
	// RequestID uniquely identifies this call for correlation with the
	// reply. Generated by the server when the client omits it.
	RequestID string `json:"request_id"`

	// Args are the positional operation arguments, in declaration order.
	Args []any `json:"args,omitempty"`
}

// Error codes for failed requests.
const (
	ErrCodeOperationNotFound = "OPERATION_NOT_FOUND"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeExecutionFailed   = "EXECUTION_FAILED"
)

// ResponseError contains error details for failed requests.
type ResponseError struct {
	// Code is the error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`
}

// Response is the immediate reply to one request.
// Topic: fingerprint/service/{Operation}/response/{request_id}
type Response struct {
	// RequestID is the ID from the original request.
	RequestID string `json:"request_id"`

	// Timestamp is when the reply was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Success indicates whether the call was accepted.
	Success bool `json:"success"`

	// TaskID identifies the background task for asynchronous operations.
	TaskID string `json:"task_id,omitempty"`

	// Fields carries the reply payload: the merged result envelope for
	// synchronous operations, the acknowledgment for asynchronous ones.
	Fields map[string]any `json:"fields,omitempty"`

	// Error contains details if the call failed.
	Error *ResponseError `json:"error,omitempty"`
}

// EventMessage is the terminal notification of one background task.
// Topic: fingerprint/event/{Operation}
type EventMessage struct {
	// Operation is the protocol operation name.
	Operation string `json:"operation"`

	// TaskID is the identity handed out in the immediate reply.
	TaskID string `json:"task_id"`

	// Timestamp is when the event was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Outcome is "success" or "error".
	Outcome string `json:"outcome"`

	// Message carries the failure detail for error outcomes.
	Message string `json:"message,omitempty"`

	// Fields is the result filtered to the operation's declared shape.
	Fields map[string]any `json:"fields,omitempty"`
}

// NewResponse creates a success reply from a dispatch result.
func NewResponse(requestID string, reply service.Reply) Response {
	return Response{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Success:   true,
		TaskID:    reply.TaskID,
		Fields:    reply.Fields,
	}
}

// NewErrorResponse creates a failure reply.
func NewErrorResponse(requestID, code, message string) Response {
	return Response{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Success:   false,
		Error: &ResponseError{
			Code:    code,
			Message: message,
		},
	}
}

// NewEventMessage renders a completion event for publication.
func NewEventMessage(ev service.CompletionEvent) EventMessage {
	return EventMessage{
		Operation: ev.Operation,
		TaskID:    ev.TaskID,
		Timestamp: time.Now().UTC(),
		Outcome:   ev.Outcome.String(),
		Message:   ev.Message,
		Fields:    ev.Fields,
	}
}
