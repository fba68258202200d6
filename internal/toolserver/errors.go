// Package toolserver bridges the engine's Orchestrator to AI coding
// assistants over the Model Context Protocol, using
// github.com/modelcontextprotocol/go-sdk. It is kept thin: every handler
// validates its input, calls into internal/engine, and maps the result or
// error into the tool's output schema. The protocol itself — framing,
// transport negotiation — is the SDK's responsibility, not this package's.
package toolserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/rune-engine/rune/internal/rerrors"
)

// JSON-RPC and tool-specific error codes returned to the calling client.
const (
	ErrCodeInvalidParams  = -32602
	ErrCodeMethodNotFound = -32601
	ErrCodeInternalError  = -32603
	ErrCodeTimeout        = -32001
	ErrCodeVectorStoreDown = -32002
	ErrCodeDegraded       = -32003
)

// ToolError is a JSON-RPC-shaped error returned to the MCP client.
type ToolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError builds a ToolError for a malformed tool call.
func NewInvalidParamsError(msg string) *ToolError {
	return &ToolError{Code: ErrCodeInvalidParams, Message: msg}
}

// mapError converts an engine-layer error into a client-facing ToolError.
// rerrors.RuneError carries a Kind the engine already classified; everything
// else becomes an opaque internal error so internals never leak verbatim.
func mapError(err error) *ToolError {
	if err == nil {
		return nil
	}

	var rerr *rerrors.RuneError
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case rerrors.KindVectorStoreUnavailable:
			return &ToolError{Code: ErrCodeVectorStoreDown, Message: rerr.Error()}
		case rerrors.KindDeadlineExceeded:
			return &ToolError{Code: ErrCodeTimeout, Message: rerr.Error()}
		case rerrors.KindRegex, rerrors.KindConfig:
			return &ToolError{Code: ErrCodeInvalidParams, Message: rerr.Error()}
		default:
			return &ToolError{Code: ErrCodeInternalError, Message: rerr.Error()}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ToolError{Code: ErrCodeTimeout, Message: "request timed out"}
	}

	return &ToolError{Code: ErrCodeInternalError, Message: "internal server error"}
}
