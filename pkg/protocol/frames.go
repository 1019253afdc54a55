// Package protocol defines the wire frames and name constants shared between
// the gateway and its WebSocket clients (browser chat widget, dashboard).
package protocol

import "encoding/json"

// ProtocolVersion is bumped on breaking frame changes.
const ProtocolVersion = 1

// Frame types.
const (
	FrameRequest  = "req"
	FrameResponse = "res"
	FrameEvent    = "event"
)

// RequestFrame is a client → server method invocation.
type RequestFrame struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ResponseFrame is the server's reply to a RequestFrame.
type ResponseFrame struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	OK      bool        `json:"ok"`
	Payload interface{} `json:"payload,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo carries a machine-readable error code plus a human message.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EventFrame is a server → client push event.
type EventFrame struct {
	Type    string      `json:"type"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewEvent builds an event frame.
func NewEvent(name string, payload interface{}) *EventFrame {
	return &EventFrame{Type: FrameEvent, Event: name, Payload: payload}
}

// NewResponse builds a success response for a request ID.
func NewResponse(id string, payload interface{}) *ResponseFrame {
	return &ResponseFrame{Type: FrameResponse, ID: id, OK: true, Payload: payload}
}

// NewErrorResponse builds a failure response for a request ID.
func NewErrorResponse(id, code, message string) *ResponseFrame {
	return &ResponseFrame{
		Type:  FrameResponse,
		ID:    id,
		Error: &ErrorInfo{Code: code, Message: message},
	}
}

// Error codes returned in ResponseFrame.Error.Code.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeNotConnected   = "not_connected"
	ErrCodeUnknownMethod  = "unknown_method"
	ErrCodeUnknownSession = "unknown_session"
	ErrCodeRateLimited    = "rate_limited"
)
