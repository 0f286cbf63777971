package transport

import (
	"encoding/json"
	"fmt"
)

// InboundMessage is a single frame a client sends in. The only kind
// spec.md §4.7 defines is "prompt" — anything else decodes successfully
// but is rejected by DecodeInbound so the adapter can reply with an
// error frame and take no further action.
type InboundMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	SessionID string `json:"sessionId,omitempty"`
}

// OutboundMessage is a single frame sent to the client. Type discriminates
// which of the other fields are meaningful, mirroring the five kinds
// spec.md §6 defines: token, tool_call, tool_result, done, error.
type OutboundMessage struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Output    string          `json:"output,omitempty"`
	IsError   bool            `json:"isError,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Model     string          `json:"model,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// TokenMessage is an incremental text delta.
func TokenMessage(text string) OutboundMessage {
	return OutboundMessage{Type: "token", Text: text}
}

// ToolCallMessage announces a tool the agent is about to invoke.
func ToolCallMessage(id, name string, arguments json.RawMessage) OutboundMessage {
	return OutboundMessage{Type: "tool_call", ID: id, Name: name, Arguments: arguments}
}

// ToolResultMessage reports a tool's completed output.
func ToolResultMessage(id, name, output string, isError bool) OutboundMessage {
	return OutboundMessage{Type: "tool_result", ID: id, Name: name, Output: output, IsError: isError}
}

// DoneMessage closes out a turn, successful or not — the session remains
// resumable either way (spec.md §4.6).
func DoneMessage(sessionID, model string) OutboundMessage {
	return OutboundMessage{Type: "done", SessionID: sessionID, Model: model}
}

// ErrorMessage reports a failure to the client: an unknown session id, or
// an error that ended a turn (followed by a done frame in that case).
func ErrorMessage(message string) OutboundMessage {
	return OutboundMessage{Type: "error", Message: message}
}

// DecodeInbound parses one inbound frame. A frame whose type is not
// "prompt" decodes without a JSON error but is rejected here, so callers
// can emit an ErrorMessage and take no action (spec.md §4.7).
func DecodeInbound(data []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return InboundMessage{}, fmt.Errorf("decode inbound message: %w", err)
	}
	if msg.Type != "prompt" {
		return InboundMessage{}, fmt.Errorf("unsupported message type: %q", msg.Type)
	}
	return msg, nil
}

// EncodeOutbound serializes one outbound frame to its wire form.
func EncodeOutbound(msg OutboundMessage) ([]byte, error) {
	return json.Marshal(msg)
}
