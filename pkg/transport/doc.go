// Package transport defines the wire contract and middleware chain between
// an external client and the turn handler (spec.md §4.7).
//
// # Frames
//
// InboundMessage and OutboundMessage are the two frame shapes. The only
// inbound kind is "prompt"; outbound kinds are token, tool_call,
// tool_result, done, and error. DecodeInbound and EncodeOutbound convert
// between wire bytes and these structs.
//
// # Handler Interface
//
// PromptHandler is the contract between the transport layer and the
// turn handler (pkg/turn): HandlePrompt takes one decoded prompt and
// writes outbound frames to a ClientSink as it produces them, in the
// order spec.md §4.5 requires.
//
// # Middleware
//
// The middleware chain wraps PromptHandler with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog. Custom middleware
// can be added for application-specific concerns.
//
// # Cancellation
//
// InFlightRegistry tracks in-flight prompts by a caller-assigned id so a
// separate request (e.g. an HTTP DELETE) can cancel one still streaming
// (spec.md §5).
package transport
