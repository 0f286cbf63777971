// Package turn implements the turn handler: one end-to-end prompt from
// decoded inbound frame to persisted history and outbound frames
// (spec.md §4.6).
package turn

import (
	"context"
	"errors"
	"fmt"

	"github.com/nilcaream/bobai/pkg/apierr"
	"github.com/nilcaream/bobai/pkg/engine"
	"github.com/nilcaream/bobai/pkg/provider"
	"github.com/nilcaream/bobai/pkg/session"
	"github.com/nilcaream/bobai/pkg/tools"
	"github.com/nilcaream/bobai/pkg/transport"
)

// Handler wires together everything one prompt needs: where history lives,
// which backend answers it, and which tools it may invoke. A Handler is
// built once per server (or per project root) and handles every prompt
// for that project — the tool registry and sandboxed project root never
// change between turns (spec.md §4.3, §4.6).
type Handler struct {
	Store    session.Store
	Provider provider.Provider
	Model    string

	Tools       *tools.Registry
	ToolContext tools.ToolContext

	// SystemPrompt seeds every new session's history at sort order 0.
	SystemPrompt string

	// IterationCeiling overrides engine.DefaultIterationCeiling when positive.
	IterationCeiling int

	// Loop runs the agent loop; defaults to engine.NewLoop() when nil.
	Loop *engine.Loop
}

var _ transport.PromptHandler = (*Handler)(nil)

func (h *Handler) loop() *engine.Loop {
	if h.Loop != nil {
		return h.Loop
	}
	return engine.NewLoop()
}

// HandlePrompt resolves or creates the session, appends the user message,
// runs the agent loop against the full projected history, persists every
// message the loop produces, and forwards agent events to sink as
// outbound frames (spec.md §4.6).
func (h *Handler) HandlePrompt(ctx context.Context, in transport.InboundMessage, sink transport.ClientSink) error {
	sessionID := in.SessionID
	if sessionID == "" {
		sess, err := h.Store.CreateSession(ctx, h.SystemPrompt)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		sessionID = sess.ID
	} else if _, err := h.Store.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return sink.Send(transport.ErrorMessage(fmt.Sprintf("Session not found: %s", sessionID)))
		}
		return fmt.Errorf("look up session %s: %w", sessionID, err)
	}

	if _, err := h.Store.AppendMessage(ctx, sessionID, session.RoleUser, in.Text, nil); err != nil {
		return fmt.Errorf("append user message: %w", err)
	}

	messages, err := h.loadHistory(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load history for %s: %w", sessionID, err)
	}

	var persistErr, sendErr error
	_, runErr := h.loop().Run(ctx, engine.Input{
		Provider:         h.Provider,
		Model:            h.Model,
		Messages:         messages,
		Tools:            h.Tools,
		ToolContext:      h.ToolContext,
		IterationCeiling: h.IterationCeiling,
		OnEvent: func(ev engine.AgentEvent) {
			if sendErr != nil {
				return
			}
			sendErr = h.forwardEvent(sink, ev)
		},
		OnMessage: func(p engine.Produced) {
			if persistErr != nil {
				return
			}
			_, persistErr = h.Store.AppendMessage(ctx, sessionID, p.Role, p.Content, p.Metadata)
		},
	})
	if persistErr != nil {
		return fmt.Errorf("persist produced message: %w", persistErr)
	}
	if sendErr != nil {
		return sendErr
	}

	if runErr != nil {
		return h.handleTurnError(ctx, sessionID, runErr, sink)
	}

	return sink.Send(transport.DoneMessage(sessionID, h.Model))
}

// handleTurnError implements spec.md §4.6's two failure paths: a provider
// error keeps its exact "Provider error (<status>): <body>" wording; any
// other error is reported with its own message. Either way, the error is
// persisted as history and a done frame still follows — the session
// remains resumable.
func (h *Handler) handleTurnError(ctx context.Context, sessionID string, runErr error, sink transport.ClientSink) error {
	message := runErr.Error()
	var apiErr *apierr.APIError
	if errors.As(runErr, &apiErr) && apiErr.Type == apierr.TypeProviderError {
		message = apiErr.Message
	}

	if _, err := h.Store.AppendMessage(ctx, sessionID, session.RoleAssistant, fmt.Sprintf("[Error: %s]", message), nil); err != nil {
		return fmt.Errorf("persist error message: %w", err)
	}

	if err := sink.Send(transport.ErrorMessage(message)); err != nil {
		return err
	}
	return sink.Send(transport.DoneMessage(sessionID, h.Model))
}

// forwardEvent translates one agent event into the matching outbound
// frame (spec.md §4.6: text→token, tool_call/tool_result pass through).
func (h *Handler) forwardEvent(sink transport.ClientSink, ev engine.AgentEvent) error {
	switch ev.Type {
	case engine.AgentEventText:
		return sink.Send(transport.TokenMessage(ev.Text))
	case engine.AgentEventToolCall:
		return sink.Send(transport.ToolCallMessage(ev.ToolCallID, ev.ToolName, ev.Arguments))
	case engine.AgentEventToolResult:
		return sink.Send(transport.ToolResultMessage(ev.ToolCallID, ev.ToolName, ev.Output, ev.IsError))
	}
	return nil
}

// loadHistory projects a session's stored rows into the provider's
// message shape: assistant metadata becomes tool_calls, tool rows keep
// their originating tool_call_id (spec.md §4.6 step 4).
func (h *Handler) loadHistory(ctx context.Context, sessionID string) ([]provider.ProviderMessage, error) {
	rows, err := h.Store.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := make([]provider.ProviderMessage, 0, len(rows))
	for _, m := range rows {
		pm := provider.ProviderMessage{Role: string(m.Role)}
		switch {
		case m.Role == session.RoleAssistant && m.Metadata != nil && len(m.Metadata.ToolCalls) > 0:
			if m.Content != "" {
				pm.Content = m.Content
			}
			pm.ToolCalls = toProviderToolCalls(m.Metadata.ToolCalls)
		case m.Role == session.RoleTool:
			pm.Content = m.Content
			if m.Metadata != nil {
				pm.ToolCallID = m.Metadata.ToolCallID
			}
		default:
			pm.Content = m.Content
		}
		out = append(out, pm)
	}
	return out, nil
}

func toProviderToolCalls(records []session.ToolCallRecord) []provider.ProviderToolCall {
	out := make([]provider.ProviderToolCall, 0, len(records))
	for _, r := range records {
		out = append(out, provider.ProviderToolCall{
			ID:   r.ID,
			Type: "function",
			Function: provider.ProviderFunctionCall{
				Name:      r.Name,
				Arguments: r.Arguments,
			},
		})
	}
	return out
}
