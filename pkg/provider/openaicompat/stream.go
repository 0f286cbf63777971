package openaicompat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/nilcaream/bobai/pkg/apierr"
	"github.com/nilcaream/bobai/pkg/provider"
	"github.com/nilcaream/bobai/pkg/sse"
)

// ToolCallBuffer tracks incremental tool call argument assembly across
// multiple SSE chunks for a single tool call index.
type ToolCallBuffer struct {
	ID   string
	Name string
	Args strings.Builder
}

// ParseSSEStream reads Chat Completions SSE chunks from the given reader,
// translates each chunk to ProviderEvent values, and sends them on ch.
// The channel is NOT closed by this function; the caller is responsible
// for closing it.
//
// A data line that is not valid JSON ends the stream with an error event,
// per spec.md §4.1 ("a malformed data line is fatal for the current
// request"); valid JSON that does not decode as a chunk is logged and
// skipped. Context cancellation stops reading immediately.
func ParseSSEStream(ctx context.Context, body io.Reader, ch chan<- provider.ProviderEvent) {
	dec := sse.NewDecoder(body)
	toolCalls := make(map[int]*ToolCallBuffer)

	for {
		if ctx.Err() != nil {
			return
		}

		payload, done, err := dec.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			ch <- provider.ProviderEvent{
				Type: provider.EventError,
				Err:  apierr.NewServerError("SSE stream error: " + err.Error()),
			}
			return
		}
		if done {
			return
		}

		var chunk ChatCompletionChunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", Truncate(string(payload), 200),
			)
			continue
		}

		TranslateChunk(&chunk, toolCalls, ch)
	}
}

// TranslateChunk converts a single ChatCompletionChunk into one or more
// ProviderEvent values sent on the channel. The toolCalls map tracks
// incremental tool call argument assembly across chunks.
func TranslateChunk(chunk *ChatCompletionChunk, toolCalls map[int]*ToolCallBuffer, ch chan<- provider.ProviderEvent) {
	if len(chunk.Choices) == 0 {
		// A usage-only final chunk (sent with stream_options.include_usage).
		if chunk.Usage != nil {
			ch <- provider.ProviderEvent{
				Type: provider.EventFinish,
				Usage: &provider.Usage{
					InputTokens:  chunk.Usage.PromptTokens,
					OutputTokens: chunk.Usage.CompletionTokens,
					TotalTokens:  chunk.Usage.TotalTokens,
				},
			}
		}
		return
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	if choice.FinishReason != nil {
		finishEvent := provider.ProviderEvent{
			Type:         provider.EventFinish,
			FinishReason: normalizeFinishReason(*choice.FinishReason),
		}
		if chunk.Usage != nil {
			finishEvent.Usage = &provider.Usage{
				InputTokens:  chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
				TotalTokens:  chunk.Usage.TotalTokens,
			}
		}
		ch <- finishEvent
		clear(toolCalls)
		return
	}

	if len(delta.ToolCalls) > 0 {
		for _, tc := range delta.ToolCalls {
			buf, exists := toolCalls[tc.Index]
			if !exists {
				buf = &ToolCallBuffer{ID: tc.ID, Name: tc.Function.Name}
				toolCalls[tc.Index] = buf
				ch <- provider.ProviderEvent{
					Type:           provider.EventToolCallStart,
					ToolCallIndex:  tc.Index,
					ToolCallID:     tc.ID,
					FunctionName:   tc.Function.Name,
					ArgumentsDelta: tc.Function.Arguments,
				}
			} else {
				ch <- provider.ProviderEvent{
					Type:           provider.EventToolCallDelta,
					ToolCallIndex:  tc.Index,
					ToolCallID:     buf.ID,
					ArgumentsDelta: tc.Function.Arguments,
				}
			}
			buf.Args.WriteString(tc.Function.Arguments)
		}
		return
	}

	if delta.Content != nil && *delta.Content != "" {
		ch <- provider.ProviderEvent{
			Type:      provider.EventText,
			TextDelta: *delta.Content,
		}
		return
	}

	// Role-only or otherwise empty delta chunks carry no event worth emitting.
}

// normalizeFinishReason maps a raw upstream finish_reason to the two
// values the turn loop understands: "tool_calls" is passed through
// verbatim, everything else ("stop", "length", "content_filter", ...)
// collapses to "stop" (spec.md §4.2).
func normalizeFinishReason(reason string) string {
	if reason == "tool_calls" {
		return reason
	}
	return "stop"
}

// Truncate limits a string to maxLen characters for log output.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
