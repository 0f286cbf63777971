package transport

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that emits structured log entries for each
// prompt: duration, request ID (from context), the session it targeted,
// and whether it succeeded or failed.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next PromptHandler) PromptHandler {
		return PromptHandlerFunc(func(ctx context.Context, in InboundMessage, sink ClientSink) error {
			start := time.Now()
			requestID := RequestIDFromContext(ctx)

			err := next.HandlePrompt(ctx, in, sink)

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("session_id", in.SessionID),
				slog.Int("text_len", len(in.Text)),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
			}

			return err
		})
	}
}
