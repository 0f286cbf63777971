package transport

import (
	"context"
	"fmt"

	"github.com/nilcaream/bobai/pkg/apierr"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to server error responses. The server continues to
// accept new prompts after a panic is recovered.
func Recovery() Middleware {
	return func(next PromptHandler) PromptHandler {
		return PromptHandlerFunc(func(ctx context.Context, in InboundMessage, sink ClientSink) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					retErr = apierr.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.HandlePrompt(ctx, in, sink)
		})
	}
}
