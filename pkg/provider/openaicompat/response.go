package openaicompat

import (
	"github.com/nilcaream/bobai/pkg/provider"
)

// TranslateResponse converts a ChatCompletionResponse into a ProviderResponse.
// It uses only choices[0] and maps content, tool calls, finish reason, and usage.
func TranslateResponse(resp *ChatCompletionResponse) *provider.ProviderResponse {
	pr := &provider.ProviderResponse{}

	if resp.Usage != nil {
		pr.Usage = &provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
	}

	// Empty choices means the backend produced no output.
	if len(resp.Choices) == 0 {
		pr.FinishReason = "stop"
		return pr
	}

	choice := resp.Choices[0]
	pr.FinishReason = normalizeFinishReason(choice.FinishReason)
	pr.Text = ExtractContentString(choice.Message.Content)

	for _, tc := range choice.Message.ToolCalls {
		pr.ToolCalls = append(pr.ToolCalls, provider.ProviderToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: provider.ProviderFunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return pr
}

// ExtractContentString attempts to get a plain string from the message content.
// The content field in Chat Completions can be a string or nil.
func ExtractContentString(content any) string {
	if content == nil {
		return ""
	}
	switch v := content.(type) {
	case string:
		return v
	default:
		return ""
	}
}
