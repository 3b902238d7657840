package openaicompat

import (
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Cyclone1070/aide/internal/conversation"
	provider "github.com/Cyclone1070/aide/internal/provider/models"
)

// toChatRequest converts a generation request to the OpenAI wire format.
func toChatRequest(model string, req *provider.GenerateRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+1)

	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}

	for _, msg := range req.History {
		if converted, ok := toChatMessage(msg); ok {
			messages = append(messages, converted)
		}
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}

	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			chatReq.Temperature = *cfg.Temperature
		}
		if cfg.TopP != nil {
			chatReq.TopP = *cfg.TopP
		}
		if cfg.MaxTokens != nil {
			chatReq.MaxTokens = *cfg.MaxTokens
		}
		if len(cfg.StopSequences) > 0 {
			chatReq.Stop = cfg.StopSequences
		}
	}

	return chatReq
}

// toChatMessage converts one transcript message. Tool calls become
// assistant tool_calls entries; tool results become tool-role messages
// correlated by call ID.
func toChatMessage(msg conversation.Message) (openai.ChatCompletionMessage, bool) {
	switch {
	case msg.ToolCall != nil:
		return openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:   msg.ToolCall.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      msg.ToolCall.Name,
					Arguments: toArgumentsJSON(msg.ToolCall.Args),
				},
			}},
		}, true

	case msg.ToolResult != nil:
		content := msg.ToolResult.Content
		if msg.ToolResult.Error != "" {
			content = fmt.Sprintf("Error: %s", msg.ToolResult.Error)
		}
		return openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    content,
			ToolCallID: msg.ToolResult.CallID,
		}, true

	case msg.Text != "":
		role := openai.ChatMessageRoleUser
		if msg.Role == conversation.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		return openai.ChatCompletionMessage{Role: role, Content: msg.Text}, true

	default:
		return openai.ChatCompletionMessage{}, false
	}
}

func toArgumentsJSON(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// toOpenAITools converts tool declarations to the OpenAI format. The
// parameter schema marshals directly since it is JSON-schema shaped.
func toOpenAITools(tools []provider.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		fd := &openai.FunctionDefinition{
			Name:        t.Name,
			Description: t.Description,
		}
		if t.Parameters != nil {
			fd.Parameters = t.Parameters
		}
		result = append(result, openai.Tool{
			Type:     openai.ToolTypeFunction,
			Function: fd,
		})
	}
	return result
}

// fromChatResponse normalizes a chat-completion response. A choice with
// neither content nor a well-formed tool call is rejected as malformed.
func fromChatResponse(resp openai.ChatCompletionResponse, modelUsed string) (*provider.GenerateResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeMalformedResponse,
			Message: "no choices in response",
		}
	}

	choice := resp.Choices[0]
	metadata := provider.ResponseMetadata{
		ModelUsed:        modelUsed,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}

	if len(choice.Message.ToolCalls) > 0 {
		toolCalls := make([]conversation.ToolCall, 0, len(choice.Message.ToolCalls))
		for _, tc := range choice.Message.ToolCalls {
			if tc.Function.Name == "" {
				return nil, &provider.ProviderError{
					Code:    provider.ErrorCodeMalformedResponse,
					Message: "tool call with empty function name",
				}
			}
			args, err := parseArguments(tc.Function.Arguments)
			if err != nil {
				return nil, &provider.ProviderError{
					Code:       provider.ErrorCodeMalformedResponse,
					Message:    fmt.Sprintf("tool call %q has unparseable arguments", tc.Function.Name),
					Underlying: err,
				}
			}
			toolCalls = append(toolCalls, conversation.ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			})
		}
		return &provider.GenerateResponse{
			Content: provider.ResponseContent{
				Type:      provider.ResponseTypeToolCall,
				ToolCalls: toolCalls,
			},
			Metadata: metadata,
		}, nil
	}

	if choice.Message.Content == "" {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeMalformedResponse,
			Message: fmt.Sprintf("response carries neither text nor a tool call (finish reason %q)", choice.FinishReason),
		}
	}

	return &provider.GenerateResponse{
		Content: provider.ResponseContent{
			Type: provider.ResponseTypeText,
			Text: choice.Message.Content,
		},
		Metadata: metadata,
	}, nil
}

func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// mapOpenAIError classifies go-openai failures for the resilience
// layer. Auth and invalid-request failures are terminal; rate limits
// and server errors are retryable.
func mapOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return mapStatusCode(apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return mapStatusCode(reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return &provider.ProviderError{
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}

func mapStatusCode(status int, message string, err error) error {
	switch status {
	case 401, 403:
		return &provider.ProviderError{
			Code:       provider.ErrorCodeAuth,
			Message:    "authentication failed",
			Underlying: err,
			Retryable:  false,
		}
	case 429:
		return &provider.ProviderError{
			Code:       provider.ErrorCodeRateLimit,
			Message:    "rate limit exceeded",
			Underlying: err,
			Retryable:  true,
		}
	case 400, 404, 422:
		return &provider.ProviderError{
			Code:       provider.ErrorCodeInvalidRequest,
			Message:    fmt.Sprintf("invalid request: %s", message),
			Underlying: err,
			Retryable:  false,
		}
	case 408:
		return &provider.ProviderError{
			Code:       provider.ErrorCodeTimeout,
			Message:    "request timeout",
			Underlying: err,
			Retryable:  true,
		}
	case 500, 502, 503, 504:
		return &provider.ProviderError{
			Code:       provider.ErrorCodeUnavailable,
			Message:    "service unavailable",
			Underlying: err,
			Retryable:  true,
		}
	default:
		return &provider.ProviderError{
			Code:       provider.ErrorCodeNetwork,
			Message:    fmt.Sprintf("API error: %s", message),
			Underlying: err,
			Retryable:  true,
		}
	}
}
