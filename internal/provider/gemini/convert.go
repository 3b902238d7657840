package gemini

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/Cyclone1070/aide/internal/conversation"
	provider "github.com/Cyclone1070/aide/internal/provider/models"
)

// toGeminiContents converts transcript messages to Gemini Content format.
func toGeminiContents(history []conversation.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		if content := messageToGeminiContent(msg); content != nil {
			contents = append(contents, content)
		}
	}
	return contents
}

// messageToGeminiContent converts a single message. Gemini has no tool
// role; results travel as function-response parts on a user turn.
func messageToGeminiContent(msg conversation.Message) *genai.Content {
	role := "user"
	if msg.Role == conversation.RoleModel {
		role = "model"
	}

	parts := make([]*genai.Part, 0, 1)

	if msg.Text != "" {
		parts = append(parts, genai.NewPartFromText(msg.Text))
	}

	if msg.ToolCall != nil {
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				Name: msg.ToolCall.Name,
				Args: msg.ToolCall.Args,
			},
		})
	}

	if msg.ToolResult != nil {
		result := msg.ToolResult
		responseContent := result.Content
		if result.Error != "" {
			responseContent = fmt.Sprintf("Error: %s", result.Error)
		}
		parts = append(parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				Name: result.Name,
				Response: map[string]any{
					"content": responseContent,
				},
			},
		})
	}

	if len(parts) == 0 {
		return nil
	}
	return &genai.Content{Role: role, Parts: parts}
}

// toGeminiConfig converts generation parameters, folding the system
// instruction into the dedicated slot.
func toGeminiConfig(config *provider.GenerateConfig, systemInstruction string) *genai.GenerateContentConfig {
	geminiConfig := &genai.GenerateContentConfig{
		SafetySettings: defaultSafetySettings(),
	}

	if systemInstruction != "" {
		geminiConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(systemInstruction)},
		}
	}

	if config == nil {
		return geminiConfig
	}

	if config.Temperature != nil {
		geminiConfig.Temperature = config.Temperature
	}
	if config.TopP != nil {
		geminiConfig.TopP = config.TopP
	}
	if config.TopK != nil {
		topK := float32(*config.TopK)
		geminiConfig.TopK = &topK
	}
	if config.MaxTokens != nil {
		geminiConfig.MaxOutputTokens = int32(*config.MaxTokens)
	}
	if len(config.StopSequences) > 0 {
		geminiConfig.StopSequences = config.StopSequences
	}

	return geminiConfig
}

func defaultSafetySettings() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdOff},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdOff},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdOff},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdOff},
	}
}

// toGeminiTools converts tool declarations to Gemini format.
func toGeminiTools(tools []provider.ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		fd := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if t.Parameters != nil {
			fd.Parameters = toGeminiSchema(t.Parameters)
		}
		declarations = append(declarations, fd)
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// toGeminiSchema converts a parameter schema to Gemini Schema.
func toGeminiSchema(params *provider.ParameterSchema) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}

	if params.Properties != nil {
		schema.Properties = make(map[string]*genai.Schema, len(params.Properties))
		for name, prop := range params.Properties {
			propSchema := &genai.Schema{
				Type:        toGeminiType(prop.Type),
				Description: prop.Description,
			}
			if len(prop.Enum) > 0 {
				propSchema.Enum = prop.Enum
			}
			if prop.Items != nil {
				propSchema.Items = &genai.Schema{
					Type:        toGeminiType(prop.Items.Type),
					Description: prop.Items.Description,
				}
			}
			schema.Properties[name] = propSchema
		}
	}

	if len(params.Required) > 0 {
		schema.Required = params.Required
	}

	return schema
}

func toGeminiType(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// fromGeminiResponse normalizes a Gemini response. A response that
// carries neither text nor a well-formed function call is rejected as
// malformed rather than passed through.
func fromGeminiResponse(resp *genai.GenerateContentResponse, modelUsed string) (*provider.GenerateResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeMalformedResponse,
			Message: "no candidates in response",
		}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeMalformedResponse,
			Message: fmt.Sprintf("candidate has no content (finish reason %q)", candidate.FinishReason),
		}
	}

	var (
		text      strings.Builder
		toolCalls []conversation.ToolCall
	)
	for _, part := range candidate.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			if part.FunctionCall.Name == "" {
				return nil, &provider.ProviderError{
					Code:    provider.ErrorCodeMalformedResponse,
					Message: "function call with empty name",
				}
			}
			toolCalls = append(toolCalls, conversation.ToolCall{
				// Gemini does not assign call IDs; mint one so results
				// can be correlated.
				ID:   uuid.NewString(),
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		case part.Text != "":
			text.WriteString(part.Text)
		}
	}

	metadata := buildMetadata(resp.UsageMetadata, modelUsed)

	if len(toolCalls) > 0 {
		return &provider.GenerateResponse{
			Content: provider.ResponseContent{
				Type:      provider.ResponseTypeToolCall,
				ToolCalls: toolCalls,
			},
			Metadata: metadata,
		}, nil
	}

	if text.Len() == 0 {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeMalformedResponse,
			Message: fmt.Sprintf("response carries neither text nor a tool call (finish reason %q)", candidate.FinishReason),
		}
	}

	return &provider.GenerateResponse{
		Content: provider.ResponseContent{
			Type: provider.ResponseTypeText,
			Text: text.String(),
		},
		Metadata: metadata,
	}, nil
}

func buildMetadata(usage *genai.GenerateContentResponseUsageMetadata, modelUsed string) provider.ResponseMetadata {
	metadata := provider.ResponseMetadata{ModelUsed: modelUsed}
	if usage != nil {
		metadata.PromptTokens = int(usage.PromptTokenCount)
		metadata.CompletionTokens = int(usage.CandidatesTokenCount)
		metadata.TotalTokens = int(usage.TotalTokenCount)
	}
	return metadata
}

// mapGeminiError classifies Gemini API failures for the resilience
// layer. Auth and invalid-request failures are terminal; rate limits
// and server errors are retryable.
func mapGeminiError(err error) error {
	if err == nil {
		return nil
	}

	if apiErr, ok := err.(genai.APIError); ok {
		return mapAPIError(&apiErr, err)
	}
	if apiErr, ok := err.(*genai.APIError); ok {
		return mapAPIError(apiErr, err)
	}

	return &provider.ProviderError{
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}

func mapAPIError(apiErr *genai.APIError, err error) error {
	switch apiErr.Code {
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
	case 400:
		return &provider.ProviderError{
			Code:       provider.ErrorCodeInvalidRequest,
			Message:    fmt.Sprintf("invalid request: %s", apiErr.Message),
			Underlying: err,
			Retryable:  false,
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
			Message:    fmt.Sprintf("API error: %s", apiErr.Message),
			Underlying: err,
			Retryable:  true,
		}
	}
}
