package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Cyclone1070/aide/internal/conversation"
	provider "github.com/Cyclone1070/aide/internal/provider/models"
)

// mockClient scripts the SDK surface for the provider.
type mockClient struct {
	generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	countFunc    func(ctx context.Context, model string, contents []*genai.Content) (*genai.CountTokensResponse, error)
}

func (m *mockClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.generateFunc(ctx, model, contents, config)
}

func (m *mockClient) CountTokens(ctx context.Context, model string, contents []*genai.Content) (*genai.CountTokensResponse, error) {
	return m.countFunc(ctx, model, contents)
}

func textCandidate(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: text}},
			},
		}},
	}
}

func TestToGeminiContents(t *testing.T) {
	history := []conversation.Message{
		{Role: conversation.RoleUser, Text: "read main.go"},
		{Role: conversation.RoleModel, ToolCall: &conversation.ToolCall{
			ID: "c1", Name: "read_file", Args: map[string]any{"path": "main.go"},
		}},
		{Role: conversation.RoleTool, ToolResult: &conversation.ToolResult{
			CallID: "c1", Name: "read_file", Content: "package main",
		}},
		{Role: conversation.RoleModel, Text: "it is a Go program"},
	}

	contents := toGeminiContents(history)
	require.Len(t, contents, 4)

	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "read main.go", contents[0].Parts[0].Text)

	assert.Equal(t, "model", contents[1].Role)
	require.NotNil(t, contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "read_file", contents[1].Parts[0].FunctionCall.Name)

	// Tool results travel as function-response parts on a user turn.
	assert.Equal(t, "user", contents[2].Role)
	require.NotNil(t, contents[2].Parts[0].FunctionResponse)
	assert.Equal(t, "package main", contents[2].Parts[0].FunctionResponse.Response["content"])

	assert.Equal(t, "model", contents[3].Role)
}

func TestToGeminiContentsToolError(t *testing.T) {
	history := []conversation.Message{
		{Role: conversation.RoleTool, ToolResult: &conversation.ToolResult{
			CallID: "c1", Name: "read_file", Error: "file not found",
		}},
	}
	contents := toGeminiContents(history)
	require.Len(t, contents, 1)
	assert.Equal(t, "Error: file not found", contents[0].Parts[0].FunctionResponse.Response["content"])
}

func TestToGeminiContentsSkipsEmptyMessages(t *testing.T) {
	contents := toGeminiContents([]conversation.Message{{Role: conversation.RoleUser}})
	assert.Empty(t, contents)
}

func TestFromGeminiResponseText(t *testing.T) {
	resp, err := fromGeminiResponse(textCandidate("hello"), "gemini-2.0-flash")
	require.NoError(t, err)
	assert.Equal(t, provider.ResponseTypeText, resp.Content.Type)
	assert.Equal(t, "hello", resp.Content.Text)
	assert.Equal(t, "gemini-2.0-flash", resp.Metadata.ModelUsed)
}

func TestFromGeminiResponseToolCall(t *testing.T) {
	raw := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: "model",
				Parts: []*genai.Part{{
					FunctionCall: &genai.FunctionCall{
						Name: "read_file",
						Args: map[string]any{"path": "main.go"},
					},
				}},
			},
		}},
	}

	resp, err := fromGeminiResponse(raw, "m")
	require.NoError(t, err)
	assert.Equal(t, provider.ResponseTypeToolCall, resp.Content.Type)
	require.Len(t, resp.Content.ToolCalls, 1)
	assert.Equal(t, "read_file", resp.Content.ToolCalls[0].Name)
	assert.NotEmpty(t, resp.Content.ToolCalls[0].ID, "calls get a minted ID since the API provides none")
}

func TestFromGeminiResponseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  *genai.GenerateContentResponse
	}{
		{"nil response", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"no content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}},
		{"empty parts", &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model"}}},
		}},
		{"nameless function call", &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{}}},
			}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromGeminiResponse(tt.raw, "m")
			var provErr *provider.ProviderError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, provider.ErrorCodeMalformedResponse, provErr.Code)
			assert.False(t, provErr.Retryable)
		})
	}
}

func TestMapGeminiError(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		wantCode  provider.ErrorCode
		retryable bool
	}{
		{"unauthorized", 401, provider.ErrorCodeAuth, false},
		{"forbidden", 403, provider.ErrorCodeAuth, false},
		{"rate limited", 429, provider.ErrorCodeRateLimit, true},
		{"bad request", 400, provider.ErrorCodeInvalidRequest, false},
		{"server error", 500, provider.ErrorCodeUnavailable, true},
		{"bad gateway", 502, provider.ErrorCodeUnavailable, true},
		{"unavailable", 503, provider.ErrorCodeUnavailable, true},
		{"other status", 418, provider.ErrorCodeNetwork, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapGeminiError(&genai.APIError{Code: tt.code, Message: tt.name})
			var provErr *provider.ProviderError
			require.ErrorAs(t, mapped, &provErr)
			assert.Equal(t, tt.wantCode, provErr.Code)
			assert.Equal(t, tt.retryable, provErr.Retryable)
		})
	}
}

func TestMapGeminiErrorGeneric(t *testing.T) {
	mapped := mapGeminiError(errors.New("connection refused"))
	var provErr *provider.ProviderError
	require.ErrorAs(t, mapped, &provErr)
	assert.Equal(t, provider.ErrorCodeNetwork, provErr.Code)
	assert.True(t, provErr.Retryable)
	assert.Nil(t, mapGeminiError(nil))
}

func TestProviderGenerate(t *testing.T) {
	client := &mockClient{
		generateFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			assert.Equal(t, "gemini-2.0-flash", model)
			require.NotNil(t, config.SystemInstruction)
			return textCandidate("answer"), nil
		},
	}
	p := New(client, "gemini-2.0-flash")

	resp, err := p.Generate(context.Background(), &provider.GenerateRequest{
		History:           []conversation.Message{{Role: conversation.RoleUser, Text: "q"}},
		SystemInstruction: "be terse",
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Content.Text)
}

func TestProviderCountTokens(t *testing.T) {
	client := &mockClient{
		countFunc: func(ctx context.Context, model string, contents []*genai.Content) (*genai.CountTokensResponse, error) {
			return &genai.CountTokensResponse{TotalTokens: 42}, nil
		},
	}
	p := New(client, "m")

	n, err := p.CountTokens(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Text: "q"}})
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestProviderSetModel(t *testing.T) {
	p := New(&mockClient{}, "a")
	require.NoError(t, p.SetModel("b"))
	assert.Equal(t, "b", p.GetModel())
}
