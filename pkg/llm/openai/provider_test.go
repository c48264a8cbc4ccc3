package openai

import (
	"ai-salesops-be/pkg/llm"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, body string, inspect func(chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if inspect != nil {
			inspect(req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatReturnsContent(t *testing.T) {
	srv := newServer(t, `{"choices":[{"message":{"content":"72"}}]}`, func(req chatRequest) {
		require.NotNil(t, req.Temperature)
		assert.Equal(t, 0.0, *req.Temperature)
		assert.Equal(t, "gpt-4", req.Model)
	})

	p := NewOpenAIProvider("sk-test", srv.URL+"/v1", "gpt-4", time.Second)
	got, err := p.Generate(context.Background(), "score", llm.WithTemperature(0))
	require.NoError(t, err)
	assert.Equal(t, "72", got)
}

func TestChatWithToolsParsesToolCall(t *testing.T) {
	body := `{"choices":[{"message":{"content":"","tool_calls":[{"id":"call_1","type":"function","function":{"name":"top_leads","arguments":"{\"n\":3}"}}]}}]}`
	srv := newServer(t, body, func(req chatRequest) {
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "function", req.Tools[0].Type)
		assert.Equal(t, "top_leads", req.Tools[0].Function.Name)
		assert.Equal(t, "auto", req.ToolChoice)
	})

	p := NewOpenAIProvider("sk-test", srv.URL+"/v1", "gpt-4", time.Second)
	got, err := p.ChatWithTools(context.Background(),
		[]llm.Message{{Role: llm.RoleUser, Content: "top 3 leads"}},
		[]llm.ToolDefinition{{Name: "top_leads", Description: "Get top leads", Parameters: map[string]any{"type": "object"}}},
	)
	require.NoError(t, err)
	require.True(t, got.IsToolCall())
	assert.Equal(t, "top_leads", got.ToolCall.Name)
	assert.Equal(t, 3.0, got.ToolCall.Arguments["n"])
}

func TestChatWithToolsFinalAnswer(t *testing.T) {
	srv := newServer(t, `{"choices":[{"message":{"content":"All good."}}]}`, func(req chatRequest) {
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "user", req.Messages[1].Role)
	})

	p := NewOpenAIProvider("sk-test", srv.URL+"/v1", "gpt-4", time.Second)
	got, err := p.ChatWithTools(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "how is the pipeline?"},
		{Role: llm.RoleTool, Name: "pipeline_summary", Content: "Total Leads: 2"},
	}, nil)
	require.NoError(t, err)
	assert.False(t, got.IsToolCall())
	assert.Equal(t, "All good.", got.Text)
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target error
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, llm.ErrRateLimited},
		{"no choices", http.StatusOK, `{"choices":[]}`, llm.ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewOpenAIProvider("", srv.URL, "gpt-4", time.Second)
			_, err := p.Generate(context.Background(), "x")
			assert.ErrorIs(t, err, tt.target)
		})
	}
}
