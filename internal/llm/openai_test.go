package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompleteReturnsContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		require.Len(t, req.Tools, 1)
		require.Equal(t, "web_search", req.Tools[0].Function.Name)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "the answer"}},
			},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL+"/v1", "secret", "test-model")
	completion, err := client.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "You are MELCHIOR."},
			{Role: RoleUser, Content: "question"},
		},
		Tools:       []ToolSpec{{Name: "web_search", Description: "Search the web."}},
		Temperature: 0.5,
	})
	require.NoError(t, err)
	require.Equal(t, "the answer", completion.Content)
	require.Empty(t, completion.ToolCalls)
}

func TestCompleteSurfacesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{
						{
							"id":   "call-1",
							"type": "function",
							"function": map[string]any{
								"name":      "web_search",
								"arguments": `{"query":"policy X"}`,
							},
						},
					},
				}},
			},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "", "test-model")
	completion, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "question"}},
	})
	require.NoError(t, err)
	require.Len(t, completion.ToolCalls, 1)
	require.Equal(t, "web_search", completion.ToolCalls[0].Name)
	require.JSONEq(t, `{"query":"policy X"}`, completion.ToolCalls[0].Arguments)
}

func TestCompleteWrapsFailuresAsEndpointErrors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "upstream down"}})
		}))
		defer server.Close()

		client := NewOpenAIClient(server.URL, "", "test-model")
		_, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "q"}}})
		var endpointErr *EndpointError
		require.ErrorAs(t, err, &endpointErr)
		require.Contains(t, endpointErr.Error(), "upstream down")
	})

	t.Run("context deadline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Drain the body so the server's background read can detect the
			// client disconnect and cancel the request context.
			io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
		}))
		defer server.Close()

		client := NewOpenAIClient(server.URL, "", "test-model")
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := client.Complete(ctx, Request{Messages: []Message{{Role: RoleUser, Content: "q"}}})
		var endpointErr *EndpointError
		require.ErrorAs(t, err, &endpointErr)
		require.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("no choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		}))
		defer server.Close()

		client := NewOpenAIClient(server.URL, "", "test-model")
		_, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "q"}}})
		var endpointErr *EndpointError
		require.ErrorAs(t, err, &endpointErr)
	})
}
