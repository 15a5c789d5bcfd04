package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, srv *httptest.Server, timeout time.Duration) *OpenAILLM {
	t.Helper()
	llm, err := NewOpenAILLMFromConfig(&LLMSettings{
		Provider: "openai",
		Model:    "test-model",
		APIKey:   "sk-test",
		BaseURL:  srv.URL + "/v1/",
		Timeout:  timeout,
	}, nil)
	require.NoError(t, err)
	return llm
}

func chatCompletion(content ...string) map[string]any {
	choices := []map[string]any{}
	for i, c := range content {
		choices = append(choices, map[string]any{
			"index":         i,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": c},
		})
	}
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "test-model",
		"choices": choices,
	}
}

func TestOpenAILLM_Complete(t *testing.T) {
	var hits int32
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion("```json\n{}\n```"))
	}))
	defer srv.Close()

	reply, err := newTestOpenAI(t, srv, time.Second).Complete(context.Background(), Prompt{System: "system", User: "user"})
	require.NoError(t, err)

	assert.Equal(t, "```json\n{}\n```", reply)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "system", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "user", got.Messages[1].Content)
}

func TestOpenAILLM_StatusErrorIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	_, err := newTestOpenAI(t, srv, time.Second).Complete(context.Background(), Prompt{User: "x"})
	require.Error(t, err)

	var statusErr *BackendStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestOpenAILLM_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := newTestOpenAI(t, srv, 50*time.Millisecond).Complete(context.Background(), Prompt{User: "x"})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOpenAILLM_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion())
	}))
	defer srv.Close()

	_, err := newTestOpenAI(t, srv, time.Second).Complete(context.Background(), Prompt{User: "x"})
	assert.ErrorIs(t, err, ErrMalformedGeneration)
}

func TestNewOpenAILLMFromConfig_RequiresKeyAndModel(t *testing.T) {
	_, err := NewOpenAILLMFromConfig(&LLMSettings{Model: "m"}, nil)
	assert.Error(t, err)
	_, err = NewOpenAILLMFromConfig(&LLMSettings{APIKey: "k"}, nil)
	assert.Error(t, err)
	_, err = NewOpenAILLMFromConfig(nil, nil)
	assert.Error(t, err)
}
