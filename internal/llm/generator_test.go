package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskwallet/duskwallet-api/internal/config"
)

// chatServer answers /chat/completions with content and records the last request body.
func chatServer(t *testing.T, content string, lastBody *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if lastBody != nil {
			lastBody.Store(body)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(provider, baseURL string) config.AIConfig {
	return config.AIConfig{
		Provider:    provider,
		APIKey:      "test-key",
		BaseURL:     baseURL + "/",
		Model:       "test-model",
		Temperature: 0.4,
	}
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var lastBody atomic.Value
	srv := chatServer(t, `{"summary":"ok"}`, &lastBody)

	gen, err := New(testConfig(config.AIProviderOpenAI, srv.URL))
	require.NoError(t, err)
	require.IsType(t, &OpenAIGenerator{}, gen)

	text, err := gen.Generate(context.Background(), "analyze this")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, text)

	var req map[string]any
	require.NoError(t, json.Unmarshal(lastBody.Load().([]byte), &req))
	assert.Equal(t, "test-model", req["model"])
	format, _ := req["response_format"].(map[string]any)
	assert.Equal(t, "json_object", format["type"])
}

func TestLangChainGenerator_Generate(t *testing.T) {
	var lastBody atomic.Value
	srv := chatServer(t, "```json\n{}\n```", &lastBody)

	gen, err := New(testConfig(config.AIProviderLangChain, srv.URL))
	require.NoError(t, err)
	require.IsType(t, &LangChainGenerator{}, gen)

	text, err := gen.Generate(context.Background(), "analyze this")
	require.NoError(t, err)
	assert.Equal(t, "```json\n{}\n```", text)
	assert.Contains(t, string(lastBody.Load().([]byte)), "analyze this")
}

func TestGenerator_EmptyResponse(t *testing.T) {
	srv := chatServer(t, "   ", nil)

	gen, err := New(testConfig(config.AIProviderOpenAI, srv.URL))
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNew_MissingKey(t *testing.T) {
	_, err := New(config.AIConfig{Provider: config.AIProviderOpenAI})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestUnavailable(t *testing.T) {
	boom := errors.New("boom")
	_, err := Unavailable(boom).Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, boom)
}
