package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature float32 `json:"temperature"`
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "http://localhost:1234/v1", want: "http://localhost:1234/v1"},
		{in: "http://localhost:1234/v1/", want: "http://localhost:1234/v1"},
		{in: "http://localhost:1234/v1/chat/completions", want: "http://localhost:1234/v1"},
		{in: " http://host/v1/chat/completions/ ", want: "http://host/v1"},
	}

	for _, tt := range tests {
		if got := NormalizeBaseURL(tt.in); got != tt.want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var got chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Sure: [1, 3]"}}]}`))
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	p := NewOpenAIProvider(OpenAIConfig{
		BaseURL: srv.URL + "/v1/chat/completions",
		APIKey:  "lm-studio",
		Model:   "local-model",
		Timeout: 5 * time.Second,
	}, &logger)

	content, err := p.Complete(context.Background(), Request{System: "sys", User: "usr", Temperature: 0.4})
	require.NoError(t, err)
	assert.Equal(t, "Sure: [1, 3]", content)

	assert.Equal(t, "local-model", got.Model)
	assert.InDelta(t, 0.4, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "usr", got.Messages[1].Content)
}

func TestOpenAIProvider_ZeroTemperatureSent(t *testing.T) {
	var body map[string]json.RawMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"[1]"}}]}`))
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	p := NewOpenAIProvider(OpenAIConfig{BaseURL: srv.URL, Model: "m"}, &logger)

	_, err := p.Complete(context.Background(), Request{User: "x", Temperature: 0})
	require.NoError(t, err)

	raw, ok := body["temperature"]
	require.True(t, ok, "zero temperature must be sent explicitly")

	var temp float64
	require.NoError(t, json.Unmarshal(raw, &temp))
	assert.InDelta(t, 0, temp, 1e-6)
}

func TestOpenAIProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	p := NewOpenAIProvider(OpenAIConfig{BaseURL: srv.URL, Model: "m"}, &logger)

	_, err := p.Complete(context.Background(), Request{User: "x"})
	assert.ErrorIs(t, err, apperrors.ErrTransientExternal)
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	p := NewOpenAIProvider(OpenAIConfig{BaseURL: srv.URL, Model: "m"}, &logger)

	_, err := p.Complete(context.Background(), Request{User: "x"})
	assert.ErrorIs(t, err, apperrors.ErrEmptyResponse)
}
