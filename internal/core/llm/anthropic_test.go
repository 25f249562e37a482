package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

func TestAnthropicProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-haiku-4-5",` +
			`"content":[{"type":"text","text":" [2] "}],"stop_reason":"end_turn",` +
			`"usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	p := NewAnthropicProvider(AnthropicConfig{
		APIKey:  "key",
		Model:   "claude-haiku-4-5",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	}, &logger)

	content, err := p.Complete(context.Background(), Request{System: "sys", User: "usr"})
	require.NoError(t, err)
	assert.Equal(t, "[2]", content)
}

func TestAnthropicProvider_SingleAttempt(t *testing.T) {
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	p := NewAnthropicProvider(AnthropicConfig{APIKey: "key", Model: "m", BaseURL: srv.URL, Timeout: 5 * time.Second}, &logger)

	_, err := p.Complete(context.Background(), Request{User: "x"})
	assert.ErrorIs(t, err, apperrors.ErrTransientExternal)
	assert.Equal(t, int32(1), requests.Load(), "failed calls must not be retried")
}

func TestAnthropicProvider_Timeout(t *testing.T) {
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	p := NewAnthropicProvider(AnthropicConfig{APIKey: "key", Model: "m", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, &logger)

	start := time.Now()
	_, err := p.Complete(context.Background(), Request{User: "x"})

	assert.ErrorIs(t, err, apperrors.ErrTransientExternal)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), requests.Load())
}
