package judge

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	"github.com/lueurxax/telegram-relay/internal/core/llm"
)

// scriptedCompleter answers from a function and records requests.
type scriptedCompleter struct {
	mu       sync.Mutex
	requests []llm.Request
	reply    func(req llm.Request) (string, error)
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	return s.reply(req)
}

func (s *scriptedCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

func constant(content string, err error) *scriptedCompleter {
	return &scriptedCompleter{reply: func(llm.Request) (string, error) { return content, err }}
}

type countingGate struct {
	mu    sync.Mutex
	waits int
	err   error
}

func (g *countingGate) Wait(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.waits++

	return g.err
}

func messages(n int) []domain.CandidateMessage {
	out := make([]domain.CandidateMessage, n)
	for i := range out {
		out[i] = domain.CandidateMessage{ID: int64(i + 1), ChannelID: 100, ChannelName: "news", Text: "text"}
	}

	return out
}

func ids(msgs []domain.CandidateMessage) []int64 {
	out := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}

	return out
}

func newTestClassifier(cfg Config, completer llm.Completer, gate Gate) *Classifier {
	logger := zerolog.Nop()
	return New(cfg, completer, gate, &logger)
}

func TestClassifier_Unique(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		err     error
		input   int
		wantIDs []int64
	}{
		{name: "fail open on malformed response", reply: "not json at all", input: 3, wantIDs: []int64{1, 2, 3}},
		{name: "out of range dropped", reply: "[1, 5, 2]", input: 3, wantIDs: []int64{1, 2}},
		{name: "order follows response", reply: "Answer: [3, 1]", input: 3, wantIDs: []int64{3, 1}},
		{name: "duplicate indices", reply: "[2, 2]", input: 3, wantIDs: []int64{2}},
		{name: "transport error fails open", err: errors.New("timeout"), input: 3, wantIDs: []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := constant(tt.reply, tt.err)
			c := newTestClassifier(Config{Enabled: true, MaxBatchSize: 30}, completer, nil)

			got := c.Unique(context.Background(), messages(tt.input))

			assert.Equal(t, tt.wantIDs, ids(got))
			assert.Equal(t, 1, completer.calls())
		})
	}
}

func TestClassifier_ShortCircuit(t *testing.T) {
	for _, n := range []int{0, 1} {
		completer := constant("[]", nil)
		c := newTestClassifier(Config{Enabled: true}, completer, nil)

		input := messages(n)
		got := c.Unique(context.Background(), input)

		assert.Equal(t, input, got)
		assert.Zero(t, completer.calls(), "n=%d must not call the service", n)
	}
}

func TestClassifier_InformativeSingleMessageIsJudged(t *testing.T) {
	completer := constant("[]", nil)
	c := newTestClassifier(Config{Enabled: true}, completer, nil)

	got := c.Informative(context.Background(), messages(1))

	assert.Len(t, got, 1, "malformed reply fails open")
	assert.Equal(t, 1, completer.calls())
}

func TestClassifier_DisabledPassThrough(t *testing.T) {
	completer := constant("[1]", nil)
	c := newTestClassifier(Config{Enabled: false}, completer, nil)

	input := messages(5)

	assert.Equal(t, input, c.Unique(context.Background(), input))
	assert.Equal(t, input, c.Informative(context.Background(), input))
	assert.Zero(t, completer.calls())
}

func TestClassifier_BatchesConcatenateInOrder(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		// Each batch keeps its last message.
		completer := &scriptedCompleter{reply: func(req llm.Request) (string, error) {
			n := strings.Count(req.User, "Message #")
			return "[" + strconv.Itoa(n) + "]", nil
		}}
		gate := &countingGate{}

		c := newTestClassifier(Config{Enabled: true, MaxBatchSize: 3, Concurrency: concurrency}, completer, gate)

		got := c.Unique(context.Background(), messages(8))

		assert.Equal(t, []int64{3, 6, 8}, ids(got), "concurrency=%d", concurrency)
		assert.Equal(t, 3, completer.calls())
		assert.Equal(t, 3, gate.waits)
	}
}

func TestClassifier_OneFailedBatchDoesNotAbortOthers(t *testing.T) {
	var mu sync.Mutex

	call := 0
	completer := &scriptedCompleter{reply: func(llm.Request) (string, error) {
		mu.Lock()
		defer mu.Unlock()

		call++
		if call == 1 {
			return "", errors.New("boom")
		}

		return "[1]", nil
	}}

	c := newTestClassifier(Config{Enabled: true, MaxBatchSize: 2}, completer, nil)

	got := c.Unique(context.Background(), messages(4))

	assert.Equal(t, []int64{1, 2, 3}, ids(got))
}

func TestClassifier_GateErrorFailsOpen(t *testing.T) {
	completer := constant("[1]", nil)
	gate := &countingGate{err: context.Canceled}

	c := newTestClassifier(Config{Enabled: true}, completer, gate)

	got := c.Unique(context.Background(), messages(3))

	assert.Equal(t, []int64{1, 2, 3}, ids(got))
	assert.Zero(t, completer.calls())
}

func TestClassifier_Prompts(t *testing.T) {
	completer := constant("[1]", nil)
	c := newTestClassifier(Config{
		Enabled:             true,
		Model:               "local-model",
		Temperature:         0.4,
		InformativeCriteria: "Must mention a number.",
	}, completer, nil)

	input := []domain.CandidateMessage{
		{ID: 1, ChannelName: "alpha", Text: "first"},
		{ID: 2, ChannelName: "beta", Text: "second"},
	}

	c.Unique(context.Background(), input)
	c.Informative(context.Background(), input)

	require.Equal(t, 2, completer.calls())

	unique := completer.requests[0]
	assert.Equal(t, defaultUniqueSystemPrompt, unique.System)
	assert.Contains(t, unique.User, "Message #1 (Channel: alpha): first\n\nMessage #2 (Channel: beta): second")
	assert.Contains(t, unique.User, "ONLY ONE")
	assert.Equal(t, "local-model", unique.Model)
	assert.InDelta(t, 0.4, unique.Temperature, 1e-6)

	informative := completer.requests[1]
	assert.Equal(t, defaultInformativeSystemPrompt, informative.System)
	assert.Contains(t, informative.User, "Must mention a number.")
	assert.NotContains(t, informative.User, "job posting")
}

func TestRenderBatch(t *testing.T) {
	got := RenderBatch([]domain.CandidateMessage{{ChannelName: "c1", Text: "a"}, {ChannelName: "c2", Text: "b"}})
	assert.Equal(t, "Message #1 (Channel: c1): a\n\nMessage #2 (Channel: c2): b", got)
	assert.Empty(t, RenderBatch(nil))
}

func TestNewIntervalGate(t *testing.T) {
	g := NewIntervalGate(0)
	for i := 0; i < 5; i++ {
		require.NoError(t, g.Wait(context.Background()))
	}

	assert.True(t, NewIntervalGate(time.Second).Allow())
}
