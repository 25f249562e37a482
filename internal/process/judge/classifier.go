// Package judge asks the semantic service which messages to keep.
package judge

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	"github.com/lueurxax/telegram-relay/internal/core/llm"
	"github.com/lueurxax/telegram-relay/internal/platform/observability"
)

// Kind names a judgment task.
type Kind string

// Judgment kinds.
const (
	KindUnique      Kind = "unique"
	KindInformative Kind = "informative"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	logKeyKind        = "kind"
	logKeyBatch       = "batch"
	logKeyOffset      = "offset"
	logKeySize        = "size"
	logKeyLocalIndex  = "local_index"
	logKeyGlobalIndex = "global_index"
	logKeyMessageID   = "message_id"
	logKeyChannel     = "channel"
	logKeyReason      = "reason"
	logKeyAccepted    = "accepted"
	logKeyTotal       = "total"
)

// Config holds classifier settings.
type Config struct {
	Enabled                 bool
	MaxBatchSize            int
	Concurrency             int
	Model                   string
	Temperature             float32
	UniqueSystemPrompt      string
	InformativeSystemPrompt string
	InformativeCriteria     string
}

// Classifier runs batched judgments with fail-open recovery.
type Classifier struct {
	cfg       Config
	completer llm.Completer
	gate      Gate
	logger    *zerolog.Logger
}

// New creates a classifier. A nil gate never waits.
func New(cfg Config, completer llm.Completer, gate Gate, logger *zerolog.Logger) *Classifier {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	return &Classifier{
		cfg:       cfg,
		completer: completer,
		gate:      gate,
		logger:    logger,
	}
}

// Enabled reports whether the semantic service is in use.
func (c *Classifier) Enabled() bool {
	return c.cfg.Enabled && c.completer != nil
}

// Unique keeps the messages judged to carry information not covered by another one.
// Zero or one message is returned unchanged without a call.
func (c *Classifier) Unique(ctx context.Context, messages []domain.CandidateMessage) []domain.CandidateMessage {
	if !c.Enabled() || len(messages) <= 1 {
		return messages
	}

	return c.classify(ctx, KindUnique, messages)
}

// Informative keeps the messages judged to be substantive.
func (c *Classifier) Informative(ctx context.Context, messages []domain.CandidateMessage) []domain.CandidateMessage {
	if !c.Enabled() || len(messages) == 0 {
		return messages
	}

	return c.classify(ctx, KindInformative, messages)
}

// classify judges every batch and concatenates accepted items in batch order.
func (c *Classifier) classify(ctx context.Context, kind Kind, messages []domain.CandidateMessage) []domain.CandidateMessage {
	batches := Plan(messages, c.cfg.MaxBatchSize)
	slots := make([][]domain.CandidateMessage, len(batches))

	var g errgroup.Group

	g.SetLimit(c.cfg.Concurrency)

	for i, batch := range batches {
		g.Go(func() error {
			slots[i] = c.runBatch(ctx, kind, i, batch)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // batch runners never return errors

	result := make([]domain.CandidateMessage, 0, len(messages))
	for _, slot := range slots {
		result = append(result, slot...)
	}

	c.logger.Info().
		Str(logKeyKind, string(kind)).
		Int(logKeyAccepted, len(result)).
		Int(logKeyTotal, len(messages)).
		Msg("Judgment completed")

	return result
}

func (c *Classifier) runBatch(ctx context.Context, kind Kind, n int, batch Batch[domain.CandidateMessage]) []domain.CandidateMessage {
	outcome := c.judge(ctx, kind, batch.Items)

	if outcome.Failed() {
		observability.JudgeFailOpen.WithLabelValues(string(kind), string(outcome.Failure)).Inc()

		c.logger.Warn().
			Err(outcome.Err).
			Str(logKeyKind, string(kind)).
			Int(logKeyBatch, n).
			Int(logKeyOffset, batch.Offset).
			Int(logKeySize, batch.Len()).
			Str(logKeyReason, string(outcome.Failure)).
			Msg("Judgment failed, accepting whole batch")
	}

	accepted, indices := Accept(batch, outcome)
	if outcome.Failed() {
		return accepted
	}

	for i, m := range accepted {
		c.logger.Info().
			Str(logKeyKind, string(kind)).
			Int(logKeyLocalIndex, indices[i]).
			Int(logKeyGlobalIndex, batch.GlobalIndex(indices[i])).
			Int64(logKeyMessageID, m.ID).
			Str(logKeyChannel, m.ChannelName).
			Msg("Message accepted")
	}

	return accepted
}

// judge makes a single attempt for one batch and never returns an error.
func (c *Classifier) judge(ctx context.Context, kind Kind, items []domain.CandidateMessage) Outcome {
	if c.gate != nil {
		if err := c.gate.Wait(ctx); err != nil {
			return Outcome{Failure: FailureTransport, Err: err}
		}
	}

	req := llm.Request{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
	}

	switch kind {
	case KindInformative:
		req.System = orDefault(c.cfg.InformativeSystemPrompt, defaultInformativeSystemPrompt)
		req.User = buildInformativePrompt(items, orDefault(c.cfg.InformativeCriteria, DefaultInformativeCriteria))
	default:
		req.System = orDefault(c.cfg.UniqueSystemPrompt, defaultUniqueSystemPrompt)
		req.User = buildUniquePrompt(items)
	}

	start := time.Now()
	content, err := c.completer.Complete(ctx, req)

	status := statusSuccess
	if err != nil {
		status = statusError
	}

	observability.JudgeRequests.WithLabelValues(string(kind), status).Inc()

	c.logger.Debug().
		Str(logKeyKind, string(kind)).
		Int(logKeySize, len(items)).
		Dur("duration", time.Since(start)).
		Msg("Judgment call finished")

	return NewOutcome(content, err)
}
