// Package pipeline sequences the stages of a relay run and hands documents between them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/platform/observability"
	"github.com/lueurxax/telegram-relay/internal/process/dedup"
	"github.com/lueurxax/telegram-relay/internal/storage"
)

// Classifier is the semantic judgment used by the informative and unique stages.
type Classifier interface {
	Enabled() bool
	Informative(ctx context.Context, messages []domain.CandidateMessage) []domain.CandidateMessage
	Unique(ctx context.Context, messages []domain.CandidateMessage) []domain.CandidateMessage
}

// Collector fetches messages posted after since, oldest first.
type Collector interface {
	Collect(ctx context.Context, since time.Time) ([]domain.CandidateMessage, error)
}

// Relay delivers messages and reports how many were sent.
type Relay interface {
	Send(ctx context.Context, messages []domain.CandidateMessage) (int, error)
}

// Config holds pipeline settings.
type Config struct {
	SimilarityThreshold float64
	MaxLookback         time.Duration
}

type Pipeline struct {
	cfg        Config
	store      storage.Store
	classifier Classifier
	collector  Collector
	relay      Relay
	logger     *zerolog.Logger
	now        func() time.Time
}

// New creates a pipeline. collector and relay may be nil for stages that do not need them.
func New(cfg Config, store storage.Store, classifier Classifier, collector Collector, relay Relay, logger *zerolog.Logger) *Pipeline {
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = dedup.DefaultThreshold
	}

	if cfg.MaxLookback <= 0 {
		cfg.MaxLookback = DefaultMaxLookback
	}

	return &Pipeline{
		cfg:        cfg,
		store:      store,
		classifier: classifier,
		collector:  collector,
		relay:      relay,
		logger:     logger,
		now:        time.Now,
	}
}

// Unique reduces informative messages to a set with no redundant coverage and persists it.
// The returned set is valid even when err reports a persistence failure.
func (p *Pipeline) Unique(ctx context.Context, messages []domain.CandidateMessage) ([]domain.CandidateMessage, error) {
	logger := p.stageLogger(StageUnique)

	collapsed := dedup.Collapse(messages, p.cfg.SimilarityThreshold, &logger)

	result := collapsed.Messages
	if p.classifier != nil && p.classifier.Enabled() {
		result = p.classifier.Unique(ctx, result)
	} else {
		logger.Warn().Msg("Semantic service disabled, returning near-duplicate collapse only")
	}

	result = domain.UniqueByKey(result)

	logger.Info().
		Int(LogFieldInput, len(messages)).
		Int("collapsed", len(collapsed.Messages)).
		Int(LogFieldOutput, len(result)).
		Msg("Uniqueness analysis completed")

	observability.StageMessages.WithLabelValues(StageUnique).Set(float64(len(result)))

	if err := p.save(ctx, domain.ArtifactUniqueMessages, result); err != nil {
		return result, err
	}

	return result, nil
}

// Informative keeps substantive messages and persists them.
func (p *Pipeline) Informative(ctx context.Context, messages []domain.CandidateMessage) ([]domain.CandidateMessage, error) {
	logger := p.stageLogger(StageInformative)

	result := messages
	if p.classifier != nil && p.classifier.Enabled() {
		result = p.classifier.Informative(ctx, messages)
	} else {
		logger.Warn().Msg("Semantic service disabled, skipping informativeness filter")
	}

	logger.Info().
		Int(LogFieldInput, len(messages)).
		Int(LogFieldOutput, len(result)).
		Msg("Informativeness filter completed")

	observability.StageMessages.WithLabelValues(StageInformative).Set(float64(len(result)))

	if err := p.save(ctx, domain.ArtifactInformativeMessages, result); err != nil {
		return result, err
	}

	return result, nil
}

// Download collects messages since the last run, archives them and writes new_messages.
func (p *Pipeline) Download(ctx context.Context) ([]domain.CandidateMessage, error) {
	if p.collector == nil {
		return nil, fmt.Errorf("%w: no collector configured", apperrors.ErrConfiguration)
	}

	logger := p.stageLogger(StageDownload)
	started := p.now()

	lastRun, err := p.store.LastRun(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read last run time, using lookback window")
	}

	since := SinceTime(lastRun, started, p.cfg.MaxLookback)
	logger.Info().Time(LogFieldSince, since).Msg("Collecting messages")

	messages, err := p.collector.Collect(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("collect messages: %w", err)
	}

	messages = dropOlder(messages, since, &logger)

	for i := range messages {
		messages[i] = messages[i].WithKind()

		observability.MessagesIngested.WithLabelValues(messages[i].ChannelName).Inc()

		if err := p.store.ArchiveMessage(ctx, messages[i]); err != nil {
			logger.Warn().Err(err).Str(LogFieldMsgID, messages[i].Key().String()).Msg("Failed to archive message")
		}
	}

	if err := p.store.SaveLastRun(ctx, started); err != nil {
		logger.Warn().Err(err).Msg("Failed to save last run time")
	}

	observability.StageMessages.WithLabelValues(StageDownload).Set(float64(len(messages)))
	logger.Info().Int(LogFieldCount, len(messages)).Msg("Download completed")

	if err := p.save(ctx, domain.ArtifactNewMessages, messages); err != nil {
		return messages, err
	}

	return messages, nil
}

// dropOlder removes messages dated before since. Undated messages are kept.
func dropOlder(messages []domain.CandidateMessage, since time.Time, logger *zerolog.Logger) []domain.CandidateMessage {
	kept := make([]domain.CandidateMessage, 0, len(messages))

	for _, m := range messages {
		if t := m.Time(); !t.IsZero() && t.Before(since) {
			logger.Debug().Str(LogFieldMsgID, m.Key().String()).Time(LogFieldSince, since).Msg("Skipping message older than since")
			continue
		}

		kept = append(kept, m)
	}

	return kept
}

// Analyze runs the informative and unique stages over the stored new_messages.
func (p *Pipeline) Analyze(ctx context.Context) ([]domain.CandidateMessage, error) {
	messages, err := p.load(ctx, domain.ArtifactNewMessages)
	if err != nil {
		return nil, err
	}

	return p.analyze(ctx, messages)
}

func (p *Pipeline) analyze(ctx context.Context, messages []domain.CandidateMessage) ([]domain.CandidateMessage, error) {
	informative, err := p.Informative(ctx, messages)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to persist informative messages")
	}

	return p.Unique(ctx, informative)
}

// Send relays the stored unique_messages. A missing or empty document is not an error.
func (p *Pipeline) Send(ctx context.Context) (int, error) {
	if p.relay == nil {
		return 0, fmt.Errorf("%w: no relay configured", apperrors.ErrConfiguration)
	}

	logger := p.stageLogger(StageSend)

	messages, err := p.load(ctx, domain.ArtifactUniqueMessages)
	if err != nil {
		return 0, err
	}

	if len(messages) == 0 {
		logger.Info().Msg("No unique messages to send")
		return 0, nil
	}

	sent, err := p.relay.Send(ctx, messages)

	observability.StageMessages.WithLabelValues(StageSend).Set(float64(sent))
	logger.Info().Int("sent", sent).Int("total", len(messages)).Msg("Send completed")

	if err != nil {
		return sent, fmt.Errorf("relay messages: %w", err)
	}

	return sent, nil
}

// Run executes download, informative, unique and send in order.
func (p *Pipeline) Run(ctx context.Context) error {
	started := p.now()

	messages, err := p.Download(ctx)
	if err != nil {
		return err
	}

	unique, err := p.analyze(ctx, messages)
	if err != nil {
		return err
	}

	sent := 0
	if len(unique) > 0 {
		if sent, err = p.Send(ctx); err != nil {
			return err
		}
	}

	observability.LastRunTimestamp.Set(float64(p.now().Unix()))

	p.logger.Info().
		Int("downloaded", len(messages)).
		Int("unique", len(unique)).
		Int("sent", sent).
		Dur("duration", p.now().Sub(started)).
		Msg("Run completed")

	return nil
}

// SinceTime returns the later of the last run and the lookback horizon.
func SinceTime(lastRun, now time.Time, lookback time.Duration) time.Time {
	horizon := now.Add(-lookback)
	if lastRun.After(horizon) {
		return lastRun
	}

	return horizon
}

// load returns an empty slice when the document does not exist.
func (p *Pipeline) load(ctx context.Context, name string) ([]domain.CandidateMessage, error) {
	doc, err := p.store.LoadDocument(ctx, name)
	if errors.Is(err, apperrors.ErrArtifactNotFound) {
		p.logger.Warn().Str("artifact", name).Msg("Artifact not found, nothing to do")
		return []domain.CandidateMessage{}, nil
	}

	if errors.Is(err, apperrors.ErrArtifactCorrupt) {
		p.logger.Error().Err(err).Str("artifact", name).Msg("Artifact unreadable, nothing to do")
		return []domain.CandidateMessage{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	for i := range doc.Messages {
		doc.Messages[i] = doc.Messages[i].WithKind()
	}

	return doc.Messages, nil
}

func (p *Pipeline) save(ctx context.Context, name string, messages []domain.CandidateMessage) error {
	if err := p.store.SaveDocument(ctx, name, domain.NewDocument(messages, p.now())); err != nil {
		return fmt.Errorf("persist %s: %w", name, err)
	}

	return nil
}

func (p *Pipeline) stageLogger(stage string) zerolog.Logger {
	return p.logger.With().
		Str(LogFieldStage, stage).
		Str(LogFieldCorrelationID, uuid.New().String()).
		Logger()
}
