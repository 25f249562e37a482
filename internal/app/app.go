// Package app wires configuration, storage, the semantic service and Telegram
// clients into the pipeline and exposes one method per command.
//
// Commands that talk to Telegram as a user run inside a single MTProto session:
//   - download: collect new messages
//   - send: relay unique messages, forwarding originals when possible
//   - run: download, analyze and send in one session
//   - loop: run on a fixed interval
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/core/llm"
	"github.com/lueurxax/telegram-relay/internal/ingest/reader"
	"github.com/lueurxax/telegram-relay/internal/output/relay"
	"github.com/lueurxax/telegram-relay/internal/platform/config"
	"github.com/lueurxax/telegram-relay/internal/platform/observability"
	"github.com/lueurxax/telegram-relay/internal/platform/worker"
	"github.com/lueurxax/telegram-relay/internal/process/judge"
	"github.com/lueurxax/telegram-relay/internal/process/pipeline"
	"github.com/lueurxax/telegram-relay/internal/storage"
)

const (
	loopWorkerName  = "relay"
	logFieldBaseURL = "base_url"
)

// App holds the application dependencies and provides methods to run different commands.
type App struct {
	cfg    *config.Config
	store  storage.Store
	logger *zerolog.Logger
}

func New(cfg *config.Config, store storage.Store, logger *zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// StartHealthServer serves /healthz, /readyz (store ping) and /metrics until ctx is done.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.store, a.cfg.HealthPort, a.logger).Start(ctx)
}

// Download collects new messages and writes new_messages.
func (a *App) Download(ctx context.Context) error {
	if err := a.cfg.ValidateReader(); err != nil {
		return err
	}

	return a.session(ctx, func(ctx context.Context, client *reader.Client) error {
		_, err := a.newPipeline(client, nil).Download(ctx)
		return err
	})
}

// Analyze runs the informative and unique stages over the stored new_messages.
func (a *App) Analyze(ctx context.Context) error {
	_, err := a.newPipeline(nil, nil).Analyze(ctx)
	return err
}

// Send relays the stored unique_messages.
func (a *App) Send(ctx context.Context) error {
	if err := a.cfg.ValidateSender(); err != nil {
		return err
	}

	bot, err := a.newBot()
	if err != nil {
		return err
	}

	if !a.userSessionConfigured() {
		_, err := a.newPipeline(nil, a.newRelay(ctx, bot, nil)).Send(ctx)
		return err
	}

	return a.session(ctx, func(ctx context.Context, client *reader.Client) error {
		_, err := a.newPipeline(nil, a.newRelay(ctx, bot, client)).Send(ctx)
		return err
	})
}

// Run executes every stage once inside one Telegram session.
func (a *App) Run(ctx context.Context) error {
	if err := a.cfg.ValidateReader(); err != nil {
		return err
	}

	if err := a.cfg.ValidateSender(); err != nil {
		return err
	}

	bot, err := a.newBot()
	if err != nil {
		return err
	}

	return a.session(ctx, func(ctx context.Context, client *reader.Client) error {
		return a.newPipeline(client, a.newRelay(ctx, bot, client)).Run(ctx)
	})
}

// Loop runs every RUN_INTERVAL until ctx is canceled. Failed runs are logged and retried
// on the next tick.
func (a *App) Loop(ctx context.Context) error {
	return worker.Loop(ctx, worker.Config{
		Name:     loopWorkerName,
		Interval: a.cfg.RunInterval,
		Process:  a.Run,
		Logger:   a.logger,
	})
}

// Channels lists the dialogs the user account can read.
func (a *App) Channels(ctx context.Context) ([]reader.Dialog, error) {
	if err := a.cfg.ValidateSession(); err != nil {
		return nil, err
	}

	var dialogs []reader.Dialog

	err := a.session(ctx, func(ctx context.Context, client *reader.Client) error {
		var err error

		dialogs, err = client.ListChannels(ctx)

		return err
	})

	return dialogs, err
}

func (a *App) session(ctx context.Context, fn func(ctx context.Context, client *reader.Client) error) error {
	return reader.NewSession(a.cfg, a.logger).Run(ctx, fn)
}

func (a *App) userSessionConfigured() bool {
	return a.cfg.ValidateSession() == nil
}

func (a *App) newPipeline(collector pipeline.Collector, sender pipeline.Relay) *pipeline.Pipeline {
	return pipeline.New(pipeline.Config{
		SimilarityThreshold: a.cfg.SimilarityThreshold,
		MaxLookback:         a.cfg.ReaderMaxLookback,
	}, a.store, a.newClassifier(), collector, sender, a.logger)
}

func (a *App) newClassifier() *judge.Classifier {
	var completer llm.Completer

	if a.cfg.LLMEnabled {
		registry := llm.NewFromConfig(a.cfg, a.logger)
		completer = registry

		a.logger.Info().
			Str("provider", a.cfg.LLMProvider).
			Str(logFieldBaseURL, a.cfg.LLMBaseURL).
			Int("providers", registry.ProviderCount()).
			Msg("Semantic service enabled")

		for _, st := range registry.GetProviderStatuses() {
			a.logger.Debug().
				Str("provider", string(st.Name)).
				Int("priority", st.Priority).
				Bool("available", st.Available).
				Msg("LLM provider registered")
		}
	}

	return judge.New(judge.Config{
		Enabled:                 a.cfg.LLMEnabled,
		MaxBatchSize:            a.cfg.JudgeMaxBatchSize,
		Concurrency:             a.cfg.JudgeConcurrency,
		Model:                   a.cfg.LLMModel,
		Temperature:             a.cfg.LLMTemperature,
		UniqueSystemPrompt:      a.cfg.UniqueSystemPrompt,
		InformativeSystemPrompt: a.cfg.InformativeSystemPrompt,
		InformativeCriteria:     a.cfg.InformativeCriteria,
	}, completer, judge.NewIntervalGate(a.cfg.JudgeRequestDelay), a.logger)
}

func (a *App) newBot() (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(a.cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("bot initialization failed: %w", err)
	}

	a.logger.Info().Str("bot", bot.Self.UserName).Msg("Bot API ready")

	return bot, nil
}

// newRelay attaches the user-session routes that are enabled and available.
func (a *App) newRelay(ctx context.Context, bot relay.BotAPI, client *reader.Client) *relay.Sender {
	var (
		forwarder relay.Forwarder
		media     relay.MediaFetcher
	)

	if client != nil && a.cfg.DirectForward {
		f, err := client.Forwarder(ctx, a.cfg.TargetUserID)
		if err != nil {
			a.logger.Warn().Err(err).Msg("Direct forward unavailable, using Bot API")
		} else {
			forwarder = f
		}
	}

	if client != nil && a.cfg.MediaEnabled {
		media = client
	}

	return relay.New(relay.Config{
		TargetUserID: a.cfg.TargetUserID,
		MediaEnabled: a.cfg.MediaEnabled,
		SendDelay:    a.cfg.SendDelay,
		MaxLength:    a.cfg.MessageMaxLength,
	}, bot, forwarder, media, a.logger)
}
