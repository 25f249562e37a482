// Package relay delivers messages to the target user through the Bot API,
// or by forwarding originals from the user account when that is available.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	"github.com/lueurxax/telegram-relay/internal/platform/observability"
	"github.com/lueurxax/telegram-relay/internal/platform/worker"
)

// ErrNoRoute indicates a message has nothing the available routes can deliver.
var ErrNoRoute = errors.New("no delivery route")

// ErrNothingDelivered indicates every message of a non-empty batch failed.
var ErrNothingDelivered = errors.New("no messages delivered")

// Delivery routes, used as metric labels.
const (
	RouteForward = "forward"
	RouteMedia   = "media"
	RouteText    = "text"
	RouteSkipped = "skipped"

	statusSuccess = "success"
	statusError   = "error"
)

// BotAPI is the part of the Bot API client used for delivery.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Forwarder forwards the original message with a link header.
type Forwarder interface {
	Forward(ctx context.Context, m domain.CandidateMessage) error
}

// MediaFetcher downloads the media of the original message.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, m domain.CandidateMessage) (*domain.MediaFile, error)
}

type Config struct {
	TargetUserID int64
	MediaEnabled bool
	SendDelay    time.Duration
	MaxLength    int
}

type Sender struct {
	cfg       Config
	bot       BotAPI
	forwarder Forwarder
	media     MediaFetcher
	logger    *zerolog.Logger
}

// New creates a sender. forwarder and media may be nil.
func New(cfg Config, bot BotAPI, forwarder Forwarder, media MediaFetcher, logger *zerolog.Logger) *Sender {
	if cfg.MaxLength <= 0 || cfg.MaxLength > telegramTextLimit {
		cfg.MaxLength = DefaultMaxLength
	}

	return &Sender{
		cfg:       cfg,
		bot:       bot,
		forwarder: forwarder,
		media:     media,
		logger:    logger,
	}
}

// Send delivers messages in order and returns how many were delivered.
// Failures of single messages are logged and do not stop the batch.
func (s *Sender) Send(ctx context.Context, messages []domain.CandidateMessage) (int, error) {
	sent := 0

	for i, raw := range messages {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		if i > 0 {
			if err := worker.Wait(ctx, s.cfg.SendDelay); err != nil {
				return sent, err
			}
		}

		m := raw.WithKind()
		route, err := s.deliver(ctx, m)

		logger := s.logger.With().Str("msg_id", m.Key().String()).Str("route", route).Logger()

		switch {
		case errors.Is(err, ErrNoRoute):
			observability.MessagesSent.WithLabelValues(route, statusError).Inc()
			logger.Warn().Str("kind", string(m.Kind)).Msg("Skipping message without a deliverable route")
		case err != nil:
			observability.MessagesSent.WithLabelValues(route, statusError).Inc()
			logger.Error().Err(err).Msg("Failed to deliver message")
		default:
			observability.MessagesSent.WithLabelValues(route, statusSuccess).Inc()
			logger.Info().Msg("Message delivered")

			sent++
		}
	}

	s.logger.Info().Int("sent", sent).Int("total", len(messages)).Msg("Delivery finished")

	if sent == 0 && len(messages) > 0 {
		return 0, fmt.Errorf("%w: 0 of %d", ErrNothingDelivered, len(messages))
	}

	return sent, nil
}

// deliver tries forward, then media, then text.
func (s *Sender) deliver(ctx context.Context, m domain.CandidateMessage) (string, error) {
	if s.forwarder != nil {
		err := s.forwarder.Forward(ctx, m)
		if err == nil {
			return RouteForward, nil
		}

		if ctx.Err() != nil {
			return RouteForward, err
		}

		s.logger.Warn().Err(err).Str("msg_id", m.Key().String()).Msg("Direct forward failed, falling back to Bot API")
	}

	header := Header(m)

	if m.Kind != domain.KindText && s.cfg.MediaEnabled && s.media != nil {
		err := s.sendMedia(ctx, m, header)
		if err == nil {
			return RouteMedia, nil
		}

		if !errors.Is(err, ErrNoRoute) {
			s.logger.Warn().Err(err).Str("msg_id", m.Key().String()).Msg("Media delivery failed, falling back to text")
		}
	}

	if strings.TrimSpace(m.Text) == "" {
		return RouteSkipped, ErrNoRoute
	}

	return RouteText, s.sendText(header, m.Text)
}

// sendText sends Markdown first and retries as plain text.
func (s *Sender) sendText(header, body string) error {
	msg := tgbotapi.NewMessage(s.cfg.TargetUserID, Truncate(header, body, s.cfg.MaxLength))
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := s.bot.Send(msg)
	if err == nil {
		return nil
	}

	s.logger.Warn().Err(err).Msg("Markdown send failed, retrying as plain text")

	msg.ParseMode = ""

	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send text: %w", err)
	}

	return nil
}

func (s *Sender) sendMedia(ctx context.Context, m domain.CandidateMessage, header string) error {
	file, err := s.media.FetchMedia(ctx, m)
	if err != nil {
		return err
	}

	if file == nil || len(file.Data) == 0 {
		return ErrNoRoute
	}

	caption := Caption(header + m.Text)

	if _, err := s.bot.Send(mediaConfig(s.cfg.TargetUserID, file, caption, tgbotapi.ModeMarkdown)); err == nil {
		return nil
	}

	if _, err := s.bot.Send(mediaConfig(s.cfg.TargetUserID, file, caption, "")); err != nil {
		return fmt.Errorf("send %s: %w", file.Type, err)
	}

	return nil
}

func mediaConfig(chatID int64, file *domain.MediaFile, caption, parseMode string) tgbotapi.Chattable {
	data := tgbotapi.FileBytes{Name: file.FileName, Bytes: file.Data}

	switch file.Type {
	case domain.MediaPhoto:
		c := tgbotapi.NewPhoto(chatID, data)
		c.Caption, c.ParseMode = caption, parseMode

		return c
	case domain.MediaVideo:
		c := tgbotapi.NewVideo(chatID, data)
		c.Caption, c.ParseMode = caption, parseMode

		return c
	case domain.MediaAudio:
		c := tgbotapi.NewAudio(chatID, data)
		c.Caption, c.ParseMode = caption, parseMode

		return c
	case domain.MediaAnimation:
		c := tgbotapi.NewAnimation(chatID, data)
		c.Caption, c.ParseMode = caption, parseMode

		return c
	default:
		c := tgbotapi.NewDocument(chatID, data)
		c.Caption, c.ParseMode = caption, parseMode

		return c
	}
}
