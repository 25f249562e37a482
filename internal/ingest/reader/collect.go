package reader

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/platform/worker"
)

// Collect fetches text messages posted at or after since from every configured channel.
// Messages of one channel are oldest first; channels follow the configured order.
func (c *Client) Collect(ctx context.Context, since time.Time) ([]domain.CandidateMessage, error) {
	idx, err := c.peers(ctx)
	if err != nil {
		return nil, err
	}

	var (
		result   []domain.CandidateMessage
		resolved int
	)

	for _, id := range c.cfg.ChannelIDs {
		peer, ok := idx.chat(domain.BareChannelID(id))
		if !ok {
			c.logger.Error().Int64("channel_id", id).Msg("Channel not found among dialogs")
			continue
		}

		resolved++

		messages, err := c.history(ctx, peer, since)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			c.logger.Error().Err(err).Str("channel", peer.Title).Msg("failed to fetch messages for channel")

			continue
		}

		c.logger.Info().Str("channel", peer.Title).Int("count", len(messages)).Msg("Fetched messages for channel")

		result = append(result, messages...)
	}

	if resolved == 0 && len(c.cfg.ChannelIDs) > 0 {
		return nil, fmt.Errorf("%w: none of %d configured channels is accessible", apperrors.ErrChannelNotFound, len(c.cfg.ChannelIDs))
	}

	return result, nil
}

// history pages backwards from the newest message until it passes since.
func (c *Client) history(ctx context.Context, peer Peer, since time.Time) ([]domain.CandidateMessage, error) {
	var collected []domain.CandidateMessage

	offsetID := 0

	for {
		messages, err := c.historyPage(ctx, peer, offsetID)
		if err != nil {
			return nil, err
		}

		page := filterPage(messages, peer, since)
		collected = append(collected, page.messages...)

		if page.reachedSince || page.minID == 0 || len(messages) < c.pageSize() {
			break
		}

		offsetID = page.minID

		if err := worker.Wait(ctx, c.cfg.ReaderRequestDelay); err != nil {
			return nil, err
		}
	}

	slices.Reverse(collected)

	return collected, nil
}

func (c *Client) historyPage(ctx context.Context, peer Peer, offsetID int) ([]tg.MessageClass, error) {
	req := &tg.MessagesGetHistoryRequest{
		Peer:     peer.Input,
		OffsetID: offsetID,
		Limit:    c.pageSize(),
	}

	for attempt := 0; ; attempt++ {
		res, err := c.api.MessagesGetHistory(ctx, req)
		if err == nil {
			return historyMessages(res), nil
		}

		if ferr := c.waitFlood(ctx, err, attempt, "history"); ferr != nil {
			return nil, ferr
		}
	}
}

type historyPage struct {
	messages     []domain.CandidateMessage
	minID        int
	reachedSince bool
}

// filterPage converts one newest-first history page, stopping at the first message older than since.
func filterPage(messages []tg.MessageClass, peer Peer, since time.Time) historyPage {
	var page historyPage

	cutoff := since.Unix()

	for _, m := range messages {
		msg, ok := m.(*tg.Message)
		if !ok {
			if id := m.GetID(); id > 0 && (page.minID == 0 || id < page.minID) {
				page.minID = id
			}

			continue
		}

		if page.minID == 0 || msg.ID < page.minID {
			page.minID = msg.ID
		}

		if int64(msg.Date) < cutoff {
			page.reachedSince = true
			break
		}

		if strings.TrimSpace(msg.Message) == "" {
			continue
		}

		page.messages = append(page.messages, convertMessage(msg, peer))
	}

	return page
}

func convertMessage(msg *tg.Message, peer Peer) domain.CandidateMessage {
	hasMedia := msg.Media != nil
	if _, empty := msg.Media.(*tg.MessageMediaEmpty); empty {
		hasMedia = false
	}

	m := domain.CandidateMessage{
		ID:          int64(msg.ID),
		ChannelID:   peer.ID,
		ChannelName: peer.Title,
		Timestamp:   time.Unix(int64(msg.Date), 0).UTC().Format(time.RFC3339),
		Text:        msg.Message,
		HasMedia:    hasMedia,
	}

	return m.WithKind()
}
