package reader

import (
	"context"
	"fmt"
	"time"

	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/platform/worker"
)

const headerPause = 500 * time.Millisecond

// Forwarder forwards originals to the target user from the user account,
// each preceded by a link header.
type Forwarder struct {
	client *Client
	target tg.InputPeerClass
	sender *message.Sender
}

// Forwarder resolves the target user among the account's dialogs.
func (c *Client) Forwarder(ctx context.Context, targetUserID int64) (*Forwarder, error) {
	idx, err := c.peers(ctx)
	if err != nil {
		return nil, err
	}

	target, ok := idx.user(targetUserID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrTargetNotFound, targetUserID)
	}

	return &Forwarder{
		client: c,
		target: target.Input,
		sender: message.NewSender(c.raw),
	}, nil
}

// Forward sends the header, pauses briefly and forwards the original message.
func (f *Forwarder) Forward(ctx context.Context, m domain.CandidateMessage) error {
	idx, err := f.client.peers(ctx)
	if err != nil {
		return err
	}

	peer, ok := idx.chat(domain.BareChannelID(m.ChannelID))
	if !ok {
		return fmt.Errorf("%w: %d", apperrors.ErrChannelNotFound, m.ChannelID)
	}

	url := domain.MessageURL(m.ChannelID, m.ID)

	if _, err := f.sender.To(f.target).StyledText(ctx, styling.TextURL(m.ChannelName, url)); err != nil {
		f.client.logger.Warn().Err(err).Str("msg_id", m.Key().String()).Msg("Styled header failed, sending plain")

		if _, err := f.sender.To(f.target).Text(ctx, m.ChannelName+"\n"+url); err != nil {
			return fmt.Errorf("send header: %w", err)
		}
	}

	if err := worker.Wait(ctx, headerPause); err != nil {
		return err
	}

	if _, err := f.sender.To(f.target).ForwardIDs(peer.Input, int(m.ID)).Send(ctx); err != nil {
		return fmt.Errorf("forward %s: %w", m.Key(), err)
	}

	return nil
}
