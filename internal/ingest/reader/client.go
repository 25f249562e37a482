package reader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/platform/config"
	"github.com/lueurxax/telegram-relay/internal/platform/worker"
)

const (
	dialogPageSize     = 100
	defaultPageSize    = 100
	maxFloodRetries    = 3
	floodWaitErrorType = "FLOOD_WAIT"
)

// API is the part of the Telegram client used for reading.
type API interface {
	MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
	ChannelsGetMessages(ctx context.Context, request *tg.ChannelsGetMessagesRequest) (tg.MessagesMessagesClass, error)
	MessagesGetMessages(ctx context.Context, id []tg.InputMessageClass) (tg.MessagesMessagesClass, error)
}

// Client is an authenticated user session bound to one connection.
type Client struct {
	api    API
	raw    *tg.Client
	cfg    *config.Config
	logger *zerolog.Logger

	mu    sync.Mutex
	index *peerIndex
}

func NewClient(raw *tg.Client, cfg *config.Config, logger *zerolog.Logger) *Client {
	return &Client{
		api:    raw,
		raw:    raw,
		cfg:    cfg,
		logger: logger,
	}
}

// Dialog is one entry of the channel listing.
type Dialog struct {
	ID    int64
	Title string
	Kind  PeerKind
}

// ListChannels returns channels, supergroups and groups in dialog order.
func (c *Client) ListChannels(ctx context.Context) ([]Dialog, error) {
	idx, err := c.peers(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Dialog, 0, len(idx.order))

	for _, id := range idx.order {
		p, ok := idx.chat(id)
		if !ok {
			continue
		}

		result = append(result, Dialog{ID: p.DialogID, Title: p.Title, Kind: p.Kind})
	}

	return result, nil
}

// peers loads the dialog list once per client.
func (c *Client) peers(ctx context.Context) (*peerIndex, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index != nil {
		return c.index, nil
	}

	idx := newPeerIndex()
	req := &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogPageSize,
	}

	for attempt := 0; ; {
		res, err := c.api.MessagesGetDialogs(ctx, req)
		if err != nil {
			if ferr := c.waitFlood(ctx, err, attempt, "dialogs"); ferr != nil {
				return nil, ferr
			}

			attempt++

			continue
		}

		attempt = 0

		page, last := dialogsPage(res)
		idx.addChats(page.chats)
		idx.addUsers(page.users)
		idx.addDialogs(page.dialogs)

		if last || len(page.dialogs) < dialogPageSize {
			break
		}

		if !page.nextOffset(idx, req) {
			break
		}

		if err := worker.Wait(ctx, c.cfg.ReaderRequestDelay); err != nil {
			return nil, err
		}
	}

	c.logger.Debug().Int("chats", len(idx.chats)).Int("users", len(idx.users)).Msg("Dialogs loaded")
	c.index = idx

	return idx, nil
}

type dialogs struct {
	dialogs  []tg.DialogClass
	messages []tg.MessageClass
	chats    []tg.ChatClass
	users    []tg.UserClass
}

func dialogsPage(res tg.MessagesDialogsClass) (dialogs, bool) {
	switch d := res.(type) {
	case *tg.MessagesDialogs:
		return dialogs{dialogs: d.Dialogs, messages: d.Messages, chats: d.Chats, users: d.Users}, true
	case *tg.MessagesDialogsSlice:
		return dialogs{dialogs: d.Dialogs, messages: d.Messages, chats: d.Chats, users: d.Users}, false
	default:
		return dialogs{}, true
	}
}

// nextOffset points req at the last dialog of the page.
func (d dialogs) nextOffset(idx *peerIndex, req *tg.MessagesGetDialogsRequest) bool {
	for i := len(d.dialogs) - 1; i >= 0; i-- {
		dialog, ok := d.dialogs[i].(*tg.Dialog)
		if !ok {
			continue
		}

		for _, m := range d.messages {
			msg, ok := m.(*tg.Message)
			if !ok || msg.ID != dialog.TopMessage || !samePeer(msg.PeerID, dialog.Peer) {
				continue
			}

			req.OffsetDate = msg.Date
			req.OffsetID = msg.ID
			req.OffsetPeer = idx.input(dialog.Peer)

			return true
		}
	}

	return false
}

// waitFlood sleeps through a FLOOD_WAIT and returns nil when the call may be retried.
func (c *Client) waitFlood(ctx context.Context, err error, attempt int, what string) error {
	floodErr, ok := tgerr.As(err)
	if !ok || floodErr.Type != floodWaitErrorType || attempt >= maxFloodRetries {
		return fmt.Errorf("failed to get %s: %w", what, err)
	}

	c.logger.Warn().Int("seconds", floodErr.Argument).Str("call", what).Msg("flood wait")

	return worker.Wait(ctx, time.Duration(floodErr.Argument)*time.Second)
}

func (c *Client) pageSize() int {
	if c.cfg.ReaderPageSize > 0 {
		return c.cfg.ReaderPageSize
	}

	return defaultPageSize
}

func historyMessages(res tg.MessagesMessagesClass) []tg.MessageClass {
	switch h := res.(type) {
	case *tg.MessagesMessages:
		return h.Messages
	case *tg.MessagesMessagesSlice:
		return h.Messages
	case *tg.MessagesChannelMessages:
		return h.Messages
	default:
		return nil
	}
}
