// Package reader talks to Telegram as a user account: it collects channel history,
// lists dialogs, downloads media and forwards originals.
package reader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/platform/config"
)

// Session owns the MTProto connection and its authorization.
type Session struct {
	cfg    *config.Config
	logger *zerolog.Logger
	in     *bufio.Reader
	out    io.Writer
}

func NewSession(cfg *config.Config, logger *zerolog.Logger) *Session {
	return &Session{
		cfg:    cfg,
		logger: logger,
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Run connects, authenticates when needed and calls fn with a ready client.
// The connection is closed when fn returns.
func (s *Session) Run(ctx context.Context, fn func(ctx context.Context, client *Client) error) error {
	tc := telegram.NewClient(s.cfg.TGAPIID, s.cfg.TGAPIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: s.cfg.TGSessionPath,
		},
	})

	err := tc.Run(ctx, func(ctx context.Context) error {
		if err := tc.Auth().IfNecessary(ctx, s.authFlow()); err != nil {
			return fmt.Errorf("telegram auth: %w", err)
		}

		s.logger.Info().Msg("Successfully authenticated as user")

		return fn(ctx, NewClient(tg.NewClient(tc), s.cfg, s.logger))
	})
	if err != nil {
		return fmt.Errorf("telegram session: %w", err)
	}

	return nil
}
