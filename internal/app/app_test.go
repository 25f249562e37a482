package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/platform/config"
	"github.com/lueurxax/telegram-relay/internal/storage"
)

func newTestApp(t *testing.T) (*App, *storage.FileStore) {
	t.Helper()

	logger := zerolog.Nop()
	cfg := &config.Config{
		DataDir:             t.TempDir(),
		SimilarityThreshold: 0.9,
		JudgeMaxBatchSize:   30,
		JudgeConcurrency:    1,
		RunInterval:         time.Hour,
	}

	store, err := storage.NewFileStore(cfg.DataDir, &logger)
	require.NoError(t, err)

	return New(cfg, store, &logger), store
}

func TestApp_AnalyzeWithoutSemanticService(t *testing.T) {
	a, store := newTestApp(t)
	ctx := context.Background()

	input := []domain.CandidateMessage{
		{ID: 1, ChannelID: 10, ChannelName: "a", Text: "The central bank raised its key rate to 16 percent"},
		{ID: 2, ChannelID: 20, ChannelName: "b", Text: "The central bank raised its key rate to 16 percent, today!"},
		{ID: 3, ChannelID: 30, ChannelName: "c", Text: "Heavy snowfall closes mountain roads in the north"},
	}
	require.NoError(t, store.SaveDocument(ctx, domain.ArtifactNewMessages, domain.NewDocument(input, time.Now())))

	require.NoError(t, a.Analyze(ctx))

	informative, err := store.LoadDocument(ctx, domain.ArtifactInformativeMessages)
	require.NoError(t, err)
	assert.Len(t, informative.Messages, 3)

	unique, err := store.LoadDocument(ctx, domain.ArtifactUniqueMessages)
	require.NoError(t, err)
	require.Len(t, unique.Messages, 2)
	assert.Equal(t, int64(2), unique.Messages[0].ID)
	assert.Equal(t, int64(3), unique.Messages[1].ID)
}

func TestApp_AnalyzeWithoutInput(t *testing.T) {
	a, store := newTestApp(t)

	require.NoError(t, a.Analyze(context.Background()))

	unique, err := store.LoadDocument(context.Background(), domain.ArtifactUniqueMessages)
	require.NoError(t, err)
	assert.Empty(t, unique.Messages)
}

func TestApp_TelegramCommandsRequireCredentials(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	assert.ErrorIs(t, a.Download(ctx), apperrors.ErrConfiguration)
	assert.ErrorIs(t, a.Send(ctx), apperrors.ErrConfiguration)
	assert.ErrorIs(t, a.Run(ctx), apperrors.ErrConfiguration)

	_, err := a.Channels(ctx)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}
