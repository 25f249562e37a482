// Package storage persists hand-off documents, run state and archived messages.
//
// Two backends implement Store:
//   - FileStore: JSON files under DATA_DIR (default)
//   - DB: PostgreSQL via pgx, schema managed by goose
package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	"github.com/lueurxax/telegram-relay/internal/platform/config"
)

// Store is the durable hand-off between pipeline stages.
type Store interface {
	// LoadDocument returns apperrors.ErrArtifactNotFound when the document was never written.
	LoadDocument(ctx context.Context, name string) (domain.Document, error)
	SaveDocument(ctx context.Context, name string, doc domain.Document) error

	// LastRun returns the zero time when no run was recorded.
	LastRun(ctx context.Context) (time.Time, error)
	SaveLastRun(ctx context.Context, t time.Time) error

	// ArchiveMessage keeps a copy of every ingested message.
	ArchiveMessage(ctx context.Context, m domain.CandidateMessage) error

	Ping(ctx context.Context) error
	Close()
}

// Open returns the configured backend. The postgres backend is migrated before use.
func Open(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (Store, error) {
	switch cfg.ArtifactStore {
	case config.StorePostgres:
		db, err := NewWithOptions(ctx, cfg.PostgresDSN, DefaultPoolOptions(cfg.DBMaxConnections), logger)
		if err != nil {
			return nil, err
		}

		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}

		return db, nil
	default:
		fs, err := NewFileStore(cfg.DataDir, logger)
		if err != nil {
			return nil, err
		}

		return fs, nil
	}
}
