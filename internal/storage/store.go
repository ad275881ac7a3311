// Package storage owns all Postgres access: users, chats, participants and
// messages. Multi-row mutations run inside a single transaction so a partial
// failure never leaves orphaned rows.
package storage

import (
	"context"

	"talkify-backend/internal/storage/zapadapter"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// Store defines fields used in db interaction processes
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
}

// New sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct
func New(ctx context.Context, logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	poolConfig.ConnConfig.Logger = zapadapter.New(logger.Desugar())

	for _, opt := range opts {
		opt.apply(poolConfig)
	}

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	return &Store{
		logger: logger,
		db:     pool,
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.db.Close()
}
