package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/calvinalkan/rollcache/internal/config"
	"github.com/calvinalkan/rollcache/internal/logging"
	"github.com/calvinalkan/rollcache/internal/store"
	"github.com/calvinalkan/rollcache/pkg/rollcache"
)

// session is one open database with a cache over its products table.
type session struct {
	store *store.Store
	cache *rollcache.Cache[store.Product]
	log   *zap.Logger
}

func openSession(ctx context.Context, cfg config.Config, logOut io.Writer) (*session, error) {
	log, err := logging.New(cfg.LogLevel, logOut)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(ctx, cfg.DBPathAbs)
	if err != nil {
		return nil, err
	}

	c, err := rollcache.New[store.Product](ctx, s, rollcache.Options[store.Product]{
		PageSize:  cfg.PageSize,
		MaxWindow: cfg.MaxWindow,
		Logger:    log.Named("cache"),
	})
	if err != nil {
		_ = s.Close()

		return nil, fmt.Errorf("open cache: %w", err)
	}

	return &session{store: s, cache: c, log: log}, nil
}

func (s *session) Close() error {
	_ = s.log.Sync()

	return s.store.Close()
}

// flush writes pending edits and reloads the window so later reads see them.
func (s *session) flush(ctx context.Context) error {
	n := s.cache.PendingLen()

	err := s.cache.Flush(ctx)
	if err != nil {
		return err
	}

	s.log.Info("flushed", zap.Int("changes", n))

	return s.cache.Refresh(ctx)
}

// withSession opens a session for the duration of fn.
func withSession(ctx context.Context, cfg config.Config, logOut io.Writer, fn func(*session) error) error {
	s, err := openSession(ctx, cfg, logOut)
	if err != nil {
		return err
	}

	err = fn(s)

	return errors.Join(err, s.Close())
}
