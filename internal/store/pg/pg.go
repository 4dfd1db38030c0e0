// Package pg implementa store.DataAccessLayer para PostgreSQL vía pgx.
// Referencia de backend: int64 (ids de fila). Los secretos (códigos, tokens)
// se guardan hasheados; el valor en claro nunca toca la base.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/doorman/internal/domain/repository"
	"github.com/dropDatabas3/doorman/internal/store"
)

// Store es el backend PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Options ajusta el pool. Valores en cero dejan los defaults de pgxpool.
type Options struct {
	MaxConns        int
	ConnMaxLifetime time.Duration
}

// New abre el pool y verifica la conexión.
func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.ConnMaxLifetime > 0 {
		cfg.MaxConnLifetime = opts.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

var _ store.DataAccessLayer[int64] = (*Store)(nil)

func (s *Store) Users() repository.Users[int64]                     { return usersRepo{s.pool} }
func (s *Store) BrowserSessions() repository.BrowserSessions[int64] { return browserRepo{s.pool} }
func (s *Store) Clients() repository.Clients[int64]                 { return clientsRepo{s.pool} }
func (s *Store) OAuth() repository.OAuth[int64]                     { return oauthRepo{s.pool} }
func (s *Store) Compat() repository.Compat[int64]                   { return compatRepo{s.pool} }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// mapErr traduce errores de pgx a los sentinel del dominio.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return repository.ErrConflict
	}
	return err
}
