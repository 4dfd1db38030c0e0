package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/doorman/internal/domain/model"
	"github.com/dropDatabas3/doorman/internal/domain/repository"
)

type usersRepo struct{ pool *pgxpool.Pool }

func (r usersRepo) GetByUsername(ctx context.Context, username string) (*model.User[int64], error) {
	var u model.User[int64]
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, sub FROM users WHERE username = $1`, username,
	).Scan(&u.Data, &u.Username, &u.Sub)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r usersRepo) GetBySub(ctx context.Context, sub string) (*model.User[int64], error) {
	var u model.User[int64]
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, sub FROM users WHERE sub = $1`, sub,
	).Scan(&u.Data, &u.Username, &u.Sub)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r usersRepo) Create(ctx context.Context, username, passwordHash string) (*model.User[int64], error) {
	// el sub se emite acá y nunca se reutiliza (UNIQUE como respaldo)
	sub := uuid.NewString()
	var u model.User[int64]
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, sub, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, username, sub`,
		username, sub, passwordHash,
	).Scan(&u.Data, &u.Username, &u.Sub)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r usersRepo) GetEmails(ctx context.Context, user *model.User[int64]) ([]repository.Email, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT address, is_primary, added_at
		  FROM user_emails
		 WHERE user_id = $1
		 ORDER BY added_at, id`, user.Data)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.Email
	for rows.Next() {
		var e repository.Email
		if err := rows.Scan(&e.Address, &e.Primary, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r usersRepo) AddEmail(ctx context.Context, user *model.User[int64], address string) (repository.Email, error) {
	// la primera dirección del usuario queda primary
	var e repository.Email
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_emails (user_id, address, is_primary)
		VALUES ($1, $2, NOT EXISTS (SELECT 1 FROM user_emails WHERE user_id = $1))
		RETURNING address, is_primary, added_at`,
		user.Data, address,
	).Scan(&e.Address, &e.Primary, &e.AddedAt)
	if err != nil {
		return repository.Email{}, mapErr(err)
	}
	return e, nil
}

func (r usersRepo) RemoveEmail(ctx context.Context, user *model.User[int64], address string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM user_emails WHERE user_id = $1 AND address = $2`,
		user.Data, address)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r usersRepo) SetPrimaryEmail(ctx context.Context, user *model.User[int64], address string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE user_emails SET is_primary = TRUE WHERE user_id = $1 AND address = $2`,
		user.Data, address)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	if _, err := tx.Exec(ctx,
		`UPDATE user_emails SET is_primary = FALSE WHERE user_id = $1 AND address <> $2`,
		user.Data, address); err != nil {
		return mapErr(err)
	}
	return tx.Commit(ctx)
}

type browserRepo struct{ pool *pgxpool.Pool }

func (r browserRepo) Create(ctx context.Context, user *model.User[int64]) (*model.BrowserSession[int64], error) {
	out := &model.BrowserSession[int64]{User: *user}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO browser_sessions (user_id)
		VALUES ($1)
		RETURNING id, created_at`,
		user.Data,
	).Scan(&out.Data, &out.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r browserRepo) Authenticate(ctx context.Context, session *model.BrowserSession[int64]) (*model.Authentication[int64], error) {
	// historial append-only; el "last" es una vista derivada (ver loadSession)
	var a model.Authentication[int64]
	err := r.pool.QueryRow(ctx, `
		INSERT INTO authentications (browser_session_id)
		VALUES ($1)
		RETURNING id, created_at`,
		session.Data,
	).Scan(&a.Data, &a.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

type clientsRepo struct{ pool *pgxpool.Pool }

func (r clientsRepo) GetByClientID(ctx context.Context, clientID string) (*model.Client[int64], error) {
	var c model.Client[int64]
	err := r.pool.QueryRow(ctx,
		`SELECT id, client_id FROM clients WHERE client_id = $1`, clientID,
	).Scan(&c.Data, &c.ClientID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r clientsRepo) Create(ctx context.Context, clientID string) (*model.Client[int64], error) {
	var c model.Client[int64]
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (client_id)
		VALUES ($1)
		RETURNING id, client_id`,
		clientID,
	).Scan(&c.Data, &c.ClientID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}
