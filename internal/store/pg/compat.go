package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/doorman/internal/domain/model"
	"github.com/dropDatabas3/doorman/internal/domain/repository"
	"github.com/dropDatabas3/doorman/internal/security/password"
	tokens "github.com/dropDatabas3/doorman/internal/security/token"
)

type compatRepo struct{ pool *pgxpool.Pool }

// CompatLogin verifica el password (la comparación argon2 corre acá, no en
// SQL) y persiste sesión compat y token en una sola transacción: si algo
// falla después del check no queda ninguna entidad a medias.
func (r compatRepo) CompatLogin(ctx context.Context, username, pass string, device model.Device, token, jti string, expiresAfter time.Duration) (*model.CompatAccessToken[int64], *model.CompatSession[int64], error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, mapErr(err)
	}
	defer tx.Rollback(ctx)

	var user model.User[int64]
	var hash string
	err = tx.QueryRow(ctx,
		`SELECT id, username, sub, password_hash FROM users WHERE username = $1`,
		username,
	).Scan(&user.Data, &user.Username, &user.Sub, &hash)
	switch mapErr(err) {
	case nil:
	case repository.ErrNotFound:
		// mismo error que password incorrecto: no filtrar existencia
		return nil, nil, repository.ErrLoginFailed
	default:
		return nil, nil, mapErr(err)
	}

	if !password.Verify(pass, hash) {
		return nil, nil, repository.ErrLoginFailed
	}

	sess := &model.CompatSession[int64]{User: user, Device: device}
	if err := tx.QueryRow(ctx, `
		INSERT INTO compat_sessions (user_id, device)
		VALUES ($1, $2)
		RETURNING id`,
		user.Data, device.String(),
	).Scan(&sess.Data); err != nil {
		return nil, nil, mapErr(err)
	}

	tok := &model.CompatAccessToken[int64]{JTI: jti, Token: token, ExpiresAfter: expiresAfter}
	if err := tx.QueryRow(ctx, `
		INSERT INTO compat_access_tokens (compat_session_id, jti, token_hash, expires_after_ms)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		sess.Data, jti, tokens.SHA256Base64URL(token), expiresAfter.Milliseconds(),
	).Scan(&tok.Data, &tok.CreatedAt); err != nil {
		return nil, nil, mapErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, mapErr(err)
	}
	return tok, sess, nil
}

func (r compatRepo) GetCompatAccessToken(ctx context.Context, token string) (*model.CompatAccessToken[int64], *model.CompatSession[int64], error) {
	var (
		tok       model.CompatAccessToken[int64]
		sess      model.CompatSession[int64]
		device    string
		expiresMs int64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT t.id, t.jti, t.expires_after_ms, t.created_at,
		       s.id, s.device,
		       u.id, u.username, u.sub
		  FROM compat_access_tokens t
		  JOIN compat_sessions s ON s.id = t.compat_session_id
		  JOIN users u ON u.id = s.user_id
		 WHERE t.token_hash = $1`,
		tokens.SHA256Base64URL(token),
	).Scan(
		&tok.Data, &tok.JTI, &expiresMs, &tok.CreatedAt,
		&sess.Data, &device,
		&sess.User.Data, &sess.User.Username, &sess.User.Sub,
	)
	if err != nil {
		return nil, nil, mapErr(err)
	}
	tok.Token = token
	tok.ExpiresAfter = time.Duration(expiresMs) * time.Millisecond
	sess.Device = model.Device(device)
	return &tok, &sess, nil
}
