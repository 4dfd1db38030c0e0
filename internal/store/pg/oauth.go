package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/doorman/internal/domain/model"
	"github.com/dropDatabas3/doorman/internal/domain/repository"
	tokens "github.com/dropDatabas3/doorman/internal/security/token"
)

type oauthRepo struct{ pool *pgxpool.Pool }

func (r oauthRepo) CreateSession(ctx context.Context, client *model.Client[int64], browser *model.BrowserSession[int64], scope model.Scope) (*model.Session[int64], error) {
	var browserID *int64
	if browser != nil {
		id := browser.Data
		browserID = &id
	}
	var sessionID int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO oauth_sessions (client_id, browser_session_id, scope, grant_state)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		client.Data, browserID, scope.String(), repository.GrantRequested,
	).Scan(&sessionID)
	if err != nil {
		return nil, mapErr(err)
	}
	return r.loadSession(ctx, sessionID)
}

// loadSession arma la entidad completa: cliente, browser session opcional y
// su última autenticación (derivada del historial, no un puntero mutable).
func (r oauthRepo) loadSession(ctx context.Context, sessionID int64) (*model.Session[int64], error) {
	var (
		out       model.Session[int64]
		scope     string
		browserID *int64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT s.id, s.scope, s.browser_session_id, c.id, c.client_id
		  FROM oauth_sessions s
		  JOIN clients c ON c.id = s.client_id
		 WHERE s.id = $1`, sessionID,
	).Scan(&out.Data, &scope, &browserID, &out.Client.Data, &out.Client.ClientID)
	if err != nil {
		return nil, mapErr(err)
	}
	out.Scope = model.ParseScope(scope)

	if browserID != nil {
		bs := &model.BrowserSession[int64]{}
		err := r.pool.QueryRow(ctx, `
			SELECT b.id, b.created_at, u.id, u.username, u.sub
			  FROM browser_sessions b
			  JOIN users u ON u.id = b.user_id
			 WHERE b.id = $1`, *browserID,
		).Scan(&bs.Data, &bs.CreatedAt, &bs.User.Data, &bs.User.Username, &bs.User.Sub)
		if err != nil {
			return nil, mapErr(err)
		}

		var last model.Authentication[int64]
		err = r.pool.QueryRow(ctx, `
			SELECT id, created_at
			  FROM authentications
			 WHERE browser_session_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT 1`, *browserID,
		).Scan(&last.Data, &last.CreatedAt)
		switch mapErr(err) {
		case nil:
			bs.LastAuthentication = &last
		case repository.ErrNotFound:
			// sesión sin autenticaciones todavía
		default:
			return nil, mapErr(err)
		}
		out.BrowserSession = bs
	}
	return &out, nil
}

func (r oauthRepo) BindBrowserSession(ctx context.Context, session *model.Session[int64], browser *model.BrowserSession[int64]) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE oauth_sessions SET browser_session_id = $2 WHERE id = $1`,
		session.Data, browser.Data)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r oauthRepo) GetSessionState(ctx context.Context, session *model.Session[int64]) (repository.GrantState, error) {
	var state repository.GrantState
	err := r.pool.QueryRow(ctx,
		`SELECT grant_state FROM oauth_sessions WHERE id = $1`, session.Data,
	).Scan(&state)
	if err != nil {
		return "", mapErr(err)
	}
	return state, nil
}

func (r oauthRepo) SetSessionState(ctx context.Context, session *model.Session[int64], state repository.GrantState) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE oauth_sessions SET grant_state = $2 WHERE id = $1`,
		session.Data, state)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r oauthRepo) CreateAuthorizationCode(ctx context.Context, session *model.Session[int64], code model.AuthorizationCode[int64]) (*model.AuthorizationCode[int64], error) {
	out := code
	err := r.pool.QueryRow(ctx, `
		INSERT INTO oauth_authorization_codes
		    (session_id, code_hash, challenge_method, challenge, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		session.Data,
		tokens.SHA256Base64URL(code.Code),
		string(code.Pkce.ChallengeMethod),
		code.Pkce.Challenge,
		code.ExpiresAt,
	).Scan(&out.Data)
	if err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

// ConsumeAuthorizationCode es un update condicional: el WHERE sobre
// consumed_at hace que de N intentos concurrentes exactamente uno afecte la
// fila. El resto distingue consumido vs inexistente con un SELECT posterior.
func (r oauthRepo) ConsumeAuthorizationCode(ctx context.Context, code string, now time.Time) (*model.AuthorizationCode[int64], *model.Session[int64], error) {
	hash := tokens.SHA256Base64URL(code)

	var (
		rec       model.AuthorizationCode[int64]
		sessionID int64
		method    string
	)
	err := r.pool.QueryRow(ctx, `
		UPDATE oauth_authorization_codes
		   SET consumed_at = $2
		 WHERE code_hash = $1
		   AND consumed_at IS NULL
		RETURNING id, session_id, challenge_method, challenge, expires_at`,
		hash, now,
	).Scan(&rec.Data, &sessionID, &method, &rec.Pkce.Challenge, &rec.ExpiresAt)

	switch mapErr(err) {
	case nil:
	case repository.ErrNotFound:
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM oauth_authorization_codes WHERE code_hash = $1)`,
			hash,
		).Scan(&exists); err != nil {
			return nil, nil, mapErr(err)
		}
		if exists {
			return nil, nil, repository.ErrConsumed
		}
		return nil, nil, repository.ErrNotFound
	default:
		return nil, nil, mapErr(err)
	}

	rec.Code = code
	rec.Pkce.ChallengeMethod = model.CodeChallengeMethod(method)
	if !now.Before(rec.ExpiresAt) {
		// vencido: queda consumido igual, no hay reintento, y el grant
		// termina en expired
		if _, err := r.pool.Exec(ctx,
			`UPDATE oauth_sessions SET grant_state = $2 WHERE id = $1`,
			sessionID, repository.GrantExpired); err != nil {
			return nil, nil, mapErr(err)
		}
		return nil, nil, repository.ErrExpired
	}

	session, err := r.loadSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return &rec, session, nil
}

func (r oauthRepo) CreateAccessToken(ctx context.Context, session *model.Session[int64], jti, token string, expiresAfter time.Duration) (*model.AccessToken[int64], error) {
	out := &model.AccessToken[int64]{
		JTI:          jti,
		Token:        token,
		ExpiresAfter: expiresAfter,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO oauth_access_tokens (session_id, jti, token_hash, expires_after_ms)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		session.Data, jti, tokens.SHA256Base64URL(token), expiresAfter.Milliseconds(),
	).Scan(&out.Data, &out.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r oauthRepo) GetAccessToken(ctx context.Context, token string) (*model.AccessToken[int64], *model.Session[int64], error) {
	var (
		out       model.AccessToken[int64]
		sessionID int64
		expiresMs int64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, session_id, jti, expires_after_ms, created_at
		  FROM oauth_access_tokens
		 WHERE token_hash = $1`,
		tokens.SHA256Base64URL(token),
	).Scan(&out.Data, &sessionID, &out.JTI, &expiresMs, &out.CreatedAt)
	if err != nil {
		return nil, nil, mapErr(err)
	}
	out.Token = token
	out.ExpiresAfter = time.Duration(expiresMs) * time.Millisecond

	session, err := r.loadSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return &out, session, nil
}
