// Package memory implementa store.DataAccessLayer con mapas en proceso.
// Referencia de backend: uuid.UUID. Pensado para tests y desarrollo local;
// las garantías atómicas del contrato se cumplen con un mutex global.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/doorman/internal/domain/model"
	"github.com/dropDatabas3/doorman/internal/domain/repository"
	"github.com/dropDatabas3/doorman/internal/security/password"
	tokens "github.com/dropDatabas3/doorman/internal/security/token"
	"github.com/dropDatabas3/doorman/internal/store"
)

type userRec struct {
	id           uuid.UUID
	username     string
	sub          string
	passwordHash string
	emails       []repository.Email
}

type browserRec struct {
	id        uuid.UUID
	userID    uuid.UUID
	createdAt time.Time
	lastAuth  *authRec
}

type authRec struct {
	id        uuid.UUID
	createdAt time.Time
}

type sessionRec struct {
	id        uuid.UUID
	clientID  uuid.UUID
	browserID *uuid.UUID
	scope     model.Scope
	state     repository.GrantState
}

type codeRec struct {
	id        uuid.UUID
	sessionID uuid.UUID
	code      string
	pkce      model.Pkce
	expiresAt time.Time
	consumed  bool
}

type tokenRec struct {
	id           uuid.UUID
	sessionID    uuid.UUID
	jti          string
	token        string
	expiresAfter time.Duration
	createdAt    time.Time
}

type compatSessionRec struct {
	id     uuid.UUID
	userID uuid.UUID
	device model.Device
}

type compatTokenRec struct {
	id           uuid.UUID
	sessionID    uuid.UUID
	jti          string
	token        string
	expiresAfter time.Duration
	createdAt    time.Time
}

// Store es el backend en memoria. Un solo mutex protege todo: alcanza para el
// contrato de consumo exactamente-una-vez y mantiene el adapter trivial.
type Store struct {
	mu sync.Mutex

	users       map[uuid.UUID]*userRec
	usersByName map[string]uuid.UUID
	usersBySub  map[string]uuid.UUID

	browserSessions map[uuid.UUID]*browserRec
	// historial append-only de autenticaciones por browser session
	authLog map[uuid.UUID][]*authRec

	clients     map[uuid.UUID]*struct{ clientID string }
	clientsByID map[string]uuid.UUID

	sessions map[uuid.UUID]*sessionRec
	// códigos y tokens indexados por hash del secreto
	codes        map[string]*codeRec
	accessTokens map[string]*tokenRec
	jtis         map[string]struct{}

	compatSessions map[uuid.UUID]*compatSessionRec
	compatTokens   map[string]*compatTokenRec

	now func() time.Time
}

// New crea un Store vacío.
func New() *Store {
	return &Store{
		users:           map[uuid.UUID]*userRec{},
		usersByName:     map[string]uuid.UUID{},
		usersBySub:      map[string]uuid.UUID{},
		browserSessions: map[uuid.UUID]*browserRec{},
		authLog:         map[uuid.UUID][]*authRec{},
		clients:         map[uuid.UUID]*struct{ clientID string }{},
		clientsByID:     map[string]uuid.UUID{},
		sessions:        map[uuid.UUID]*sessionRec{},
		codes:           map[string]*codeRec{},
		accessTokens:    map[string]*tokenRec{},
		jtis:            map[string]struct{}{},
		compatSessions:  map[uuid.UUID]*compatSessionRec{},
		compatTokens:    map[string]*compatTokenRec{},
		now:             time.Now,
	}
}

var _ store.DataAccessLayer[uuid.UUID] = (*Store)(nil)

func (s *Store) Users() repository.Users[uuid.UUID]                     { return usersRepo{s} }
func (s *Store) BrowserSessions() repository.BrowserSessions[uuid.UUID] { return browserRepo{s} }
func (s *Store) Clients() repository.Clients[uuid.UUID]                 { return clientsRepo{s} }
func (s *Store) OAuth() repository.OAuth[uuid.UUID]                     { return oauthRepo{s} }
func (s *Store) Compat() repository.Compat[uuid.UUID]                   { return compatRepo{s} }

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

// ── helpers de proyección (record → entidad) ─────────────────────────────

func (s *Store) userModel(r *userRec) *model.User[uuid.UUID] {
	return &model.User[uuid.UUID]{Data: r.id, Username: r.username, Sub: r.sub}
}

func (s *Store) browserModel(r *browserRec) *model.BrowserSession[uuid.UUID] {
	u := s.users[r.userID]
	bs := &model.BrowserSession[uuid.UUID]{
		Data:      r.id,
		User:      *s.userModel(u),
		CreatedAt: r.createdAt,
	}
	if r.lastAuth != nil {
		bs.LastAuthentication = &model.Authentication[uuid.UUID]{
			Data:      r.lastAuth.id,
			CreatedAt: r.lastAuth.createdAt,
		}
	}
	return bs
}

func (s *Store) sessionModel(r *sessionRec) *model.Session[uuid.UUID] {
	c := s.clients[r.clientID]
	out := &model.Session[uuid.UUID]{
		Data:   r.id,
		Client: model.Client[uuid.UUID]{Data: r.clientID, ClientID: c.clientID},
		Scope:  r.scope.Clone(),
	}
	if r.browserID != nil {
		if br, ok := s.browserSessions[*r.browserID]; ok {
			out.BrowserSession = s.browserModel(br)
		}
	}
	return out
}

// ── Users ────────────────────────────────────────────────────────────────

type usersRepo struct{ s *Store }

func (r usersRepo) GetByUsername(ctx context.Context, username string) (*model.User[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.usersByName[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.userModel(r.s.users[id]), nil
}

func (r usersRepo) GetBySub(ctx context.Context, sub string) (*model.User[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.usersBySub[sub]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.userModel(r.s.users[id]), nil
}

func (r usersRepo) Create(ctx context.Context, username, passwordHash string) (*model.User[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.usersByName[username]; dup {
		return nil, repository.ErrConflict
	}
	rec := &userRec{
		id:           uuid.New(),
		username:     username,
		sub:          uuid.NewString(),
		passwordHash: passwordHash,
	}
	r.s.users[rec.id] = rec
	r.s.usersByName[username] = rec.id
	r.s.usersBySub[rec.sub] = rec.id
	return r.s.userModel(rec), nil
}

func (r usersRepo) GetEmails(ctx context.Context, user *model.User[uuid.UUID]) ([]repository.Email, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.users[user.Data]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := make([]repository.Email, len(rec.emails))
	copy(out, rec.emails)
	return out, nil
}

func (r usersRepo) AddEmail(ctx context.Context, user *model.User[uuid.UUID], address string) (repository.Email, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.users[user.Data]
	if !ok {
		return repository.Email{}, repository.ErrNotFound
	}
	for _, e := range rec.emails {
		if e.Address == address {
			return repository.Email{}, repository.ErrConflict
		}
	}
	email := repository.Email{
		Address: address,
		Primary: len(rec.emails) == 0,
		AddedAt: r.s.now(),
	}
	rec.emails = append(rec.emails, email)
	return email, nil
}

func (r usersRepo) RemoveEmail(ctx context.Context, user *model.User[uuid.UUID], address string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.users[user.Data]
	if !ok {
		return repository.ErrNotFound
	}
	for i, e := range rec.emails {
		if e.Address == address {
			rec.emails = append(rec.emails[:i], rec.emails[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r usersRepo) SetPrimaryEmail(ctx context.Context, user *model.User[uuid.UUID], address string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.users[user.Data]
	if !ok {
		return repository.ErrNotFound
	}
	found := false
	for i := range rec.emails {
		if rec.emails[i].Address == address {
			found = true
			break
		}
	}
	if !found {
		return repository.ErrNotFound
	}
	for i := range rec.emails {
		rec.emails[i].Primary = rec.emails[i].Address == address
	}
	return nil
}

// ── BrowserSessions ──────────────────────────────────────────────────────

type browserRepo struct{ s *Store }

func (r browserRepo) Create(ctx context.Context, user *model.User[uuid.UUID]) (*model.BrowserSession[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.Data]; !ok {
		return nil, repository.ErrNotFound
	}
	rec := &browserRec{id: uuid.New(), userID: user.Data, createdAt: r.s.now()}
	r.s.browserSessions[rec.id] = rec
	return r.s.browserModel(rec), nil
}

func (r browserRepo) Authenticate(ctx context.Context, session *model.BrowserSession[uuid.UUID]) (*model.Authentication[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.browserSessions[session.Data]
	if !ok {
		return nil, repository.ErrNotFound
	}
	auth := &authRec{id: uuid.New(), createdAt: r.s.now()}
	r.s.authLog[rec.id] = append(r.s.authLog[rec.id], auth)
	rec.lastAuth = auth
	return &model.Authentication[uuid.UUID]{Data: auth.id, CreatedAt: auth.createdAt}, nil
}

// ── Clients ──────────────────────────────────────────────────────────────

type clientsRepo struct{ s *Store }

func (r clientsRepo) GetByClientID(ctx context.Context, clientID string) (*model.Client[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.clientsByID[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.Client[uuid.UUID]{Data: id, ClientID: clientID}, nil
}

func (r clientsRepo) Create(ctx context.Context, clientID string) (*model.Client[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.clientsByID[clientID]; dup {
		return nil, repository.ErrConflict
	}
	id := uuid.New()
	r.s.clients[id] = &struct{ clientID string }{clientID}
	r.s.clientsByID[clientID] = id
	return &model.Client[uuid.UUID]{Data: id, ClientID: clientID}, nil
}

// ── OAuth ────────────────────────────────────────────────────────────────

type oauthRepo struct{ s *Store }

func (r oauthRepo) CreateSession(ctx context.Context, client *model.Client[uuid.UUID], browser *model.BrowserSession[uuid.UUID], scope model.Scope) (*model.Session[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clients[client.Data]; !ok {
		return nil, repository.ErrNotFound
	}
	rec := &sessionRec{
		id:       uuid.New(),
		clientID: client.Data,
		scope:    scope.Clone(),
		state:    repository.GrantRequested,
	}
	if browser != nil {
		if _, ok := r.s.browserSessions[browser.Data]; !ok {
			return nil, repository.ErrNotFound
		}
		id := browser.Data
		rec.browserID = &id
	}
	r.s.sessions[rec.id] = rec
	return r.s.sessionModel(rec), nil
}

func (r oauthRepo) BindBrowserSession(ctx context.Context, session *model.Session[uuid.UUID], browser *model.BrowserSession[uuid.UUID]) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.sessions[session.Data]
	if !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.browserSessions[browser.Data]; !ok {
		return repository.ErrNotFound
	}
	id := browser.Data
	rec.browserID = &id
	return nil
}

func (r oauthRepo) GetSessionState(ctx context.Context, session *model.Session[uuid.UUID]) (repository.GrantState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.sessions[session.Data]
	if !ok {
		return "", repository.ErrNotFound
	}
	return rec.state, nil
}

func (r oauthRepo) SetSessionState(ctx context.Context, session *model.Session[uuid.UUID], state repository.GrantState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.sessions[session.Data]
	if !ok {
		return repository.ErrNotFound
	}
	rec.state = state
	return nil
}

func (r oauthRepo) CreateAuthorizationCode(ctx context.Context, session *model.Session[uuid.UUID], code model.AuthorizationCode[uuid.UUID]) (*model.AuthorizationCode[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[session.Data]; !ok {
		return nil, repository.ErrNotFound
	}
	key := tokens.SHA256Base64URL(code.Code)
	if _, dup := r.s.codes[key]; dup {
		return nil, repository.ErrConflict
	}
	rec := &codeRec{
		id:        uuid.New(),
		sessionID: session.Data,
		code:      code.Code,
		pkce:      code.Pkce,
		expiresAt: code.ExpiresAt,
	}
	r.s.codes[key] = rec
	out := code
	out.Data = rec.id
	return &out, nil
}

// ConsumeAuthorizationCode hace el check-and-mark-used bajo el mutex del
// store: el equivalente en memoria del update condicional de un backend SQL.
func (r oauthRepo) ConsumeAuthorizationCode(ctx context.Context, code string, now time.Time) (*model.AuthorizationCode[uuid.UUID], *model.Session[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.codes[tokens.SHA256Base64URL(code)]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	if rec.consumed {
		return nil, nil, repository.ErrConsumed
	}
	rec.consumed = true
	if !now.Before(rec.expiresAt) {
		if sess, ok := r.s.sessions[rec.sessionID]; ok {
			sess.state = repository.GrantExpired
		}
		return nil, nil, repository.ErrExpired
	}
	out := &model.AuthorizationCode[uuid.UUID]{
		Data:      rec.id,
		Code:      rec.code,
		Pkce:      rec.pkce,
		ExpiresAt: rec.expiresAt,
	}
	return out, r.s.sessionModel(r.s.sessions[rec.sessionID]), nil
}

func (r oauthRepo) CreateAccessToken(ctx context.Context, session *model.Session[uuid.UUID], jti, token string, expiresAfter time.Duration) (*model.AccessToken[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[session.Data]; !ok {
		return nil, repository.ErrNotFound
	}
	key := tokens.SHA256Base64URL(token)
	if _, dup := r.s.accessTokens[key]; dup {
		return nil, repository.ErrConflict
	}
	if _, dup := r.s.jtis[jti]; dup {
		return nil, repository.ErrConflict
	}
	rec := &tokenRec{
		id:           uuid.New(),
		sessionID:    session.Data,
		jti:          jti,
		token:        token,
		expiresAfter: expiresAfter,
		createdAt:    r.s.now(),
	}
	r.s.accessTokens[key] = rec
	r.s.jtis[jti] = struct{}{}
	return &model.AccessToken[uuid.UUID]{
		Data:         rec.id,
		JTI:          rec.jti,
		Token:        rec.token,
		ExpiresAfter: rec.expiresAfter,
		CreatedAt:    rec.createdAt,
	}, nil
}

func (r oauthRepo) GetAccessToken(ctx context.Context, token string) (*model.AccessToken[uuid.UUID], *model.Session[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.accessTokens[tokens.SHA256Base64URL(token)]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	out := &model.AccessToken[uuid.UUID]{
		Data:         rec.id,
		JTI:          rec.jti,
		Token:        rec.token,
		ExpiresAfter: rec.expiresAfter,
		CreatedAt:    rec.createdAt,
	}
	return out, r.s.sessionModel(r.s.sessions[rec.sessionID]), nil
}

// ── Compat ───────────────────────────────────────────────────────────────

type compatRepo struct{ s *Store }

func (r compatRepo) CompatLogin(ctx context.Context, username, pass string, device model.Device, token, jti string, expiresAfter time.Duration) (*model.CompatAccessToken[uuid.UUID], *model.CompatSession[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.usersByName[username]
	if !ok {
		return nil, nil, repository.ErrLoginFailed
	}
	user := r.s.users[id]
	if !password.Verify(pass, user.passwordHash) {
		return nil, nil, repository.ErrLoginFailed
	}

	key := tokens.SHA256Base64URL(token)
	if _, dup := r.s.compatTokens[key]; dup {
		return nil, nil, repository.ErrConflict
	}
	if _, dup := r.s.jtis[jti]; dup {
		return nil, nil, repository.ErrConflict
	}

	sess := &compatSessionRec{id: uuid.New(), userID: id, device: device}
	tok := &compatTokenRec{
		id:           uuid.New(),
		sessionID:    sess.id,
		jti:          jti,
		token:        token,
		expiresAfter: expiresAfter,
		createdAt:    r.s.now(),
	}
	r.s.compatSessions[sess.id] = sess
	r.s.compatTokens[key] = tok
	r.s.jtis[jti] = struct{}{}

	outTok := &model.CompatAccessToken[uuid.UUID]{
		Data:         tok.id,
		JTI:          tok.jti,
		Token:        tok.token,
		ExpiresAfter: tok.expiresAfter,
		CreatedAt:    tok.createdAt,
	}
	outSess := &model.CompatSession[uuid.UUID]{
		Data:   sess.id,
		User:   *r.s.userModel(user),
		Device: sess.device,
	}
	return outTok, outSess, nil
}

func (r compatRepo) GetCompatAccessToken(ctx context.Context, token string) (*model.CompatAccessToken[uuid.UUID], *model.CompatSession[uuid.UUID], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.compatTokens[tokens.SHA256Base64URL(token)]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	sess := r.s.compatSessions[rec.sessionID]
	user := r.s.users[sess.userID]
	outTok := &model.CompatAccessToken[uuid.UUID]{
		Data:         rec.id,
		JTI:          rec.jti,
		Token:        rec.token,
		ExpiresAfter: rec.expiresAfter,
		CreatedAt:    rec.createdAt,
	}
	outSess := &model.CompatSession[uuid.UUID]{
		Data:   sess.id,
		User:   *r.s.userModel(user),
		Device: sess.device,
	}
	return outTok, outSess, nil
}
