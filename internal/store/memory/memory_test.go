package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/doorman/internal/domain/model"
	"github.com/dropDatabas3/doorman/internal/domain/repository"
	"github.com/dropDatabas3/doorman/internal/security/password"
	tokens "github.com/dropDatabas3/doorman/internal/security/token"
)

var testHashParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func seedUser(t *testing.T, s *Store, username, pass string) *model.User[uuid.UUID] {
	t.Helper()
	hash, err := password.Hash(testHashParams, pass)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := s.Users().Create(context.Background(), username, hash)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func seedGrant(t *testing.T, s *Store) *model.Session[uuid.UUID] {
	t.Helper()
	ctx := context.Background()
	c, err := s.Clients().Create(ctx, "client-1")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	sess, err := s.OAuth().CreateSession(ctx, c, nil, model.Scope{"openid"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func TestUsers_CreateAndLookup(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, "john", "s3cret")

	got, err := s.Users().GetByUsername(ctx, "john")
	if err != nil || got.Sub != u.Sub {
		t.Fatalf("GetByUsername: %v / %+v", err, got)
	}
	if _, err := s.Users().GetByUsername(ctx, "jane"); !repository.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Users().Create(ctx, "john", "x"); !repository.IsConflict(err) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	bySub, err := s.Users().GetBySub(ctx, u.Sub)
	if err != nil || bySub.Username != "john" {
		t.Fatalf("GetBySub: %v / %+v", err, bySub)
	}
}

func TestUsers_Emails(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, "john", "s3cret")

	first, err := s.Users().AddEmail(ctx, u, "john@example.com")
	if err != nil || !first.Primary {
		t.Fatalf("first email should be primary: %v / %+v", err, first)
	}
	second, err := s.Users().AddEmail(ctx, u, "j@example.com")
	if err != nil || second.Primary {
		t.Fatalf("second email should not be primary: %v / %+v", err, second)
	}
	if _, err := s.Users().AddEmail(ctx, u, "john@example.com"); !repository.IsConflict(err) {
		t.Fatalf("duplicate email should conflict, got %v", err)
	}

	if err := s.Users().SetPrimaryEmail(ctx, u, "j@example.com"); err != nil {
		t.Fatalf("SetPrimaryEmail: %v", err)
	}
	emails, err := s.Users().GetEmails(ctx, u)
	if err != nil || len(emails) != 2 {
		t.Fatalf("GetEmails: %v / %+v", err, emails)
	}
	for _, e := range emails {
		if e.Primary != (e.Address == "j@example.com") {
			t.Fatalf("primary flag wrong: %+v", emails)
		}
	}

	if err := s.Users().RemoveEmail(ctx, u, "john@example.com"); err != nil {
		t.Fatalf("RemoveEmail: %v", err)
	}
	if err := s.Users().RemoveEmail(ctx, u, "john@example.com"); !repository.IsNotFound(err) {
		t.Fatalf("second remove should be not found, got %v", err)
	}
}

func TestBrowserSessions_AuthenticationLog(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, "john", "s3cret")

	bs, err := s.BrowserSessions().Create(ctx, u)
	if err != nil {
		t.Fatalf("create browser session: %v", err)
	}
	if bs.LastAuthentication != nil {
		t.Fatal("fresh session should have no last authentication")
	}

	a1, err := s.BrowserSessions().Authenticate(ctx, bs)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	a2, err := s.BrowserSessions().Authenticate(ctx, bs)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if a1.Data == a2.Data {
		t.Fatal("each authentication must be a new record")
	}
	// el historial es append-only: ambas quedan, la última manda
	if got := len(s.authLog[bs.Data]); got != 2 {
		t.Fatalf("auth log should keep both records, got %d", got)
	}
	if s.browserSessions[bs.Data].lastAuth.id != a2.Data {
		t.Fatal("last_authentication should point at the newest record")
	}
}

func newCode(t *testing.T, secret string, expiresAt time.Time) model.AuthorizationCode[uuid.UUID] {
	t.Helper()
	pkce, err := model.NewPkce(model.CodeChallengeMethodPlain, "challenge")
	if err != nil {
		t.Fatalf("pkce: %v", err)
	}
	return model.AuthorizationCode[uuid.UUID]{Code: secret, Pkce: pkce, ExpiresAt: expiresAt}
}

func TestOAuth_BindBrowserSession(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := seedGrant(t, s)
	u := seedUser(t, s, "john", "s3cret")
	browser, err := s.BrowserSessions().Create(ctx, u)
	if err != nil {
		t.Fatalf("create browser session: %v", err)
	}

	if err := s.OAuth().BindBrowserSession(ctx, sess, browser); err != nil {
		t.Fatalf("bind: %v", err)
	}

	// la sesión recargada trae la browser session y su usuario
	code := newCode(t, "dmac_bound", time.Now().Add(time.Minute))
	if _, err := s.OAuth().CreateAuthorizationCode(ctx, sess, code); err != nil {
		t.Fatalf("create code: %v", err)
	}
	_, gotSess, err := s.OAuth().ConsumeAuthorizationCode(ctx, "dmac_bound", time.Now())
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if gotSess.BrowserSession == nil || gotSess.BrowserSession.User.Username != "john" {
		t.Fatalf("expected bound browser session, got %+v", gotSess.BrowserSession)
	}

	ghost := &model.BrowserSession[uuid.UUID]{Data: uuid.New()}
	if err := s.OAuth().BindBrowserSession(ctx, sess, ghost); !repository.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound for unknown browser session, got %v", err)
	}
}

func TestOAuth_ConsumeAuthorizationCode_SingleUse(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := seedGrant(t, s)

	code := newCode(t, "dmac_test", time.Now().Add(time.Minute))
	if _, err := s.OAuth().CreateAuthorizationCode(ctx, sess, code); err != nil {
		t.Fatalf("create code: %v", err)
	}

	got, gotSess, err := s.OAuth().ConsumeAuthorizationCode(ctx, "dmac_test", time.Now())
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if got.Code != "dmac_test" || gotSess.Data != sess.Data {
		t.Fatalf("unexpected consume result: %+v / %+v", got, gotSess)
	}

	if _, _, err := s.OAuth().ConsumeAuthorizationCode(ctx, "dmac_test", time.Now()); !errors.Is(err, repository.ErrConsumed) {
		t.Fatalf("second consume should be ErrConsumed, got %v", err)
	}
	if _, _, err := s.OAuth().ConsumeAuthorizationCode(ctx, "dmac_nope", time.Now()); !repository.IsNotFound(err) {
		t.Fatalf("unknown code should be ErrNotFound, got %v", err)
	}
}

func TestOAuth_ConsumeAuthorizationCode_Expired(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := seedGrant(t, s)

	code := newCode(t, "dmac_old", time.Now().Add(-time.Second))
	if _, err := s.OAuth().CreateAuthorizationCode(ctx, sess, code); err != nil {
		t.Fatalf("create code: %v", err)
	}
	if _, _, err := s.OAuth().ConsumeAuthorizationCode(ctx, "dmac_old", time.Now()); !errors.Is(err, repository.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	// expirado también consume: no hay reintento, y el grant queda expired
	if _, _, err := s.OAuth().ConsumeAuthorizationCode(ctx, "dmac_old", time.Now()); !errors.Is(err, repository.ErrConsumed) {
		t.Fatalf("expected ErrConsumed after expiry, got %v", err)
	}
	if state, err := s.OAuth().GetSessionState(ctx, sess); err != nil || state != repository.GrantExpired {
		t.Fatalf("expected grant state expired, got %q / %v", state, err)
	}
}

func TestOAuth_ConsumeAuthorizationCode_ConcurrentExactlyOne(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := seedGrant(t, s)

	code := newCode(t, "dmac_race", time.Now().Add(time.Minute))
	if _, err := s.OAuth().CreateAuthorizationCode(ctx, sess, code); err != nil {
		t.Fatalf("create code: %v", err)
	}

	const n = 32
	var wg sync.WaitGroup
	results := make(chan error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := s.OAuth().ConsumeAuthorizationCode(ctx, "dmac_race", time.Now())
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var okCount, consumedCount int
	for err := range results {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, repository.ErrConsumed):
			consumedCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || consumedCount != n-1 {
		t.Fatalf("exactly one consume should win: ok=%d consumed=%d", okCount, consumedCount)
	}
}

func TestOAuth_AccessTokens(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := seedGrant(t, s)

	tok, err := s.OAuth().CreateAccessToken(ctx, sess, "dmti_1", "dmat_1", 5*time.Minute)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if !tok.ValidAt(tok.CreatedAt) {
		t.Fatal("token should be valid at creation")
	}

	got, gotSess, err := s.OAuth().GetAccessToken(ctx, "dmat_1")
	if err != nil || got.JTI != "dmti_1" || gotSess.Data != sess.Data {
		t.Fatalf("GetAccessToken: %v / %+v", err, got)
	}

	// unicidad por jti y por token
	if _, err := s.OAuth().CreateAccessToken(ctx, sess, "dmti_1", "dmat_2", time.Minute); !repository.IsConflict(err) {
		t.Fatalf("duplicate jti should conflict, got %v", err)
	}
	if _, err := s.OAuth().CreateAccessToken(ctx, sess, "dmti_2", "dmat_1", time.Minute); !repository.IsConflict(err) {
		t.Fatalf("duplicate token should conflict, got %v", err)
	}
}

func TestOAuth_ScopeImmutableAfterIssue(t *testing.T) {
	s := New()
	ctx := context.Background()
	c, _ := s.Clients().Create(ctx, "client-1")
	requested := model.Scope{"openid", "profile"}
	sess, err := s.OAuth().CreateSession(ctx, c, nil, requested)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := s.OAuth().CreateAccessToken(ctx, sess, "dmti_1", "dmat_1", time.Minute); err != nil {
		t.Fatalf("create token: %v", err)
	}

	// mutar el slice del caller no debe tocar el estado persistido
	requested[0] = "tampered"
	sess.Scope[1] = "tampered"

	_, gotSess, err := s.OAuth().GetAccessToken(ctx, "dmat_1")
	if err != nil {
		t.Fatalf("GetAccessToken: %v", err)
	}
	if gotSess.Scope.String() != "openid profile" {
		t.Fatalf("scope changed after issuance: %q", gotSess.Scope.String())
	}
}

func TestCompat_LoginSuccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedUser(t, s, "john", "s3cret")

	tok, sess, err := s.Compat().CompatLogin(ctx, "john", "s3cret", model.Device("ABCDEFGHIJ"), "dmct_1", "dmti_1", 5*time.Minute)
	if err != nil {
		t.Fatalf("CompatLogin: %v", err)
	}
	if sess.User.Username != "john" || sess.Device != "ABCDEFGHIJ" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if tok.Token != "dmct_1" || !tok.ValidAt(tok.CreatedAt) {
		t.Fatalf("unexpected token: %+v", tok)
	}

	gotTok, gotSess, err := s.Compat().GetCompatAccessToken(ctx, "dmct_1")
	if err != nil || gotTok.JTI != "dmti_1" || gotSess.User.Username != "john" {
		t.Fatalf("GetCompatAccessToken: %v / %+v / %+v", err, gotTok, gotSess)
	}
}

func TestCompat_LoginFailure_CreatesNothing(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedUser(t, s, "john", "s3cret")

	// password incorrecto y usuario inexistente: mismo error opaco
	_, _, errBadPass := s.Compat().CompatLogin(ctx, "john", "wrong", model.Device("ABCDEFGHIJ"), "dmct_1", "dmti_1", time.Minute)
	_, _, errNoUser := s.Compat().CompatLogin(ctx, "jane", "wrong", model.Device("ABCDEFGHIJ"), "dmct_2", "dmti_2", time.Minute)
	if !repository.IsLoginFailed(errBadPass) || !repository.IsLoginFailed(errNoUser) {
		t.Fatalf("expected ErrLoginFailed for both: %v / %v", errBadPass, errNoUser)
	}

	if len(s.compatSessions) != 0 || len(s.compatTokens) != 0 {
		t.Fatal("failed login must not create compat entities")
	}
	if _, _, err := s.Compat().GetCompatAccessToken(ctx, "dmct_1"); !repository.IsNotFound(err) {
		t.Fatalf("token should not exist, got %v", err)
	}
}

func TestGeneratedSecretsRoundTripThroughStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := seedGrant(t, s)

	secret, err := tokens.TypeAuthorizationCode.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := s.OAuth().CreateAuthorizationCode(ctx, sess, newCode(t, secret, time.Now().Add(time.Minute))); err != nil {
		t.Fatalf("create code: %v", err)
	}
	if _, _, err := s.OAuth().ConsumeAuthorizationCode(ctx, secret, time.Now()); err != nil {
		t.Fatalf("consume: %v", err)
	}
}
