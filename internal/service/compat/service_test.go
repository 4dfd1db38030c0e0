package compat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/doorman/internal/rate"
	"github.com/dropDatabas3/doorman/internal/security/password"
	"github.com/dropDatabas3/doorman/internal/store/memory"
)

func seedUser(t *testing.T, dal *memory.Store) {
	t.Helper()
	hash, err := password.Hash(password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}, "123-456")
	require.NoError(t, err)
	_, err = dal.Users().Create(context.Background(), "john", hash)
	require.NoError(t, err)
}

func TestLoginHappyPath(t *testing.T) {
	ctx := context.Background()
	dal := memory.New()
	seedUser(t, dal)

	svc := NewLoginService(Deps[uuid.UUID]{DAL: dal})
	res, err := svc.Login(ctx, LoginRequest{Username: "john", Password: "123-456"})
	require.NoError(t, err)
	require.Equal(t, "john", res.Username)
	require.Len(t, string(res.Device), 10)
	require.Contains(t, res.AccessToken, "dmct_")
	require.Zero(t, res.ExpiresIn, "sin TTL configurado el token no expira")

	// el token sirve para autenticar
	at, sess, err := dal.Compat().GetCompatAccessToken(ctx, res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "john", sess.User.Username)
	require.Equal(t, res.Device, sess.Device)
	require.True(t, at.ValidAt(time.Now().Add(100*365*24*time.Hour)), "token sin TTL nunca expira")
}

func TestLoginWrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	ctx := context.Background()
	dal := memory.New()
	seedUser(t, dal)

	svc := NewLoginService(Deps[uuid.UUID]{DAL: dal})

	_, errWrong := svc.Login(ctx, LoginRequest{Username: "john", Password: "nope"})
	_, errUnknown := svc.Login(ctx, LoginRequest{Username: "ghost", Password: "123-456"})

	require.ErrorIs(t, errWrong, ErrLoginFailed)
	require.ErrorIs(t, errUnknown, ErrLoginFailed)
	require.Equal(t, errWrong.Error(), errUnknown.Error())
}

func TestLoginMissingFields(t *testing.T) {
	svc := NewLoginService(Deps[uuid.UUID]{DAL: memory.New()})
	_, err := svc.Login(context.Background(), LoginRequest{Username: "john"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.Login(context.Background(), LoginRequest{Password: "x"})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLoginRateLimited(t *testing.T) {
	ctx := context.Background()
	dal := memory.New()
	seedUser(t, dal)

	svc := NewLoginService(Deps[uuid.UUID]{
		DAL:     dal,
		Limiter: rate.NewMemoryLimiter(2, time.Minute),
	})

	// dos intentos fallidos consumen la ventana
	for i := 0; i < 2; i++ {
		_, err := svc.Login(ctx, LoginRequest{Username: "john", Password: "nope"})
		require.ErrorIs(t, err, ErrLoginFailed)
	}
	_, err := svc.Login(ctx, LoginRequest{Username: "john", Password: "123-456"})
	require.ErrorIs(t, err, ErrRateLimited)

	// otro usuario no comparte ventana
	_, err = svc.Login(ctx, LoginRequest{Username: "ghost", Password: "x"})
	require.ErrorIs(t, err, ErrLoginFailed)
}

func TestLoginWithTTL(t *testing.T) {
	ctx := context.Background()
	dal := memory.New()
	seedUser(t, dal)

	svc := NewLoginService(Deps[uuid.UUID]{DAL: dal, TokenTTL: time.Hour})
	res, err := svc.Login(ctx, LoginRequest{Username: "john", Password: "123-456"})
	require.NoError(t, err)
	require.Equal(t, int64(3600), res.ExpiresIn)
}
