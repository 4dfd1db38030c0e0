// Package compat contiene el service del puente de login legacy.
package compat

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dropDatabas3/doorman/internal/domain/model"
	"github.com/dropDatabas3/doorman/internal/domain/repository"
	"github.com/dropDatabas3/doorman/internal/metrics"
	"github.com/dropDatabas3/doorman/internal/observability/logger"
	"github.com/dropDatabas3/doorman/internal/rate"
	tokens "github.com/dropDatabas3/doorman/internal/security/token"
	"github.com/dropDatabas3/doorman/internal/store"
)

// LoginService atiende el login password del camino legacy.
type LoginService interface {
	// Login verifica las credenciales y, si son válidas, crea device, sesión
	// compat y access token en una sola operación. Credenciales inválidas
	// devuelven ErrLoginFailed sin distinguir usuario inexistente de password
	// incorrecto.
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
}

// LoginRequest contains credentials for m.login.password.
type LoginRequest struct {
	Username string
	Password string
}

// LoginResult contains the issued compat credentials.
type LoginResult struct {
	Username    string
	Device      model.Device
	AccessToken string
	ExpiresIn   int64 // 0 si el token no expira
}

var (
	// ErrLoginFailed cubre usuario inexistente y password incorrecto.
	ErrLoginFailed = errors.New("login failed")

	// ErrRateLimited indica demasiados intentos para ese usuario.
	ErrRateLimited = errors.New("rate limited")

	ErrInvalidRequest = errors.New("invalid request")
	ErrServerError    = errors.New("server error")
)

// Deps contains dependencies for the login service.
type Deps[D model.Data] struct {
	DAL store.DataAccessLayer[D]
	// Limiter limita intentos por username. Opcional: nil no limita.
	Limiter rate.Limiter
	// TokenTTL es la vida del compat token. 0 ⇒ sin expiración.
	TokenTTL time.Duration
}

type loginService[D model.Data] struct {
	dal      store.DataAccessLayer[D]
	limiter  rate.Limiter
	tokenTTL time.Duration
	tracer   trace.Tracer
}

// NewLoginService creates a LoginService.
func NewLoginService[D model.Data](d Deps[D]) LoginService {
	lim := d.Limiter
	if lim == nil {
		lim = rate.Noop{}
	}
	return &loginService[D]{
		dal:      d.DAL,
		limiter:  lim,
		tokenTTL: d.TokenTTL,
		tracer:   otel.Tracer("doorman/service/compat"),
	}
}

func (s *loginService[D]) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "compat.login")
	defer span.End()
	start := time.Now()
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("compat.login"))

	if req.Username == "" || req.Password == "" {
		metrics.CompatLogins.WithLabelValues("unrecognized").Inc()
		return nil, ErrInvalidRequest
	}

	res, err := s.limiter.Allow(ctx, "compat-login:"+req.Username)
	if err != nil {
		// limiter caído no bloquea logins
		log.Warn("rate limiter unavailable", logger.Err(err))
	} else if !res.Allowed {
		metrics.CompatLogins.WithLabelValues("rate_limited").Inc()
		log.Warn("login rate limited", logger.Username(req.Username))
		return nil, ErrRateLimited
	}

	device, err := model.GenerateDevice()
	if err != nil {
		span.RecordError(err)
		return nil, ErrServerError
	}
	tok, err := tokens.TypeCompatAccessToken.Generate()
	if err != nil {
		span.RecordError(err)
		return nil, ErrServerError
	}
	jti, err := tokens.TypeTokenID.Generate()
	if err != nil {
		span.RecordError(err)
		return nil, ErrServerError
	}

	at, sess, err := s.dal.Compat().CompatLogin(ctx, req.Username, req.Password, device, tok, jti, s.tokenTTL)
	if err != nil {
		if repository.IsLoginFailed(err) {
			metrics.CompatLogins.WithLabelValues("unauthorized").Inc()
			log.Warn("login rejected", logger.Username(req.Username))
			return nil, ErrLoginFailed
		}
		metrics.CompatLogins.WithLabelValues("error").Inc()
		span.RecordError(err)
		log.Error("compat login", logger.Err(err))
		return nil, ErrServerError
	}

	metrics.CompatLogins.WithLabelValues("ok").Inc()
	metrics.CompatLoginDuration.Observe(float64(time.Since(start).Milliseconds()))
	log.Info("login ok",
		logger.Username(sess.User.Username),
		logger.Device(string(sess.Device)),
		logger.TokenKind("compat"))

	out := &LoginResult{
		Username:    sess.User.Username,
		Device:      sess.Device,
		AccessToken: at.Token,
	}
	if at.ExpiresAfter > 0 {
		out.ExpiresIn = int64(at.ExpiresAfter.Seconds())
	}
	return out, nil
}
