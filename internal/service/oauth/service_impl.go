package oauth

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dropDatabas3/doorman/internal/domain/model"
	"github.com/dropDatabas3/doorman/internal/domain/repository"
	jwtx "github.com/dropDatabas3/doorman/internal/jwt"
	"github.com/dropDatabas3/doorman/internal/metrics"
	"github.com/dropDatabas3/doorman/internal/observability/logger"
	tokens "github.com/dropDatabas3/doorman/internal/security/token"
	"github.com/dropDatabas3/doorman/internal/store"
	"github.com/dropDatabas3/doorman/internal/validation"
)

// Deps contains dependencies for the grant service.
type Deps[D model.Data] struct {
	DAL store.DataAccessLayer[D]
	// Issuer firma ID tokens. Opcional: nil deshabilita openid.
	Issuer    *jwtx.Issuer
	CodeTTL   time.Duration
	AccessTTL time.Duration
	// Now permite inyectar el reloj en tests. Default: time.Now.
	Now func() time.Time
}

// svc implements Service.
type svc[D model.Data] struct {
	dal       store.DataAccessLayer[D]
	issuer    *jwtx.Issuer
	codeTTL   time.Duration
	accessTTL time.Duration
	now       func() time.Time
	tracer    trace.Tracer
}

// NewService creates a grant Service.
func NewService[D model.Data](d Deps[D]) Service[D] {
	if d.CodeTTL <= 0 {
		d.CodeTTL = 10 * time.Minute
	}
	if d.AccessTTL <= 0 {
		d.AccessTTL = 5 * time.Minute
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &svc[D]{
		dal:       d.DAL,
		issuer:    d.Issuer,
		codeTTL:   d.CodeTTL,
		accessTTL: d.AccessTTL,
		now:       d.Now,
		tracer:    otel.Tracer("doorman/service/oauth"),
	}
}

// Request abre el grant en estado requested.
func (s *svc[D]) Request(ctx context.Context, clientID, scope string) (*model.Session[D], error) {
	ctx, span := s.tracer.Start(ctx, "oauth.request")
	defer span.End()
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.request"))

	if clientID == "" {
		return nil, ErrInvalidRequest
	}
	parsed := model.ParseScope(scope)
	for _, name := range parsed {
		if !validation.ValidScopeName(name) {
			log.Warn("malformed scope", logger.ScopeField(name))
			return nil, ErrInvalidScope
		}
	}
	client, err := s.dal.Clients().GetByClientID(ctx, clientID)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Warn("client not found", logger.ClientID(clientID))
			return nil, ErrInvalidClient
		}
		span.RecordError(err)
		return nil, ErrServerError
	}

	session, err := s.dal.OAuth().CreateSession(ctx, client, nil, parsed)
	if err != nil {
		span.RecordError(err)
		log.Error("create session", logger.Err(err))
		return nil, ErrServerError
	}
	log.Info("grant requested", logger.ClientID(clientID), logger.ScopeField(scope))
	return session, nil
}

// Authorize emite el código y mueve el grant a authorized.
func (s *svc[D]) Authorize(ctx context.Context, session *model.Session[D], browser *model.BrowserSession[D], pkce model.Pkce) (string, error) {
	ctx, span := s.tracer.Start(ctx, "oauth.authorize")
	defer span.End()
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.authorize"))

	state, err := s.dal.OAuth().GetSessionState(ctx, session)
	if err != nil {
		span.RecordError(err)
		return "", ErrServerError
	}
	if state != repository.GrantRequested {
		log.Warn("authorize on settled grant", logger.GrantState(string(state)))
		return "", ErrInvalidGrant
	}

	code, err := tokens.TypeAuthorizationCode.Generate()
	if err != nil {
		span.RecordError(err)
		return "", ErrServerError
	}
	if browser != nil {
		if err := s.dal.OAuth().BindBrowserSession(ctx, session, browser); err != nil {
			span.RecordError(err)
			log.Error("bind browser session", logger.Err(err))
			return "", ErrServerError
		}
	}
	session.BrowserSession = browser
	if _, err := s.dal.OAuth().CreateAuthorizationCode(ctx, session, model.AuthorizationCode[D]{
		Code:      code,
		Pkce:      pkce,
		ExpiresAt: s.now().Add(s.codeTTL),
	}); err != nil {
		span.RecordError(err)
		log.Error("create authorization code", logger.Err(err))
		return "", ErrServerError
	}
	if err := s.dal.OAuth().SetSessionState(ctx, session, repository.GrantAuthorized); err != nil {
		span.RecordError(err)
		return "", ErrServerError
	}
	metrics.AuthorizationCodesIssued.Inc()
	log.Info("grant authorized", logger.ClientID(session.Client.ClientID))
	return code, nil
}

// Deny mueve el grant a denied.
func (s *svc[D]) Deny(ctx context.Context, session *model.Session[D]) error {
	ctx, span := s.tracer.Start(ctx, "oauth.deny")
	defer span.End()

	state, err := s.dal.OAuth().GetSessionState(ctx, session)
	if err != nil {
		span.RecordError(err)
		return ErrServerError
	}
	if state != repository.GrantRequested {
		return ErrInvalidGrant
	}
	if err := s.dal.OAuth().SetSessionState(ctx, session, repository.GrantDenied); err != nil {
		span.RecordError(err)
		return ErrServerError
	}
	logger.From(ctx).Info("grant denied",
		logger.Layer("service"), logger.Op("oauth.deny"),
		logger.ClientID(session.Client.ClientID))
	return nil
}

// expireGrant asienta el estado terminal cuando el código se quemó sin canje.
// El código ya quedó consumido: si el update de estado falla solo se loguea.
func (s *svc[D]) expireGrant(ctx context.Context, session *model.Session[D], log *zap.Logger) {
	if err := s.dal.OAuth().SetSessionState(ctx, session, repository.GrantExpired); err != nil {
		log.Error("expire grant", logger.Err(err))
	}
}

// Exchange canjea el código. El consumo es atómico contra el backend; todo
// fallo posterior (PKCE, client mismatch) deja el código quemado igual y el
// grant asentado en expired.
func (s *svc[D]) Exchange(ctx context.Context, req ExchangeRequest) (*TokenResponse, error) {
	ctx, span := s.tracer.Start(ctx, "oauth.exchange")
	defer span.End()
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.exchange"))

	if req.Code == "" || req.CodeVerifier == "" {
		metrics.TokenExchanges.WithLabelValues("invalid_request").Inc()
		return nil, ErrInvalidRequest
	}
	if kind, err := tokens.TypeOf(req.Code); err != nil || kind != tokens.TypeAuthorizationCode {
		metrics.TokenExchanges.WithLabelValues("invalid_grant").Inc()
		log.Warn("code with wrong format")
		return nil, ErrInvalidGrant
	}

	code, session, err := s.dal.OAuth().ConsumeAuthorizationCode(ctx, req.Code, s.now())
	if err != nil {
		switch {
		case repository.IsNotFound(err), errors.Is(err, repository.ErrConsumed), errors.Is(err, repository.ErrExpired):
			metrics.TokenExchanges.WithLabelValues("invalid_grant").Inc()
			log.Warn("code rejected", logger.Err(err))
			return nil, ErrInvalidGrant
		default:
			metrics.TokenExchanges.WithLabelValues("error").Inc()
			span.RecordError(err)
			log.Error("consume code", logger.Err(err))
			return nil, ErrServerError
		}
	}

	if req.ClientID != "" && req.ClientID != session.Client.ClientID {
		metrics.TokenExchanges.WithLabelValues("invalid_grant").Inc()
		log.Warn("client mismatch", logger.ClientID(req.ClientID))
		s.expireGrant(ctx, session, log)
		return nil, ErrInvalidGrant
	}
	if !code.Pkce.Verify(req.CodeVerifier) {
		metrics.TokenExchanges.WithLabelValues("invalid_grant").Inc()
		log.Warn("PKCE verification failed", logger.ClientID(session.Client.ClientID))
		s.expireGrant(ctx, session, log)
		return nil, ErrInvalidGrant
	}

	jti, err := tokens.TypeTokenID.Generate()
	if err != nil {
		metrics.TokenExchanges.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, ErrServerError
	}
	access, err := tokens.TypeAccessToken.Generate()
	if err != nil {
		metrics.TokenExchanges.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, ErrServerError
	}
	at, err := s.dal.OAuth().CreateAccessToken(ctx, session, jti, access, s.accessTTL)
	if err != nil {
		metrics.TokenExchanges.WithLabelValues("error").Inc()
		span.RecordError(err)
		log.Error("create access token", logger.Err(err))
		return nil, ErrServerError
	}
	if err := s.dal.OAuth().SetSessionState(ctx, session, repository.GrantExchanged); err != nil {
		metrics.TokenExchanges.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, ErrServerError
	}

	resp := &TokenResponse{
		AccessToken: at.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(at.ExpiresAfter.Seconds()),
		Scope:       session.Scope.String(),
	}
	if s.issuer != nil && session.Scope.Contains("openid") && session.BrowserSession != nil {
		idt, _, err := s.issuer.IssueIDToken(session.BrowserSession.User.Sub, session.Client.ClientID)
		if err != nil {
			metrics.TokenExchanges.WithLabelValues("error").Inc()
			span.RecordError(err)
			log.Error("issue id token", logger.Err(err))
			return nil, ErrServerError
		}
		resp.IDToken = idt
	}

	metrics.TokenExchanges.WithLabelValues("ok").Inc()
	log.Info("code exchanged",
		logger.ClientID(session.Client.ClientID),
		logger.TokenKind("access_token"))
	return resp, nil
}
