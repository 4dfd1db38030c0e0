// Package oauth - TokenController handles POST /oauth2/token
package oauth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/doorman/internal/domain/model"
	httperrors "github.com/dropDatabas3/doorman/internal/http/errors"
	"github.com/dropDatabas3/doorman/internal/observability/logger"
	svc "github.com/dropDatabas3/doorman/internal/service/oauth"
)

// TokenController handles the OAuth2 token endpoint.
type TokenController[D model.Data] struct {
	service svc.Service[D]
}

// NewTokenController creates the controller.
func NewTokenController[D model.Data](s svc.Service[D]) *TokenController[D] {
	return &TokenController[D]{service: s}
}

// Token handles POST /oauth2/token (grant_type=authorization_code, PKCE).
func (c *TokenController[D]) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.token"))

	// Limit body size (64KB for OAuth forms)
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", logger.Err(err))
		httperrors.WriteOAuth(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	grantType := strings.TrimSpace(r.PostForm.Get("grant_type"))
	if grantType != "authorization_code" {
		httperrors.WriteOAuth(w, http.StatusBadRequest, "unsupported_grant_type", "Grant type not supported")
		return
	}

	resp, err := c.service.Exchange(ctx, svc.ExchangeRequest{
		Code:         strings.TrimSpace(r.PostForm.Get("code")),
		ClientID:     strings.TrimSpace(r.PostForm.Get("client_id")),
		CodeVerifier: strings.TrimSpace(r.PostForm.Get("code_verifier")),
	})
	if err != nil {
		c.writeServiceError(w, log, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (c *TokenController[D]) writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, svc.ErrInvalidRequest):
		httperrors.WriteOAuth(w, http.StatusBadRequest, "invalid_request", "Missing or invalid parameters")
	case errors.Is(err, svc.ErrInvalidClient):
		httperrors.WriteOAuth(w, http.StatusUnauthorized, "invalid_client", "Client authentication failed")
	case errors.Is(err, svc.ErrInvalidGrant):
		httperrors.WriteOAuth(w, http.StatusBadRequest, "invalid_grant", "Invalid or expired grant")
	default:
		log.Error("token endpoint error", logger.Err(err))
		httperrors.WriteOAuth(w, http.StatusInternalServerError, "server_error", "An unexpected error occurred")
	}
}
