// Package compat - LoginController handles the legacy client login endpoints.
package compat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	httperrors "github.com/dropDatabas3/doorman/internal/http/errors"
	"github.com/dropDatabas3/doorman/internal/observability/logger"
	svc "github.com/dropDatabas3/doorman/internal/service/compat"
)

// LoginController handles GET/POST /_matrix/client/{v3,r0}/login.
type LoginController struct {
	service    svc.LoginService
	homeserver string
}

// NewLoginController creates the controller. homeserver es la parte de dominio
// de los user IDs (@user:<homeserver>).
func NewLoginController(s svc.LoginService, homeserver string) *LoginController {
	return &LoginController{service: s, homeserver: homeserver}
}

// GetFlows handles GET /login: la lista de métodos soportados.
func (c *LoginController) GetFlows(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"flows": []map[string]string{{"type": "m.login.password"}},
	})
}

type loginIdentifier struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type loginRequest struct {
	Type       string          `json:"type"`
	Identifier loginIdentifier `json:"identifier"`
	Password   string          `json:"password"`
}

type loginResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id"`
	ExpiresInMs int64  `json:"expires_in_ms,omitempty"`
}

// PostLogin handles POST /login con m.login.password.
func (c *LoginController) PostLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("compat.login"))

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteMatrix(w, http.StatusBadRequest, httperrors.Matrix{
			Errcode: "M_NOT_JSON", Error: "Invalid JSON body",
		})
		return
	}
	// solo password login con identificador de usuario
	if req.Type != "m.login.password" || req.Identifier.Type != "m.id.user" {
		httperrors.WriteMatrix(w, http.StatusBadRequest, httperrors.Matrix{
			Errcode: "M_UNRECOGNIZED", Error: "Invalid login type",
		})
		return
	}

	res, err := c.service.Login(ctx, svc.LoginRequest{
		Username: req.Identifier.User,
		Password: req.Password,
	})
	if err != nil {
		c.writeServiceError(w, log, err)
		return
	}

	out := loginResponse{
		UserID:      fmt.Sprintf("@%s:%s", res.Username, c.homeserver),
		AccessToken: res.AccessToken,
		DeviceID:    string(res.Device),
	}
	if res.ExpiresIn > 0 {
		out.ExpiresInMs = res.ExpiresIn * 1000
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(out)
}

func (c *LoginController) writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, svc.ErrInvalidRequest):
		httperrors.WriteMatrix(w, http.StatusBadRequest, httperrors.Matrix{
			Errcode: "M_UNRECOGNIZED", Error: "Invalid login type",
		})
	case errors.Is(err, svc.ErrLoginFailed):
		httperrors.WriteMatrix(w, http.StatusForbidden, httperrors.Matrix{
			Errcode: "M_UNAUTHORIZED", Error: "Invalid username/password",
		})
	case errors.Is(err, svc.ErrRateLimited):
		httperrors.WriteMatrix(w, http.StatusTooManyRequests, httperrors.Matrix{
			Errcode: "M_LIMIT_EXCEEDED", Error: "Too many login attempts",
		})
	default:
		log.Error("login endpoint error", logger.Err(err))
		httperrors.WriteMatrix(w, http.StatusInternalServerError, httperrors.Matrix{
			Errcode: "M_UNKNOWN", Error: "Internal server error",
		})
	}
}
