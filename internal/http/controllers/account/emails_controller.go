// Package account - EmailsController handles account email self-service.
package account

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/doorman/internal/observability/logger"
	svc "github.com/dropDatabas3/doorman/internal/service/account"
)

// EmailsController handles /account/emails. Todas las rutas requieren un
// bearer token (OAuth o compat) en Authorization.
type EmailsController struct {
	service svc.Service
}

// NewEmailsController creates the controller.
func NewEmailsController(s svc.Service) *EmailsController {
	return &EmailsController{service: s}
}

type emailDTO struct {
	Address string    `json:"address"`
	Primary bool      `json:"primary"`
	AddedAt time.Time `json:"added_at"`
}

type addEmailRequest struct {
	Address string `json:"address"`
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

// List handles GET /account/emails.
func (c *EmailsController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("account.emails"))

	list, err := c.service.Emails(ctx, bearerToken(r))
	if err != nil {
		c.writeServiceError(w, log, err)
		return
	}
	out := make([]emailDTO, 0, len(list))
	for _, e := range list {
		out = append(out, emailDTO{Address: e.Address, Primary: e.Primary, AddedAt: e.AddedAt})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"emails": out})
}

// Add handles POST /account/emails.
func (c *EmailsController) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("account.add_email"))

	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)
	var req addEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	e, err := c.service.AddEmail(ctx, bearerToken(r), req.Address)
	if err != nil {
		c.writeServiceError(w, log, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(emailDTO{Address: e.Address, Primary: e.Primary, AddedAt: e.AddedAt})
}

// Remove handles DELETE /account/emails/{address}. La dirección viaja
// URL-escapada en el path.
func (c *EmailsController) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("account.remove_email"))

	address, err := url.PathUnescape(chi.URLParam(r, "address"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Malformed address")
		return
	}
	if err := c.service.RemoveEmail(ctx, bearerToken(r), address); err != nil {
		c.writeServiceError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPrimary handles POST /account/emails/primary.
func (c *EmailsController) SetPrimary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("account.set_primary_email"))

	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)
	var req addEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if err := c.service.SetPrimaryEmail(ctx, bearerToken(r), req.Address); err != nil {
		c.writeServiceError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func (c *EmailsController) writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, svc.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		writeJSONError(w, http.StatusUnauthorized, "invalid_token", "Missing or invalid bearer token")
	case errors.Is(err, svc.ErrInvalidAddress):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid email address")
	case errors.Is(err, svc.ErrAddressExists):
		writeJSONError(w, http.StatusConflict, "conflict", "Address already registered")
	case errors.Is(err, svc.ErrAddressNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", "Address not registered")
	default:
		log.Error("account endpoint error", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}
