// Package oauth contiene los services del flujo de autorización.
package oauth

import (
	"context"
	"errors"

	"github.com/dropDatabas3/doorman/internal/domain/model"
)

// Service maneja el ciclo de vida de un grant: petición, decisión del usuario
// e intercambio del código por tokens.
type Service[D model.Data] interface {
	// Request abre un grant para el cliente con el scope pedido.
	// El grant nace en estado requested.
	Request(ctx context.Context, clientID, scope string) (*model.Session[D], error)

	// Authorize registra la decisión positiva del usuario: liga la browser
	// session, emite el authorization code con su challenge PKCE y mueve el
	// grant a authorized. El código retornado viaja una sola vez al cliente.
	Authorize(ctx context.Context, session *model.Session[D], browser *model.BrowserSession[D], pkce model.Pkce) (string, error)

	// Deny registra la decisión negativa. El grant queda en denied y no hay
	// vuelta atrás.
	Deny(ctx context.Context, session *model.Session[D]) error

	// Exchange canjea el authorization code por un access token. El código es
	// de un solo uso: de N intentos concurrentes exactamente uno obtiene
	// tokens. Si el scope incluye openid la respuesta trae también un ID token.
	Exchange(ctx context.Context, req ExchangeRequest) (*TokenResponse, error)
}

// ExchangeRequest contains parameters for grant_type=authorization_code.
type ExchangeRequest struct {
	Code         string
	ClientID     string
	CodeVerifier string
}

// TokenResponse is the standard OAuth2 token response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	IDToken     string `json:"id_token,omitempty"`
	Scope       string `json:"scope,omitempty"`
}

// Errores del endpoint de token (OAuth2 estándar).
var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInvalidClient  = errors.New("invalid_client")
	ErrInvalidGrant   = errors.New("invalid_grant")
	ErrInvalidScope   = errors.New("invalid_scope")
	ErrServerError    = errors.New("server_error")
)
