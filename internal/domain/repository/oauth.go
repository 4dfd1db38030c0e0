package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/doorman/internal/domain/model"
)

// GrantState es el estado persistido de un grant OAuth.
type GrantState string

const (
	GrantRequested  GrantState = "requested"
	GrantAuthorized GrantState = "authorized"
	GrantExchanged  GrantState = "exchanged"
	GrantDenied     GrantState = "denied"
	GrantExpired    GrantState = "expired"
)

// OAuth define la persistencia del flujo de autorización: sesiones, códigos
// y access tokens.
type OAuth[D model.Data] interface {
	// CreateSession crea la sesión del grant, fijando cliente, scope y
	// opcionalmente la browser session (nil para grants no interactivos).
	// El scope queda inmutable desde acá.
	CreateSession(ctx context.Context, client *model.Client[D], browser *model.BrowserSession[D], scope model.Scope) (*model.Session[D], error)

	// BindBrowserSession asocia al grant la browser session que lo aprobó.
	// Se fija al autorizar y no cambia después. Retorna ErrNotFound si la
	// sesión o la browser session no existen.
	BindBrowserSession(ctx context.Context, session *model.Session[D], browser *model.BrowserSession[D]) error

	// GetSessionState devuelve el estado actual del grant.
	GetSessionState(ctx context.Context, session *model.Session[D]) (GrantState, error)

	// SetSessionState registra una transición del grant.
	SetSessionState(ctx context.Context, session *model.Session[D], state GrantState) error

	// CreateAuthorizationCode persiste un código recién emitido, ligado a la
	// sesión, con su challenge PKCE y su expiración absoluta. El código se
	// guarda hasheado; el constraint UNIQUE sobre el hash es el respaldo de
	// unicidad del generador. Retorna ErrConflict ante colisión.
	CreateAuthorizationCode(ctx context.Context, session *model.Session[D], code model.AuthorizationCode[D]) (*model.AuthorizationCode[D], error)

	// ConsumeAuthorizationCode marca el código como usado y lo devuelve junto
	// con su sesión, en un solo paso atómico contra el backend (update
	// condicional): de N intentos concurrentes con el mismo código exactamente
	// uno recibe el código, el resto ErrConsumed. Retorna ErrNotFound si el
	// código no existe, ErrExpired si ya venció (el código queda igualmente
	// consumido y el grant pasa a expired), ErrConsumed si ya fue usado.
	ConsumeAuthorizationCode(ctx context.Context, code string, now time.Time) (*model.AuthorizationCode[D], *model.Session[D], error)

	// CreateAccessToken persiste un access token nuevo contra la sesión.
	// jti y token llevan constraint UNIQUE; colisión → ErrConflict.
	CreateAccessToken(ctx context.Context, session *model.Session[D], jti, token string, expiresAfter time.Duration) (*model.AccessToken[D], error)

	// GetAccessToken busca un token por su valor secreto y devuelve también
	// la sesión dueña. Retorna ErrNotFound si no existe (revocación = borrado).
	GetAccessToken(ctx context.Context, token string) (*model.AccessToken[D], *model.Session[D], error)
}
