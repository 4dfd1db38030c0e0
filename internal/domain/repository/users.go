package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/doorman/internal/domain/model"
)

// Email es una dirección asociada a un usuario. Gestión de cuentas, fuera del
// core de sesiones, pero tipada sobre User.
type Email struct {
	Address string
	Primary bool
	AddedAt time.Time
}

// Users define operaciones sobre usuarios.
type Users[D model.Data] interface {
	// GetByUsername busca un usuario por username.
	// Retorna ErrNotFound si no existe.
	GetByUsername(ctx context.Context, username string) (*model.User[D], error)

	// GetBySub busca un usuario por su subject identifier.
	// Retorna ErrNotFound si no existe.
	GetBySub(ctx context.Context, sub string) (*model.User[D], error)

	// Create crea un usuario con su hash de password. El sub se genera acá y
	// nunca se reutiliza. Retorna ErrConflict si el username ya existe.
	Create(ctx context.Context, username, passwordHash string) (*model.User[D], error)

	// GetEmails lista las direcciones del usuario.
	GetEmails(ctx context.Context, user *model.User[D]) ([]Email, error)

	// AddEmail agrega una dirección. La primera dirección queda primary.
	// Retorna ErrConflict si la dirección ya existe.
	AddEmail(ctx context.Context, user *model.User[D], address string) (Email, error)

	// RemoveEmail elimina una dirección. Retorna ErrNotFound si no existe.
	RemoveEmail(ctx context.Context, user *model.User[D], address string) error

	// SetPrimaryEmail marca una dirección como primary.
	// Retorna ErrNotFound si no existe.
	SetPrimaryEmail(ctx context.Context, user *model.User[D], address string) error
}

// BrowserSessions define operaciones sobre sesiones interactivas.
type BrowserSessions[D model.Data] interface {
	// Create abre una sesión de navegador para el usuario.
	Create(ctx context.Context, user *model.User[D]) (*model.BrowserSession[D], error)

	// Authenticate registra una verificación de credenciales fresca: agrega
	// una Authentication al historial (append-only, nunca se edita) y mueve
	// el puntero last_authentication de la sesión. Último commit gana.
	Authenticate(ctx context.Context, session *model.BrowserSession[D]) (*model.Authentication[D], error)
}

// Clients define operaciones sobre aplicaciones OAuth registradas.
type Clients[D model.Data] interface {
	// GetByClientID busca un cliente. Retorna ErrNotFound si no existe.
	GetByClientID(ctx context.Context, clientID string) (*model.Client[D], error)

	// Create registra un cliente. Retorna ErrConflict si el client_id existe.
	Create(ctx context.Context, clientID string) (*model.Client[D], error)
}
