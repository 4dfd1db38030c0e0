// Package account contiene el service de autogestión de cuenta: las
// direcciones de correo del usuario autenticado por bearer token.
package account

import (
	"context"
	"errors"

	"github.com/dropDatabas3/doorman/internal/domain/repository"
)

// Service expone la gestión de emails de la cuenta. Toda operación autentica
// primero el bearer token (OAuth o compat) y opera sobre su usuario.
type Service interface {
	// Emails lista las direcciones del usuario dueño del token.
	Emails(ctx context.Context, bearer string) ([]repository.Email, error)

	// AddEmail agrega una dirección. La primera queda primary.
	AddEmail(ctx context.Context, bearer, address string) (repository.Email, error)

	// RemoveEmail elimina una dirección.
	RemoveEmail(ctx context.Context, bearer, address string) error

	// SetPrimaryEmail marca una dirección como primary.
	SetPrimaryEmail(ctx context.Context, bearer, address string) error
}

var (
	// ErrUnauthorized cubre token ausente, desconocido, vencido o sin usuario
	// asociado (grants no interactivos).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidAddress indica una dirección sintácticamente inválida.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrAddressExists indica que la dirección ya está asociada a la cuenta.
	ErrAddressExists = errors.New("address exists")

	// ErrAddressNotFound indica que la dirección no pertenece a la cuenta.
	ErrAddressNotFound = errors.New("address not found")

	ErrServerError = errors.New("server error")
)
