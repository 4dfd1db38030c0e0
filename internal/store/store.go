// Package store agrupa los repositorios del dominio detrás de un data access
// layer único, genérico sobre el tipo de referencia del backend.
//
// Adapters disponibles:
//   - memory: mapas en proceso, referencia uuid.UUID (tests y desarrollo)
//   - pg:     PostgreSQL vía pgx, referencia int64
package store

import (
	"context"

	"github.com/dropDatabas3/doorman/internal/domain/model"
	"github.com/dropDatabas3/doorman/internal/domain/repository"
)

// DataAccessLayer expone los repositorios de un backend concreto.
type DataAccessLayer[D model.Data] interface {
	Users() repository.Users[D]
	BrowserSessions() repository.BrowserSessions[D]
	Clients() repository.Clients[D]
	OAuth() repository.OAuth[D]
	Compat() repository.Compat[D]

	// Ping verifica la conexión al backend.
	Ping(ctx context.Context) error

	// Close libera recursos del backend.
	Close() error
}
