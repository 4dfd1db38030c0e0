package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/doorman/internal/domain/model"
)

// Compat define la persistencia del puente de login legacy.
type Compat[D model.Data] interface {
	// CompatLogin verifica el password del usuario y, si es correcto,
	// persiste device, sesión compat y token en una sola transacción. El
	// token llega ya generado (con su jti); acá solo se verifica y persiste.
	//
	// Ante credenciales inválidas retorna ErrLoginFailed sin crear nada; el
	// mismo error cubre usuario inexistente y password incorrecto. Una falla
	// parcial (password ok, persistencia falló) es responsabilidad
	// transaccional de la implementación: no deben quedar entidades a medias.
	CompatLogin(ctx context.Context, username, password string, device model.Device, token, jti string, expiresAfter time.Duration) (*model.CompatAccessToken[D], *model.CompatSession[D], error)

	// GetCompatAccessToken busca un token compat por su valor secreto.
	// Retorna ErrNotFound si no existe.
	GetCompatAccessToken(ctx context.Context, token string) (*model.CompatAccessToken[D], *model.CompatSession[D], error)
}
