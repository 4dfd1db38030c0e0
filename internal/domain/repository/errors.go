package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un conflicto (ej: duplicado, constraint violation).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExpired indica que el código o token ya expiró.
	ErrExpired = errors.New("expired")

	// ErrConsumed indica que el código de autorización ya fue consumido. Un
	// código es de un solo uso: el segundo intento de canje siempre falla.
	ErrConsumed = errors.New("already consumed")

	// ErrLoginFailed indica credenciales inválidas. Es deliberadamente opaco:
	// cubre tanto "usuario no existe" como "password incorrecto" para no
	// filtrar cuál de los dos fue.
	ErrLoginFailed = errors.New("login failed")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsLoginFailed verifica si el error es ErrLoginFailed.
func IsLoginFailed(err error) bool {
	return errors.Is(err, ErrLoginFailed)
}
