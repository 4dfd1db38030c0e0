// Package tokens genera los secretos emitibles del servicio: access tokens,
// códigos de autorización, tokens compat y jtis. Cada clase lleva un prefijo
// fijo que permite clasificar un token por formato, sin ir al storage.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// Type identifica la clase de un secreto emitido.
type Type int

const (
	// TypeAccessToken es el bearer token del flujo OAuth.
	TypeAccessToken Type = iota + 1

	// TypeAuthorizationCode es el código de un solo uso del grant.
	TypeAuthorizationCode

	// TypeCompatAccessToken es el bearer token del camino legacy.
	TypeCompatAccessToken

	// TypeTokenID es el identificador único (jti) de un token, independiente
	// de su valor secreto.
	TypeTokenID
)

// payloadBytes son 256 bits de entropía por secreto; el piso requerido son
// 128. El generador no chequea colisiones: la unicidad dura la garantiza el
// constraint UNIQUE del storage.
const payloadBytes = 32

var prefixes = map[Type]string{
	TypeAccessToken:       "dmat_",
	TypeAuthorizationCode: "dmac_",
	TypeCompatAccessToken: "dmct_",
	TypeTokenID:           "dmti_",
}

// Prefix devuelve el prefijo wire de la clase.
func (t Type) Prefix() string { return prefixes[t] }

func (t Type) String() string {
	switch t {
	case TypeAccessToken:
		return "access_token"
	case TypeAuthorizationCode:
		return "authorization_code"
	case TypeCompatAccessToken:
		return "compat_access_token"
	case TypeTokenID:
		return "token_id"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Generate produce un secreto nuevo de la clase: prefijo + payload aleatorio
// en base64url sin padding (apto para copy/paste y URLs).
func (t Type) Generate() (string, error) {
	prefix, ok := prefixes[t]
	if !ok {
		return "", fmt.Errorf("tokens: unknown token type %d", int(t))
	}
	raw := make([]byte, payloadBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("tokens: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// TypeOf clasifica un token por su prefijo. No consulta el storage ni valida
// que el token exista, solo el formato.
func TypeOf(token string) (Type, error) {
	for t, p := range prefixes {
		if strings.HasPrefix(token, p) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("tokens: unrecognized token format")
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding. Los
// secretos se persisten hasheados; el valor en claro solo viaja al cliente.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
