package model

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// CodeChallengeMethod es el método PKCE usado para derivar el challenge a
// partir del verifier (RFC 7636).
type CodeChallengeMethod string

const (
	// CodeChallengeMethodPlain compara verifier y challenge byte a byte.
	CodeChallengeMethodPlain CodeChallengeMethod = "plain"

	// CodeChallengeMethodS256 compara base64url(sha256(verifier)) con el
	// challenge, sin padding.
	CodeChallengeMethodS256 CodeChallengeMethod = "S256"
)

// ErrUnsupportedChallengeMethod lo devuelve NewPkce ante un método desconocido.
var ErrUnsupportedChallengeMethod = fmt.Errorf("pkce: unsupported code challenge method")

// Pkce es un challenge PKCE fijado al crear el código de autorización. El par
// método/challenge no cambia después de la construcción.
type Pkce struct {
	ChallengeMethod CodeChallengeMethod `json:"challenge_method"`
	Challenge       string              `json:"challenge"`
}

// NewPkce construye un challenge con un método soportado. Métodos no
// soportados se rechazan acá, en construcción: Verify después nunca falla con
// error, solo devuelve un booleano.
func NewPkce(method CodeChallengeMethod, challenge string) (Pkce, error) {
	switch method {
	case CodeChallengeMethodPlain, CodeChallengeMethodS256:
	default:
		return Pkce{}, fmt.Errorf("%w: %q", ErrUnsupportedChallengeMethod, method)
	}
	return Pkce{ChallengeMethod: method, Challenge: challenge}, nil
}

// Verify reporta si el verifier presentado por el cliente corresponde al
// challenge guardado. La comparación es en tiempo constante: este check
// protege el intercambio de una credencial.
func (p Pkce) Verify(verifier string) bool {
	switch p.ChallengeMethod {
	case CodeChallengeMethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(p.Challenge)) == 1
	case CodeChallengeMethodS256:
		sum := sha256.Sum256([]byte(verifier))
		derived := base64.RawURLEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(derived), []byte(p.Challenge)) == 1
	}
	return false
}
