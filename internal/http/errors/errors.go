// Package errors centraliza los formatos de error de las dos superficies
// HTTP: el envelope OAuth2 estándar y el envelope del protocolo legacy.
package errors

import (
	"encoding/json"
	"net/http"
)

// WriteOAuth escribe un error OAuth2 estándar con headers no-cache.
func WriteOAuth(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}

// Matrix es el envelope de error del protocolo legacy.
type Matrix struct {
	Errcode string `json:"errcode"`
	Error   string `json:"error"`
	// RetryAfterMs solo aparece en M_LIMIT_EXCEEDED.
	RetryAfterMs int64 `json:"retry_after_ms,omitempty"`
}

// WriteMatrix escribe un error con el envelope legacy.
func WriteMatrix(w http.ResponseWriter, status int, e Matrix) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(e)
}
