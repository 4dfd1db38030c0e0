package model

import "time"

// User es una cuenta registrada. Username es único y visible; Sub es el
// identificador de sujeto estable y opaco, nunca se reutiliza una vez emitido.
type User[D Data] struct {
	Data     D      `json:"-"`
	Username string `json:"username"`
	Sub      string `json:"sub"`
}

// Authentication registra una verificación de credenciales exitosa. Es
// inmutable: cada verificación nueva crea un registro nuevo, nunca se edita.
type Authentication[D Data] struct {
	Data      D         `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// BrowserSession es la sesión interactiva (cookie) de un usuario logueado.
// LastAuthentication apunta a la autenticación más reciente de esta sesión,
// si existe; el historial completo es append-only en el backend.
type BrowserSession[D Data] struct {
	Data               D                  `json:"-"`
	User               User[D]            `json:"user"`
	CreatedAt          time.Time          `json:"created_at"`
	LastAuthentication *Authentication[D] `json:"last_authentication,omitempty"`
}

// Client es una aplicación OAuth registrada.
type Client[D Data] struct {
	Data     D      `json:"-"`
	ClientID string `json:"client_id"`
}

// Session es el contexto de un grant OAuth: un Client, el Scope solicitado y
// opcionalmente la BrowserSession que lo autorizó (ausente en grants no
// interactivos). El scope es inmutable una vez emitido un token contra la
// sesión.
type Session[D Data] struct {
	Data           D                  `json:"-"`
	BrowserSession *BrowserSession[D] `json:"browser_session,omitempty"`
	Client         Client[D]          `json:"client"`
	Scope          Scope              `json:"scope"`
}

// AuthorizationCode es el artefacto de un solo uso que se intercambia por un
// access token. El backend garantiza el consumo exactamente-una-vez; la
// expiración la aplica la máquina de intercambio.
type AuthorizationCode[D Data] struct {
	Data      D         `json:"-"`
	Code      string    `json:"code"`
	Pkce      Pkce      `json:"pkce"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccessToken es la credencial bearer del flujo OAuth. JTI es único global;
// Token es el secreto opaco. La validez es puramente temporal.
type AccessToken[D Data] struct {
	Data         D             `json:"-"`
	JTI          string        `json:"jti"`
	Token        string        `json:"token"`
	ExpiresAfter time.Duration `json:"expires_after"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ExpiresAt devuelve el instante en que el token deja de ser válido.
func (t AccessToken[D]) ExpiresAt() time.Time {
	return t.CreatedAt.Add(t.ExpiresAfter)
}

// ValidAt reporta si el token es válido en el instante dado: válido estricto
// antes de CreatedAt+ExpiresAfter, inválido desde ese instante inclusive.
func (t AccessToken[D]) ValidAt(now time.Time) bool {
	return now.Before(t.ExpiresAt())
}

// CompatSession es una sesión legacy fuera del flujo OAuth: un usuario
// autenticado por password y el Device generado para ese login.
type CompatSession[D Data] struct {
	Data   D       `json:"-"`
	User   User[D] `json:"user"`
	Device Device  `json:"device"`
}

// CompatAccessToken es la credencial bearer del camino legacy. Misma forma que
// AccessToken, pero emitida con su propio tipo de token para aislar el puente
// legacy del core OAuth. ExpiresAfter cero significa que el token no expira,
// como en los clientes legacy que no renuevan credenciales.
type CompatAccessToken[D Data] struct {
	Data         D             `json:"-"`
	JTI          string        `json:"jti"`
	Token        string        `json:"token"`
	ExpiresAfter time.Duration `json:"expires_after"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ExpiresAt devuelve el instante en que el token deja de ser válido. Solo
// tiene sentido si ExpiresAfter es positivo.
func (t CompatAccessToken[D]) ExpiresAt() time.Time {
	return t.CreatedAt.Add(t.ExpiresAfter)
}

// ValidAt reporta si el token es válido en el instante dado.
func (t CompatAccessToken[D]) ValidAt(now time.Time) bool {
	if t.ExpiresAfter <= 0 {
		return true
	}
	return now.Before(t.ExpiresAt())
}
