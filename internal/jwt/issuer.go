package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Issuer firma ID tokens con una clave ed25519.
type Issuer struct {
	Iss  string // "iss"
	TTL  time.Duration
	kid  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey

	now func() time.Time
}

// NewIssuer crea un Issuer desde una semilla base64(32 bytes).
// Si seed está vacío genera una clave efímera.
func NewIssuer(iss, seed string, ttl time.Duration) (*Issuer, error) {
	var priv ed25519.PrivateKey
	if seed == "" {
		var err error
		_, priv, err = ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("jwt: generate key: %w", err)
		}
	} else {
		raw, err := base64.StdEncoding.DecodeString(seed)
		if err != nil {
			return nil, fmt.Errorf("jwt: decode key seed: %w", err)
		}
		if len(raw) != ed25519.SeedSize {
			return nil, fmt.Errorf("jwt: key seed must be %d bytes, got %d", ed25519.SeedSize, len(raw))
		}
		priv = ed25519.NewKeyFromSeed(raw)
	}
	pub := priv.Public().(ed25519.PublicKey)

	// kid derivado de la pubkey (primeros 8 bytes del hash)
	sum := sha256.Sum256(pub)
	kid := base64.RawURLEncoding.EncodeToString(sum[:8])

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Issuer{Iss: iss, TTL: ttl, kid: kid, priv: priv, pub: pub, now: time.Now}, nil
}

// ActiveKID devuelve el KID de la clave de firma.
func (i *Issuer) ActiveKID() string { return i.kid }

// IssueIDToken emite un ID Token OIDC firmado con EdDSA.
func (i *Issuer) IssueIDToken(sub, clientID string) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.TTL)

	claims := jwtv5.MapClaims{
		"iss": i.Iss,
		"sub": sub,
		"aud": clientID,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = i.kid
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.priv)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Keyfunc devuelve un jwt.Keyfunc para verificar tokens emitidos por este Issuer.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != "" && kid != i.kid {
			return nil, fmt.Errorf("jwt: unknown kid %q", kid)
		}
		return i.pub, nil
	}
}
