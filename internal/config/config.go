package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	// Homeserver para el que actuamos como fachada de autenticación.
	Homeserver struct {
		// Name es la parte del dominio en los user IDs (@user:<name>).
		Name string `yaml:"name"`
	} `yaml:"homeserver"`

	Storage struct {
		Driver   string `yaml:"driver"` // memory | postgres
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Tokens struct {
		// TTL del authorization code (entre Authorize y Exchange).
		CodeTTL string `yaml:"code_ttl"`
		// TTL de los access tokens OAuth.
		AccessTTL string `yaml:"access_ttl"`
		// TTL de los compat access tokens. Vacío ⇒ sin expiración.
		CompatTTL string `yaml:"compat_ttl"`
	} `yaml:"tokens"`

	IDToken struct {
		// Issuer es el valor `iss` de los ID tokens.
		Issuer string `yaml:"issuer"`
		// KeySeed es base64(32 bytes), semilla de la clave ed25519.
		// Vacío ⇒ se genera una clave efímera al arrancar.
		KeySeed string `yaml:"key_seed"`
		TTL     string `yaml:"ttl"`
	} `yaml:"id_token"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
	} `yaml:"rate"`
}

// Load lee la configuración desde un YAML, aplica defaults y overrides por env.
// Si path está vacío, parte de una config vacía (solo defaults + env).
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Homeserver.Name == "" {
		c.Homeserver.Name = "example.com"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Tokens.CodeTTL == "" {
		c.Tokens.CodeTTL = "10m"
	}
	if c.Tokens.AccessTTL == "" {
		c.Tokens.AccessTTL = "5m"
	}
	if c.IDToken.TTL == "" {
		c.IDToken.TTL = "5m"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}

	// Overrides por env
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// HOMESERVER
	if v, ok := getEnvStr("HOMESERVER_NAME"); ok {
		c.Homeserver.Name = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	// TOKENS
	if v, ok := getEnvStr("TOKENS_CODE_TTL"); ok {
		c.Tokens.CodeTTL = v
	}
	if v, ok := getEnvStr("TOKENS_ACCESS_TTL"); ok {
		c.Tokens.AccessTTL = v
	}
	if v, ok := getEnvStr("TOKENS_COMPAT_TTL"); ok {
		c.Tokens.CompatTTL = v
	}

	// ID TOKEN
	if v, ok := getEnvStr("ID_TOKEN_ISSUER"); ok {
		c.IDToken.Issuer = v
	}
	if v, ok := getEnvStr("ID_TOKEN_KEY_SEED"); ok {
		c.IDToken.KeySeed = v
	}
	if v, ok := getEnvStr("ID_TOKEN_TTL"); ok {
		c.IDToken.TTL = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LOGIN_LIMIT"); ok {
		c.Rate.Login.Limit = v
	}
	if v, ok := getEnvStr("RATE_LOGIN_WINDOW"); ok {
		c.Rate.Login.Window = v
	}
}

// Validate revisa drivers conocidos y que las duraciones parseen.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache kind %q", c.Cache.Kind)
	}
	for name, s := range map[string]string{
		"tokens.code_ttl":                    c.Tokens.CodeTTL,
		"tokens.access_ttl":                  c.Tokens.AccessTTL,
		"tokens.compat_ttl":                  c.Tokens.CompatTTL,
		"id_token.ttl":                       c.IDToken.TTL,
		"rate.login.window":                  c.Rate.Login.Window,
		"storage.postgres.conn_max_lifetime": c.Storage.Postgres.ConnMaxLifetime,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("config: invalid duration for %s: %w", name, err)
		}
	}
	return nil
}

// ---- Accessors tipados para duraciones ya validadas ----

func mustDur(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// CodeTTL retorna el TTL del authorization code.
func (c *Config) CodeTTL() time.Duration { return mustDur(c.Tokens.CodeTTL, 10*time.Minute) }

// AccessTTL retorna el TTL de los access tokens.
func (c *Config) AccessTTL() time.Duration { return mustDur(c.Tokens.AccessTTL, 5*time.Minute) }

// CompatTTL retorna el TTL de los compat tokens; 0 significa sin expiración.
func (c *Config) CompatTTL() time.Duration { return mustDur(c.Tokens.CompatTTL, 0) }

// IDTokenTTL retorna el TTL de los ID tokens.
func (c *Config) IDTokenTTL() time.Duration { return mustDur(c.IDToken.TTL, 5*time.Minute) }

// LoginWindow retorna la ventana del rate limit de login.
func (c *Config) LoginWindow() time.Duration { return mustDur(c.Rate.Login.Window, time.Minute) }

// PgConnMaxLifetime retorna la vida máxima de una conexión del pool; 0 deja
// el default de pgxpool.
func (c *Config) PgConnMaxLifetime() time.Duration {
	return mustDur(c.Storage.Postgres.ConnMaxLifetime, 0)
}
