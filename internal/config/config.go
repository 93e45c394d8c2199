// Package config carga la configuración del servicio desde YAML con
// overrides por variables de entorno (INFLUMART_*). Los secretos (client
// secrets, DSN, state secret) normalmente llegan por entorno.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/influmart/influmart/internal/cache"
	"github.com/influmart/influmart/internal/platform"
	"github.com/influmart/influmart/internal/store"
)

// Platform son las credenciales OAuth de una plataforma.
type Platform struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reporta si la plataforma tiene credenciales configuradas.
func (p Platform) Enabled() bool { return p.ClientID != "" }

// Link configura el flujo de vinculación.
type Link struct {
	// StateSecret firma el parámetro state (HS256).
	StateSecret string `yaml:"state_secret"`

	// SuccessRedirectURL destino del browser tras un callback exitoso.
	SuccessRedirectURL string `yaml:"success_redirect_url"`

	// ErrorRedirectURL destino en fallos; vacío = responder 500 JSON.
	ErrorRedirectURL string `yaml:"error_redirect_url"`
}

// Cache configura el backend de cache.
type Cache struct {
	Driver   string `yaml:"driver"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// HTTP configura el servidor.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Log configura el logger.
type Log struct {
	Level string `yaml:"level"`
}

// Enrich configura el pipeline de enriquecimiento.
type Enrich struct {
	// HorizonMinutes horizonte de frescura del cache (default 60).
	HorizonMinutes int `yaml:"horizon_minutes"`
}

// Config es la configuración completa del servicio.
type Config struct {
	Env       string              `yaml:"env"` // "dev" | "prod"
	HTTP      HTTP                `yaml:"http"`
	Log       Log                 `yaml:"log"`
	Storage   store.Config        `yaml:"storage"`
	Cache     Cache               `yaml:"cache"`
	Link      Link                `yaml:"link"`
	Enrich    Enrich              `yaml:"enrich"`
	Platforms map[string]Platform `yaml:"platforms"`
}

// CacheConfig traduce al Config del paquete cache.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Driver:   c.Cache.Driver,
		Addr:     c.Cache.Addr,
		Password: c.Cache.Password,
		DB:       c.Cache.DB,
		Prefix:   c.Cache.Prefix,
	}
}

// Load lee el YAML en path (opcional) y aplica overrides de entorno.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Env:       "dev",
		HTTP:      HTTP{Addr: ":8080"},
		Log:       Log{Level: "info"},
		Storage:   store.Config{Driver: "memory"},
		Cache:     Cache{Driver: "memory", Prefix: "influmart:"},
		Platforms: make(map[string]Platform),
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.Link.StateSecret == "" {
		return nil, fmt.Errorf("config: link.state_secret is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("INFLUMART_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("INFLUMART_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("INFLUMART_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("INFLUMART_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("INFLUMART_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("INFLUMART_CACHE_DRIVER"); v != "" {
		cfg.Cache.Driver = v
	}
	if v := os.Getenv("INFLUMART_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("INFLUMART_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("INFLUMART_LINK_STATE_SECRET"); v != "" {
		cfg.Link.StateSecret = v
	}
	if v := os.Getenv("INFLUMART_LINK_SUCCESS_REDIRECT_URL"); v != "" {
		cfg.Link.SuccessRedirectURL = v
	}
	if v := os.Getenv("INFLUMART_LINK_ERROR_REDIRECT_URL"); v != "" {
		cfg.Link.ErrorRedirectURL = v
	}

	// INFLUMART_<PLATFORM>_CLIENT_ID / _CLIENT_SECRET / _REDIRECT_URL
	for _, p := range platform.All() {
		prefix := "INFLUMART_" + strings.ToUpper(string(p)) + "_"
		pc := cfg.Platforms[string(p)]
		if v := os.Getenv(prefix + "CLIENT_ID"); v != "" {
			pc.ClientID = v
		}
		if v := os.Getenv(prefix + "CLIENT_SECRET"); v != "" {
			pc.ClientSecret = v
		}
		if v := os.Getenv(prefix + "REDIRECT_URL"); v != "" {
			pc.RedirectURL = v
		}
		if pc != (Platform{}) {
			cfg.Platforms[string(p)] = pc
		}
	}
}
