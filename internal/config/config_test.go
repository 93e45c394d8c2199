package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INFLUMART_LINK_STATE_SECRET", "s3cret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "dev" || cfg.HTTP.Addr != ":8080" || cfg.Log.Level != "info" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Storage.Driver != "memory" || cfg.Cache.Driver != "memory" {
		t.Fatalf("driver defaults = %+v / %+v", cfg.Storage, cfg.Cache)
	}
	if cfg.Cache.Prefix != "influmart:" {
		t.Fatalf("cache prefix = %q", cfg.Cache.Prefix)
	}
}

func TestLoad_MissingStateSecret(t *testing.T) {
	t.Setenv("INFLUMART_LINK_STATE_SECRET", "")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error without link.state_secret")
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
env: prod
http:
  addr: ":9090"
storage:
  driver: postgres
  dsn: postgres://localhost/influmart
link:
  state_secret: yaml-secret
  success_redirect_url: https://app.example.com/linked
platforms:
  instagram:
    client_id: ig-id
    client_secret: ig-secret
    redirect_url: https://api.example.com/cb/instagram
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "prod" || cfg.HTTP.Addr != ":9090" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	ig := cfg.Platforms["instagram"]
	if !ig.Enabled() || ig.ClientSecret != "ig-secret" {
		t.Fatalf("instagram = %+v", ig)
	}
	if tw := cfg.Platforms["twitter"]; tw.Enabled() {
		t.Fatalf("twitter should not be enabled: %+v", tw)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":9090"
link:
  state_secret: yaml-secret
`)

	t.Setenv("INFLUMART_HTTP_ADDR", ":7070")
	t.Setenv("INFLUMART_LINK_STATE_SECRET", "env-secret")
	t.Setenv("INFLUMART_TIKTOK_CLIENT_ID", "tt-id")
	t.Setenv("INFLUMART_TIKTOK_CLIENT_SECRET", "tt-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Link.StateSecret != "env-secret" {
		t.Fatalf("state secret = %q", cfg.Link.StateSecret)
	}
	tt := cfg.Platforms["tiktok"]
	if tt.ClientID != "tt-id" || tt.ClientSecret != "tt-secret" {
		t.Fatalf("tiktok = %+v", tt)
	}
}

func TestLoad_UnreadableFile(t *testing.T) {
	t.Setenv("INFLUMART_LINK_STATE_SECRET", "s3cret")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestCacheConfig_Translation(t *testing.T) {
	cfg := &Config{Cache: Cache{Driver: "redis", Addr: "localhost:6379", Prefix: "x:"}}
	cc := cfg.CacheConfig()
	if cc.Driver != "redis" || cc.Addr != "localhost:6379" || cc.Prefix != "x:" {
		t.Fatalf("cache config = %+v", cc)
	}
}
