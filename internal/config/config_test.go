package config

import "testing"

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "POSTGRES_DSN", "REDIS_ADDR", "LAYER_ENV", "DOCUMENT_CACHE_TTL_SEC", "POSTGRES_MAX_CONNS", "CORS_ALLOW_CREDENTIALS"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	if cfg.Port != "8080" {
		t.Fatalf("port: got %q", cfg.Port)
	}
	if cfg.DocumentTTL != 7200 {
		t.Fatalf("ttl: got %d", cfg.DocumentTTL)
	}
	if cfg.MaxConns != 4 {
		t.Fatalf("max conns: got %d", cfg.MaxConns)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("redis addr should be empty, got %q", cfg.RedisAddr)
	}
	if cfg.CORS.AllowCredentials {
		t.Fatal("credentials should default to false")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LAYER_ENV", " prod ")
	t.Setenv("DOCUMENT_CACHE_TTL_SEC", "60")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")
	cfg := LoadConfig()
	if cfg.Port != "9090" || cfg.Environment != "prod" || cfg.DocumentTTL != 60 || !cfg.CORS.AllowCredentials {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestGetEnvInt64_InvalidFallsBack(t *testing.T) {
	t.Setenv("X_TEST_INT", "abc")
	if got := getEnvInt64("X_TEST_INT", 5); got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
	t.Setenv("X_TEST_INT", "-3")
	if got := getEnvInt64("X_TEST_INT", 5); got != 5 {
		t.Fatalf("negative: got %d, want 5", got)
	}
}
