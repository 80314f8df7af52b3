package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":        "local",
		"APP_PORT":       "8080",
		"DB_USER":        "quiz",
		"DB_HOST":        "127.0.0.1",
		"DB_PORT":        "3306",
		"DB_NAME":        "quizgen",
		"JWT_SECRET":     "secret",
		"ORACLE_API_KEY": "key",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()
	if cfg.AccessTTL() != 15*time.Minute || cfg.RefreshTTL() != 7*24*time.Hour {
		t.Errorf("token ttls = %v / %v", cfg.AccessTTL(), cfg.RefreshTTL())
	}
	if cfg.QuotaAllowance != 5 || cfg.QuotaWindow != 5*time.Hour || cfg.MaxQuestions != 20 {
		t.Errorf("quota defaults = %d / %v / %d", cfg.QuotaAllowance, cfg.QuotaWindow, cfg.MaxQuestions)
	}
	if !cfg.CookieSecure || cfg.RefreshRevocation || cfg.QuizResultOwnerCheck || cfg.EventsEnabled {
		t.Errorf("flag defaults = %+v", cfg)
	}
	if cfg.OracleTimeout != time.Minute || cfg.OracleModel != "gemini-1.5-flash" {
		t.Errorf("oracle defaults = %v / %q", cfg.OracleTimeout, cfg.OracleModel)
	}
	if cfg.MaxDocumentBytes != 15<<20 || cfg.EventsLogDir != "logs" || cfg.CORSOrigins != nil {
		t.Errorf("misc defaults = %d / %q / %v", cfg.MaxDocumentBytes, cfg.EventsLogDir, cfg.CORSOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("QUOTA_WINDOW", "90m")
	t.Setenv("QUOTA_ALLOWANCE", "3")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("REFRESH_REVOCATION", "on")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://quiz.example.com ,")
	t.Setenv("ORACLE_TIMEOUT", "not-a-duration")

	cfg := Load()
	if cfg.QuotaWindow != 90*time.Minute || cfg.QuotaAllowance != 3 {
		t.Errorf("quota = %v / %d", cfg.QuotaWindow, cfg.QuotaAllowance)
	}
	if cfg.CookieSecure || !cfg.RefreshRevocation {
		t.Errorf("flags = secure %v revocation %v", cfg.CookieSecure, cfg.RefreshRevocation)
	}
	if want := []string{"http://localhost:3000", "https://quiz.example.com"}; !reflect.DeepEqual(cfg.CORSOrigins, want) {
		t.Errorf("origins = %v, want %v", cfg.CORSOrigins, want)
	}
	if cfg.OracleTimeout != time.Minute {
		t.Errorf("invalid duration not ignored: %v", cfg.OracleTimeout)
	}
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 3 || cfg.RefillTokens != 1 || cfg.RefillInterval != time.Minute {
		t.Errorf("bucket = %+v", cfg)
	}
	if cfg.TTL != 5*time.Minute {
		t.Errorf("ttl = %v, want raised to 5 refill intervals", cfg.TTL)
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_ENABLED", "0")

	cfg := LoadCacheConfig()
	if cfg.Enabled {
		t.Error("cache enabled")
	}
	if !cfg.Methods["GET"] || !cfg.Methods["HEAD"] || len(cfg.Methods) != 2 {
		t.Errorf("methods = %v", cfg.Methods)
	}
	if cfg.TTL != 30*time.Second || cfg.MaxBodyBytes != 1<<20 {
		t.Errorf("defaults = %v / %d", cfg.TTL, cfg.MaxBodyBytes)
	}
}

func TestLoadRedisConfig(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")

	if got := LoadRedisConfig().Addr; got != "redis:6380" {
		t.Errorf("addr = %q, want host:port to win", got)
	}
}

func TestNewRedisClient(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := NewRedisClient(RedisConfig{Addr: mr.Addr()})
	if client == nil {
		t.Fatal("NewRedisClient returned nil for a live server")
	}
	defer client.Close()

	mr.Close()
	if NewRedisClient(RedisConfig{Addr: mr.Addr()}) != nil {
		t.Error("NewRedisClient returned a client for a closed server")
	}
}
