// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env    string // APP_ENV: local | dev | prod
	Port   string // APP_PORT
	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	JWTSecret        string // signs access tokens
	JWTRefreshSecret string // signs refresh tokens; derived from JWTSecret when empty
	AccessTTLMin     int
	RefreshTTLDays   int
	BcryptCost       int

	QuotaAllowance int
	QuotaWindow    time.Duration
	MaxQuestions   int

	OracleAPIKey  string
	OracleModel   string
	OracleBaseURL string
	OracleTimeout time.Duration

	CookieSecure         bool
	RefreshRevocation    bool // persist refresh hashes and revoke on rotation/logout
	QuizResultOwnerCheck bool // only the owner may set a quiz result
	MaxDocumentBytes     int64
	CORSOrigins          []string
	RabbitMQURL          string
	EventsEnabled        bool
	EventsLogDir         string
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must(); a missing value stops
// the program with a fatal log message.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:        must("JWT_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		AccessTTLMin:     envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:   envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:       envInt("BCRYPT_COST", 10),

		QuotaAllowance: envInt("QUOTA_ALLOWANCE", 5),
		QuotaWindow:    envDur("QUOTA_WINDOW", 5*time.Hour),
		MaxQuestions:   envInt("MAX_QUESTIONS", 20),

		OracleAPIKey:  must("ORACLE_API_KEY"),
		OracleModel:   envStr("ORACLE_MODEL", "gemini-1.5-flash"),
		OracleBaseURL: envStr("ORACLE_BASE_URL", "https://generativelanguage.googleapis.com"),
		OracleTimeout: envDur("ORACLE_TIMEOUT", 60*time.Second),

		CookieSecure:         envBool("COOKIE_SECURE", true),
		RefreshRevocation:    envBool("REFRESH_REVOCATION", false),
		QuizResultOwnerCheck: envBool("QUIZ_RESULT_OWNER_CHECK", false),
		MaxDocumentBytes:     int64(envInt("MAX_DOCUMENT_BYTES", 15<<20)),
		CORSOrigins:          envList("CORS_ORIGINS"),
		RabbitMQURL:          envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		EventsEnabled:        envBool("EVENTS_ENABLED", false),
		EventsLogDir:         envStr("EVENTS_LOG_DIR", "logs"),
	}
}

// AccessTTL converts AccessTTLMin into a duration.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL converts RefreshTTLDays into a duration.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envList(k string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(k), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
