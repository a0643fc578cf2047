package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"chunav.chat/languages"
)

const (
	defaultAPIURL      = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel       = "llama3-8b-8192"
	defaultTemperature = 0.3
	defaultHTTPPort    = 5001
	defaultAuditPath   = "advisor_audit.db"

	// Development-only placeholder; any real deployment must override it.
	devSessionSecret = "a-very-secret-key-for-development"
)

// debugMode gates verbose logging. Off when APP_ENV=production.
var debugMode bool

// Config holds everything the process reads from the environment.
type Config struct {
	APIKey      string
	APIURL      string
	Model       string
	Temperature float64
	MaxTokens   int

	SessionSecret string
	SessionStore  string // "memory" or "redis"
	RedisAddr     string
	SessionTTL    time.Duration
	MaxTurns      int

	PromptProtocol languages.Protocol
	LanguagesFile  string

	HTTPPort int
	DNSPort  int // 0 disables the DNS interface

	AuditEnabled bool
	AuditPath    string

	UpstreamTimeout time.Duration
	Production      bool
}

// LoadConfig reads configuration from the environment. A missing API key is
// an error the caller must treat as fatal: the process must not serve
// traffic without one.
func LoadConfig() (*Config, error) {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing GROQ_API_KEY in environment")
	}

	production := os.Getenv("APP_ENV") == "production"
	debugMode = !production

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = devSessionSecret
		if production {
			log.Printf("WARNING: SESSION_SECRET not set in production, using the insecure development default")
		}
	}

	protocol := languages.ProtocolSingle
	if os.Getenv("PROMPT_PROTOCOL") == "classify" {
		protocol = languages.ProtocolClassify
	}

	cfg := &Config{
		APIKey:      apiKey,
		APIURL:      envString("API_URL", defaultAPIURL),
		Model:       envString("GROQ_MODEL", defaultModel),
		Temperature: envFloat("TEMPERATURE", defaultTemperature),
		MaxTokens:   envInt("MAX_TOKENS", 0),

		SessionSecret: secret,
		SessionStore:  envString("SESSION_STORE", "memory"),
		RedisAddr:     envString("REDIS_ADDR", "localhost:6379"),
		SessionTTL:    envDuration("SESSION_TTL", 24*time.Hour),
		MaxTurns:      envInt("MAX_HISTORY_TURNS", 0), // 0 uses the store default

		PromptProtocol: protocol,
		LanguagesFile:  os.Getenv("LANGUAGES_FILE"),

		HTTPPort: envInt("PORT", defaultHTTPPort),
		DNSPort:  envInt("DNS_PORT", 0),

		AuditEnabled: os.Getenv("ENABLE_AUDIT") != "false",
		AuditPath:    envString("AUDIT_DB", defaultAuditPath),

		UpstreamTimeout: envDuration("UPSTREAM_TIMEOUT", 2*time.Minute),
		Production:      production,
	}

	if cfg.SessionStore != "memory" && cfg.SessionStore != "redis" {
		return nil, fmt.Errorf("SESSION_STORE must be memory or redis, got %q", cfg.SessionStore)
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Ignoring invalid %s=%q", key, v)
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("Ignoring invalid %s=%q", key, v)
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Ignoring invalid %s=%q", key, v)
	}
	return fallback
}
