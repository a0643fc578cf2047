package main

import (
	"log"

	"github.com/redis/go-redis/v9"

	"chunav.chat/completion"
	"chunav.chat/languages"
	"chunav.chat/session"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	registry := languages.NewRegistry()
	if cfg.LanguagesFile != "" {
		registry, err = languages.Load(cfg.LanguagesFile)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		log.Printf("Loaded language table from %s: %v", cfg.LanguagesFile, registry.Codes())
	}
	resolver := languages.NewResolver(registry)

	var store session.Store
	switch cfg.SessionStore {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store = session.NewRedisStore(client, cfg.MaxTurns, cfg.SessionTTL)
		log.Printf("Session store: redis (%s)", cfg.RedisAddr)
	default:
		store = session.NewMemoryStore(cfg.MaxTurns)
		log.Printf("Session store: memory")
	}
	defer store.Close()

	if cfg.AuditEnabled {
		if err := InitAuditDB(cfg.AuditPath); err != nil {
			log.Printf("Audit logging unavailable: %v", err)
		}
	} else {
		DisableAudit()
	}

	a := &app{
		cfg:      cfg,
		registry: registry,
		resolver: resolver,
		store:    store,
		llm:      completion.NewClient(cfg.APIURL, cfg.APIKey, cfg.UpstreamTimeout),
	}

	if cfg.DNSPort > 0 {
		go func() {
			if err := StartDNSServer(cfg.DNSPort, a); err != nil {
				log.Printf("[DNS] Server stopped: %v", err)
			}
		}()
	}

	log.Printf("Model: %s (temp=%.1f), prompt protocol: %s", cfg.Model, cfg.Temperature, cfg.PromptProtocol)
	if err := StartHTTPServer(cfg.HTTPPort, a); err != nil {
		log.Fatalf("HTTP server stopped: %v", err)
	}
}
