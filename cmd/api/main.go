package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gorilla/sessions"

	"speedrun-api/core"
)

func main() {
	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	// Gorilla cookie store carries the opaque session token.
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))

	userRepo := core.NewPgUserRepository(db)
	sessionRepo := core.NewPgSessionRepository(db)
	taskStateRepo := core.NewPgTaskStateRepository(db)
	attemptRepo := core.NewPgAttemptRepository(db)

	creds := core.NewCredentialService(userRepo, sessionRepo)
	registry := core.NewChallengeRegistry(taskStateRepo)
	audit := core.NewRedisAuditLog(redisClient, cfg.AuditMaxEntries)
	engine := core.NewSubmissionEngine(registry, attemptRepo, audit)

	defs, err := core.LoadChallengeDefinitions(cfg.TasksDir)
	if err != nil {
		log.Fatalf("failed to load challenge definitions: %v", err)
	}
	if err := registry.Load(ctx, defs); err != nil {
		log.Fatalf("failed to register challenges: %v", err)
	}
	log.Printf("loaded %d challenge definitions from %s", len(defs), cfg.TasksDir)

	if err := core.BootstrapAdmin(ctx, userRepo, cfg); err != nil {
		log.Fatalf("bootstrap admin failed: %v", err)
	}

	router := core.NewRouter(cfg, store, creds, registry, engine, attemptRepo, audit)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
