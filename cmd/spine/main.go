package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Ayejay3194/business-spine/internal/audit"
	"github.com/Ayejay3194/business-spine/internal/auth"
	"github.com/Ayejay3194/business-spine/internal/config"
	"github.com/Ayejay3194/business-spine/internal/confirm"
	"github.com/Ayejay3194/business-spine/internal/flow"
	"github.com/Ayejay3194/business-spine/internal/intent"
	"github.com/Ayejay3194/business-spine/internal/orchestrator"
	"github.com/Ayejay3194/business-spine/internal/policy"
	"github.com/Ayejay3194/business-spine/internal/registration"
	"github.com/Ayejay3194/business-spine/internal/server"
	"github.com/Ayejay3194/business-spine/internal/spine"
	"github.com/Ayejay3194/business-spine/internal/stepup"
	"github.com/Ayejay3194/business-spine/internal/storage/memory"
	"github.com/Ayejay3194/business-spine/internal/storage/sqldb"
	"github.com/Ayejay3194/business-spine/internal/telemetry"
	"github.com/Ayejay3194/business-spine/internal/tenant"
	"github.com/Ayejay3194/business-spine/internal/tool"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdownTracer, err := telemetry.InitTracer("business-spine", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load(os.Getenv("SPINE_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Confirm.Secret == "" {
		log.Fatalf("confirm.secret is required (set SPINE_CONFIRM__SECRET or config.yaml)")
	}
	if len(cfg.Tenants) == 0 {
		log.Fatalf("at least one tenant with an api key is required")
	}

	// Storage backs both the audit chain and the single-use token ledger.
	var (
		auditSink  audit.Sink
		tokenStore confirm.Store
		closeStore func() error
	)
	switch cfg.Storage.Type {
	case "memory":
		auditSink = memory.NewAuditSink()
		tokenStore = memory.NewTokenStore()
	default:
		store, err := sqldb.New(sqldb.Config{
			Driver: cfg.Storage.Database.Driver,
			DSN:    cfg.Storage.Database.DSN,
		})
		if err != nil {
			log.Fatalf("Failed to open storage: %v", err)
		}
		auditSink = store
		tokenStore = store
		closeStore = store.Close
	}
	if closeStore != nil {
		defer func() {
			if err := closeStore(); err != nil {
				logger.Error("failed to close storage", slog.String("error", err.Error()))
			}
		}()
	}

	auditLog := audit.NewLogger(auditSink)
	issuer := confirm.NewIssuer([]byte(cfg.Confirm.Secret), cfg.Confirm.ParsedTTL(), tokenStore)

	var verifier stepup.Verifier = stepup.DenyAll{}
	if len(cfg.StepUp.StaticCodes) > 0 {
		verifier = stepup.NewStaticVerifier(cfg.StepUp.StaticCodes)
	}
	engine := policy.NewEngine(verifier)

	spines := spine.NewRegistry()
	tools := tool.NewRegistry()
	if err := registration.RegisterBuiltins(spines, tools, registration.Deps{
		Logger:   logger,
		AuditLog: auditLog,
	}); err != nil {
		log.Fatalf("Failed to register spines: %v", err)
	}

	detector := intent.NewDetector(spines)
	builder := flow.NewBuilder(spines, issuer)
	runner := flow.NewRunner(tools, spines, engine, auditLog, issuer, cfg.Tools.ParsedTimeout(), logger)
	orch := orchestrator.New(spines, detector, builder, runner, logger)

	tenants, err := tenant.NewRegistry().LoadTenants(cfg.Tenants)
	if err != nil {
		log.Fatalf("Failed to load tenants: %v", err)
	}
	authenticator := auth.NewAuthenticator(tenants)

	handlers := server.NewHandlers(orch, auditLog)
	srv := server.New(cfg.Server.Port, logger, authenticator, handlers)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("business spine started",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage", cfg.Storage.Type),
		slog.Int("tenants", len(tenants)),
		slog.Any("spines", spines.Names()),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case <-sigChan:
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
