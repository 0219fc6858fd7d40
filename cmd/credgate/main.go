package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authadapter "github.com/avalette/credgate/internal/adapter/driven/auth"
	"github.com/avalette/credgate/internal/adapter/driven/discovery"
	"github.com/avalette/credgate/internal/adapter/driven/matchexpr"
	"github.com/avalette/credgate/internal/adapter/driven/probe"
	sqliteadapter "github.com/avalette/credgate/internal/adapter/driven/sqlite"
	httphandler "github.com/avalette/credgate/internal/adapter/driving/http"
	"github.com/avalette/credgate/internal/application"
	"github.com/avalette/credgate/internal/config"
	"github.com/avalette/credgate/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"targets_file", cfg.TargetsFile,
		"auth_mode", cfg.AuthMode,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode, owner-only perms).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	entryStore := sqliteadapter.NewEntryRepo(db)
	engine := matchexpr.NewEngine()
	targetDiscovery := discovery.NewFileDiscovery(cfg.TargetsFile, slog.Default())
	prober := probe.NewTCPProber(cfg.ProbeTimeout)

	var authValidator driven.AuthValidator
	switch cfg.AuthMode {
	case config.AuthModeBasic:
		authValidator, err = authadapter.NewBasicValidator(cfg.UsersFile, slog.Default())
		if err != nil {
			return err
		}
	default:
		authValidator = authadapter.NewNoopValidator()
		slog.Warn("authentication disabled, every request will be accepted")
	}

	// 6. Load the credential store (computes the id allocation counter and
	// cleans up corrupt entries), then migrate any legacy per-target entries.
	credSvc, err := application.NewCredentialService(ctx, entryStore, engine, slog.Default())
	if err != nil {
		return err
	}
	if err := credSvc.MigrateLegacy(ctx); err != nil {
		return err
	}

	// 7. Wire the resolver and the HTTP boundary.
	resolverSvc := application.NewResolverService(credSvc, targetDiscovery, engine, slog.Default())
	gate := httphandler.NewGate(authValidator, slog.Default())
	apiHandler := httphandler.NewHandler(credSvc, resolverSvc, prober, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, gate, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return nil
}
