// Command lectern serves the lecture review scheduler, or imports a
// timetable with --import-timetable and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/lectern/internal/auth"
	"github.com/conorfennell/lectern/internal/config"
	"github.com/conorfennell/lectern/internal/importer"
	"github.com/conorfennell/lectern/internal/logger"
	"github.com/conorfennell/lectern/internal/service"
	"github.com/conorfennell/lectern/internal/storage"
	"github.com/conorfennell/lectern/internal/validation"
	"github.com/conorfennell/lectern/internal/web"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(logger.Config{
		Format:      cfg.Log.Format,
		Environment: cfg.Env,
		Level:       cfg.Log.Level,
	})
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("lectern stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	log.Info("database opened", "path", cfg.DB.Path)

	v := validation.New()
	subjects := service.NewSubjects(db, v, log)
	accounts := service.NewAccounts(db, v, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Import.Path != "" {
		return runImport(ctx, cfg, log, subjects, accounts)
	}

	sessions, err := auth.NewSessions(cfg.Auth.TokenKey, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}
	if cfg.Auth.TokenKey == "" {
		log.Warn("no session key configured; sessions end when the server restarts")
	}

	server, err := web.NewServer(db, web.Services{
		Subjects:    subjects,
		Cards:       service.NewCards(db, time.Now, log),
		Regenerator: service.NewRegenerator(db, log),
		Accounts:    accounts,
		Sessions:    sessions,
	}, web.Options{CookieSecure: cfg.Auth.CookieSecure}, log)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func runImport(ctx context.Context, cfg *config.Config, log *slog.Logger, subjects *service.Subjects, accounts *service.Accounts) error {
	owner, err := accounts.ByUsername(ctx, cfg.Import.Owner)
	if err != nil {
		return fmt.Errorf("failed to find owner %q: %w", cfg.Import.Owner, err)
	}

	report, err := importer.New(subjects, cfg.Import.ReposDir, log).Import(ctx, owner.ID, cfg.Import.Path)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d subjects from %d files, %d skipped, %d errors.\n",
		report.Created, report.Files, report.Skipped, len(report.Errors))
	if len(report.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range report.Errors {
			fmt.Printf("- %s\n", e)
		}
	}
	return nil
}
