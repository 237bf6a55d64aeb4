package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/medreport/viewer/internal/api"
	"github.com/medreport/viewer/internal/backend"
	"github.com/medreport/viewer/internal/config"
	"github.com/medreport/viewer/internal/logging"
	"github.com/medreport/viewer/internal/session"
	"github.com/medreport/viewer/internal/storage"
	"github.com/medreport/viewer/internal/upload"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := logging.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
			return runServer(ctx, cfg, opts.configPath, logger)
		},
	}
}

func runServer(ctx context.Context, cfg *config.AppConfig, configPath string, logger zerolog.Logger) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	client := backend.NewClient(cfg.UploadURL(), cfg.BackendTimeout(), logger)
	uploadMgr := upload.NewManager(client, fileStore, logger)

	// Expired sessions release their selected file.
	sessionMgr := session.NewManager(session.Options{
		DiscardStaleResponses: cfg.Session.DiscardStaleResponses,
		Logger:                logger,
		OnExpire: func(s *session.Session) {
			uploadMgr.Release(s.State().File)
		},
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if err := api.SetupMiddleware(e, logger, api.MiddlewareOptions{
		BodyLimit:      cfg.Server.BodyLimit,
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   cfg.Server.AllowOrigins,
		EnableGzip:     cfg.Server.EnableCompression,
		GzipLevel:      cfg.Server.CompressionLevel,
		RequestLogging: cfg.Logging.RequestLogging,
		ExposeErrors:   logger.GetLevel() <= zerolog.DebugLevel,
	}); err != nil {
		return err
	}

	deps := &api.Dependencies{
		Sessions:   sessionMgr,
		Uploads:    uploadMgr,
		Files:      fileStore,
		Logger:     logger,
		CookieName: cfg.Session.CookieName,
		SessionTTL: cfg.SessionTimeout(),
		Version:    Version,
	}
	if err := api.RegisterRoutes(e, deps, api.NewHandlers(deps)); err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, configPath)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sessionMgr.Run(gctx, cfg.CleanupInterval(), cfg.SessionTimeout())
	})

	g.Go(func() error {
		logger.Info().Str("addr", s.Addr).Str("backend", cfg.UploadURL()).Msg("server started")
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info().Msg("shutting down")
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func printBanner(cfg *config.AppConfig, configPath string) {
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Medical Report Summarizer                       ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Backend:   %-46s║\n", cfg.UploadURL())
	fmt.Printf("║  Uploads:   %-46s║\n", cfg.GetUploadDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
}
