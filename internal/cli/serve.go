package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"behaviorgate/internal/adminauth"
	"behaviorgate/internal/database"
	"behaviorgate/internal/forward"
	"behaviorgate/internal/handlers"
	"behaviorgate/internal/metrics"
	"behaviorgate/internal/shipper"
	"behaviorgate/internal/verifier"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the verification HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	if cfg.AdminKeyHash != "" {
		if _, err := adminauth.Verify(cfg.AdminKeyHash, ""); errors.Is(err, adminauth.ErrMalformedHash) {
			return fmt.Errorf("ADMIN_KEY_HASH: %w", err)
		}
	}

	db, err := database.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	m := metrics.NewMetrics()

	audit, err := shipper.NewAuditShipper(shipper.Config{
		Enabled: cfg.KafkaEnabled,
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
	}, m, logger)
	if err != nil {
		return fmt.Errorf("failed to create audit shipper: %w", err)
	}
	audit.Start()

	svc := verifier.NewService(db, audit, m, cfg.Policy(), logger)

	var fwd handlers.Forwarder
	if cfg.ForwardURL != "" {
		fwd = forward.NewClient(cfg.ForwardURL, cfg.ForwardTimeout())
	} else {
		logger.Info().Msg("FORWARD_URL not set; accepted requests are answered locally")
	}

	handler := handlers.NewHandler(cfg, svc, db, fwd, m, logger)

	server := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      handlers.NewRouter(cfg, handler, m, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info().
		Str("addr", server.Addr).
		Str("database", fmt.Sprintf("%s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)).
		Bool("kafka", cfg.KafkaEnabled).
		Bool("metrics", cfg.EnableMetrics).
		Msg("behaviorgate server starting")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := audit.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("audit shipper did not close cleanly")
	}

	logger.Info().Msg("server exited")
	return nil
}
