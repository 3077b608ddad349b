package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/presets/internal/config"
	"github.com/alfredjeanlab/presets/internal/events"
	"github.com/alfredjeanlab/presets/internal/reconcile"
	"github.com/alfredjeanlab/presets/internal/server"
	"github.com/alfredjeanlab/presets/internal/store/postgres"
	presetsync "github.com/alfredjeanlab/presets/internal/sync"
	"github.com/spf13/cobra"
)

// exportDestinations builds the configured export targets. A destination
// that fails to initialize is logged and skipped.
func exportDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []presetsync.Destination {
	var dests []presetsync.Destination

	if cfg.ExportS3Bucket != "" {
		s3Dest, err := presetsync.NewS3Destination(ctx,
			cfg.ExportS3Bucket,
			cfg.ExportS3Key,
			cfg.ExportS3Region,
			cfg.ExportS3Endpoint,
		)
		if err != nil {
			logger.Error("failed to create S3 export destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("export S3 destination enabled", "bucket", cfg.ExportS3Bucket, "key", cfg.ExportS3Key)
		}
	}

	if cfg.ExportGitRepo != "" {
		gitDest := presetsync.NewGitDestination(cfg.ExportGitRepo, cfg.ExportGitFile, cfg.ExportGitBranch)
		dests = append(dests, gitDest)
		logger.Info("export git destination enabled", "repo", cfg.ExportGitRepo, "file", cfg.ExportGitFile)
	}

	return dests
}

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Start the preset store server",
	GroupID:           "system",
	PersistentPreRunE: skipConnect,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = events.NoopPublisher{}
			logger.Info("events disabled (PRESETS_NATS_URL not set)")
		}

		var opts []server.Option
		var limiter *server.RedisLimiter
		if cfg.RedisURL != "" && cfg.ReactionRate > 0 {
			limiter, err = server.NewRedisLimiter(cfg.RedisURL, cfg.ReactionRate)
			if err != nil {
				publisher.Close()
				store.Close()
				return err
			}
			opts = append(opts, server.WithRateLimiter(limiter))
			logger.Info("reaction rate limit enabled", "per_minute", cfg.ReactionRate)
		}

		if cfg.JWTSecret == "" {
			logger.Warn("PRESETS_JWT_SECRET not set; trusting the X-User-ID header")
		}
		auth := server.NewAuthenticator(cfg.JWTSecret)

		presetsServer := server.NewPresetsServer(store, publisher, opts...)
		grpcServer := server.NewGRPCServer(presetsServer, auth)

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			publisher.Close()
			store.Close()
			return err
		}

		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           presetsServer.NewHTTPHandler(auth),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		var scheduler *presetsync.Scheduler
		if cfg.ExportInterval > 0 {
			if dests := exportDestinations(context.Background(), cfg, logger); len(dests) > 0 {
				scheduler = presetsync.NewScheduler(store, dests, cfg.ExportInterval, logger)
				scheduler.Start()
				logger.Info("export scheduler started", "interval", cfg.ExportInterval)
			}
		}

		var reconciler *reconcile.Job
		if cfg.ReconcileInterval > 0 {
			reconciler = reconcile.New(store, publisher, cfg.ReconcileRepair, logger)
			reconciler.Start(cfg.ReconcileInterval)
			logger.Info("reconcile job started", "interval", cfg.ReconcileInterval, "repair", cfg.ReconcileRepair)
		}

		logger.Info("presets server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if reconciler != nil {
			reconciler.Stop()
			logger.Info("reconcile job stopped")
		}
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("export scheduler stopped")
		}

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if limiter != nil {
			if err := limiter.Close(); err != nil {
				logger.Error("error closing rate limiter", "err", err)
			}
		}
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
