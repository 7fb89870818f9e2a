package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/homme-x/PES-Tournament-Manager/internal/archive"
	"github.com/homme-x/PES-Tournament-Manager/internal/config"
	"github.com/homme-x/PES-Tournament-Manager/internal/live"
	"github.com/homme-x/PES-Tournament-Manager/internal/store"
	"github.com/homme-x/PES-Tournament-Manager/internal/web"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "err", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := openArchive(ctx, cfg, logger)
	if err != nil {
		logger.Error("open archive", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := results.Close(); err != nil {
			logger.Error("close archive", "err", err)
		}
	}()

	hub := live.NewHub(logger, cfg.AllowedOrigins)
	server := web.NewServer(web.Options{
		Store:          store.NewMemoryStore(store.MemoryOptions{Seed: !cfg.Prod()}),
		Archive:        results,
		Live:           hub,
		Logger:         logger,
		Defaults:       cfg.Defaults,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	handler := server.Routes()

	if cfg.Lambda {
		logger.Info("starting in lambda mode")
		adapter := httpadapter.New(handler)
		lambda.StartWithOptions(adapter.ProxyWithContext, lambda.WithContext(ctx))
		return
	}

	if err := serve(ctx, cfg, logger, handler, hub); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.Prod() || cfg.Lambda {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func openArchive(ctx context.Context, cfg config.Config, logger *slog.Logger) (archive.Archive, error) {
	var sinks []archive.Archive
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	if cfg.SQLitePath != "" {
		a, err := archive.NewSQLiteArchive(cfg.SQLitePath, archive.SQLiteOptions{MigrationsDir: cfg.MigrationsDir})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, a)
		logger.Info("archiving results to sqlite", "path", cfg.SQLitePath)
	}
	if cfg.PostgresDSN != "" {
		a, err := archive.NewPostgresArchive(cfg.PostgresDSN, archive.PostgresOptions{MigrationsDir: cfg.MigrationsDir})
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, a)
		logger.Info("archiving results to postgres")
	}
	if cfg.S3Bucket != "" {
		a, err := archive.NewS3Archive(ctx, archive.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, a)
		logger.Info("archiving results to s3", "bucket", cfg.S3Bucket)
	}

	if len(sinks) == 0 {
		return archive.Nop{}, nil
	}
	multi := archive.NewMulti(sinks...)
	logger.Info("archive ready", "sinks", multi.Len())
	return multi, nil
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, handler http.Handler, hub *live.Hub) error {
	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server", "timeout", shutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
