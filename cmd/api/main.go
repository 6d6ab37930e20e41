package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/docgen"
	"go.uber.org/zap"

	"fillog/api/internal/app"
	"fillog/api/internal/authpw"
	"fillog/api/internal/config"
	"fillog/api/internal/metrics"
	"fillog/api/internal/search"
	"fillog/api/internal/session"
	"fillog/api/internal/store"
	"fillog/api/internal/upload"
)

const serviceName = "fillog"

func main() {
	routes := flag.Bool("routes", false, "print route documentation and exit")
	flag.Parse()

	cfg := config.Load()
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *routes {
		// Route docs only need the router shape, not live backends.
		server := app.NewHTTPServer(app.New(app.Options{}), cfg.CORSOrigin, logger, nil)
		fmt.Println(docgen.MarkdownRoutesDoc(server.Router(), docgen.MarkdownOpts{
			ProjectPath: "fillog/api",
			Intro:       "Fillog movie blog API routes.",
		}))
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	dataStore, err := store.OpenFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer dataStore.Close()
	logger.Info("store ready", zap.String("backend", cfg.Storage))

	var revocations authpw.Revocations = session.NewMemoryStore()
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisStore.Close()
		revocations = redisStore
		logger.Info("using redis token denylist")
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
	}
	searchService := search.NewService(meiliClient, search.NewStoreScan(dataStore), logger)
	defer searchService.Close()
	if meiliClient != nil {
		go searchService.ReindexAll(ctx)
	}

	uploads, err := openUploads(ctx, cfg)
	if err != nil {
		return err
	}

	m, err := metrics.New(serviceName)
	if err != nil {
		return err
	}
	m.SetGlobal()

	service := app.New(app.Options{
		Store: dataStore,
		Auth: authpw.NewService(dataStore, authpw.Options{
			TokenSecret: cfg.JWTSecret,
			TokenTTL:    cfg.TokenTTL,
			BcryptCost:  cfg.BcryptCost,
			Revocations: revocations,
		}),
		Search:  searchService,
		Uploads: uploads,
		Metrics: m,
		Logger:  logger,
	})

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger, m)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	diagRouter := chi.NewRouter()
	diagRouter.Method(http.MethodGet, "/metrics", m.Handler())
	diagServer := &http.Server{
		Addr:              cfg.DiagAddr,
		Handler:           diagRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("api listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		logger.Info("diag listening", zap.String("addr", cfg.DiagAddr))
		if err := diagServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("diag server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown", zap.Error(err))
	}
	if err := diagServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("diag shutdown", zap.Error(err))
	}
	return nil
}


func openUploads(ctx context.Context, cfg config.Config) (upload.Storage, error) {
	if strings.TrimSpace(cfg.MinIOEndpoint) == "" {
		return upload.NewLocal(cfg.UploadsDir)
	}
	return upload.NewMinIO(ctx, upload.MinIOConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
	})
}
