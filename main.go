package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appservices "tryon-storefront/internal/application/services"
	"tryon-storefront/internal/application/usecases"
	"tryon-storefront/internal/config"
	"tryon-storefront/internal/domain/repositories"
	domainservices "tryon-storefront/internal/domain/services"
	"tryon-storefront/internal/infrastructure/api"
	"tryon-storefront/internal/infrastructure/external"
	infrarepos "tryon-storefront/internal/infrastructure/repositories"
	"tryon-storefront/internal/infrastructure/services"
)

const janitorInterval = time.Minute

// app is the wired BFF: the session API in front of the head-swap service.
type app struct {
	handler  http.Handler
	sessions *usecases.SessionManager
	pool     repositories.HTTPClientPool
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	// インフラ層を初期化
	pool := services.NewHTTPClientPool(cfg.RemoteClient())
	client := external.NewHeadSwapAPIClient(cfg.API.BaseURL, pool, logger)
	catalog := infrarepos.NewFileReferenceCatalog(cfg.Reference.ImagesDir, cfg.Reference.URLPrefix)
	store := infrarepos.NewMemorySessionStore[*usecases.TryOnOrchestrator]()

	// ドメイン層を初期化
	clock, err := domainservices.NewRevealClock(cfg.Reveal.Duration, cfg.Reveal.Ceiling, cfg.Reveal.FrameInterval)
	if err != nil {
		return nil, err
	}
	validator := domainservices.NewUploadValidator(cfg.Upload.MaxBytes)

	// アプリケーション層を初期化
	sessions := usecases.NewSessionManager(
		store,
		usecases.OrchestratorDeps{
			Analyzer:   client,
			Swapper:    client,
			References: catalog,
			Clock:      clock,
		},
		usecases.OrchestratorConfig{
			Garment:     cfg.Reference.Garment,
			SettleDelay: cfg.Reveal.SettleDelay,
		},
		logger,
	)
	uploadForm := appservices.NewUploadFormService(validator.MaxBytes())

	// API層を初期化
	handler := api.NewTryOnHandler(sessions, validator, uploadForm, logger)
	router := api.NewRouter(handler, cfg.Reference.ImagesDir, cfg.Reference.URLPrefix, logger)

	return &app{handler: router, sessions: sessions, pool: pool}, nil
}

func (a *app) Close(ctx context.Context) error {
	return errors.Join(a.sessions.Shutdown(ctx), a.pool.Close())
}

func main() {
	configPath := flag.String("config", "tryon.yaml", "config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.sessions.RunJanitor(ctx, janitorInterval, cfg.Server.SessionTTL)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		server.Close()
	}()

	logger.Info("listening",
		zap.Int("port", cfg.Server.Port),
		zap.String("api_url", cfg.API.BaseURL),
		zap.String("auth_mode", string(cfg.API.AuthMode)),
		zap.String("images_dir", cfg.Reference.ImagesDir),
	)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server closed", zap.Error(err))
	} else {
		logger.Info("server closed")
	}

	cancel()
	if err := a.Close(context.Background()); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
