package commands

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tryon-storefront/internal/application/usecases"
	"tryon-storefront/internal/config"
	"tryon-storefront/internal/domain/entities"
	"tryon-storefront/internal/domain/repositories"
	domainservices "tryon-storefront/internal/domain/services"
	"tryon-storefront/internal/infrastructure/external"
	infrarepos "tryon-storefront/internal/infrastructure/repositories"
	"tryon-storefront/internal/infrastructure/services"
)

// tryOnDeps is everything one CLI invocation needs to drive a session.
type tryOnDeps struct {
	pool      repositories.HTTPClientPool
	client    *external.HeadSwapAPIClient
	catalog   *infrarepos.FileReferenceCatalog
	validator *domainservices.UploadValidator
	clock     *domainservices.RevealClock
}

func newDeps(cfg *config.Config, logger *zap.Logger) (*tryOnDeps, error) {
	clock, err := domainservices.NewRevealClock(cfg.Reveal.Duration, cfg.Reveal.Ceiling, cfg.Reveal.FrameInterval)
	if err != nil {
		return nil, err
	}

	pool := services.NewHTTPClientPool(cfg.RemoteClient())
	return &tryOnDeps{
		pool:      pool,
		client:    external.NewHeadSwapAPIClient(cfg.API.BaseURL, pool, logger),
		catalog:   infrarepos.NewFileReferenceCatalog(cfg.Reference.ImagesDir, cfg.Reference.URLPrefix),
		validator: domainservices.NewUploadValidator(cfg.Upload.MaxBytes),
		clock:     clock,
	}, nil
}

func (d *tryOnDeps) newOrchestrator(cfg *config.Config, logger *zap.Logger) *usecases.TryOnOrchestrator {
	return usecases.NewTryOnOrchestrator(
		entities.SessionID(uuid.NewString()),
		usecases.OrchestratorDeps{
			Analyzer:   d.client,
			Swapper:    d.client,
			References: d.catalog,
			Clock:      d.clock,
		},
		usecases.OrchestratorConfig{
			Garment:     cfg.Reference.Garment,
			SettleDelay: cfg.Reveal.SettleDelay,
		},
		logger,
	)
}

func (d *tryOnDeps) Close() error {
	return d.pool.Close()
}
