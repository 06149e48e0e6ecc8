package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/analysis"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/asset"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/backend"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/config"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/logger"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/observer"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/repository"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/service"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/storage"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config  *config.Config
	manager *asset.Manager
	service service.AnalysisService
	metrics *observer.MetricsObserver
	handler http.Handler
}

// NewContainer builds the dependency graph from the configuration
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	gemini, err := backend.NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.ModelID, cfg.Temperature)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini backend: %w", err)
	}

	manager := asset.NewManager(gemini, cfg.PollInterval, cfg.PollTimeout)
	orchestrator := analysis.NewOrchestrator(gemini)
	fetcher := storage.NewHTTPMediaFetcher(cfg.MaxRequestBodySize)

	var blobs storage.BlobStorage
	if cfg.AzureAccountName != "" && cfg.AzureAccountKey != "" {
		blobs, err = storage.NewAzureStorage(cfg.AzureAccountName, cfg.AzureAccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure storage: %w", err)
		}
	}

	var results repository.ResultRepository
	if cfg.RedisAddr != "" {
		results = repository.NewRedisResultRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ResultTTL)
	} else {
		results = repository.NewMemoryResultRepository()
	}

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	analysisService := service.NewAnalysisService(manager, orchestrator, fetcher, blobs, results, events)
	handler := transport.NewHandler(analysisService, metrics, cfg)

	return &Container{
		config:  cfg,
		manager: manager,
		service: analysisService,
		metrics: metrics,
		handler: handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Service returns the analysis service
func (c *Container) Service() service.AnalysisService {
	return c.service
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
