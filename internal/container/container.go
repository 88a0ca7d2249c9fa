package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Suryanandx/2d-code-verifier/internal/config"
	"github.com/Suryanandx/2d-code-verifier/internal/factory"
	"github.com/Suryanandx/2d-code-verifier/internal/logger"
	"github.com/Suryanandx/2d-code-verifier/internal/observer"
	"github.com/Suryanandx/2d-code-verifier/internal/repository"
	"github.com/Suryanandx/2d-code-verifier/internal/service"
	"github.com/Suryanandx/2d-code-verifier/internal/transport"
	"github.com/Suryanandx/2d-code-verifier/internal/verifier"
	"github.com/Suryanandx/2d-code-verifier/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config              *config.Config
	repository          repository.ReportRepository
	events              *observer.EventPublisher
	counters            *observer.MetricsObserver
	verifier            *verifier.Verifier
	verificationService service.VerificationService
	handler             http.Handler
}

// NewContainer builds the dependency graph from cfg
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	v, err := components.VerifierFactory.CreateVerifier(cfg.Calibration)
	if err != nil {
		return nil, fmt.Errorf("failed to create verifier: %w", err)
	}

	repo, err := components.RepositoryFactory.CreateRepository(factory.RepositoryTypeFor(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	storageType := factory.StorageTypeFor(cfg)
	archive, err := components.StorageFactory.CreateArchive(ctx, storageType)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create %s archive: %w", storageType, err)
	}

	events := observer.NewEventPublisher()
	counters := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(counters)

	svc := service.NewVerificationService(service.Dependencies{
		Verifier:        v,
		Repository:      repo,
		Fetcher:         components.StorageFactory.CreateFetcher(),
		Archive:         archive,
		URLValidator:    validation.NewURLValidatorWithOptions([]string{"http", "https"}, cfg.AllowedImageHosts),
		HRI:             factory.CreateHRIChecker(cfg),
		Events:          events,
		AnalysisTimeout: cfg.AnalysisTimeout,
	})

	logger.WithField("repository", factory.RepositoryTypeFor(cfg)).
		WithField("archive", storageType).
		WithField("hri_check", cfg.HRICheck).
		Info("Container initialized")

	c := &Container{
		config:              cfg,
		repository:          repo,
		events:              events,
		counters:            counters,
		verifier:            v,
		verificationService: svc,
	}
	c.handler = transport.NewHandler(svc, cfg, c.stats)
	return c, nil
}

// stats merges the event counters with the metric worker pool totals.
func (c *Container) stats() map[string]interface{} {
	out := c.counters.GetMetrics()
	out["metric_jobs"] = c.verifier.Stats()
	return out
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the verification service
func (c *Container) Service() service.VerificationService {
	return c.verificationService
}

// Close waits for pending event notifications and releases the repository.
func (c *Container) Close() error {
	c.events.Wait()
	return c.repository.Close()
}
