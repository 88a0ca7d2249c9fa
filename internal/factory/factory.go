package factory

import (
	"context"
	"fmt"

	"github.com/Suryanandx/2d-code-verifier/internal/config"
	"github.com/Suryanandx/2d-code-verifier/internal/hri"
	"github.com/Suryanandx/2d-code-verifier/internal/repository"
	"github.com/Suryanandx/2d-code-verifier/internal/storage"
	"github.com/Suryanandx/2d-code-verifier/internal/verifier"
)

// StorageType represents different archive backends
type StorageType string

const (
	// NoStorage disables archiving of uploaded images
	NoStorage StorageType = "none"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// RepositoryType represents different report stores
type RepositoryType string

const (
	MemoryRepository RepositoryType = "memory"
	SQLiteRepository RepositoryType = "sqlite"
)

// StorageTypeFor picks the archive backend the configuration asks for.
// Azure wins when both Azure and a local directory are configured.
func StorageTypeFor(cfg *config.Config) StorageType {
	switch {
	case cfg.AzureAccount != "":
		return AzureStorage
	case cfg.ArchiveDir != "":
		return LocalStorage
	default:
		return NoStorage
	}
}

// RepositoryTypeFor picks SQLite when a database path is configured.
func RepositoryTypeFor(cfg *config.Config) RepositoryType {
	if cfg.DBPath != "" {
		return SQLiteRepository
	}
	return MemoryRepository
}

// VerifierFactory creates verification pipelines
type VerifierFactory interface {
	CreateVerifier(cal config.Calibration) (*verifier.Verifier, error)
}

// StorageFactory creates fetchers and archives
type StorageFactory interface {
	CreateFetcher() storage.ImageFetcher
	// CreateArchive returns a nil Archive for NoStorage.
	CreateArchive(ctx context.Context, storageType StorageType) (storage.Archive, error)
}

// RepositoryFactory creates report repositories
type RepositoryFactory interface {
	CreateRepository(repositoryType RepositoryType) (repository.ReportRepository, error)
}

type verifierFactory struct{}

// NewVerifierFactory creates a new verifier factory
func NewVerifierFactory() VerifierFactory {
	return &verifierFactory{}
}

func (f *verifierFactory) CreateVerifier(cal config.Calibration) (*verifier.Verifier, error) {
	return verifier.New(cal)
}

type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

func (f *storageFactory) CreateFetcher() storage.ImageFetcher {
	opts := storage.DefaultFetcherOptions()
	opts.Timeout = f.cfg.ImageFetchTimeout
	opts.MaxBytes = f.cfg.MaxRequestBodySize
	return storage.NewHTTPImageFetcherWithOptions(opts)
}

func (f *storageFactory) CreateArchive(ctx context.Context, storageType StorageType) (storage.Archive, error) {
	switch storageType {
	case NoStorage:
		return nil, nil
	case AzureStorage:
		return storage.NewAzureArchive(ctx, f.cfg.AzureAccount, f.cfg.AzureKey, f.cfg.AzureContainer, f.cfg.AzureServiceURL)
	case LocalStorage:
		return storage.NewLocalArchive(f.cfg.ArchiveDir)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

type repositoryFactory struct {
	cfg *config.Config
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config) RepositoryFactory {
	return &repositoryFactory{cfg: cfg}
}

func (f *repositoryFactory) CreateRepository(repositoryType RepositoryType) (repository.ReportRepository, error) {
	switch repositoryType {
	case MemoryRepository:
		return repository.NewMemoryRepository(), nil
	case SQLiteRepository:
		return repository.NewSQLiteRepository(f.cfg.DBPath)
	default:
		return nil, fmt.Errorf("unsupported repository type: %s", repositoryType)
	}
}

// CreateHRIChecker returns nil when the check is disabled.
func CreateHRIChecker(cfg *config.Config) *hri.Checker {
	if !cfg.HRICheck {
		return nil
	}
	return hri.NewChecker(hri.NewTesseractReader(), cfg.HRILanguage)
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	VerifierFactory   VerifierFactory
	StorageFactory    StorageFactory
	RepositoryFactory RepositoryFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		VerifierFactory:   NewVerifierFactory(),
		StorageFactory:    NewStorageFactory(cfg),
		RepositoryFactory: NewRepositoryFactory(cfg),
	}
}
