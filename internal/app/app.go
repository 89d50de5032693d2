// Package app wires configuration, storage, the provider client and the
// usecase services shared by the server and the operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/simaogato/fundfolio-backend/internal/adapter/provider/rapidapi"
	badgerstore "github.com/simaogato/fundfolio-backend/internal/adapter/repository/badger"
	"github.com/simaogato/fundfolio-backend/internal/adapter/repository/memory"
	"github.com/simaogato/fundfolio-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/fundfolio-backend/internal/cache"
	"github.com/simaogato/fundfolio-backend/internal/common"
	"github.com/simaogato/fundfolio-backend/internal/domain"
	"github.com/simaogato/fundfolio-backend/internal/usecase/catalog"
	"github.com/simaogato/fundfolio-backend/internal/usecase/fundsync"
	"github.com/simaogato/fundfolio-backend/internal/usecase/ledger"
	"github.com/simaogato/fundfolio-backend/internal/usecase/portfolio"
)

const connectDelay = 2 * time.Second

// App holds the wired components
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	FundRepo    domain.FundRepository
	HoldingRepo domain.HoldingRepository
	Provider    domain.FundProvider

	SyncService      *fundsync.Service
	LedgerService    *ledger.Service
	PortfolioService *portfolio.Service
	CatalogService   *catalog.Service

	closers []func() error
}

// New builds every component described by config
func New(ctx context.Context, config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{Config: config, Logger: logger}

	if err := a.initStorage(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Provider = NewProvider(&config.Clients.RapidAPI, logger)

	a.SyncService = fundsync.NewService(a.FundRepo, a.Provider, logger, fundsync.WithConcurrency(config.Refresh.Concurrency))
	a.LedgerService = ledger.NewService(a.HoldingRepo, a.FundRepo, logger)
	a.PortfolioService = portfolio.NewService(a.SyncService, a.LedgerService, logger)
	a.CatalogService = catalog.NewService(a.Provider, logger)

	logger.Info().
		Str("storage", config.Storage.Driver).
		Bool("provider_configured", config.Clients.RapidAPI.Configured()).
		Msg("Application initialized")

	return a, nil
}

// NewProvider builds the RapidAPI client from its configuration
func NewProvider(c *common.RapidAPIConfig, logger arbor.ILogger) *rapidapi.Client {
	return rapidapi.NewClient(c.URL, c.Host, c.APIKey,
		rapidapi.WithLogger(logger),
		rapidapi.WithTimeout(c.GetTimeout()),
		rapidapi.WithRateLimit(c.RateLimit),
		rapidapi.WithFundFamily(c.FundFamily),
		rapidapi.WithSchemeType(c.SchemeType),
		rapidapi.WithFieldPaths(rapidapi.FieldPaths{Code: c.CodePath, Name: c.NamePath, NAV: c.NAVPath}),
		rapidapi.WithCache(cache.NewTTL[[]domain.FundRecord](c.GetCacheTTL())),
	)
}

func (a *App) initStorage(ctx context.Context) error {
	storage := a.Config.Storage

	switch storage.Driver {
	case common.StorageDriverPostgres:
		db, err := postgres.Connect(ctx, storage.Postgres.DSN, storage.Postgres.ConnectTry, connectDelay)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		if storage.Postgres.Migrate {
			if err := db.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		a.FundRepo = postgres.NewFundRepository(db)
		a.HoldingRepo = postgres.NewHoldingRepository(db)

	case common.StorageDriverBadger:
		db, err := badgerstore.Open(storage.Badger.Path, a.Logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		a.FundRepo = badgerstore.NewFundRepository(db)
		a.HoldingRepo = badgerstore.NewHoldingRepository(db)

	case common.StorageDriverMemory:
		store := memory.NewStore()
		a.FundRepo = store.Funds()
		a.HoldingRepo = store.Holdings()

	default:
		return fmt.Errorf("unknown storage driver %q", storage.Driver)
	}

	a.Logger.Debug().Str("driver", storage.Driver).Msg("Storage initialized")
	return nil
}

// Close releases storage resources
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
