package app

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
	"github.com/vladislavdragonenkov/textilestore/internal/storage/memory"
	"github.com/vladislavdragonenkov/textilestore/internal/storage/postgres"
)

// runtimeDependencies — репозитории выбранного хранилища.
type runtimeDependencies struct {
	catalogs     domain.CatalogRepository
	products     domain.ProductRepository
	orders       domain.OrderRepository
	users        domain.UserRepository
	timelineRepo domain.TimelineRepository
	outboxRepo   domain.OutboxRepository
	idempotency  domain.IdempotencyRepository
	// store задан только для postgres.
	store *postgres.Store
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.store == nil {
		return
	}
	if err := d.store.Close(); err != nil {
		logger.WithError(err).Warn("failed to close postgres store")
	}
}

// initRuntimeDependencies создаёт репозитории по cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	driver := StorageDriver(strings.ToLower(strings.TrimSpace(string(cfg.StorageDriver))))
	if driver == "" {
		driver = StorageDriverMemory
	}

	switch driver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			catalogs:     memory.NewCatalogRepository(),
			products:     memory.NewProductRepository(),
			orders:       memory.NewOrderRepository(),
			users:        memory.NewUserRepository(),
			timelineRepo: memory.NewTimelineRepository(),
			outboxRepo:   memory.NewOutboxRepository(),
			idempotency:  memory.NewIdempotencyRepository(),
		}, nil

	case StorageDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
			logger.Info("postgres schema is up to date")
		}
		return &runtimeDependencies{
			catalogs:     postgres.NewCatalogRepository(store),
			products:     postgres.NewProductRepository(store),
			orders:       postgres.NewOrderRepository(store),
			users:        postgres.NewUserRepository(store),
			timelineRepo: postgres.NewTimelineRepository(store),
			outboxRepo:   postgres.NewOutboxRepository(store),
			idempotency:  postgres.NewIdempotencyRepository(store),
			store:        store,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
