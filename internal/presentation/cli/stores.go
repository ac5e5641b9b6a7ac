package cli

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/colleshop/internal/config"
	"github.com/Zhima-Mochi/colleshop/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/colleshop/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	"github.com/Zhima-Mochi/colleshop/internal/domain/settings"
	"github.com/Zhima-Mochi/colleshop/internal/domain/user"
	"github.com/Zhima-Mochi/colleshop/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/colleshop/internal/infrastructure/postgres"
	"go.uber.org/zap"
)

type productStore interface {
	catalog.Repository
	dominv.Repository
}

type stores struct {
	products productStore
	orders   domorder.Repository
	users    user.Repository
	settings settings.Repository
	ping     func(context.Context) error
	close    func()
}

// openStores uses Postgres when DATABASE_URL is set and fails fast if it is unreachable.
// Without it everything lives in memory and is lost on restart.
func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("store_in_memory", zap.String("reason", "DATABASE_URL not set"))
		return &stores{
			products: memory.NewProductRepository(),
			orders:   memory.NewOrderRepository(),
			users:    memory.NewUserRepository(),
			settings: memory.NewSettingsRepository(),
			close:    func() {},
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Info("store_postgres_ready")
	return &stores{
		products: db.Products(),
		orders:   db.Orders(),
		users:    db.Users(),
		settings: db.Settings(),
		ping:     db.Ping,
		close:    db.Close,
	}, nil
}
