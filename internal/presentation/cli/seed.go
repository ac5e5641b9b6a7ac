package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/colleshop/internal/domain/catalog"
	"github.com/Zhima-Mochi/colleshop/internal/domain/settings"
	"github.com/Zhima-Mochi/colleshop/internal/domain/user"
	"github.com/Zhima-Mochi/colleshop/internal/pkg/logging"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	adminUserID = "admin"
	adminEmail  = "admin@colleshop.it"
	seedStock   = 50
)

var seedProducts = []catalog.Product{
	{
		ID:          "tintilia-del-molise",
		Name:        "Tintilia del Molise DOC",
		Type:        "Rosso",
		Description: "Il re dei vitigni autoctoni molisani. Un rosso strutturato, elegante, con note di frutti di bosco, spezie e un finale balsamico.",
		Price:       decimal.RequireFromString("24.00"),
		Image:       "/images/tintilia_bottle.png",
	},
	{
		ID:          "falanghina-del-molise",
		Name:        "Falanghina del Molise DOC",
		Type:        "Bianco",
		Description: "Un bianco fresco e minerale. Profumi di agrumi, fiori bianchi e mela verde.",
		Price:       decimal.RequireFromString("18.00"),
		Image:       "/images/falanghina_bottle.png",
	},
	{
		ID:          "rosato-del-molise",
		Name:        "Rosato del Molise DOC",
		Type:        "Rosato",
		Description: "Un rosato vibrante e versatile, profumi di fragola e rosa canina.",
		Price:       decimal.RequireFromString("20.00"),
		Image:       "/images/rosato_bottle.png",
	},
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the wine catalog, default site settings and the admin user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger(cfg.ServiceName, cfg.Env)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx := logging.ContextWithFields(logging.ContextWithLogger(cmd.Context(), logger), zap.String("command", "seed"))
			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.close()

			return seed(ctx, st)
		},
	}
}

// seed is idempotent: products, settings and the admin are upserted by fixed ids.
func seed(ctx context.Context, st *stores) error {
	log := logging.FromContext(ctx)
	now := time.Now().UTC()

	for i := range seedProducts {
		p := seedProducts[i]
		p.Stock = seedStock
		p.CreatedAt = now
		if err := st.products.Upsert(ctx, &p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
		log.Info("seed_product", zap.String("product_id", p.ID), zap.String("price", p.Price.StringFixed(2)))
	}

	defaults := settings.Defaults()
	defaults.ContactEmail = "info@colleshop.it"
	if err := st.settings.Save(ctx, defaults); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	admin := &user.User{ID: adminUserID, Email: adminEmail, FullName: "ColleShop Admin", Role: user.RoleAdmin}
	if err := st.users.Upsert(ctx, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Info("seed_done", zap.Int("products", len(seedProducts)), zap.String("admin", adminEmail))
	return nil
}
