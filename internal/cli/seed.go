package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quizgen-service/internal/config"
	"quizgen-service/internal/infra/postgres"
	"quizgen-service/internal/logging"
)

// NewSeedCmd inserts the built-in quiz taxonomy into postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the quiz category taxonomy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
			db := bun.NewDB(sqldb, pgdialect.New())
			defer db.Close()

			store := postgres.NewStore(db)
			if err := store.InsertTaxonomy(cmd.Context(), sampleTaxonomy()); err != nil {
				return err
			}
			logging.New("quizgen-service").Info("taxonomy seeded")
			return nil
		},
	}
}
