package cli

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quizgen-service/internal/app"
	"quizgen-service/internal/config"
	"quizgen-service/internal/domain"
	"quizgen-service/internal/generator"
	"quizgen-service/internal/infra/memory"
	pginfra "quizgen-service/internal/infra/postgres"
	redisinfra "quizgen-service/internal/infra/redis"
	"quizgen-service/internal/logging"
	"quizgen-service/internal/metrics"
	transport "quizgen-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New("quizgen-service")

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Session.TTL, 30*time.Minute)
	taxonomyTTL := config.TTLDuration(cfg.Taxonomy.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	var bunDB *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
	}

	var taxonomy app.TaxonomyRepository
	if pool != nil && redisClient != nil {
		taxonomy = redisinfra.NewTaxonomyCache(redisClient, pginfra.NewTaxonomyLoader(pool), taxonomyTTL)
	} else if pool != nil {
		taxonomy = memory.NewTaxonomyCache(pginfra.NewTaxonomyLoader(pool), taxonomyTTL)
	} else {
		taxonomy = memory.NewTaxonomyCache(memory.NewStaticTaxonomyLoader(sampleTaxonomy()), taxonomyTTL)
	}

	var sessions app.SessionStore = memory.NewSessionStore()
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	}

	var attempts app.AttemptStore
	var users app.UserStore
	if bunDB != nil {
		store := pginfra.NewStore(bunDB)
		attempts = store
		users = store
	} else {
		attempts = memory.NewAttemptStore(sampleTaxonomy())
		users = memory.NewUserStore()
	}

	baseURL := cfg.Generator.BaseURL
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	model := cfg.Generator.Model
	if model == "" {
		model = "google/gemini-flash-1.5"
	}
	gen := generator.NewClient(baseURL, os.Getenv("OPENROUTER_API_KEY"), model,
		config.TTLDuration(cfg.Generator.Timeout, 60*time.Second))

	quizService := app.NewQuizService(gen, sessions, taxonomy, attempts, log)
	aggregator := app.NewAggregator(attempts)
	accounts := app.NewAccountService(users)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	handler := transport.NewHandler(quizService, aggregator, accounts, m, log)
	play := transport.NewPlayHandler(quizService, log)

	mux := handler.Routes()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/play", play.ServeWS)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.LoggingMiddleware(log, mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleTaxonomy provides a starter category tree for demo mode; with
// Postgres configured the seed command owns this data instead.
func sampleTaxonomy() []domain.Category {
	return []domain.Category{
		{
			ID:          "7f0b2c9e-0001-4c70-9a1f-3f62c1a30001",
			Name:        "Mathematics",
			Description: "Numbers, structures, and proofs",
			SubCategories: []domain.SubCategory{
				{ID: "7f0b2c9e-0101-4c70-9a1f-3f62c1a30001", Name: "Algebra", CategoryID: "7f0b2c9e-0001-4c70-9a1f-3f62c1a30001"},
				{ID: "7f0b2c9e-0102-4c70-9a1f-3f62c1a30001", Name: "Geometry", CategoryID: "7f0b2c9e-0001-4c70-9a1f-3f62c1a30001"},
			},
		},
		{
			ID:          "7f0b2c9e-0002-4c70-9a1f-3f62c1a30002",
			Name:        "Science",
			Description: "The natural world",
			SubCategories: []domain.SubCategory{
				{ID: "7f0b2c9e-0201-4c70-9a1f-3f62c1a30002", Name: "Physics", CategoryID: "7f0b2c9e-0002-4c70-9a1f-3f62c1a30002"},
				{ID: "7f0b2c9e-0202-4c70-9a1f-3f62c1a30002", Name: "Biology", CategoryID: "7f0b2c9e-0002-4c70-9a1f-3f62c1a30002"},
			},
		},
		{
			ID:          "7f0b2c9e-0003-4c70-9a1f-3f62c1a30003",
			Name:        "History",
			Description: "People and events",
			SubCategories: []domain.SubCategory{
				{ID: "7f0b2c9e-0301-4c70-9a1f-3f62c1a30003", Name: "World History", CategoryID: "7f0b2c9e-0003-4c70-9a1f-3f62c1a30003"},
			},
		},
	}
}
