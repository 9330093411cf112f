package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/auditlens/auditlens-engine/pkg/analysis"
	"github.com/auditlens/auditlens-engine/pkg/config"
	"github.com/auditlens/auditlens-engine/pkg/database"
	"github.com/auditlens/auditlens-engine/pkg/handlers"
	"github.com/auditlens/auditlens-engine/pkg/llm"
	"github.com/auditlens/auditlens-engine/pkg/logging"
	"github.com/auditlens/auditlens-engine/pkg/middleware"
	"github.com/auditlens/auditlens-engine/pkg/moneyloss"
	"github.com/auditlens/auditlens-engine/pkg/refdata"
	"github.com/auditlens/auditlens-engine/pkg/repositories"
	"github.com/auditlens/auditlens-engine/pkg/retry"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	logger.Info("Connecting to database",
		zap.String("dsn", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		// pgx connect errors embed the DSN, so sanitize before surfacing.
		return fmt.Errorf("failed to connect to database: %s", logging.SanitizeError(err))
	}
	defer db.Close()

	if err := migrate(ctx, cfg, logger); err != nil {
		return err
	}

	dataSources := repositories.NewDataSourceRepository(db)
	records := repositories.NewRecordRepository(db)
	findings := repositories.NewFindingRepository(db)
	runs := repositories.NewAnalysisRunRepository(db)
	dashboard := repositories.NewDashboardRepository(db)

	// Focus areas and issue types are seeded by migrations and stable for
	// the process lifetime, so load them once at startup.
	snapshot, err := refdata.Load(ctx, repositories.NewReferenceRepository(db))
	if err != nil {
		return fmt.Errorf("failed to load reference data: %w", err)
	}

	generator, err := llm.NewFromConfig(&cfg.AI, logger.Named("llm"))
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	if generator == nil {
		logger.Info("No AI provider configured, LLM money-loss estimation unavailable")
	}

	lossEngine := moneyloss.NewHybridEngine(
		moneyloss.NewLLMEstimator(generator, logger.Named("moneyloss")),
		moneyloss.NewMLEstimator(cfg.ML.ModelPath, logger.Named("moneyloss")),
		logger.Named("moneyloss"),
	)

	analyzer := analysis.NewAnalyzer(
		dataSources, records, findings, runs,
		snapshot, lossEngine,
		cfg.Analysis.UseLLM, cfg.Analysis.UseML,
		logger.Named("analysis"),
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger.Named("handlers")).RegisterRoutes(mux)
	handlers.NewAnalysisHandler(analyzer, runs, findings, logger.Named("handlers")).RegisterRoutes(mux)
	handlers.NewFindingsHandler(findings, snapshot, logger.Named("handlers")).RegisterRoutes(mux)
	handlers.NewDataSourcesHandler(dataSources, logger.Named("handlers")).RegisterRoutes(mux)
	handlers.NewDashboardHandler(dashboard, logger.Named("handlers")).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger.Named("http"))(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting auditlens-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.Bool("use_llm", cfg.Analysis.UseLLM),
		zap.Bool("use_ml", cfg.Analysis.UseML),
	)
	return http.ListenAndServe(addr, handler)
}

// migrate applies pending schema migrations. golang-migrate needs
// database/sql, so this opens a short-lived connection separate from the
// pgx pool. Retries with backoff cover the window where the database
// container is still coming up.
func migrate(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		return database.RunMigrations(sqlDB, cfg.MigrationsPath, logger)
	})
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func newLogger(env string) (*zap.Logger, error) {
	switch env {
	case "local", "dev":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}
