// Package admin holds the operator-facing pokvaultd commands.
package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pokvault/pokvault/internal/api/handlers"
	"github.com/pokvault/pokvault/internal/config"
	"github.com/pokvault/pokvault/internal/database"
	"github.com/pokvault/pokvault/internal/embed"
	"github.com/pokvault/pokvault/internal/repository"
	"github.com/pokvault/pokvault/internal/server"
	"github.com/pokvault/pokvault/internal/service"
	"github.com/pokvault/pokvault/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the pokvault API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pokRepo := repository.NewPokRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewAPITokenRepository(pool)

	provider := newEmbeddingProvider(cfg)
	if provider == nil {
		log.Println("no embedding provider configured, semantic search disabled")
	}

	var generator *service.EmbeddingGenerator
	var dispatcher service.GenerationDispatcher = noopDispatcher{}
	if provider != nil {
		generator = service.NewEmbeddingGenerator(provider, pokRepo)
		dispatcher = generator
	}

	backfill := service.NewBackfillCoordinator(pokRepo, dispatcher, cfg.BackfillBatchSize, cfg.BackfillBatchDelay)

	pokSvc := service.NewPokService(pokRepo, dispatcher)
	searchSvc := service.NewSearchEngine(pokRepo, provider, cfg.SearchOverfetchFactor)
	authSvc := service.NewAuthService(userRepo, tokenRepo)

	routerCfg := server.RouterConfig{
		AuthValidator: authSvc,
		InternalKey:   cfg.AdminInternalKey,
		PokHandler:    handlers.NewPokHandler(pokSvc, searchSvc),
		AdminHandler:  handlers.NewAdminHandler(backfill),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if generator != nil {
		// Let in-flight embedding generations finish before exiting.
		generator.Wait()
	}

	log.Println("server exited")
	return nil
}

// newEmbeddingProvider builds the configured provider: HuggingFace when
// HF_API_KEY is set, otherwise OpenAI, otherwise nil.
func newEmbeddingProvider(cfg *config.Config) embed.Provider {
	switch {
	case cfg.HasHuggingFace():
		return embed.NewHuggingFaceProvider(embed.HuggingFaceConfig{
			APIKey:     cfg.HFAPIKey,
			ModelURL:   cfg.HFModelURL,
			MaxRetries: cfg.HFMaxRetries,
			Dimensions: cfg.EmbeddingDimensions,
		})
	case cfg.HasOpenAI():
		return embed.NewOpenAIProvider(embed.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Dimensions: cfg.EmbeddingDimensions,
		})
	default:
		return nil
	}
}

// noopDispatcher stands in when no embedding provider is configured. New
// poks simply stay without an embedding until a provider is set up and the
// backfill runs.
type noopDispatcher struct{}

func (noopDispatcher) Dispatch(pokID string) {}

func runMigrations(databaseURL string) error {
	// golang-migrate needs database/sql, not pgx native
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
