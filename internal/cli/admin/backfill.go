package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pokvault/pokvault/internal/config"
	"github.com/pokvault/pokvault/internal/repository"
	"github.com/pokvault/pokvault/internal/service"
	"github.com/spf13/cobra"
)

func BackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Backfill missing embeddings",
		Long:  "Generate embeddings for all poks that are missing one, in rate-limited batches",
		RunE:  runBackfill,
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	provider := newEmbeddingProvider(cfg)
	if provider == nil {
		return fmt.Errorf("no embedding provider configured (set POKVAULT_HF_API_KEY or POKVAULT_OPENAI_API_KEY)")
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	pokRepo := repository.NewPokRepository(pool)
	generator := service.NewEmbeddingGenerator(provider, pokRepo)
	backfill := service.NewBackfillCoordinator(pokRepo, generator, cfg.BackfillBatchSize, cfg.BackfillBatchDelay)

	enqueued, err := backfill.Run(ctx)
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	// Dispatches run in the background; wait for them before reporting.
	generator.Wait()

	if outputFormat == "json" {
		data := map[string]interface{}{
			"enqueued": enqueued,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Backfill complete: %d poks enqueued\n", enqueued)
	}

	return nil
}
