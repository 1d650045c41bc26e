package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pokvault/pokvault/internal/config"
	"github.com/pokvault/pokvault/internal/database"
	"github.com/pokvault/pokvault/internal/repository"
	"github.com/pokvault/pokvault/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
		Long:  "Create and look up users",
	}

	cmd.AddCommand(UserCreateCmd())
	cmd.AddCommand(UserGetCmd())

	return cmd
}

func UserCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <handle>",
		Short: "Create a new user",
		Long:  "Create a new user with the specified handle",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserCreate,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handle := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	authSvc := service.NewAuthService(userRepo, nil)

	user, err := authSvc.CreateUser(ctx, handle)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         user.ID,
			"handle":     user.Handle,
			"created_at": user.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("User created: %s (%s)\n", user.Handle, user.ID)
	}

	return nil
}

func UserGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <handle>",
		Short: "Look up a user by handle",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserGet,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runUserGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handle := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)

	user, err := userRepo.GetByHandle(ctx, handle)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         user.ID,
			"handle":     user.Handle,
			"created_at": user.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("%s: %s (created: %s)\n", user.ID, user.Handle, user.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return pool, nil
}
