package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pokvault/pokvault/internal/domain"
	"github.com/pokvault/pokvault/internal/repository"
	"github.com/pokvault/pokvault/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func resolveUserID(ctx context.Context, userRepo *repository.UserRepository, userRef string) (string, error) {
	if _, err := uuid.Parse(userRef); err == nil {
		user, err := userRepo.GetByID(ctx, userRef)
		if err != nil {
			return "", fmt.Errorf("user not found: %s", userRef)
		}
		return user.ID, nil
	}

	user, err := userRepo.GetByHandle(ctx, userRef)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", fmt.Errorf("user not found: %s", userRef)
		}
		return "", err
	}
	return user.ID, nil
}

func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
		Long:  "Create and revoke API tokens",
	}

	cmd.AddCommand(TokenCreateCmd())
	cmd.AddCommand(TokenRevokeCmd())

	return cmd
}

func TokenCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API token",
		Long:  "Create a new API token for a user",
		RunE:  runTokenCreate,
	}

	cmd.Flags().StringP("user", "u", "", "User ID or handle (required)")
	cmd.Flags().StringP("name", "n", "", "Token name (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	userRef, _ := cmd.Flags().GetString("user")
	name, _ := cmd.Flags().GetString("name")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewAPITokenRepository(pool)
	authSvc := service.NewAuthService(userRepo, tokenRepo)

	userID, err := resolveUserID(ctx, userRepo, userRef)
	if err != nil {
		return err
	}

	plaintext, err := authSvc.CreateToken(ctx, userID, name)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"name":  name,
			"user":  userID,
			"token": plaintext,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Token created for user %s\n", userID)
		fmt.Printf("Token Name: %s\n", name)
		fmt.Printf("Token: %s\n", plaintext)
		fmt.Println("\nSave this token now. You won't be able to see it again!")
	}

	return nil
}

func TokenRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API token",
		Long:  "Revoke an API token by its ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runTokenRevoke,
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runTokenRevoke(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	tokenID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tokenRepo := repository.NewAPITokenRepository(pool)
	if err := tokenRepo.Revoke(ctx, tokenID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":      tokenID,
			"revoked": true,
			"message": "token revoked successfully",
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Token %s revoked successfully\n", tokenID)
	}

	return nil
}
