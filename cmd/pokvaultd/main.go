package main

import (
	"fmt"
	"os"

	"github.com/pokvault/pokvault/internal/cli"
	"github.com/pokvault/pokvault/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pokvaultd",
		Short: "Pokvault daemon and CLI",
		Long:  "Pokvault daemon for running the API server and managing users, tokens, and embeddings",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.UserCmd())
	rootCmd.AddCommand(admin.TokenCmd())
	rootCmd.AddCommand(admin.BackfillCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
