package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"ai-salesops-be/internal/bootstrap"
	"ai-salesops-be/internal/config"
	"ai-salesops-be/internal/pkg/logger"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "salesops",
	Short: "Score and rank CRM leads and opportunities with an LLM",
	Long:  "salesops ranks open leads and opportunities by LLM-assigned scores,\nwrites follow-up plans and answers pipeline questions from the terminal.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(followUpCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.Version = version
}

// loadCore builds the scoring and agent stack. Logs go to the file only
// so they never mix with command output or the MCP stdio stream.
func loadCore(cmd *cobra.Command) (*bootstrap.Container, error) {
	cfg := config.Load()
	log := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	return bootstrap.NewCore(cmd.Context(), cfg, log, nil)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
