package main

import (
	mcpserver "ai-salesops-be/internal/mcp"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the pipeline tools over MCP on stdio",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	core, err := loadCore(cmd)
	if err != nil {
		return err
	}

	srv := mcpserver.NewServer(version, mcpserver.Deps{
		Store:    core.Store,
		Ranker:   core.Scorer,
		FollowUp: core.FollowUp,
		Tools:    core.Tools,
		Agent:    core.Agent,
		Logger:   core.Logger,
	})
	return srv.Run(cmd.Context())
}
