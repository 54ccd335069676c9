package cmd

import (
	"github.com/spf13/cobra"

	"github.com/insightpilot/insightpilot/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for assistant integration.

This is typically spawned by an assistant or capture app.
The server communicates over stdio using the MCP protocol.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		server := mcp.NewServer(mcp.ServerConfig{
			Store:    s,
			Learning: cfg.Learning,
			Version:  version,
			Logger:   log,
		})

		// Run the server (blocks until stdin closes)
		return mcp.ServeStdio(server)
	},
}
