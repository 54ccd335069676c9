package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/insightpilot/insightpilot/internal/config"
	"github.com/insightpilot/insightpilot/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize InsightPilot",
	Long: `Initialize InsightPilot in your home directory.

This creates:
  ~/.insightpilot/config.yaml    - Configuration file
  ~/.insightpilot/data/          - Pattern database
  ~/.insightpilot/inbox/         - Drop saved records here for the daemon`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("🧠 Initializing InsightPilot...")

		// Create directories
		dirs := []string{filepath.Dir(cfg.Path), cfg.DataDir}
		if cfg.Inbox.Enabled {
			dirs = append(dirs, cfg.Inbox.Dir, cfg.ProcessedDir())
		}
		for _, dir := range dirs {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
		fmt.Println("   ✓ Created directories")

		// Create config file if it doesn't exist
		if _, err := os.Stat(cfg.Path); os.IsNotExist(err) {
			if err := os.WriteFile(cfg.Path, []byte(config.DefaultFile), 0644); err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			fmt.Println("   ✓ Created config.yaml")
		} else {
			fmt.Println("   ✓ Config exists")
		}

		// Initialize database
		s, err := store.New(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		s.Close()
		fmt.Println("   ✓ Initialized database")

		fmt.Println()
		fmt.Println("✅ InsightPilot initialized!")
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  1. Teach it:          insightpilot learn --category Health --skill Fitness \"gym workout\"")
		fmt.Println("  2. Ask for help:      insightpilot suggest \"gym with @alex\"")
		fmt.Println("  3. Learn in the background: insightpilot daemon start")
		fmt.Println()
		fmt.Println("For MCP integration:")
		fmt.Println("  Add to your MCP config:")
		fmt.Println(`  {`)
		fmt.Println(`    "mcpServers": {`)
		fmt.Println(`      "insightpilot": {`)
		fmt.Println(`        "command": "insightpilot",`)
		fmt.Println(`        "args": ["mcp"]`)
		fmt.Println(`      }`)
		fmt.Println(`    }`)
		fmt.Println(`  }`)

		return nil
	},
}
