package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/insightpilot/insightpilot/internal/agent"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the InsightPilot background daemon",
	Long: `Start, stop, or check the status of the InsightPilot background daemon.

The daemon learns from records dropped into the inbox directory and prunes
stale patterns on an interval.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the InsightPilot daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if agent.Running(cfg.PIDPath()) {
			return fmt.Errorf("daemon already running (pid file %s)", cfg.PIDPath())
		}

		fmt.Println("🧠 Starting InsightPilot daemon...")

		a, err := agent.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Start the agent
		if err := a.Start(ctx); err != nil {
			return fmt.Errorf("failed to start agent: %w", err)
		}

		fmt.Println("✅ InsightPilot daemon started")
		if cfg.Inbox.Enabled {
			fmt.Printf("   Watching %s\n", cfg.Inbox.Dir)
		}
		fmt.Println("   Press Ctrl+C to stop")

		// Wait for shutdown signal
		<-ctx.Done()

		fmt.Println("\n🛑 Shutting down...")
		a.Stop()
		fmt.Println("✅ InsightPilot daemon stopped")

		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the InsightPilot daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := agent.Signal(cfg.PIDPath())
		if errors.Is(err, agent.ErrNotRunning) {
			fmt.Println("🔴 Daemon is not running")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
		fmt.Printf("🛑 Sent stop signal to daemon (pid %d)\n", pid)
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Daemon: %s\n", getStatusEmoji(agent.Running(cfg.PIDPath())))
		return nil
	},
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}
