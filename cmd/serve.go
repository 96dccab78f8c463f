package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/CosmoTheDev/sonar-teams-notifier/internal/config"
	"github.com/CosmoTheDev/sonar-teams-notifier/internal/gateway"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive SonarQube webhooks and post Teams notifications",
	Long: `Starts an HTTP receiver for SonarQube project webhooks.

Point a SonarQube webhook (Project Settings > Webhooks) at:

  http://<host>:6090/api/sonar/webhook

Every accepted event runs one notification cycle. Scanner properties such as
sonar.analysis.sonar.teams.hook override the configured fallbacks.

Routes:
  GET  /health                 liveness check
  POST /api/sonar/webhook      SonarQube analysis event`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"listen address (default 127.0.0.1:6090, overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serveAddr != "" {
		cfg.Gateway.Addr = serveAddr
	}
	if !cfg.Notifier.Enabled {
		fmt.Println("Warning: notifier.enabled is false; events will be accepted but not posted.")
	}

	return gateway.New(cfg, newNotifier(cfg)).Start(ctx)
}
