package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/CosmoTheDev/sonar-teams-notifier/internal/config"
	"github.com/CosmoTheDev/sonar-teams-notifier/internal/sonar"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var (
	sendFile   string
	sendFormat string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Run one notification cycle for an analysis event file",
	Long: `Reads a SonarQube webhook event (JSON or YAML) and runs a single
notification cycle for it. Failures are logged, never retried.

Examples:
  sonarteams send --file event.json
  cat event.yaml | sonarteams send --file - --format yaml`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendFile, "file", "f", "", "event file, or - for stdin (required)")
	sendCmd.Flags().StringVar(&sendFormat, "format", "", "input format: json|yaml (default: from file extension, else json)")
	_ = sendCmd.MarkFlagRequired("file")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var data []byte
	if sendFile == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(sendFile)
	}
	if err != nil {
		return fmt.Errorf("reading event: %w", err)
	}

	evt, err := decodeEvent(data, eventFormat(sendFormat, sendFile))
	if err != nil {
		return err
	}

	nc := config.ResolveNotifierConfig(*cfg, evt.ScannerProperties())
	cycle := newNotifier(cfg).Run(context.Background(), nc, evt.ToOutcome())

	switch {
	case cycle.Sent:
		fmt.Fprintf(cmd.OutOrStdout(), "Teams message posted (cycle %s)\n", cycle.ID)
	case cycle.Skipped:
		fmt.Fprintf(cmd.OutOrStdout(), "Notification skipped (cycle %s)\n", cycle.ID)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Teams message failed (cycle %s), see log\n", cycle.ID)
	}
	return nil
}

func eventFormat(flag, path string) string {
	if flag != "" {
		return strings.ToLower(flag)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func decodeEvent(data []byte, format string) (sonar.WebhookEvent, error) {
	var evt sonar.WebhookEvent
	switch format {
	case "json":
		if err := json.Unmarshal(data, &evt); err != nil {
			return evt, fmt.Errorf("parsing JSON event: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &evt); err != nil {
			return evt, fmt.Errorf("parsing YAML event: %w", err)
		}
	default:
		return evt, fmt.Errorf("unsupported format %q (supported: json, yaml)", format)
	}
	if evt.Project.Key == "" {
		return evt, fmt.Errorf("event has no project.key")
	}
	return evt, nil
}
