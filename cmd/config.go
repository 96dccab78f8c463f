package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/CosmoTheDev/sonar-teams-notifier/internal/config"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var configOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View sonarteams configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		redacted := config.Redacted(*cfg)

		switch configOutput {
		case "yaml":
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(redacted)
		case "json", "":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(redacted)
		default:
			return fmt.Errorf("unsupported output %q (supported: json, yaml)", configOutput)
		}
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the path to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.ConfigPath(cfgFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	},
}

func init() {
	configShowCmd.Flags().StringVarP(&configOutput, "output", "o", "json", "Output format: json|yaml")
	configCmd.AddCommand(configShowCmd, configPathCmd)
}
