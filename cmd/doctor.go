package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/CosmoTheDev/sonar-teams-notifier/internal/config"
	"github.com/CosmoTheDev/sonar-teams-notifier/internal/notify"
	"github.com/CosmoTheDev/sonar-teams-notifier/internal/sonar"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify configuration and SonarQube connectivity",
	Long: `Checks the notifier settings, validates the fallback webhook URL and,
when a SonarQube URL and token are configured, pings the server.

Values the scanner supplies per analysis (sonar.teams.hook, sonar.login, ...)
cannot be checked here.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	out := cmd.OutOrStdout()
	allOK := true

	fmt.Fprintln(out, "=== sonarteams doctor ===")
	fmt.Fprintln(out)

	fmt.Fprint(out, "Notifier ................. ")
	if cfg.Notifier.Enabled {
		fmt.Fprintln(out, "enabled")
	} else {
		fmt.Fprintln(out, "DISABLED (set notifier.enabled)")
		allOK = false
	}

	fmt.Fprintf(out, "Post condition ........... %s\n", config.ParsePostCondition(cfg.Notifier.PostConditions))
	fmt.Fprintf(out, "Tracked metrics .......... %v\n", cfg.Notifier.ReportsMetrics)

	fmt.Fprint(out, "Fallback webhook ......... ")
	switch {
	case cfg.Notifier.WebhookURL == "":
		fmt.Fprintln(out, "not set (scanner must pass sonar.teams.hook)")
	default:
		if err := notify.ValidateWebhookURL(cfg.Notifier.WebhookURL); err != nil {
			fmt.Fprintf(out, "FAIL (%s)\n", err)
			allOK = false
		} else {
			fmt.Fprintf(out, "OK (%s)\n", notify.RedactURL(cfg.Notifier.WebhookURL))
		}
	}

	if !checkSonar(ctx, out, cfg.Sonar) {
		allOK = false
	}

	fmt.Fprintln(out)
	if !allOK {
		return fmt.Errorf("one or more checks failed")
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}

// checkSonar pings SonarQube when both the URL and the token are set. It
// reports false only for a failed ping.
func checkSonar(ctx context.Context, out io.Writer, sc config.SonarConfig) bool {
	fmt.Fprint(out, "SonarQube ................ ")
	switch {
	case strings.TrimSpace(sc.URL) == "":
		fmt.Fprintln(out, "not set (scanner must pass sonar.host.url)")
		return true
	case strings.TrimSpace(sc.Token) == "":
		fmt.Fprintln(out, "not checked (sonar.token not set)")
		return true
	}
	st, err := sonar.NewClient(10*time.Second).Ping(ctx, sc.URL, sc.Token)
	if err != nil {
		fmt.Fprintf(out, "FAIL (%s)\n", err)
		return false
	}
	fmt.Fprintf(out, "OK (%s, version %s)\n", st.Status, st.Version)
	return true
}
