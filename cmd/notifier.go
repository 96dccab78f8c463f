package cmd

import (
	"time"

	"github.com/CosmoTheDev/sonar-teams-notifier/internal/config"
	"github.com/CosmoTheDev/sonar-teams-notifier/internal/notify"
	"github.com/CosmoTheDev/sonar-teams-notifier/internal/sonar"
)

// newNotifier wires the Teams client and, when enabled, the SonarQube
// measure lookup.
func newNotifier(cfg *config.Config) *notify.Notifier {
	timeout := time.Duration(cfg.Notifier.TimeoutSeconds) * time.Second
	var opts []notify.Option
	if cfg.Sonar.FetchMeasures {
		opts = append(opts, notify.WithMeasureSource(sonar.NewClient(timeout)))
	}
	return notify.NewNotifier(notify.NewTeamsClient(timeout), opts...)
}
