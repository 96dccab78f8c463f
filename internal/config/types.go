package config

// Config is the root configuration structure for sonarteams.
// Serialised to ~/.sonarteams/config.json.
type Config struct {
	Notifier NotifierSettings `mapstructure:"notifier" json:"notifier" yaml:"notifier"`
	Sonar    SonarConfig      `mapstructure:"sonar"    json:"sonar"    yaml:"sonar"`
	Gateway  GatewayConfig    `mapstructure:"gateway"  json:"gateway"  yaml:"gateway"`
}

// NotifierSettings are the server-side (administrator) settings. Values the
// scanner supplies per analysis are merged in by ResolveNotifierConfig.
type NotifierSettings struct {
	// Enabled turns the notifier on. Off by default.
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	// PostConditions is "Both" (default), "Bad Quality Gateway" or "Good Quality Gateway".
	PostConditions string `mapstructure:"post_conditions" json:"post_conditions" yaml:"post_conditions"`
	// ShowAuthor requires the scanner to supply an author and renders it on the card.
	ShowAuthor bool `mapstructure:"show_author" json:"show_author" yaml:"show_author"`
	// ReportsMetrics lists the metric keys rendered on the card, in order.
	ReportsMetrics []string `mapstructure:"reports_metrics" json:"reports_metrics" yaml:"reports_metrics"`
	// WebhookURL is used when the scanner does not pass sonar.teams.hook.
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url" yaml:"webhook_url"`
	// TimeoutSeconds bounds the single webhook POST (default: 10).
	TimeoutSeconds int `mapstructure:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"`
}

// SonarConfig points at the SonarQube server used for measure lookups.
type SonarConfig struct {
	// URL is used when the scanner does not pass sonar.host.url.
	URL string `mapstructure:"url" json:"url" yaml:"url"`
	// Token is used when the scanner does not pass sonar.login.
	Token string `mapstructure:"token" json:"token" yaml:"token"`
	// FetchMeasures fills tracked metrics missing from the event via the Web API.
	FetchMeasures bool `mapstructure:"fetch_measures" json:"fetch_measures" yaml:"fetch_measures"`
}

// GatewayConfig controls the webhook receiver started by `sonarteams serve`.
type GatewayConfig struct {
	// Addr is the listen address (default: 127.0.0.1:6090).
	Addr string `mapstructure:"addr" json:"addr" yaml:"addr"`
	// Secret verifies X-Sonar-Webhook-HMAC-SHA256 when set.
	Secret string `mapstructure:"secret" json:"secret" yaml:"secret"`
	// RateLimit is the number of accepted events per second (0 disables limiting).
	RateLimit float64 `mapstructure:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	// Burst is the token bucket size used with RateLimit.
	Burst int `mapstructure:"burst" json:"burst" yaml:"burst"`
}
