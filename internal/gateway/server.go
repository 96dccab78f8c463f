package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/CosmoTheDev/sonar-teams-notifier/internal/config"
	"github.com/CosmoTheDev/sonar-teams-notifier/internal/notify"
	"github.com/CosmoTheDev/sonar-teams-notifier/models"
)

const defaultAddr = "127.0.0.1:6090"

// Runner executes one notification cycle. *notify.Notifier satisfies it.
type Runner interface {
	Run(ctx context.Context, cfg config.NotifierConfig, outcome models.AnalysisOutcome) notify.Cycle
}

// Gateway receives SonarQube project webhooks and runs a notification cycle
// for each analysis it is told about.
type Gateway struct {
	cfg       *config.Config
	runner    Runner
	limiter   *rate.Limiter
	startedAt time.Time
}

// New creates a Gateway. Call Start() to begin serving.
func New(cfg *config.Config, runner Runner) *Gateway {
	gw := &Gateway{
		cfg:       cfg,
		runner:    runner,
		startedAt: time.Now(),
	}
	if cfg.Gateway.RateLimit > 0 {
		burst := cfg.Gateway.Burst
		if burst <= 0 {
			burst = 1
		}
		gw.limiter = rate.NewLimiter(rate.Limit(cfg.Gateway.RateLimit), burst)
	}
	return gw
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (gw *Gateway) Start(ctx context.Context) error {
	addr := gw.cfg.Gateway.Addr
	if addr == "" {
		addr = defaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           buildHandler(gw),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shut down HTTP server when ctx is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("gateway: listening", "addr", "http://"+addr, "signed", gw.cfg.Gateway.Secret != "")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
