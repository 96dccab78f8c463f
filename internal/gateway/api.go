package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/CosmoTheDev/sonar-teams-notifier/internal/config"
	"github.com/CosmoTheDev/sonar-teams-notifier/internal/sonar"
)

const maxEventBytes = 1 << 20

// buildHandler wires the receiver routes onto a chi router.
func buildHandler(gw *Gateway) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", gw.handleHealth)
	r.With(rateLimit(gw.limiter)).Post("/api/sonar/webhook", gw.handleSonarWebhook)
	return r
}

func (gw *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(gw.startedAt).Seconds()),
	})
}

// handleSonarWebhook runs one notification cycle for the posted analysis.
// Delivery problems are only logged: SonarQube gets 202 once the event has
// been accepted, whatever happened to the Teams message.
func (gw *Gateway) handleSonarWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "event body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}

	if secret := gw.cfg.Gateway.Secret; secret != "" {
		if !sonar.VerifySignature(body, secret, r.Header.Get(sonar.SignatureHeader)) {
			writeError(w, http.StatusUnauthorized, "invalid webhook signature")
			return
		}
	}

	var evt sonar.WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event JSON: "+err.Error())
		return
	}
	if evt.Project.Key == "" {
		writeError(w, http.StatusBadRequest, "project.key is required")
		return
	}

	nc := config.ResolveNotifierConfig(*gw.cfg, evt.ScannerProperties())
	// The cycle runs to completion even if SonarQube hangs up.
	cycle := gw.runner.Run(context.WithoutCancel(r.Context()), nc, evt.ToOutcome())
	writeJSON(w, http.StatusAccepted, cycle)
}
