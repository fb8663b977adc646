package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/tipflow-backend/api/responses"
	"github.com/angelmondragon/tipflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tipflow-backend/pkg/errors"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
)

// Pinger is satisfied by stateful clients that expose a health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tipflow-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when every hard dependency answers.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tipflow-Env", cfg.App.Env)

		statuses := map[string]string{}
		ready := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				statuses[name] = "down"
				ready = false
				if logg != nil {
					logg.Error(r.Context(), "readiness probe failed: "+name, err)
				}
				continue
			}
			statuses[name] = "up"
		}

		if !ready {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(statuses)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": statuses})
	}
}
