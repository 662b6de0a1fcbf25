package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/orderdraft/api/responses"
	"github.com/angelmondragon/orderdraft/pkg/config"
	pkgerrors "github.com/angelmondragon/orderdraft/pkg/errors"
	"github.com/angelmondragon/orderdraft/pkg/logger"
	"github.com/angelmondragon/orderdraft/pkg/redis"
)

const (
	envHeader         = "X-OrderDraft-Env"
	readyCheckTimeout = 2 * time.Second
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings redis when the service was started with one.
func HealthReady(cfg *config.Config, logg *logger.Logger, redisClient redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{"redis": "disabled"}
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
			defer cancel()
			if err := redisClient.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable").WithDetails(map[string]string{"dependency": "redis"}))
				return
			}
			checks["redis"] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
