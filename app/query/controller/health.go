package controller

import (
	"net/http"

	"go.uber.org/zap"
)

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if c.App.Cache != nil {
		if err := c.App.Cache.Health(r.Context()); err != nil {
			c.App.Logger.Warn("redis health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "errored", "error": "redis connection error"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
