package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	newRoutes := func(checks map[string]HealthCheck) *gin.Engine {
		r := gin.New()
		h := NewHealthHandler(checks)
		r.GET("/health", h.Live)
		r.GET("/ready", h.Ready)
		return r
	}

	t.Run("live never checks dependencies", func(t *testing.T) {
		w := doJSON(newRoutes(map[string]HealthCheck{"database": down}), http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ready when every check passes", func(t *testing.T) {
		w := doJSON(newRoutes(map[string]HealthCheck{"database": ok, "legacy": ok}), http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not ready when a check fails", func(t *testing.T) {
		w := doJSON(newRoutes(map[string]HealthCheck{"database": ok, "legacy": down}), http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		env := decode(t, w)
		assert.False(t, env.Success)
		assert.Contains(t, string(env.Data), "connection refused")
	})
}
