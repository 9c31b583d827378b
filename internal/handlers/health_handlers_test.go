package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"commerce-service/internal/models"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.HealthResponse
	decode(t, w, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "commerce-service", resp.Service)
}

func TestReady(t *testing.T) {
	up := pingFunc(func(ctx context.Context) error { return nil })
	down := pingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name   string
		db     Pinger
		cache  Pinger
		code   int
		status string
	}{
		{name: "all healthy", db: up, cache: up, code: http.StatusOK, status: "ready"},
		{name: "no cache configured", db: up, code: http.StatusOK, status: "ready"},
		{name: "cache down", db: up, cache: down, code: http.StatusOK, status: "degraded"},
		{name: "database down", db: down, cache: up, code: http.StatusServiceUnavailable, status: "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/ready", NewHealthHandler("test", tt.db, tt.cache).Ready)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			var resp models.HealthResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.status, resp.Status)
		})
	}
}
