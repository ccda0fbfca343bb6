//go:build unit

package middleware_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	nethttptest "net/http/httptest"
	"testing"
	"time"

	"booking-engine/internal/handler/middleware"
	"booking-engine/internal/pkg/config"
	"booking-engine/tests/common/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	r := gin.New()
	r.Use(middleware.CustomRecovery(logger), middleware.ErrorHandler(logger))
	r.GET("/private-error", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: relation does not exist"))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	t.Run("unclassified error becomes 500 without detail", func(t *testing.T) {
		w := httptest.PerformRequest(t, r, http.MethodGet, "/private-error", nil, "")

		httptest.AssertErrorResponse(t, w, http.StatusInternalServerError, "Internal server error")
		assert.NotContains(t, w.Body.String(), "relation")
		assert.Contains(t, w.Body.String(), `"reason":"INTERNAL_ERROR"`)
		assert.Contains(t, logs.String(), "unhandled request error")
		assert.Contains(t, logs.String(), "relation does not exist")
	})

	t.Run("panic is recovered", func(t *testing.T) {
		w := httptest.PerformRequest(t, r, http.MethodGet, "/panic", nil, "")

		httptest.AssertErrorResponse(t, w, http.StatusInternalServerError, "Internal server error")
		assert.Contains(t, logs.String(), "boom")
	})

	t.Run("written responses pass through", func(t *testing.T) {
		w := httptest.PerformRequest(t, r, http.MethodGet, "/ok", nil, "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	})
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.DiscardHandler)

	t.Run("allowed origin gets preflight headers", func(t *testing.T) {
		r := gin.New()
		r.Use(middleware.NewCORSMiddleware(config.CORSConfig{
			AllowOrigins: []string{"https://app.example.com"},
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:       time.Hour,
		}, logger))
		r.POST("/bookings", func(c *gin.Context) { c.Status(http.StatusCreated) })

		req := nethttptest.NewRequest(http.MethodOptions, "/bookings", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := nethttptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("no origins disables cors", func(t *testing.T) {
		r := gin.New()
		r.Use(middleware.NewCORSMiddleware(config.CORSConfig{}, logger))
		r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := nethttptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := nethttptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
