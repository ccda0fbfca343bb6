//go:build unit

package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"booking-engine/internal/handler/middleware"
	"booking-engine/internal/pkg/jwt"
	"booking-engine/internal/usecase"
	"booking-engine/tests/common/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	service := jwt.NewService("test-secret", time.Hour)
	auth := middleware.NewAuthMiddleware(usecase.NewTokenValidator(service))

	r := gin.New()
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		id, ok := middleware.GetCustomerID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"customerId": id})
	})

	customer := uuid.New()
	valid, err := service.GenerateToken(customer)
	require.NoError(t, err)
	expired, err := jwt.NewService("test-secret", -time.Minute).GenerateToken(customer)
	require.NoError(t, err)
	foreign, err := jwt.NewService("other-secret", time.Hour).GenerateToken(customer)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		w := httptest.PerformRequest(t, r, http.MethodGet, "/me", nil, valid)

		var resp struct {
			CustomerID uuid.UUID `json:"customerId"`
		}
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, customer, resp.CustomerID)
	})

	tests := []struct {
		name      string
		token     string
		expectMsg string
	}{
		{name: "missing token", token: "", expectMsg: "Access token required"},
		{name: "expired token", token: expired, expectMsg: "Invalid or expired token"},
		{name: "signed with another key", token: foreign, expectMsg: "Invalid or expired token"},
		{name: "garbage", token: "not.a.jwt", expectMsg: "Invalid or expired token"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.PerformRequest(t, r, http.MethodGet, "/me", nil, tc.token)

			httptest.AssertErrorResponse(t, w, http.StatusUnauthorized, tc.expectMsg)
			httptest.AssertErrorReason(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
		})
	}
}
