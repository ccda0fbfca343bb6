//go:build unit

package middleware_test

import (
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"booking-engine/internal/handler/middleware"
	"booking-engine/tests/common/httptest"
	middlewaremock "booking-engine/tests/mock/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type RateLimitTestSuite struct {
	suite.Suite
	mockCtrl    *gomock.Controller
	mockLimiter *middlewaremock.MockLimiter
	customer    uuid.UUID
}

func (s *RateLimitTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.mockCtrl = gomock.NewController(s.T())
	s.mockLimiter = middlewaremock.NewMockLimiter(s.mockCtrl)
	s.customer = uuid.New()
}

func (s *RateLimitTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestRateLimitSuite(t *testing.T) {
	suite.Run(t, new(RateLimitTestSuite))
}

func (s *RateLimitTestSuite) router(failOpen bool, authenticated bool) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler(slog.New(slog.DiscardHandler)))
	chain := []gin.HandlerFunc{}
	if authenticated {
		chain = append(chain, func(c *gin.Context) { c.Set("customer_id", s.customer) })
	}
	chain = append(chain,
		middleware.RateLimit(s.mockLimiter, "reserve", failOpen, slog.New(slog.DiscardHandler)),
		func(c *gin.Context) {
			if c.IsAborted() {
				return
			}
			c.JSON(http.StatusCreated, gin.H{"ok": true})
		},
	)
	r.POST("/bookings", chain...)
	return r
}

func (s *RateLimitTestSuite) TestKeysOnCustomer() {
	s.mockLimiter.EXPECT().Allow(gomock.Any(), "reserve:"+s.customer.String()).Return(true, nil)

	w := httptest.PerformRequest(s.T(), s.router(false, true), http.MethodPost, "/bookings", nil, "")

	s.Equal(http.StatusCreated, w.Code)
}

func (s *RateLimitTestSuite) TestFallsBackToClientIP() {
	// httptest requests originate from 192.0.2.1
	s.mockLimiter.EXPECT().Allow(gomock.Any(), "reserve:192.0.2.1").Return(true, nil)

	w := httptest.PerformRequest(s.T(), s.router(false, false), http.MethodPost, "/bookings", nil, "")

	s.Equal(http.StatusCreated, w.Code)
}

func (s *RateLimitTestSuite) TestDenied() {
	s.mockLimiter.EXPECT().Allow(gomock.Any(), gomock.Any()).Return(false, nil)

	w := httptest.PerformRequest(s.T(), s.router(false, true), http.MethodPost, "/bookings", nil, "")

	httptest.AssertErrorResponse(s.T(), w, http.StatusTooManyRequests, "Rate limit exceeded")
	httptest.AssertErrorReason(s.T(), w, http.StatusTooManyRequests, "RATE_LIMITED")
}

func (s *RateLimitTestSuite) TestLimiterOutage() {
	tests := []struct {
		name       string
		failOpen   bool
		expectCode int
	}{
		{name: "fail open lets the request through", failOpen: true, expectCode: http.StatusCreated},
		{name: "fail closed rejects", failOpen: false, expectCode: http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.mockLimiter.EXPECT().Allow(gomock.Any(), gomock.Any()).Return(false, errors.New("redis: connection refused"))

			w := httptest.PerformRequest(s.T(), s.router(tc.failOpen, true), http.MethodPost, "/bookings", nil, "")

			s.Equal(tc.expectCode, w.Code)
			if !tc.failOpen {
				httptest.AssertErrorResponse(s.T(), w, tc.expectCode, "Rate limiter unavailable")
				s.NotContains(w.Body.String(), "connection refused")
			}
		})
	}
}
