//go:build unit

package api_test

import (
	"net/http"
	"net/url"
	"testing"

	"booking-engine/internal/handler/api"
	resdto "booking-engine/internal/handler/dto/response"
	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/usecase/queries"
	"booking-engine/tests/common/builder"
	"booking-engine/tests/common/httptest"
	queriesmock "booking-engine/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type AvailabilityHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mockCtrl    *gomock.Controller
	mockQueries *queriesmock.MockAvailabilityQueries
}

func (s *AvailabilityHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockQueries = queriesmock.NewMockAvailabilityQueries(s.mockCtrl)
	s.router.GET("/availability", api.NewAvailabilityHandler(s.mockQueries).Get)
}

func (s *AvailabilityHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestAvailabilityHandlerSuite(t *testing.T) {
	suite.Run(t, new(AvailabilityHandlerTestSuite))
}

func availabilityPath(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return "/availability?" + q.Encode()
}

func (s *AvailabilityHandlerTestSuite) TestGet() {
	practitionerID, serviceID := uuid.New(), uuid.New()
	valid := map[string]string{
		"practitionerId": practitionerID.String(),
		"serviceId":      serviceID.String(),
		"date":           "2030-06-03",
		"timezone":       "Europe/Berlin",
	}

	s.Run("slots", func() {
		s.mockQueries.EXPECT().GetAvailability(gomock.Any(), queries.AvailabilityParams{
			PractitionerID: practitionerID,
			ServiceID:      serviceID,
			Date:           "2030-06-03",
			TimeZone:       "Europe/Berlin",
		}).Return(&queries.AvailabilityView{
			PractitionerID: practitionerID,
			ServiceID:      serviceID,
			Date:           "2030-06-03",
			TimeZone:       "Europe/Berlin",
			ScheduleFound:  true,
			Slots: []queries.SlotView{
				{Start: builder.At(9, 0), End: builder.At(9, 30)},
				{Start: builder.At(9, 45), End: builder.At(10, 15)},
			},
		}, nil)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, availabilityPath(valid), nil, "")

		var resp resdto.AvailabilityResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &resp)
		s.True(resp.ScheduleFound)
		s.Equal("Europe/Berlin", resp.TimeZone)
		s.Require().Len(resp.Slots, 2)
		s.True(resp.Slots[1].Start.Equal(builder.At(9, 45)))
	})

	s.Run("no schedule renders empty list", func() {
		s.mockQueries.EXPECT().GetAvailability(gomock.Any(), gomock.Any()).Return(&queries.AvailabilityView{
			Date:   "2030-06-03",
			Reason: "NO_SCHEDULE_CONFIGURED",
			Slots:  []queries.SlotView{},
		}, nil)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, availabilityPath(valid), nil, "")

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"slots":[]`)
		s.Contains(w.Body.String(), `"scheduleFound":false`)
		s.Contains(w.Body.String(), `"reason":"NO_SCHEDULE_CONFIGURED"`)
	})

	s.Run("missing date", func() {
		params := map[string]string{"practitionerId": practitionerID.String(), "serviceId": serviceID.String()}

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, availabilityPath(params), nil, "")

		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "Invalid query parameters")
	})

	s.Run("malformed practitioner id", func() {
		params := map[string]string{"practitionerId": "dr-who", "serviceId": serviceID.String(), "date": "2030-06-03"}

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, availabilityPath(params), nil, "")

		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "Invalid query parameters")
	})

	s.Run("unknown service", func() {
		s.mockQueries.EXPECT().GetAvailability(gomock.Any(), gomock.Any()).
			Return(nil, errs.Markf(errs.ErrServiceNotFound, "missing"))

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, availabilityPath(valid), nil, "")

		httptest.AssertErrorResponse(s.T(), w, http.StatusNotFound, "Service not found")
	})

	s.Run("bad time zone", func() {
		s.mockQueries.EXPECT().GetAvailability(gomock.Any(), gomock.Any()).
			Return(nil, errs.Markf(errs.ErrValidation, "unknown timezone"))

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, availabilityPath(valid), nil, "")

		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "Invalid request")
	})
}
