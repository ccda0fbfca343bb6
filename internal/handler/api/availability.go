package api

import (
	"net/http"

	reqdto "booking-engine/internal/handler/dto/request"
	resdto "booking-engine/internal/handler/dto/response"
	"booking-engine/internal/handler/httperr"
	"booking-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type AvailabilityHandler struct {
	q queries.AvailabilityQueries
}

func NewAvailabilityHandler(q queries.AvailabilityQueries) *AvailabilityHandler {
	return &AvailabilityHandler{q: q}
}

// @Summary Get availability
// @Description Bookable slots of a practitioner for one service on one local day
// @Tags availability
// @Produce json
// @Param practitionerId query string true "Practitioner ID"
// @Param serviceId query string true "Service ID"
// @Param date query string true "Practitioner-local date (YYYY-MM-DD)"
// @Param timezone query string false "IANA zone slots are rendered in"
// @Success 200 {object} resdto.AvailabilityResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	var req reqdto.AvailabilityQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query parameters", nil)
		return
	}
	practitionerID, serviceID, err := req.IDs()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query parameters", nil)
		return
	}
	view, err := h.q.GetAvailability(c.Request.Context(), queries.AvailabilityParams{
		PractitionerID: practitionerID,
		ServiceID:      serviceID,
		Date:           req.Date,
		TimeZone:       req.TimeZone,
	})
	if err != nil {
		httperr.AbortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromAvailabilityView(view))
}
