package zones

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/carwash-pricing/pkg/common"
)

// Handler handles HTTP requests for zones
type Handler struct {
	service *Service
}

// NewHandler creates a new zones handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Lookup resolves the zone for the lat/lng query parameters
func (h *Handler) Lookup(c *gin.Context) {
	latStr := c.Query("lat")
	lngStr := c.Query("lng")

	if latStr == "" || lngStr == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "lat and lng are required")
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid lat")
		return
	}

	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid lng")
		return
	}

	resp, err := h.service.Lookup(c.Request.Context(), lat, lng)
	if err != nil {
		if errors.Is(err, ErrInvalidCoordinate) {
			common.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to resolve zone")
		return
	}

	common.SuccessResponse(c, resp)
}

// RegisterRoutes registers zone routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	zones := r.Group("/zones")
	{
		zones.GET("/lookup", h.Lookup)
	}
}
