package pricing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/carwash-pricing/internal/zones"
	"github.com/richxcame/carwash-pricing/pkg/common"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"github.com/richxcame/carwash-pricing/pkg/middleware"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for pricing
type Handler struct {
	service *Service
}

// NewHandler creates a new pricing handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// PriceByLocation quotes services at the caller's coordinates
func (h *Handler) PriceByLocation(c *gin.Context) {
	var req PriceByLocationRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	resp, err := h.service.PriceByLocation(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, zones.ErrInvalidCoordinate) {
			common.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to calculate prices")
		return
	}

	common.SuccessResponseWithMeta(c, resp, &common.Meta{
		Cached:        resp.Cached,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// ClearCache drops every pricing and zone cache entry
func (h *Handler) ClearCache(c *gin.Context) {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("admin identity missing"))
		return
	}

	h.service.ClearCaches(c.Request.Context())

	logger.WithContext(c.Request.Context()).Info("pricing caches cleared",
		zap.String("admin_id", adminID.String()),
	)

	common.SuccessResponse(c, gin.H{
		"message": "pricing and zone caches cleared",
	})
}

// RegisterRoutes registers pricing routes. The cache route requires an admin token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, jwtSecret string) {
	pricing := rg.Group("/pricing")
	{
		pricing.POST("/by-location", h.PriceByLocation)

		admin := pricing.Group("")
		admin.Use(middleware.AuthMiddleware(jwtSecret), middleware.RequireAdmin())
		admin.DELETE("/cache", h.ClearCache)
	}
}
