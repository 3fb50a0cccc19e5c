package payments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/pkg/common"
	"github.com/richxcame/carwash-pricing/pkg/middleware"
)

// Handler handles HTTP requests for settlement
type Handler struct {
	service *Service
}

// NewHandler creates a new payments handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Settle charges a booking
func (h *Handler) Settle(c *gin.Context) {
	var req SettleRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	tx, err := h.service.Settle(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to settle booking")
		return
	}

	common.CreatedResponse(c, tx)
}

// GetTransaction returns a settled transaction
func (h *Handler) GetTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid transaction ID")
		return
	}

	tx, err := h.service.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to get transaction")
		return
	}

	common.SuccessResponse(c, tx)
}

func respondError(c *gin.Context, err error, fallback string) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}

// RegisterRoutes registers settlement routes behind bearer authentication
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, jwtSecret string) {
	payments := rg.Group("/payments")
	payments.Use(middleware.AuthMiddleware(jwtSecret))
	{
		payments.POST("/settle", h.Settle)
		payments.GET("/transactions/:id", h.GetTransaction)
	}
}
