package promocodes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/playvault/bonus-service/pkg/common"
	"github.com/playvault/bonus-service/pkg/middleware"
	"github.com/playvault/bonus-service/pkg/pagination"
	"github.com/playvault/bonus-service/pkg/validation"
)

// Handler handles HTTP requests for the promocodes service
type Handler struct {
	service *Service
}

// NewHandler creates a new promocodes handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Redeem redeems a promocode for the authenticated user
func (h *Handler) Redeem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Redeem(c.Request.Context(), userID, req.Code)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	common.SuccessResponse(c, result)
}

// FindByCode looks up a promocode by its code
func (h *Handler) FindByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "code is required")
		return
	}

	promo, err := h.service.FindByCode(c.Request.Context(), code)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	common.SuccessResponse(c, promo)
}

// GetHistory returns the authenticated user's redemption history
func (h *Handler) GetHistory(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	params := pagination.ParseParams(c)

	usages, total, err := h.service.GetHistory(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	meta := pagination.BuildMeta(params.Limit, params.Offset, total)
	common.SuccessResponseWithMeta(c, usages, meta)
}

// CreatePromocode creates a new promocode (admin only)
func (h *Handler) CreatePromocode(c *gin.Context) {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input CreatePromocodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	input.CreatedBy = adminID

	promo, err := h.service.Create(c.Request.Context(), &input)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	common.CreatedResponse(c, promo)
}

// ListPromocodes returns all promocodes with pagination (admin only)
func (h *Handler) ListPromocodes(c *gin.Context) {
	params := pagination.ParseParams(c)

	promos, total, err := h.service.ListPromocodes(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	meta := pagination.BuildMeta(params.Limit, params.Offset, total)
	common.SuccessResponseWithMeta(c, promos, meta)
}

// GetPromocode returns a single promocode by ID (admin only)
func (h *Handler) GetPromocode(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid promocode id")
		return
	}

	promo, err := h.service.GetPromocodeByID(c.Request.Context(), id)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	common.SuccessResponse(c, promo)
}

// DeactivatePromocode deactivates a promocode (admin only)
func (h *Handler) DeactivatePromocode(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid promocode id")
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), id); err != nil {
		h.respondWithError(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{"deactivated": true})
}

// GetUsageStats returns redemption statistics for a promocode (admin only)
func (h *Handler) GetUsageStats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid promocode id")
		return
	}

	stats, err := h.service.GetUsageStats(c.Request.Context(), id)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	common.SuccessResponse(c, stats)
}

// respondWithError maps domain errors to HTTP status codes, keeping each
// rejection kind distinguishable for the caller.
func (h *Handler) respondWithError(c *gin.Context, err error) {
	var validationErr *validation.ValidationError
	if errors.As(err, &validationErr) {
		common.ErrorResponse(c, http.StatusBadRequest, validationErr.Error())
		return
	}

	switch {
	case errors.Is(err, ErrPromocodeNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrAdminNotFound),
		errors.Is(err, ErrBalanceNotFound):
		common.ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateCode):
		common.ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrPromocodeInactive),
		errors.Is(err, ErrPromocodeNotYetValid),
		errors.Is(err, ErrPromocodeExpired),
		errors.Is(err, ErrAlreadyUsed),
		errors.Is(err, ErrUsageLimitExceeded):
		common.ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
	case IsTransient(err):
		c.Error(err)
		common.ErrorResponse(c, http.StatusServiceUnavailable, "temporary storage failure, please retry")
	default:
		c.Error(err)
		common.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
}
