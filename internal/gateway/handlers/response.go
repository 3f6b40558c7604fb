package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mesa-system/internal/engine"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type PaginationMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// respondEngineError maps the engine's sentinel errors onto HTTP statuses.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidOrder),
		errors.Is(err, engine.ErrInvalidTable),
		errors.Is(err, engine.ErrInvalidPricing),
		errors.Is(err, engine.ErrInvalidDiscount):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, engine.ErrOrderLocked),
		errors.Is(err, engine.ErrInvalidTransition),
		errors.Is(err, engine.ErrOutOfStock),
		errors.Is(err, engine.ErrInsufficientStock):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("Internal server error"))
	}
}
