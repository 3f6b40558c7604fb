package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mesa-system/internal/engine"
	"mesa-system/internal/gateway/middleware"
	"mesa-system/internal/monitoring"
)

type KitchenHTTPHandler struct {
	coordinator *engine.KitchenCoordinator
}

func NewKitchenHTTPHandler(coordinator *engine.KitchenCoordinator) *KitchenHTTPHandler {
	return &KitchenHTTPHandler{
		coordinator: coordinator,
	}
}

type AdvanceLineRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *KitchenHTTPHandler) ListTickets(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tickets, err := h.coordinator.ListTickets(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to list kitchen tickets"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Kitchen tickets retrieved successfully", tickets))
}

func (h *KitchenHTTPHandler) AdvanceLine(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}
	lineID, err := strconv.ParseInt(c.Param("line_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid line ID"))
		return
	}

	var req AdvanceLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	line, err := h.coordinator.AdvanceLine(ctx, orderID, lineID, req.Status, middleware.ActorFromContext(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	monitoring.KitchenLineAdvances.WithLabelValues(line.KitchenStatus).Inc()
	c.JSON(http.StatusOK, successResponse("Line status updated successfully", line))
}
