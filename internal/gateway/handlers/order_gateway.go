package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mesa-system/internal/engine"
	"mesa-system/internal/gateway/middleware"
	"mesa-system/internal/monitoring"
)

type OrderHTTPHandler struct {
	ledger *engine.Ledger
}

func NewOrderHTTPHandler(ledger *engine.Ledger) *OrderHTTPHandler {
	return &OrderHTTPHandler{
		ledger: ledger,
	}
}

// Request structs
type CreateOrderRequest struct {
	OrderType   string  `json:"order_type" binding:"required"`
	TableID     *int32  `json:"table_id,omitempty"`
	CustomerID  *int64  `json:"customer_id,omitempty"`
	PeopleCount int32   `json:"people_count" binding:"required,min=1"`
	CardsCount  int32   `json:"cards_count,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

type AddLineRequest struct {
	ItemID              int32   `json:"item_id" binding:"required"`
	SizeID              *int32  `json:"size_id,omitempty"`
	Quantity            int32   `json:"quantity" binding:"required,min=1"`
	SpecialInstructions *string `json:"special_instructions,omitempty"`
}

type UpdateLineRequest struct {
	Quantity int32 `json:"quantity" binding:"required,min=1"`
}

type SetDiscountRequest struct {
	DiscountType  string `json:"discount_type" binding:"required"`
	DiscountValue string `json:"discount_value" binding:"required"`
}

type MarkPaidRequest struct {
	PaymentMethodID int32 `json:"payment_method_id" binding:"required"`
}

// Query structs
type ListOrdersQuery struct {
	Page      int     `form:"page,default=1"`
	PageSize  int     `form:"page_size,default=20"`
	Status    *string `form:"status,omitempty"`
	OrderType *string `form:"order_type,omitempty"`
	TableID   *int32  `form:"table_id,omitempty"`
	CashierID *int64  `form:"cashier_id,omitempty"`
}

func (h *OrderHTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, err := h.ledger.CreateOrder(ctx, engine.CreateOrderParams{
		OrderType:   req.OrderType,
		TableID:     req.TableID,
		CustomerID:  req.CustomerID,
		PeopleCount: req.PeopleCount,
		CardsCount:  req.CardsCount,
		Notes:       req.Notes,
	}, middleware.ActorFromContext(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	monitoring.OrdersCreated.WithLabelValues(order.OrderType).Inc()
	c.JSON(http.StatusCreated, successResponse("Order created successfully", order))
}

func (h *OrderHTTPHandler) GetOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	order, err := h.ledger.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidOrder) {
			c.JSON(http.StatusNotFound, errorResponse("Order not found"))
			return
		}
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order retrieved successfully", order))
}

func (h *OrderHTTPHandler) ListOrders(c *gin.Context) {
	var query ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	orders, total, err := h.ledger.ListOrders(ctx, engine.ListOrdersFilter{
		Status:    query.Status,
		OrderType: query.OrderType,
		TableID:   query.TableID,
		CashierID: query.CashierID,
		Page:      query.Page,
		PageSize:  query.PageSize,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Orders retrieved successfully", orders, PaginationMeta{
		Page:     query.Page,
		PageSize: query.PageSize,
		Total:    total,
	}))
}

func (h *OrderHTTPHandler) AddLine(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	var req AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, err := h.ledger.AddLine(ctx, orderID, req.ItemID, req.SizeID, req.Quantity, req.SpecialInstructions)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Line added successfully", order))
}

func (h *OrderHTTPHandler) RemoveLine(c *gin.Context) {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, err := h.ledger.RemoveLine(ctx, orderID, lineID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Line removed successfully", order))
}

func (h *OrderHTTPHandler) UpdateLine(c *gin.Context) {
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

	var req UpdateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, err := h.ledger.UpdateLineQuantity(ctx, orderID, lineID, req.Quantity)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Line updated successfully", order))
}

func (h *OrderHTTPHandler) SetDiscount(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	var req SetDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, err := h.ledger.SetDiscount(ctx, orderID, req.DiscountType, req.DiscountValue)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Discount applied successfully", order))
}

func (h *OrderHTTPHandler) ConfirmOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, err := h.ledger.Confirm(ctx, orderID, middleware.ActorFromContext(c))
	if err != nil {
		if errors.Is(err, engine.ErrInsufficientStock) {
			monitoring.StockRejections.Inc()
		}
		respondEngineError(c, err)
		return
	}

	monitoring.OrderTransitions.WithLabelValues(order.Status).Inc()
	c.JSON(http.StatusOK, successResponse("Order confirmed successfully", order))
}

func (h *OrderHTTPHandler) CompleteOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, err := h.ledger.Complete(ctx, orderID, middleware.ActorFromContext(c))
	if err != nil {
		if errors.Is(err, engine.ErrInsufficientStock) {
			monitoring.StockRejections.Inc()
		}
		respondEngineError(c, err)
		return
	}

	monitoring.OrderTransitions.WithLabelValues(order.Status).Inc()
	c.JSON(http.StatusOK, successResponse("Order completed successfully", order))
}

func (h *OrderHTTPHandler) CancelOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, err := h.ledger.Cancel(ctx, orderID, middleware.ActorFromContext(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	monitoring.OrderTransitions.WithLabelValues(order.Status).Inc()
	c.JSON(http.StatusOK, successResponse("Order cancelled successfully", order))
}

func (h *OrderHTTPHandler) MarkPaid(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	var req MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, err := h.ledger.MarkPaid(ctx, orderID, req.PaymentMethodID, middleware.ActorFromContext(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	method := "unknown"
	if order.PaymentMethod != nil {
		method = order.PaymentMethod.MethodName
	}
	monitoring.PaymentsProcessed.WithLabelValues(method).Inc()

	c.JSON(http.StatusOK, successResponse("Payment recorded successfully", order))
}
