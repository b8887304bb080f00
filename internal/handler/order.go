package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ovenfresh/bakery-api/internal/dto"
	"github.com/ovenfresh/bakery-api/internal/middleware"
	"github.com/ovenfresh/bakery-api/internal/model"
	"github.com/ovenfresh/bakery-api/internal/service"
)

type OrderHandler struct {
	orderSvc *service.OrderService
	cartSvc  *service.CartService
}

func NewOrderHandler(orderSvc *service.OrderService, cartSvc *service.CartService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, cartSvc: cartSvc}
}

// CreateOrder is the staff path: an explicit item list, optionally on
// behalf of a customer, with optional price overrides.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := h.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// Checkout turns the caller's cart (guest or authenticated) into an order.
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var cart *model.Cart
	var customerID *uuid.UUID
	var err error
	if middleware.HasUser(c) {
		userID := middleware.GetUserID(c)
		customerID = &userID
		cart, err = h.cartSvc.GetOrCreateForUser(ctx, userID)
	} else {
		sessionID := c.GetHeader(SessionHeader)
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing session"})
			return
		}
		cart, err = h.cartSvc.GetOrCreateForSession(ctx, sessionID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	order, err := h.orderSvc.CreateFromCart(ctx, cart.ID, customerID, req)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}
	order, err := h.orderSvc.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	if !h.mayRead(c, order) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) GetByNumber(c *gin.Context) {
	order, err := h.orderSvc.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	if !h.mayRead(c, order) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) ListMine(c *gin.Context) {
	orders, err := h.orderSvc.ListByCustomer(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toOrderListResponse(orders))
}

func (h *OrderHandler) ListByStatus(c *gin.Context) {
	orders, err := h.orderSvc.ListByStatus(c.Request.Context(), model.OrderStatus(c.Param("status")))
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderListResponse(orders))
}

func (h *OrderHandler) ListByDateRange(c *gin.Context) {
	var req dto.ListOrdersByDateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	orders, err := h.orderSvc.ListByDateRange(c.Request.Context(), req.From, req.To)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toOrderListResponse(orders))
}

func (h *OrderHandler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	orders, err := h.orderSvc.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toOrderListResponse(orders))
}

func (h *OrderHandler) Transition(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}
	var req dto.TransitionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := h.orderSvc.Transition(c.Request.Context(), orderID, req.Status)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}
	order, err := h.orderSvc.Cancel(c.Request.Context(), orderID)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) Refund(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}
	order, err := h.orderSvc.Refund(c.Request.Context(), orderID)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) Delete(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}
	if err := h.orderSvc.Delete(c.Request.Context(), orderID); err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// mayRead allows staff to read any order and customers to read their own.
func (h *OrderHandler) mayRead(c *gin.Context, order *model.Order) bool {
	if middleware.GetUserRole(c) == model.RoleAdmin {
		return true
	}
	if order.CustomerID == nil {
		return true
	}
	return middleware.HasUser(c) && *order.CustomerID == middleware.GetUserID(c)
}

func (h *OrderHandler) writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, service.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, service.ErrCartNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart has no active items"})
	case errors.Is(err, service.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown order status"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
	case errors.Is(err, service.ErrCannotCancel):
		c.JSON(http.StatusConflict, gin.H{"error": "order can no longer be cancelled"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}
	return dto.OrderResponse{
		ID:             order.ID,
		Number:         order.Number,
		CustomerID:     order.CustomerID,
		Status:         order.Status,
		DeliveryMethod: order.DeliveryMethod,
		Items:          items,
		Subtotal:       order.Subtotal,
		TaxAmount:      order.TaxAmount,
		ShippingAmount: order.ShippingAmount,
		DiscountAmount: order.DiscountAmount,
		TotalAmount:    order.TotalAmount,
		OrderDate:      order.OrderDate,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

func toOrderListResponse(orders []model.Order) dto.OrderListResponse {
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	return dto.OrderListResponse{Orders: items, Total: len(items)}
}
