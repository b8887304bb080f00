package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ovenfresh/bakery-api/internal/dto"
	"github.com/ovenfresh/bakery-api/internal/model"
	"github.com/ovenfresh/bakery-api/internal/service"
)

type InventoryHandler struct {
	svc *service.InventoryService
}

func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

func (h *InventoryHandler) List(c *gin.Context) {
	records, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	items := make([]dto.InventoryResponse, 0, len(records))
	for i := range records {
		items = append(items, toInventoryResponse(&records[i]))
	}
	c.JSON(http.StatusOK, gin.H{"inventory": items, "total": len(items)})
}

func (h *InventoryHandler) Get(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	inv, err := h.svc.Get(c.Request.Context(), productID)
	if err != nil {
		h.writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(inv))
}

func (h *InventoryHandler) Increase(c *gin.Context) {
	h.adjust(c, h.svc.Increase)
}

func (h *InventoryHandler) Decrease(c *gin.Context) {
	h.adjust(c, h.svc.Decrease)
}

func (h *InventoryHandler) adjust(c *gin.Context, op func(ctx context.Context, productID uuid.UUID, qty int) (*model.Inventory, error)) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inv, err := op(c.Request.Context(), productID, req.Quantity)
	if err != nil {
		h.writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(inv))
}

func (h *InventoryHandler) SetThresholds(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	var req dto.SetThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inv, err := h.svc.SetThresholds(c.Request.Context(), productID, req.ReorderPoint, req.ReorderQty)
	if err != nil {
		h.writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(inv))
}

// Availability is the storefront stock check: it answers yes/no and never
// errors on a missing record.
func (h *InventoryHandler) Availability(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	qty, err := strconv.Atoi(c.DefaultQuery("quantity", "1"))
	if err != nil || qty <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quantity"})
		return
	}
	inStock, err := h.svc.IsInStock(c.Request.Context(), productID, qty)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "quantity": qty, "in_stock": inStock})
}

func (h *InventoryHandler) writeInventoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInventoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "inventory record not found"})
	case errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient stock"})
	case errors.Is(err, service.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func toInventoryResponse(inv *model.Inventory) dto.InventoryResponse {
	return dto.InventoryResponse{
		ProductID:    inv.ProductID,
		Quantity:     inv.Quantity,
		ReorderPoint: inv.ReorderPoint,
		ReorderQty:   inv.ReorderQty,
		Status:       inv.Status(),
		UpdatedAt:    inv.UpdatedAt,
	}
}
