package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ovenfresh/bakery-api/internal/dto"
	"github.com/ovenfresh/bakery-api/internal/middleware"
	"github.com/ovenfresh/bakery-api/internal/model"
	"github.com/ovenfresh/bakery-api/internal/service"
)

// SessionHeader keys guest carts. The first response on a fresh guest
// session echoes the generated token back in this header.
const SessionHeader = "X-Session-ID"

type CartHandler struct {
	svc *service.CartService
}

func NewCartHandler(svc *service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

// resolveCart picks the cart key: the authenticated user when a token is
// present, the session header otherwise (minting a session id if needed).
func (h *CartHandler) resolveCart(c *gin.Context) (*model.Cart, error) {
	ctx := c.Request.Context()
	if middleware.HasUser(c) {
		return h.svc.GetOrCreateForUser(ctx, middleware.GetUserID(c))
	}
	sessionID := c.GetHeader(SessionHeader)
	if sessionID == "" {
		sessionID = h.svc.NewSessionID()
	}
	cart, err := h.svc.GetOrCreateForSession(ctx, sessionID)
	if err == nil {
		c.Header(SessionHeader, sessionID)
	}
	return cart, err
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.resolveCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.resolveCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	cart, err = h.svc.AddItem(c.Request.Context(), cart.ID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeCartError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCartResponse(cart))
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.resolveCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	cart, err = h.svc.UpdateQuantity(c.Request.Context(), cart.ID, itemID, req.Quantity)
	if err != nil {
		h.writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) DeleteItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	cart, err := h.resolveCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if _, err := h.svc.RemoveItem(c.Request.Context(), cart.ID, itemID); err != nil {
		h.writeCartError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) SaveForLater(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	cart, err := h.resolveCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	cart, err = h.svc.SaveForLater(c.Request.Context(), cart.ID, itemID)
	if err != nil {
		h.writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) Clear(c *gin.Context) {
	cart, err := h.resolveCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if _, err := h.svc.Clear(c.Request.Context(), cart.ID); err != nil {
		h.writeCartError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Merge folds the guest cart named in the request into the authenticated
// user's cart; it only makes sense after login.
func (h *CartHandler) Merge(c *gin.Context) {
	if !middleware.HasUser(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req dto.MergeCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.Merge(c.Request.Context(), req.SessionID, middleware.GetUserID(c))
	if err != nil {
		h.writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) writeCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, service.ErrProductUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "product is not available"})
	case errors.Is(err, service.ErrCartNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
	case errors.Is(err, service.ErrCartItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
	case errors.Is(err, service.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func toCartResponse(cart *model.Cart) dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, dto.CartItemResponse{
			ID:            item.ID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			TotalPrice:    item.TotalPrice(),
			SavedForLater: item.SavedForLater,
		})
	}
	resp := dto.CartResponse{
		ID:          cart.ID,
		Items:       items,
		TotalAmount: cart.TotalAmount,
		ExpiresAt:   cart.ExpiresAt,
	}
	if cart.SessionID != nil {
		resp.SessionID = *cart.SessionID
	}
	return resp
}
