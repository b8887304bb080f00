package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ovenfresh/bakery-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
}

// --- Product ---

type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	SKU         string          `json:"sku" binding:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Active      *bool           `json:"active"`
}

// UpdateProductRequest is a patch: nil means "field not supplied", which is
// distinct from an explicit zero value.
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	SKU         *string          `json:"sku"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	ImageURL    *string          `json:"image_url"`
	Price       *decimal.Decimal `json:"price"`
	Active      *bool            `json:"active"`
}

type ListProductsRequest struct {
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search string `form:"search"`
	Sort   string `form:"sort,default=created_at" binding:"oneof=name price created_at"`
	Order  string `form:"order,default=desc" binding:"oneof=asc desc"`
}

type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest deliberately allows zero and negative quantities:
// those are treated as removal, not rejected.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type MergeCartRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type CartResponse struct {
	ID          uuid.UUID          `json:"id"`
	SessionID   string             `json:"session_id,omitempty"`
	Items       []CartItemResponse `json:"items"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

type CartItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	SavedForLater bool            `json:"saved_for_later"`
}

// --- Order ---

type OrderItemRequest struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

type CreateOrderRequest struct {
	CustomerID     *uuid.UUID           `json:"customer_id"`
	Items          []OrderItemRequest   `json:"items" binding:"required,min=1"`
	DeliveryMethod model.DeliveryMethod `json:"delivery_method"`
	TaxAmount      *decimal.Decimal     `json:"tax_amount"`
	ShippingAmount *decimal.Decimal     `json:"shipping_amount"`
	DiscountAmount *decimal.Decimal     `json:"discount_amount"`
}

type CheckoutRequest struct {
	DeliveryMethod model.DeliveryMethod `json:"delivery_method"`
	TaxAmount      *decimal.Decimal     `json:"tax_amount"`
	ShippingAmount *decimal.Decimal     `json:"shipping_amount"`
	DiscountAmount *decimal.Decimal     `json:"discount_amount"`
}

type TransitionOrderRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

type OrderResponse struct {
	ID             uuid.UUID            `json:"id"`
	Number         string               `json:"number"`
	CustomerID     *uuid.UUID           `json:"customer_id,omitempty"`
	Status         model.OrderStatus    `json:"status"`
	DeliveryMethod model.DeliveryMethod `json:"delivery_method"`
	Items          []OrderItemResponse  `json:"items"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	TaxAmount      decimal.Decimal      `json:"tax_amount"`
	ShippingAmount decimal.Decimal      `json:"shipping_amount"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	OrderDate      time.Time            `json:"order_date"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

type ListOrdersByDateRequest struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02"`
}

// --- Inventory ---

type AdjustStockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type SetThresholdsRequest struct {
	ReorderPoint int `json:"reorder_point" binding:"min=0"`
	ReorderQty   int `json:"reorder_qty" binding:"min=0"`
}

type InventoryResponse struct {
	ProductID    uuid.UUID             `json:"product_id"`
	Quantity     int                   `json:"quantity"`
	ReorderPoint int                   `json:"reorder_point"`
	ReorderQty   int                   `json:"reorder_qty"`
	Status       model.InventoryStatus `json:"status"`
	UpdatedAt    time.Time             `json:"updated_at"`
}
