package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID          uuid.UUID
	Name        string
	SKU         string
	Description string
	Category    string
	ImageURL    string
	Price       decimal.Decimal
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Cart is keyed by exactly one of UserID (authenticated) or SessionID (guest).
type Cart struct {
	ID          uuid.UUID
	UserID      *uuid.UUID
	SessionID   *string
	Items       []CartItem
	TotalAmount decimal.Decimal
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *Cart) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ActiveTotal sums the lines that count toward checkout, skipping
// saved-for-later items.
func (c *Cart) ActiveTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		if item.SavedForLater {
			continue
		}
		total = total.Add(item.TotalPrice())
	}
	return total
}

func (c *Cart) ActiveItems() []CartItem {
	var items []CartItem
	for _, item := range c.Items {
		if !item.SavedForLater {
			items = append(items, item)
		}
	}
	return items
}

type CartItem struct {
	ID            uuid.UUID
	CartID        uuid.UUID
	ProductID     uuid.UUID
	Quantity      int
	UnitPrice     decimal.Decimal
	SavedForLater bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (i CartItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "DELIVERY"
	DeliveryMethodPickup   DeliveryMethod = "PICKUP"
)

func (m DeliveryMethod) Valid() bool {
	return m == DeliveryMethodDelivery || m == DeliveryMethodPickup
}

type Order struct {
	ID             uuid.UUID
	Number         string
	CustomerID     *uuid.UUID
	Items          []OrderItem
	Status         OrderStatus
	DeliveryMethod DeliveryMethod
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	OrderDate      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecalculateTotals rederives subtotal and total from the items and
// adjustments. Totals are cached values, never a source of truth; the total
// is clamped at zero.
func (o *Order) RecalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.TotalPrice)
	}
	o.Subtotal = subtotal
	total := subtotal.Add(o.TaxAmount).Add(o.ShippingAmount).Sub(o.DiscountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.TotalAmount = total
}

// OrderItem is a snapshot of a product at purchase time; unit price is
// immutable once the order is created.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

type InventoryStatus string

const (
	InventoryStatusInStock    InventoryStatus = "IN_STOCK"
	InventoryStatusLowStock   InventoryStatus = "LOW_STOCK"
	InventoryStatusOutOfStock InventoryStatus = "OUT_OF_STOCK"
)

// Inventory is the on-hand quantity counter for one product. Reorder
// thresholds signal replenishment; they are not enforced automatically.
type Inventory struct {
	ProductID    uuid.UUID
	Quantity     int
	ReorderPoint int
	ReorderQty   int
	UpdatedAt    time.Time
}

func (i *Inventory) Status() InventoryStatus {
	switch {
	case i.Quantity <= 0:
		return InventoryStatusOutOfStock
	case i.Quantity <= i.ReorderPoint:
		return InventoryStatusLowStock
	default:
		return InventoryStatusInStock
	}
}

type OrderCreatedMessage struct {
	OrderID uuid.UUID `json:"order_id"`
	Number  string    `json:"number"`
}
