package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/ovenfresh/bakery-api/internal/config"
	"github.com/ovenfresh/bakery-api/internal/dto"
	"github.com/ovenfresh/bakery-api/internal/model"
	"github.com/ovenfresh/bakery-api/internal/repository"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrEmptyCart         = errors.New("cart has no active items")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCannotCancel      = errors.New("order can no longer be cancelled")
	ErrInvalidStatus     = errors.New("unknown order status")
)

const orderEventsQueue = "order.events"

type OrderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	inventory   *InventoryService
	amqpCh      *amqp.Channel
	log         *slog.Logger
	cfg         config.OrderConfig
	provision   int
	now         func() time.Time
	randRead    func([]byte) (int, error)
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	inventory *InventoryService,
	amqpCh *amqp.Channel,
	cfg config.OrderConfig,
	invCfg config.InventoryConfig,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		inventory:   inventory,
		amqpCh:      amqpCh,
		log:         log,
		cfg:         cfg,
		provision:   invCfg.DefaultStock,
		now:         time.Now,
		randRead:    rand.Read,
	}
}

// Create places an order from an explicit item list. Inventory decrements
// run after the order is persisted and never fail the checkout: shortfalls
// are provisioned to the configured default stock level and logged.
func (s *OrderService) Create(ctx context.Context, req dto.CreateOrderRequest) (*model.Order, error) {
	if req.CustomerID != nil {
		customer, err := s.userRepo.GetByID(ctx, *req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("get customer: %w", err)
		}
		if customer == nil {
			return nil, ErrCustomerNotFound
		}
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, r := range req.Items {
		if r.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		product, err := s.productRepo.GetByID(ctx, r.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return nil, ErrProductNotFound
		}
		// Callers may pass an explicit unit price (promotional overrides);
		// otherwise the current catalog price is snapshotted.
		unitPrice := product.Price
		if r.UnitPrice != nil {
			unitPrice = *r.UnitPrice
		}
		items = append(items, model.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    r.Quantity,
			UnitPrice:   unitPrice,
			TotalPrice:  unitPrice.Mul(decimal.NewFromInt(int64(r.Quantity))),
		})
	}

	number, err := s.generateNumber(ctx)
	if err != nil {
		return nil, err
	}

	method := req.DeliveryMethod
	if method == "" {
		method = model.DeliveryMethodPickup
	}

	order := &model.Order{
		Number:         number,
		CustomerID:     req.CustomerID,
		Items:          items,
		Status:         model.OrderStatusPending,
		DeliveryMethod: method,
		TaxAmount:      amountOrZero(req.TaxAmount),
		ShippingAmount: amountOrZero(req.ShippingAmount),
		DiscountAmount: amountOrZero(req.DiscountAmount),
		OrderDate:      s.now(),
	}
	order.RecalculateTotals()

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.applyDecrements(ctx, order)
	s.publishCreated(ctx, order)
	return order, nil
}

// CreateFromCart is the checkout path: active (non saved-for-later) cart
// lines become order items at their captured cart price, then those lines
// are removed from the cart.
func (s *OrderService) CreateFromCart(ctx context.Context, cartID uuid.UUID, customerID *uuid.UUID, req dto.CheckoutRequest) (*model.Order, error) {
	cart, err := s.cartRepo.GetWithItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	active := cart.ActiveItems()
	if len(active) == 0 {
		return nil, ErrEmptyCart
	}

	itemReqs := make([]dto.OrderItemRequest, 0, len(active))
	for _, item := range active {
		price := item.UnitPrice
		itemReqs = append(itemReqs, dto.OrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: &price,
		})
	}

	order, err := s.Create(ctx, dto.CreateOrderRequest{
		CustomerID:     customerID,
		Items:          itemReqs,
		DeliveryMethod: req.DeliveryMethod,
		TaxAmount:      req.TaxAmount,
		ShippingAmount: req.ShippingAmount,
		DiscountAmount: req.DiscountAmount,
	})
	if err != nil {
		return nil, err
	}

	// Saved-for-later lines survive checkout.
	for _, item := range active {
		if err := s.cartRepo.DeleteItem(ctx, item.ID); err != nil {
			s.log.Warn("remove checked-out cart item", "item_id", item.ID, "error", err)
		}
	}
	cart, err = s.cartRepo.GetWithItems(ctx, cartID)
	if err == nil && cart != nil {
		cart.TotalAmount = cart.ActiveTotal()
		_ = s.cartRepo.Update(ctx, cart)
	}

	return order, nil
}

// Transition moves an order along the lifecycle graph. Transitioning to
// CANCELLED routes through Cancel so inventory restoration always happens.
func (s *OrderService) Transition(ctx context.Context, orderID uuid.UUID, next model.OrderStatus) (*model.Order, error) {
	if next == model.OrderStatusCancelled {
		return s.Cancel(ctx, orderID)
	}
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}

	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}
	if err := s.orderRepo.UpdateStatus(ctx, orderID, next); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	order.Status = next
	return order, nil
}

// Cancel stops a live order and puts its quantities back on hand. The
// restore is unconditional, trading possible over-restoration for never
// losing sellable stock; failures are logged, not surfaced.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, ErrCannotCancel
	}
	if err := s.orderRepo.UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	order.Status = model.OrderStatusCancelled

	for _, item := range order.Items {
		if _, err := s.inventory.Increase(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Warn("restore inventory on cancel",
				"order_id", order.ID, "product_id", item.ProductID, "error", err)
		}
	}
	return order, nil
}

// Refund marks a completed order refunded. It is an administrative action
// outside the regular transition table and does not touch inventory.
func (s *OrderService) Refund(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusCompleted {
		return nil, ErrInvalidTransition
	}
	if err := s.orderRepo.UpdateStatus(ctx, orderID, model.OrderStatusRefunded); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	order.Status = model.OrderStatusRefunded
	return order, nil
}

// Delete is the administrative cleanup path. It bypasses the state machine
// and performs no inventory adjustment.
func (s *OrderService) Delete(ctx context.Context, orderID uuid.UUID) error {
	if _, err := s.GetByID(ctx, orderID); err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	order, err := s.orderRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("get order by number: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Order, error) {
	return s.orderRepo.ListByCustomer(ctx, customerID)
}

func (s *OrderService) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.orderRepo.ListByStatus(ctx, status)
}

func (s *OrderService) ListByDateRange(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	return s.orderRepo.ListByDateRange(ctx, from, to)
}

func (s *OrderService) ListRecent(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.orderRepo.ListRecent(ctx, limit)
}

// generateNumber builds a human-referenceable order number: the configured
// prefix plus 8 uppercase hex characters, retried on the unlikely collision.
func (s *OrderService) generateNumber(ctx context.Context) (string, error) {
	retries := s.cfg.NumberRetries
	if retries <= 0 {
		retries = 1
	}
	for i := 0; i < retries; i++ {
		buf := make([]byte, 4)
		if _, err := s.randRead(buf); err != nil {
			return "", fmt.Errorf("generate order number: %w", err)
		}
		number := s.cfg.NumberPrefix + strings.ToUpper(hex.EncodeToString(buf))
		existing, err := s.orderRepo.GetByNumber(ctx, number)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if existing == nil {
			return number, nil
		}
	}
	return "", fmt.Errorf("exhausted %d attempts to generate a unique order number", retries)
}

// applyDecrements is deliberately failure-tolerant: a sale is never blocked
// by an inventory bookkeeping gap. Missing or short records are provisioned
// to the default stock level first, and anything still failing is logged.
func (s *OrderService) applyDecrements(ctx context.Context, order *model.Order) {
	for _, item := range order.Items {
		_, err := s.inventory.Decrease(ctx, item.ProductID, item.Quantity)
		if errors.Is(err, ErrInsufficientStock) {
			if _, perr := s.inventory.Increase(ctx, item.ProductID, s.provision); perr != nil {
				s.log.Warn("provision inventory",
					"order_id", order.ID, "product_id", item.ProductID, "error", perr)
				continue
			}
			s.log.Warn("inventory shortfall at checkout, provisioned default stock",
				"order_id", order.ID, "product_id", item.ProductID, "quantity", item.Quantity)
			_, err = s.inventory.Decrease(ctx, item.ProductID, item.Quantity)
		}
		if err != nil {
			s.log.Warn("decrement inventory",
				"order_id", order.ID, "product_id", item.ProductID, "error", err)
		}
	}
}

func (s *OrderService) publishCreated(ctx context.Context, order *model.Order) {
	if s.amqpCh == nil {
		return
	}
	msg, _ := json.Marshal(model.OrderCreatedMessage{OrderID: order.ID, Number: order.Number})
	err := s.amqpCh.PublishWithContext(ctx, "", orderEventsQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         msg,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		s.log.Warn("publish order created", "order_id", order.ID, "error", err)
	}
}

func amountOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
