package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ovenfresh/bakery-api/internal/model"
	"github.com/ovenfresh/bakery-api/internal/repository"
)

var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrProductUnavailable = errors.New("product is not available")
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	ttl         time.Duration
	now         func() time.Time
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, ttl time.Duration) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, ttl: ttl, now: time.Now}
}

// NewSessionID issues the opaque token that keys a guest cart before the
// visitor authenticates.
func (s *CartService) NewSessionID() string {
	return uuid.NewString()
}

func (s *CartService) GetOrCreateForUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return s.materialize(ctx, cart, func(c *model.Cart) { c.UserID = &userID })
}

func (s *CartService) GetOrCreateForSession(ctx context.Context, sessionID string) (*model.Cart, error) {
	cart, err := s.cartRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return s.materialize(ctx, cart, func(c *model.Cart) { c.SessionID = &sessionID })
}

// materialize creates a missing cart, lazily expires a stale one (items
// cleared, expiry pushed out, the row itself reused), or loads a live one.
func (s *CartService) materialize(ctx context.Context, cart *model.Cart, bind func(*model.Cart)) (*model.Cart, error) {
	if cart == nil {
		cart = &model.Cart{TotalAmount: decimal.Zero, ExpiresAt: s.now().Add(s.ttl)}
		bind(cart)
		if err := s.cartRepo.Create(ctx, cart); err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
		return cart, nil
	}
	if cart.Expired(s.now()) {
		if err := s.cartRepo.ClearItems(ctx, cart.ID); err != nil {
			return nil, fmt.Errorf("expire cart: %w", err)
		}
		cart.Items = nil
		cart.TotalAmount = decimal.Zero
		cart.ExpiresAt = s.now().Add(s.ttl)
		if err := s.cartRepo.Update(ctx, cart); err != nil {
			return nil, fmt.Errorf("reset expired cart: %w", err)
		}
		return cart, nil
	}
	return s.cartRepo.GetWithItems(ctx, cart.ID)
}

func (s *CartService) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*model.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !product.Active {
		return nil, ErrProductUnavailable
	}

	cart, err := s.cartRepo.GetWithItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}

	// Unit price is captured now; later catalog price changes do not move
	// lines already in the cart.
	if err := s.cartRepo.AddItem(ctx, &model.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: product.Price,
	}); err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	return s.recomputeTotal(ctx, cart.ID)
}

// UpdateQuantity sets a new quantity for an item; zero or negative removes
// the item outright so a non-positive quantity is never persisted.
func (s *CartService) UpdateQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (*model.Cart, error) {
	item, err := s.findItem(ctx, cartID, itemID)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		if err := s.cartRepo.DeleteItem(ctx, itemID); err != nil {
			return nil, fmt.Errorf("delete cart item: %w", err)
		}
		return s.recomputeTotal(ctx, cartID)
	}
	item.Quantity = quantity
	if err := s.cartRepo.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return s.recomputeTotal(ctx, cartID)
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*model.Cart, error) {
	if _, err := s.findItem(ctx, cartID, itemID); err != nil {
		return nil, err
	}
	if err := s.cartRepo.DeleteItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("delete cart item: %w", err)
	}
	return s.recomputeTotal(ctx, cartID)
}

// SaveForLater toggles the flag that parks an item in the cart without
// counting it toward the total or toward checkout.
func (s *CartService) SaveForLater(ctx context.Context, cartID, itemID uuid.UUID) (*model.Cart, error) {
	item, err := s.findItem(ctx, cartID, itemID)
	if err != nil {
		return nil, err
	}
	item.SavedForLater = !item.SavedForLater
	if err := s.cartRepo.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return s.recomputeTotal(ctx, cartID)
}

func (s *CartService) Clear(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetWithItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	if err := s.cartRepo.ClearItems(ctx, cart.ID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	return s.recomputeTotal(ctx, cart.ID)
}

// Merge folds a guest cart into the user's cart after login: quantities are
// summed for products present in both, other lines move over, and the guest
// cart is cleared (not deleted) so the session key can be reused.
func (s *CartService) Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*model.Cart, error) {
	guest, err := s.cartRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get guest cart: %w", err)
	}
	if guest == nil {
		return nil, ErrCartNotFound
	}
	guest, err = s.cartRepo.GetWithItems(ctx, guest.ID)
	if err != nil {
		return nil, fmt.Errorf("get guest cart items: %w", err)
	}

	userCart, err := s.GetOrCreateForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, item := range guest.Items {
		if err := s.cartRepo.AddItem(ctx, &model.CartItem{
			CartID:    userCart.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}); err != nil {
			return nil, fmt.Errorf("merge cart item: %w", err)
		}
	}

	if err := s.cartRepo.ClearItems(ctx, guest.ID); err != nil {
		return nil, fmt.Errorf("clear guest cart: %w", err)
	}
	guest.TotalAmount = decimal.Zero
	if err := s.cartRepo.Update(ctx, guest); err != nil {
		return nil, fmt.Errorf("update guest cart: %w", err)
	}

	return s.recomputeTotal(ctx, userCart.ID)
}

// CleanupExpired hard-deletes carts past their expiry. Meant for a periodic
// sweep, not the request path; the lazy path in materialize only clears items.
func (s *CartService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.cartRepo.DeleteExpired(ctx, s.now())
}

func (s *CartService) findItem(ctx context.Context, cartID, itemID uuid.UUID) (*model.CartItem, error) {
	cart, err := s.cartRepo.GetWithItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return &cart.Items[i], nil
		}
	}
	return nil, ErrCartItemNotFound
}

// recomputeTotal is the single place the cart total is derived; every
// mutation funnels through it so the stored amount never drifts from the
// items it summarizes.
func (s *CartService) recomputeTotal(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetWithItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	cart.TotalAmount = cart.ActiveTotal()
	if err := s.cartRepo.Update(ctx, cart); err != nil {
		return nil, fmt.Errorf("update cart total: %w", err)
	}
	return cart, nil
}
