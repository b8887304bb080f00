package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ovenfresh/bakery-api/internal/config"
	"github.com/ovenfresh/bakery-api/internal/model"
	"github.com/ovenfresh/bakery-api/internal/repository"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInventoryNotFound = errors.New("inventory record not found")
)

type InventoryService struct {
	repo     repository.InventoryRepository
	defaults config.InventoryConfig
}

func NewInventoryService(repo repository.InventoryRepository, defaults config.InventoryConfig) *InventoryService {
	return &InventoryService{repo: repo, defaults: defaults}
}

// Increase adds qty on hand, creating the record with default thresholds if
// this is the first time the product is stocked. It has no upper bound.
func (s *InventoryService) Increase(ctx context.Context, productID uuid.UUID, qty int) (*model.Inventory, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	inv, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	if inv == nil {
		inv = &model.Inventory{
			ProductID:    productID,
			Quantity:     qty,
			ReorderPoint: s.defaults.DefaultReorderPoint,
			ReorderQty:   s.defaults.DefaultReorderQty,
		}
		if err := s.repo.Create(ctx, inv); err != nil {
			return nil, fmt.Errorf("create inventory: %w", err)
		}
		return inv, nil
	}
	inv.Quantity += qty
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("update inventory: %w", err)
	}
	return inv, nil
}

// Decrease subtracts qty on hand. A missing record counts as zero stock, so
// the call fails rather than driving the quantity negative.
func (s *InventoryService) Decrease(ctx context.Context, productID uuid.UUID, qty int) (*model.Inventory, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	inv, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	if inv == nil || inv.Quantity < qty {
		return nil, ErrInsufficientStock
	}
	inv.Quantity -= qty
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("update inventory: %w", err)
	}
	return inv, nil
}

// IsInStock reports whether at least qty units are on hand. A missing record
// is false, not an error.
func (s *InventoryService) IsInStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	inv, err := s.repo.Get(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("get inventory: %w", err)
	}
	if inv == nil {
		return false, nil
	}
	return inv.Quantity >= qty, nil
}

func (s *InventoryService) Get(ctx context.Context, productID uuid.UUID) (*model.Inventory, error) {
	inv, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	if inv == nil {
		return nil, ErrInventoryNotFound
	}
	return inv, nil
}

func (s *InventoryService) List(ctx context.Context) ([]model.Inventory, error) {
	return s.repo.List(ctx)
}

func (s *InventoryService) SetThresholds(ctx context.Context, productID uuid.UUID, reorderPoint, reorderQty int) (*model.Inventory, error) {
	inv, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	if inv == nil {
		return nil, ErrInventoryNotFound
	}
	inv.ReorderPoint = reorderPoint
	inv.ReorderQty = reorderQty
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("update inventory: %w", err)
	}
	return inv, nil
}
