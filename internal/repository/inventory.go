package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ovenfresh/bakery-api/internal/model"
)

type InventoryRepository interface {
	Get(ctx context.Context, productID uuid.UUID) (*model.Inventory, error)
	Create(ctx context.Context, inv *model.Inventory) error
	Update(ctx context.Context, inv *model.Inventory) error
	List(ctx context.Context) ([]model.Inventory, error)
}

type pgInventoryRepo struct{ pool *pgxpool.Pool }

func NewInventoryRepository(pool *pgxpool.Pool) InventoryRepository {
	return &pgInventoryRepo{pool: pool}
}

func (r *pgInventoryRepo) Get(ctx context.Context, productID uuid.UUID) (*model.Inventory, error) {
	inv := &model.Inventory{}
	err := r.pool.QueryRow(ctx,
		`SELECT product_id, quantity, reorder_point, reorder_qty, updated_at
		 FROM inventory WHERE product_id = $1`, productID,
	).Scan(&inv.ProductID, &inv.Quantity, &inv.ReorderPoint, &inv.ReorderQty, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return inv, nil
}

func (r *pgInventoryRepo) Create(ctx context.Context, inv *model.Inventory) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO inventory (product_id, quantity, reorder_point, reorder_qty, updated_at)
		 VALUES ($1, $2, $3, $4, NOW()) RETURNING updated_at`,
		inv.ProductID, inv.Quantity, inv.ReorderPoint, inv.ReorderQty,
	).Scan(&inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create inventory: %w", err)
	}
	return nil
}

func (r *pgInventoryRepo) Update(ctx context.Context, inv *model.Inventory) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE inventory SET quantity = $2, reorder_point = $3, reorder_qty = $4, updated_at = NOW()
		 WHERE product_id = $1 RETURNING updated_at`,
		inv.ProductID, inv.Quantity, inv.ReorderPoint, inv.ReorderQty,
	).Scan(&inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update inventory: %w", err)
	}
	return nil
}

func (r *pgInventoryRepo) List(ctx context.Context) ([]model.Inventory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, quantity, reorder_point, reorder_qty, updated_at FROM inventory ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var records []model.Inventory
	for rows.Next() {
		var inv model.Inventory
		if err := rows.Scan(&inv.ProductID, &inv.Quantity, &inv.ReorderPoint, &inv.ReorderQty, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		records = append(records, inv)
	}
	return records, nil
}
