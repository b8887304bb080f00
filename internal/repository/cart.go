package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ovenfresh/bakery-api/internal/model"
)

type CartRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	GetBySessionID(ctx context.Context, sessionID string) (*model.Cart, error)
	GetWithItems(ctx context.Context, cartID uuid.UUID) (*model.Cart, error)
	Create(ctx context.Context, cart *model.Cart) error
	Update(ctx context.Context, cart *model.Cart) error
	AddItem(ctx context.Context, item *model.CartItem) error
	UpdateItem(ctx context.Context, item *model.CartItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

const cartColumns = `id, user_id, session_id, total_amount, expires_at, created_at, updated_at`

func (r *pgCartRepo) scanCart(row pgx.Row) (*model.Cart, error) {
	cart := &model.Cart{}
	err := row.Scan(&cart.ID, &cart.UserID, &cart.SessionID, &cart.TotalAmount,
		&cart.ExpiresAt, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (r *pgCartRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	return r.scanCart(r.pool.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, userID))
}

func (r *pgCartRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.Cart, error) {
	return r.scanCart(r.pool.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE session_id = $1`, sessionID))
}

func (r *pgCartRepo) GetWithItems(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	cart, err := r.scanCart(r.pool.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE id = $1`, cartID))
	if err != nil || cart == nil {
		return cart, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, cart_id, product_id, quantity, unit_price, saved_for_later, created_at, updated_at
		 FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
			&item.UnitPrice, &item.SavedForLater, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}

func (r *pgCartRepo) Create(ctx context.Context, cart *model.Cart) error {
	cart.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO carts (id, user_id, session_id, total_amount, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING created_at, updated_at`,
		cart.ID, cart.UserID, cart.SessionID, cart.TotalAmount, cart.ExpiresAt,
	).Scan(&cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create cart: %w", err)
	}
	return nil
}

func (r *pgCartRepo) Update(ctx context.Context, cart *model.Cart) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE carts SET total_amount = $2, expires_at = $3, updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		cart.ID, cart.TotalAmount, cart.ExpiresAt,
	).Scan(&cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("update cart: %w", err)
	}
	return nil
}

func (r *pgCartRepo) AddItem(ctx context.Context, item *model.CartItem) error {
	item.ID = uuid.New()
	// Existing line for the same product accumulates quantity and keeps its
	// original unit price.
	query := `INSERT INTO cart_items (id, cart_id, product_id, quantity, unit_price, saved_for_later, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, FALSE, NOW(), NOW())
			  ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + $4, updated_at = NOW()
			  RETURNING id, quantity, unit_price, saved_for_later, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, item.ID, item.CartID, item.ProductID, item.Quantity, item.UnitPrice).
		Scan(&item.ID, &item.Quantity, &item.UnitPrice, &item.SavedForLater, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

func (r *pgCartRepo) UpdateItem(ctx context.Context, item *model.CartItem) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE cart_items SET quantity = $2, saved_for_later = $3, updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		item.ID, item.Quantity, item.SavedForLater,
	).Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

func (r *pgCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *pgCartRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired carts: %w", err)
	}
	return ct.RowsAffected(), nil
}
