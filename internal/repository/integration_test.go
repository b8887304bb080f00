package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovenfresh/bakery-api/internal/model"
)

func TestUserRepo_CreateAndGetByEmail(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "inventory", "users")

	repo := NewUserRepository(testPool)
	ctx := context.Background()

	user := &model.User{
		Email: "test@example.com", Password: "hashed",
		FirstName: "Pat", LastName: "Baker", Role: model.RoleCustomer,
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	found, err := repo.GetByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
}

func TestProductRepo_CRUD(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "inventory", "products")

	repo := NewProductRepository(testPool)
	ctx := context.Background()

	product := &model.Product{
		Name: "Sourdough Loaf", SKU: "SRD-001", Category: "bread",
		Price: decimal.NewFromFloat(6.50), Active: true,
	}
	require.NoError(t, repo.Create(ctx, product))
	assert.NotEqual(t, uuid.Nil, product.ID)

	found, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sourdough Loaf", found.Name)

	product.Name = "Country Sourdough"
	require.NoError(t, repo.Update(ctx, product))

	found, _ = repo.GetByID(ctx, product.ID)
	assert.Equal(t, "Country Sourdough", found.Name)

	require.NoError(t, repo.Delete(ctx, product.ID))
	found, _ = repo.GetByID(ctx, product.ID)
	assert.Nil(t, found)
}

func TestProductRepo_List_ActiveOnly(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "inventory", "products")

	repo := NewProductRepository(testPool)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Product{
		Name: "Baguette", SKU: "BAG-001", Price: decimal.NewFromFloat(3), Active: true,
	}))
	require.NoError(t, repo.Create(ctx, &model.Product{
		Name: "Retired Bun", SKU: "BUN-000", Price: decimal.NewFromFloat(1), Active: false,
	}))

	storefront, total, err := repo.List(ctx, 10, 0, "", "", "", true)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, storefront, 1)
	assert.Equal(t, "Baguette", storefront[0].Name)

	_, total, err = repo.List(ctx, 10, 0, "", "", "", false)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestCartRepo_SessionCartLifecycle(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "inventory", "products")

	productRepo := NewProductRepository(testPool)
	cartRepo := NewCartRepository(testPool)
	ctx := context.Background()

	product := &model.Product{
		Name: "Croissant", SKU: "CRO-001", Price: decimal.NewFromFloat(3.25), Active: true,
	}
	require.NoError(t, productRepo.Create(ctx, product))

	sessionID := uuid.NewString()
	cart := &model.Cart{
		SessionID: &sessionID, TotalAmount: decimal.Zero,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, cartRepo.Create(ctx, cart))

	found, err := cartRepo.GetBySessionID(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, cart.ID, found.ID)

	require.NoError(t, cartRepo.AddItem(ctx, &model.CartItem{
		CartID: cart.ID, ProductID: product.ID, Quantity: 2, UnitPrice: product.Price,
	}))
	// Same product again: the line accumulates instead of duplicating.
	require.NoError(t, cartRepo.AddItem(ctx, &model.CartItem{
		CartID: cart.ID, ProductID: product.ID, Quantity: 1, UnitPrice: product.Price,
	}))

	withItems, err := cartRepo.GetWithItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, withItems.Items, 1)
	assert.Equal(t, 3, withItems.Items[0].Quantity)

	item := withItems.Items[0]
	item.SavedForLater = true
	require.NoError(t, cartRepo.UpdateItem(ctx, &item))

	withItems, err = cartRepo.GetWithItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, withItems.Items[0].SavedForLater)

	require.NoError(t, cartRepo.ClearItems(ctx, cart.ID))
	withItems, err = cartRepo.GetWithItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, withItems.Items)
}

func TestCartRepo_DeleteExpired(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "inventory")

	cartRepo := NewCartRepository(testPool)
	ctx := context.Background()

	staleSession := uuid.NewString()
	require.NoError(t, cartRepo.Create(ctx, &model.Cart{
		SessionID: &staleSession, TotalAmount: decimal.Zero,
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	freshSession := uuid.NewString()
	require.NoError(t, cartRepo.Create(ctx, &model.Cart{
		SessionID: &freshSession, TotalAmount: decimal.Zero,
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	deleted, err := cartRepo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	gone, err := cartRepo.GetBySessionID(ctx, staleSession)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := cartRepo.GetBySessionID(ctx, freshSession)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestOrderRepo_CreateAndGet(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "inventory", "products", "users")

	userRepo := NewUserRepository(testPool)
	productRepo := NewProductRepository(testPool)
	orderRepo := NewOrderRepository(testPool)
	ctx := context.Background()

	user := &model.User{
		Email: "order@example.com", Password: "h",
		FirstName: "O", LastName: "U", Role: model.RoleCustomer,
	}
	require.NoError(t, userRepo.Create(ctx, user))

	product := &model.Product{
		Name: "Tart", SKU: "TRT-001", Price: decimal.NewFromFloat(7), Active: true,
	}
	require.NoError(t, productRepo.Create(ctx, product))

	order := &model.Order{
		Number: "BKY-0000TEST", CustomerID: &user.ID,
		Status: model.OrderStatusPending, DeliveryMethod: model.DeliveryMethodPickup,
		Items: []model.OrderItem{
			{ProductID: product.ID, ProductName: product.Name, Quantity: 2,
				UnitPrice: product.Price, TotalPrice: decimal.NewFromFloat(14)},
		},
		Subtotal: decimal.NewFromFloat(14), TotalAmount: decimal.NewFromFloat(14),
		OrderDate: time.Now(),
	}
	require.NoError(t, orderRepo.Create(ctx, order))
	assert.NotEqual(t, uuid.Nil, order.ID)

	found, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Tart", found.Items[0].ProductName)

	byNumber, err := orderRepo.GetByNumber(ctx, "BKY-0000TEST")
	require.NoError(t, err)
	require.NotNil(t, byNumber)
	assert.Equal(t, order.ID, byNumber.ID)

	require.NoError(t, orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusConfirmed))
	found, _ = orderRepo.GetByID(ctx, order.ID)
	assert.Equal(t, model.OrderStatusConfirmed, found.Status)

	byStatus, err := orderRepo.ListByStatus(ctx, model.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Len(t, byStatus, 1)

	byCustomer, err := orderRepo.ListByCustomer(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, byCustomer, 1)

	require.NoError(t, orderRepo.Delete(ctx, order.ID))
	found, err = orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestInventoryRepo_CRUD(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "cart_items", "carts", "inventory", "products")

	productRepo := NewProductRepository(testPool)
	invRepo := NewInventoryRepository(testPool)
	ctx := context.Background()

	product := &model.Product{
		Name: "Rye Loaf", SKU: "RYE-001", Price: decimal.NewFromFloat(6), Active: true,
	}
	require.NoError(t, productRepo.Create(ctx, product))

	inv := &model.Inventory{
		ProductID: product.ID, Quantity: 40, ReorderPoint: 10, ReorderQty: 50,
	}
	require.NoError(t, invRepo.Create(ctx, inv))

	found, err := invRepo.Get(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 40, found.Quantity)

	found.Quantity = 35
	require.NoError(t, invRepo.Update(ctx, found))

	found, _ = invRepo.Get(ctx, product.ID)
	assert.Equal(t, 35, found.Quantity)

	records, err := invRepo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	missing, err := invRepo.Get(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
