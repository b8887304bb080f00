package service

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovenfresh/bakery-api/internal/config"
	"github.com/ovenfresh/bakery-api/internal/dto"
	"github.com/ovenfresh/bakery-api/internal/model"
)

type mockOrderRepo struct {
	orders map[uuid.UUID]*model.Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return order, nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, number string) (*model.Order, error) {
	for _, order := range m.orders {
		if order.Number == number {
			return order, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]model.Order, error) {
	var out []model.Order
	for _, order := range m.orders {
		if order.CustomerID != nil && *order.CustomerID == customerID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListByStatus(_ context.Context, status model.OrderStatus) ([]model.Order, error) {
	var out []model.Order
	for _, order := range m.orders {
		if order.Status == status {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListByDateRange(_ context.Context, from, to time.Time) ([]model.Order, error) {
	var out []model.Order
	for _, order := range m.orders {
		if !order.OrderDate.Before(from) && !order.OrderDate.After(to) {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListRecent(_ context.Context, limit int) ([]model.Order, error) {
	var out []model.Order
	for _, order := range m.orders {
		if len(out) == limit {
			break
		}
		out = append(out, *order)
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OrderStatus) error {
	if order, ok := m.orders[id]; ok {
		order.Status = status
	}
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.orders, id)
	return nil
}

type mockUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	user.ID = uuid.New()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

type orderFixture struct {
	svc       *OrderService
	orderRepo *mockOrderRepo
	cartRepo  *mockCartRepo
	products  *mockProductRepo
	users     *mockUserRepo
	invRepo   *mockInventoryRepo
}

func newOrderFixture() orderFixture {
	orderRepo := newMockOrderRepo()
	cartRepo := newMockCartRepo()
	products := newMockProductRepo()
	users := newMockUserRepo()
	invRepo := newMockInventoryRepo()
	inventory := NewInventoryService(invRepo, testInventoryDefaults())

	svc := NewOrderService(
		orderRepo, cartRepo, products, users, inventory, nil,
		config.OrderConfig{NumberPrefix: "BKY-", NumberRetries: 5},
		testInventoryDefaults(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return orderFixture{svc: svc, orderRepo: orderRepo, cartRepo: cartRepo, products: products, users: users, invRepo: invRepo}
}

func (f orderFixture) seedCustomer() uuid.UUID {
	id := uuid.New()
	f.users.users[id] = &model.User{ID: id, Email: "pat@example.com", Role: model.RoleCustomer}
	return id
}

func (f orderFixture) seedInventory(productID uuid.UUID, quantity int) {
	f.invRepo.records[productID] = &model.Inventory{
		ProductID: productID, Quantity: quantity,
		ReorderPoint: 10, ReorderQty: 50,
	}
}

func TestOrderService_Create_Totals(t *testing.T) {
	f := newOrderFixture()
	croissant := seedProduct(f.products, 3.00, true)
	tart := seedProduct(f.products, 7.00, true)

	tax := decimal.NewFromFloat(1.00)
	shipping := decimal.NewFromFloat(2.00)
	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{
			{ProductID: croissant, Quantity: 2},
			{ProductID: tart, Quantity: 1},
		},
		TaxAmount:      &tax,
		ShippingAmount: &shipping,
	})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromFloat(13.00)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromFloat(16.00)))
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Sourdough Loaf", order.Items[0].ProductName)
}

func TestOrderService_Create_SnapshotsCatalogPrice(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)

	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromFloat(3.00)))

	// The snapshot is immune to later catalog edits.
	f.products.products[pid].Price = decimal.NewFromFloat(8.00)
	stored, err := f.svc.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.NewFromFloat(3.00)))
}

func TestOrderService_Create_UnitPriceOverride(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)

	override := decimal.NewFromFloat(2.25)
	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 2, UnitPrice: &override}},
	})
	require.NoError(t, err)
	assert.True(t, order.Items[0].UnitPrice.Equal(override))
	assert.True(t, order.Subtotal.Equal(decimal.NewFromFloat(4.50)))
}

func TestOrderService_Create_CustomerNotFound(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	missing := uuid.New()

	_, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		CustomerID: &missing,
		Items:      []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestOrderService_Create_ProductNotFound(t *testing.T) {
	f := newOrderFixture()
	_, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: uuid.New(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestOrderService_Create_InvalidQuantity(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	_, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 0}},
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestOrderService_Create_DecrementsInventory(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	f.seedInventory(pid, 10)

	_, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, f.invRepo.records[pid].Quantity)
}

func TestOrderService_Create_ProvisionsMissingInventory(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	// No inventory record exists for the product.

	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)

	// Stock was provisioned to the default level, then decremented.
	inv := f.invRepo.records[pid]
	require.NotNil(t, inv)
	assert.Equal(t, testInventoryDefaults().DefaultStock-4, inv.Quantity)
}

func TestOrderService_NumberFormat(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	f.svc.randRead = func(buf []byte) (int, error) {
		copy(buf, []byte{0xde, 0xad, 0xbe, 0xef})
		return len(buf), nil
	}

	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "BKY-DEADBEEF", order.Number)
	assert.Regexp(t, regexp.MustCompile(`^BKY-[0-9A-F]{8}$`), order.Number)
}

func TestOrderService_NumberCollisionRetries(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)

	seqs := [][]byte{{0, 0, 0, 1}, {0, 0, 0, 1}, {0, 0, 0, 2}}
	call := 0
	f.svc.randRead = func(buf []byte) (int, error) {
		copy(buf, seqs[call])
		call++
		return len(buf), nil
	}

	first, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "BKY-00000001", first.Number)

	second, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "BKY-00000002", second.Number)
	assert.Equal(t, 3, call)
}

func TestOrderService_Transition(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	require.NoError(t, err)

	order, err = f.svc.Transition(context.Background(), order.ID, model.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)

	// READY is two steps ahead; the graph does not allow skipping.
	_, err = f.svc.Transition(context.Background(), order.ID, model.OrderStatusReady)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	order, err = f.svc.Transition(context.Background(), order.ID, model.OrderStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPreparing, order.Status)
}

func TestOrderService_Transition_UnknownStatus(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.svc.Transition(context.Background(), order.ID, model.OrderStatus("SHIPPED"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOrderService_Transition_TerminalStatesAbsorb(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	require.NoError(t, err)

	for _, next := range []model.OrderStatus{
		model.OrderStatusConfirmed, model.OrderStatusPreparing,
		model.OrderStatusReady, model.OrderStatusCompleted,
	} {
		order, err = f.svc.Transition(context.Background(), order.ID, next)
		require.NoError(t, err)
	}

	_, err = f.svc.Transition(context.Background(), order.ID, model.OrderStatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Transition(context.Background(), order.ID, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderService_Cancel_RestoresInventory(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	f.seedInventory(pid, 10)

	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, 6, f.invRepo.records[pid].Quantity)

	order, err = f.svc.Cancel(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)
	assert.Equal(t, 10, f.invRepo.records[pid].Quantity)
}

func TestOrderService_Cancel_AlreadyTerminal(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	f.seedInventory(pid, 10)

	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 4}},
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), order.ID)
	require.NoError(t, err)

	// A second cancel must fail and must not restore again.
	_, err = f.svc.Cancel(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrCannotCancel)
	assert.Equal(t, 10, f.invRepo.records[pid].Quantity)
}

func TestOrderService_Transition_CancelledRoutesThroughCancel(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	f.seedInventory(pid, 10)

	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 4}},
	})
	require.NoError(t, err)

	order, err = f.svc.Transition(context.Background(), order.ID, model.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)
	assert.Equal(t, 10, f.invRepo.records[pid].Quantity)
}

func TestOrderService_Refund_OnlyFromCompleted(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.svc.Refund(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	for _, next := range []model.OrderStatus{
		model.OrderStatusConfirmed, model.OrderStatusPreparing,
		model.OrderStatusReady, model.OrderStatusCompleted,
	} {
		order, err = f.svc.Transition(context.Background(), order.ID, next)
		require.NoError(t, err)
	}

	order, err = f.svc.Refund(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusRefunded, order.Status)
}

func TestOrderService_CreateFromCart(t *testing.T) {
	f := newOrderFixture()
	cartSvc := NewCartService(f.cartRepo, f.products, cartTTL)
	loaf := seedProduct(f.products, 5.00, true)
	tart := seedProduct(f.products, 7.00, true)

	cart, err := cartSvc.GetOrCreateForSession(context.Background(), "s1")
	require.NoError(t, err)
	cart, err = cartSvc.AddItem(context.Background(), cart.ID, loaf, 2)
	require.NoError(t, err)
	cart, err = cartSvc.AddItem(context.Background(), cart.ID, tart, 1)
	require.NoError(t, err)

	// Park the tart; it must survive checkout.
	var tartItem uuid.UUID
	for _, item := range cart.Items {
		if item.ProductID == tart {
			tartItem = item.ID
		}
	}
	cart, err = cartSvc.SaveForLater(context.Background(), cart.ID, tartItem)
	require.NoError(t, err)

	order, err := f.svc.CreateFromCart(context.Background(), cart.ID, nil, dto.CheckoutRequest{})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, loaf, order.Items[0].ProductID)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromFloat(10.00)))

	cart, err = cartSvc.GetOrCreateForSession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, tart, cart.Items[0].ProductID)
	assert.True(t, cart.Items[0].SavedForLater)
	assert.True(t, cart.TotalAmount.IsZero())
}

func TestOrderService_CreateFromCart_UsesCartPrices(t *testing.T) {
	f := newOrderFixture()
	cartSvc := NewCartService(f.cartRepo, f.products, cartTTL)
	loaf := seedProduct(f.products, 5.00, true)

	cart, err := cartSvc.GetOrCreateForSession(context.Background(), "s1")
	require.NoError(t, err)
	_, err = cartSvc.AddItem(context.Background(), cart.ID, loaf, 2)
	require.NoError(t, err)

	// Catalog price changed between add and checkout; the cart price wins.
	f.products.products[loaf].Price = decimal.NewFromFloat(9.00)

	order, err := f.svc.CreateFromCart(context.Background(), cart.ID, nil, dto.CheckoutRequest{})
	require.NoError(t, err)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromFloat(5.00)))
}

func TestOrderService_CreateFromCart_EmptyCart(t *testing.T) {
	f := newOrderFixture()
	cartSvc := NewCartService(f.cartRepo, f.products, cartTTL)

	cart, err := cartSvc.GetOrCreateForSession(context.Background(), "s1")
	require.NoError(t, err)

	_, err = f.svc.CreateFromCart(context.Background(), cart.ID, nil, dto.CheckoutRequest{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestOrderService_Delete_BypassesStateMachine(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	require.NoError(t, err)

	for _, next := range []model.OrderStatus{
		model.OrderStatusConfirmed, model.OrderStatusPreparing,
		model.OrderStatusReady, model.OrderStatusCompleted,
	} {
		_, err = f.svc.Transition(context.Background(), order.ID, next)
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.Delete(context.Background(), order.ID))
	_, err = f.svc.GetByID(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_GetByNumber(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	order, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	require.NoError(t, err)

	found, err := f.svc.GetByNumber(context.Background(), order.Number)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = f.svc.GetByNumber(context.Background(), "BKY-FFFFFFFF")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_ListByStatus_RejectsUnknown(t *testing.T) {
	f := newOrderFixture()
	_, err := f.svc.ListByStatus(context.Background(), model.OrderStatus("SHIPPED"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOrderService_ListByCustomer(t *testing.T) {
	f := newOrderFixture()
	pid := seedProduct(f.products, 3.00, true)
	customerID := f.seedCustomer()

	_, err := f.svc.Create(context.Background(), dto.CreateOrderRequest{
		CustomerID: &customerID,
		Items:      []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: pid, Quantity: 1}},
	})
	require.NoError(t, err)

	orders, err := f.svc.ListByCustomer(context.Background(), customerID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
