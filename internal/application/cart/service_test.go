package cart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventoryapp "github.com/shopvn-labs/commerce-core/internal/application/inventory"
	domain "github.com/shopvn-labs/commerce-core/internal/domain/cart"
	dominventory "github.com/shopvn-labs/commerce-core/internal/domain/inventory"
	"github.com/shopvn-labs/commerce-core/internal/infrastructure/memory"
)

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return "cart-" + string(rune('0'+s.n))
}

func newTestStack(t *testing.T) (*Service, *inventoryapp.Service) {
	t.Helper()
	invRepo := memory.NewInventoryRepository()
	inv := inventoryapp.NewService(invRepo, nil, nil, inventoryapp.Config{DefaultWarehouse: "HCM-01", LowStockThreshold: 2})
	svc := NewService(memory.NewCartRepository(), inv, &seqIDs{}, nil, Config{GuestTTL: 7 * 24 * time.Hour})
	return svc, inv
}

func seedStock(t *testing.T, inv *inventoryapp.Service, sku string, qty int) {
	t.Helper()
	_, err := inv.CreateStock(context.Background(), sku, qty)
	require.NoError(t, err)
}

func price(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func customer(id string) Owner { return Owner{CustomerID: id} }

func guest(token string) Owner { return Owner{GuestToken: token} }

func addItem(t *testing.T, svc *Service, o Owner, sku string, qty int) *domain.Cart {
	t.Helper()
	c, err := svc.AddItem(context.Background(), AddItemInput{Owner: o, SKU: sku, Quantity: qty, UnitPrice: price(100)})
	require.NoError(t, err)
	return c
}

func available(t *testing.T, inv *inventoryapp.Service, sku string) int {
	t.Helper()
	n, err := inv.Available(context.Background(), sku)
	require.NoError(t, err)
	return n
}

func TestAddItemReservesStock(t *testing.T) {
	svc, inv := newTestStack(t)
	seedStock(t, inv, "SKU-1", 10)

	c := addItem(t, svc, customer("cust-1"), "SKU-1", 4)
	assert.Equal(t, 4, c.Line("SKU-1").Quantity)
	assert.Equal(t, 6, available(t, inv, "SKU-1"))
}

func TestAddItemRejectedWhollyOnInsufficientStock(t *testing.T) {
	svc, inv := newTestStack(t)
	seedStock(t, inv, "SKU-1", 3)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, AddItemInput{Owner: customer("cust-1"), SKU: "SKU-1", Quantity: 4, UnitPrice: price(100)})
	require.ErrorIs(t, err, dominventory.ErrInsufficientStock)

	// Neither a partial line nor a partial hold may remain.
	c, err := svc.Get(ctx, customer("cust-1"))
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 3, available(t, inv, "SKU-1"))
}

func TestAddItemRequiresOwner(t *testing.T) {
	svc, _ := newTestStack(t)
	_, err := svc.AddItem(context.Background(), AddItemInput{SKU: "SKU-1", Quantity: 1, UnitPrice: price(100)})
	require.ErrorIs(t, err, ErrOwnerRequired)
}

func TestUpdateItemAdjustsReservationByDelta(t *testing.T) {
	svc, inv := newTestStack(t)
	seedStock(t, inv, "SKU-1", 10)
	ctx := context.Background()
	addItem(t, svc, customer("cust-1"), "SKU-1", 4)

	// Grow.
	c, err := svc.UpdateItem(ctx, customer("cust-1"), "SKU-1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Line("SKU-1").Quantity)
	assert.Equal(t, 3, available(t, inv, "SKU-1"))

	// Shrink.
	c, err = svc.UpdateItem(ctx, customer("cust-1"), "SKU-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Line("SKU-1").Quantity)
	assert.Equal(t, 8, available(t, inv, "SKU-1"))

	// To zero removes the line and frees everything.
	c, err = svc.UpdateItem(ctx, customer("cust-1"), "SKU-1", 0)
	require.NoError(t, err)
	assert.Nil(t, c.Line("SKU-1"))
	assert.Equal(t, 10, available(t, inv, "SKU-1"))
}

func TestUpdateItemBeyondStockKeepsCartUntouched(t *testing.T) {
	svc, inv := newTestStack(t)
	seedStock(t, inv, "SKU-1", 5)
	ctx := context.Background()
	addItem(t, svc, customer("cust-1"), "SKU-1", 3)

	_, err := svc.UpdateItem(ctx, customer("cust-1"), "SKU-1", 9)
	require.ErrorIs(t, err, dominventory.ErrInsufficientStock)

	c, err := svc.Get(ctx, customer("cust-1"))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Line("SKU-1").Quantity)
	assert.Equal(t, 2, available(t, inv, "SKU-1"))
}

func TestRemoveItemReleases(t *testing.T) {
	svc, inv := newTestStack(t)
	seedStock(t, inv, "SKU-1", 10)
	addItem(t, svc, customer("cust-1"), "SKU-1", 4)

	c, err := svc.RemoveItem(context.Background(), customer("cust-1"), "SKU-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 10, available(t, inv, "SKU-1"))
}

func TestClearReleasesEverything(t *testing.T) {
	svc, inv := newTestStack(t)
	seedStock(t, inv, "SKU-1", 10)
	seedStock(t, inv, "SKU-2", 5)
	addItem(t, svc, customer("cust-1"), "SKU-1", 4)
	addItem(t, svc, customer("cust-1"), "SKU-2", 2)

	require.NoError(t, svc.Clear(context.Background(), customer("cust-1")))
	assert.Equal(t, 10, available(t, inv, "SKU-1"))
	assert.Equal(t, 5, available(t, inv, "SKU-2"))
}

func TestMergeSumsQuantities(t *testing.T) {
	svc, inv := newTestStack(t)
	seedStock(t, inv, "SKU-1", 20)
	ctx := context.Background()

	addItem(t, svc, guest("tok-1"), "SKU-1", 3)
	addItem(t, svc, customer("cust-1"), "SKU-1", 2)

	result, err := svc.Merge(ctx, "tok-1", "cust-1")
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, MergeOutcome{SKU: "SKU-1", Requested: 3, Merged: 3}, result.Outcomes[0])
	assert.Equal(t, 5, result.Cart.Line("SKU-1").Quantity)
	assert.Equal(t, 15, available(t, inv, "SKU-1"))

	// The guest cart is gone.
	_, err = svc.Get(ctx, guest("tok-1"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// racingLedger wraps the real ledger but lets another cart steal units the
// moment the merge releases the guest's hold, reproducing the race the cap
// policy exists for.
type racingLedger struct {
	Ledger
	inv      *inventoryapp.Service
	stealSKU string
	stealQty int
	stolen   bool
}

func (r *racingLedger) Release(ctx context.Context, sku string, qty int, reference string) error {
	if err := r.Ledger.Release(ctx, sku, qty, reference); err != nil {
		return err
	}
	if !r.stolen && sku == r.stealSKU {
		r.stolen = true
		if err := r.inv.Reserve(ctx, sku, r.stealQty, "cart-racer"); err != nil {
			return err
		}
	}
	return nil
}

func TestMergeCapsLineToAvailableStock(t *testing.T) {
	invRepo := memory.NewInventoryRepository()
	inv := inventoryapp.NewService(invRepo, nil, nil, inventoryapp.Config{DefaultWarehouse: "HCM-01", LowStockThreshold: 2})
	ledger := &racingLedger{Ledger: inv, inv: inv, stealSKU: "SKU-1", stealQty: 3}
	svc := NewService(memory.NewCartRepository(), ledger, &seqIDs{}, nil, Config{GuestTTL: 7 * 24 * time.Hour})
	ctx := context.Background()

	seedStock(t, inv, "SKU-1", 10)
	seedStock(t, inv, "SKU-2", 10)

	addItem(t, svc, guest("tok-1"), "SKU-1", 4)
	addItem(t, svc, guest("tok-1"), "SKU-2", 2)
	addItem(t, svc, customer("cust-1"), "SKU-1", 5)

	result, err := svc.Merge(ctx, "tok-1", "cust-1")
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)

	// Guest released 4 into a pool of 1, the racer took 3; 2 come back.
	assert.Equal(t, MergeOutcome{SKU: "SKU-1", Requested: 4, Merged: 2, Capped: true}, result.Outcomes[0])
	assert.Equal(t, MergeOutcome{SKU: "SKU-2", Requested: 2, Merged: 2}, result.Outcomes[1])

	assert.Equal(t, 7, result.Cart.Line("SKU-1").Quantity)
	assert.Equal(t, 2, result.Cart.Line("SKU-2").Quantity)
	assert.Equal(t, 0, available(t, inv, "SKU-1"))
}

func TestValidateStockFlagsShrunkOnHand(t *testing.T) {
	svc, inv := newTestStack(t)
	seedStock(t, inv, "SKU-1", 10)
	ctx := context.Background()
	addItem(t, svc, customer("cust-1"), "SKU-1", 4)

	issues, err := svc.ValidateStock(ctx, customer("cust-1"))
	require.NoError(t, err)
	assert.Empty(t, issues)

	// A recount drops on-hand below the cart line.
	require.NoError(t, inv.AdjustStock(ctx, "SKU-1", 4, "recount"))
	require.NoError(t, inv.Commit(ctx, "SKU-1", 1, "ord-x"))

	issues, err = svc.ValidateStock(ctx, customer("cust-1"))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "exceeds_on_hand", issues[0].Problem)
}

func TestExpiredGuestCartIsSweptAndReleased(t *testing.T) {
	_, inv := newTestStack(t)
	seedStock(t, inv, "SKU-1", 10)
	ctx := context.Background()

	short := NewService(memory.NewCartRepository(), inv, &seqIDs{}, nil, Config{GuestTTL: time.Millisecond})
	_, err := short.AddItem(ctx, AddItemInput{Owner: guest("tok-1"), SKU: "SKU-1", Quantity: 4, UnitPrice: price(100)})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	swept, err := short.ExpireGuestCarts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Equal(t, 10, available(t, inv, "SKU-1"))

	_, err = short.Get(ctx, guest("tok-1"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}
