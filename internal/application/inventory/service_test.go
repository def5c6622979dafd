package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/shopvn-labs/commerce-core/internal/domain/inventory"
	domoutbox "github.com/shopvn-labs/commerce-core/internal/domain/outbox"
	"github.com/shopvn-labs/commerce-core/internal/infrastructure/memory"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (r *eventRecorder) Publish(_ context.Context, e domoutbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventName())
	}
	return out
}

func newTestService(t *testing.T) (*Service, *memory.InventoryRepository, *eventRecorder) {
	t.Helper()
	repo := memory.NewInventoryRepository()
	rec := &eventRecorder{}
	svc := NewService(repo, rec, nil, Config{DefaultWarehouse: "HCM-01", LowStockThreshold: 5})
	return svc, repo, rec
}

func seed(t *testing.T, svc *Service, sku string, qty int) {
	t.Helper()
	_, err := svc.CreateStock(context.Background(), sku, qty)
	require.NoError(t, err)
}

func TestCreateStockRejectsDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc, "SKU-1", 10)
	_, err := svc.CreateStock(context.Background(), "SKU-1", 5)
	require.Error(t, err)
}

func TestReserveRecordsMovement(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seed(t, svc, "SKU-1", 10)
	ctx := context.Background()

	require.NoError(t, svc.Reserve(ctx, "SKU-1", 4, "cart-1"))

	available, err := svc.Available(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 6, available)

	has, err := repo.HasMovement(ctx, "SKU-1", domain.ReasonReservation, "cart-1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestReserveInsufficient(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc, "SKU-1", 3)
	err := svc.Reserve(context.Background(), "SKU-1", 4, "cart-1")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestConcurrentReservesHoldInvariant(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc, "SKU-1", 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Reserve(ctx, "SKU-1", 2, "cart-x"); err == nil {
				mu.Lock()
				granted += 2
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	item, err := svc.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, granted, item.Reserved)
	assert.LessOrEqual(t, item.Reserved, item.Quantity)
	assert.False(t, item.Halted)
}

func TestCommitForOrderIsIdempotent(t *testing.T) {
	svc, _, rec := newTestService(t)
	seed(t, svc, "SKU-1", 10)
	ctx := context.Background()
	require.NoError(t, svc.Reserve(ctx, "SKU-1", 4, "cart-1"))

	lines := []LineQty{{SKU: "SKU-1", Quantity: 4}}
	require.NoError(t, svc.CommitForOrder(ctx, "ord-1", lines))
	require.NoError(t, svc.CommitForOrder(ctx, "ord-1", lines))

	item, err := svc.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity, "replay must not double-deduct")
	assert.Zero(t, item.Reserved)
	assert.Equal(t, []string{"inventory.committed"}, rec.names())
}

func TestReleaseForOrderIsIdempotent(t *testing.T) {
	svc, _, rec := newTestService(t)
	seed(t, svc, "SKU-1", 10)
	ctx := context.Background()
	require.NoError(t, svc.Reserve(ctx, "SKU-1", 4, "cart-1"))

	lines := []LineQty{{SKU: "SKU-1", Quantity: 4}}
	require.NoError(t, svc.ReleaseForOrder(ctx, "ord-1", lines))
	require.NoError(t, svc.ReleaseForOrder(ctx, "ord-1", lines))

	item, err := svc.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 10, item.Quantity)
	assert.Zero(t, item.Reserved)
	assert.Equal(t, []string{"inventory.released"}, rec.names())
}

func TestLateCancellationDoesNotUndoShipment(t *testing.T) {
	svc, _, rec := newTestService(t)
	seed(t, svc, "SKU-1", 10)
	ctx := context.Background()
	require.NoError(t, svc.Reserve(ctx, "SKU-1", 4, "cart-1"))

	lines := []LineQty{{SKU: "SKU-1", Quantity: 4}}
	require.NoError(t, svc.CommitForOrder(ctx, "ord-1", lines))
	require.NoError(t, svc.ReleaseForOrder(ctx, "ord-1", lines))

	item, err := svc.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity, "committed stock stays committed")
	assert.Equal(t, []string{"inventory.committed"}, rec.names())
}

func TestLowStockEventFiresOnceOnCrossing(t *testing.T) {
	svc, _, rec := newTestService(t)
	seed(t, svc, "SKU-1", 20)
	ctx := context.Background()

	require.NoError(t, svc.Reserve(ctx, "SKU-1", 14, "cart-1"))
	require.NoError(t, svc.Reserve(ctx, "SKU-1", 2, "cart-2"))
	require.NoError(t, svc.Reserve(ctx, "SKU-1", 2, "cart-3"))

	names := rec.names()
	count := 0
	for _, n := range names {
		if n == "inventory.low_stock" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCorruptedRowIsHaltedAndPersisted(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seed(t, svc, "SKU-1", 10)
	ctx := context.Background()

	item, err := repo.Get(ctx, "SKU-1")
	require.NoError(t, err)
	item.Reserved = 99
	require.NoError(t, repo.Save(ctx, item))

	err = svc.Reserve(ctx, "SKU-1", 1, "cart-1")
	require.ErrorIs(t, err, domain.ErrLedgerCorrupt)

	stored, err := repo.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.True(t, stored.Halted, "halt must survive the failed mutation")

	// Recovery through adjustment.
	require.NoError(t, svc.AdjustStock(ctx, "SKU-1", 99, "recount"))
	stored, err = repo.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.False(t, stored.Halted)
}
