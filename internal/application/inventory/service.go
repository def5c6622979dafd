package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/shopvn-labs/commerce-core/internal/domain/inventory"
	domoutbox "github.com/shopvn-labs/commerce-core/internal/domain/outbox"
	"github.com/shopvn-labs/commerce-core/internal/observability"
	"github.com/shopvn-labs/commerce-core/internal/observability/logctx"
	"github.com/shopvn-labs/commerce-core/internal/pkg/keylock"
)

const (
	serviceName    = "inventory-service"
	publishTimeout = 300 * time.Millisecond
)

// Config carries warehouse defaults applied when stock rows are created.
type Config struct {
	DefaultWarehouse  string
	LowStockThreshold int
}

// Service is the stock ledger. All mutations on one SKU run under that SKU's
// lock, so reserve/release/commit are mutually exclusive per SKU while
// distinct SKUs proceed independently.
type Service struct {
	repo      domain.Repository
	publisher domoutbox.Publisher
	cfg       Config
	locks     *keylock.KeyLock

	log       observability.Logger
	mutations observability.Counter
}

func NewService(repo domain.Repository, publisher domoutbox.Publisher, tel observability.Observability, cfg Config) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		locks:     keylock.New(),
		log:       tel.Logger().With(observability.F("service", serviceName)),
		mutations: tel.Metrics().Counter(observability.MLedgerMutations),
	}
}

// CreateStock registers a SKU with an initial on-hand quantity.
func (s *Service) CreateStock(ctx context.Context, sku string, quantity int) (*domain.StockItem, error) {
	s.locks.Lock(sku)
	defer s.locks.Unlock(sku)

	if _, err := s.repo.Get(ctx, sku); err == nil {
		return nil, fmt.Errorf("inventory: sku %s already tracked", sku)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	item, err := domain.NewStockItem(sku, s.cfg.DefaultWarehouse, quantity, s.cfg.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, err
	}
	logctx.FromOr(ctx, s.log).Info("stock_created",
		observability.F("sku", sku),
		observability.F("quantity", quantity),
	)
	return item, nil
}

// Reserve holds qty units of a SKU for the given reference (cart or order ID).
func (s *Service) Reserve(ctx context.Context, sku string, qty int, reference string) error {
	return s.mutate(ctx, sku, "reserve", func(item *domain.StockItem) (*domain.Movement, error) {
		return item.Reserve(qty, reference)
	})
}

// Release returns qty reserved units of a SKU to the open pool.
func (s *Service) Release(ctx context.Context, sku string, qty int, reference string) error {
	return s.mutate(ctx, sku, "release", func(item *domain.StockItem) (*domain.Movement, error) {
		return item.Release(qty, reference)
	})
}

// Commit turns a reservation into a permanent on-hand deduction.
func (s *Service) Commit(ctx context.Context, sku string, qty int, reference string) error {
	return s.mutate(ctx, sku, "commit", func(item *domain.StockItem) (*domain.Movement, error) {
		return item.Commit(qty, reference)
	})
}

// AddStock receives purchased units into the warehouse.
func (s *Service) AddStock(ctx context.Context, sku string, qty int, reference string) error {
	return s.mutate(ctx, sku, "add", func(item *domain.StockItem) (*domain.Movement, error) {
		return item.AddStock(qty, reference)
	})
}

// AdjustStock forces on-hand quantity to an absolute value after a count.
func (s *Service) AdjustStock(ctx context.Context, sku string, newQuantity int, reference string) error {
	return s.mutate(ctx, sku, "adjust", func(item *domain.StockItem) (*domain.Movement, error) {
		return item.AdjustStock(newQuantity, reference)
	})
}

// ProcessReturn puts returned goods back on hand.
func (s *Service) ProcessReturn(ctx context.Context, sku string, qty int, reference string) error {
	return s.mutate(ctx, sku, "return", func(item *domain.StockItem) (*domain.Movement, error) {
		return item.ProcessReturn(qty, reference)
	})
}

// Available reports the quantity currently open for reservation.
func (s *Service) Available(ctx context.Context, sku string) (int, error) {
	item, err := s.repo.Get(ctx, sku)
	if err != nil {
		return 0, err
	}
	return item.Available(), nil
}

func (s *Service) Get(ctx context.Context, sku string) (*domain.StockItem, error) {
	return s.repo.Get(ctx, sku)
}

func (s *Service) Movements(ctx context.Context, sku string, limit int) ([]*domain.Movement, error) {
	return s.repo.Movements(ctx, sku, limit)
}

// CommitForOrder settles every reserved line of a shipped order. Replays are
// no-ops: a sale movement with the order reference means the line is done.
func (s *Service) CommitForOrder(ctx context.Context, orderID string, lines []LineQty) error {
	return s.settleForOrder(ctx, orderID, lines, settlement{
		record: domain.ReasonSale,
		skip:   []domain.MovementReason{domain.ReasonSale, domain.ReasonRelease},
		apply: func(item *domain.StockItem, qty int) (*domain.Movement, error) {
			return item.Commit(qty, orderID)
		},
		event: func(sku string, qty int) domoutbox.Event {
			return domain.NewStockCommittedEvent(orderID, sku, qty)
		},
	})
}

// ReleaseForOrder returns every reserved line of a cancelled order. Lines the
// order already committed stay committed; a late cancellation does not undo a
// shipment, returns do that through ProcessReturn.
func (s *Service) ReleaseForOrder(ctx context.Context, orderID string, lines []LineQty) error {
	return s.settleForOrder(ctx, orderID, lines, settlement{
		record: domain.ReasonRelease,
		skip:   []domain.MovementReason{domain.ReasonRelease, domain.ReasonSale},
		apply: func(item *domain.StockItem, qty int) (*domain.Movement, error) {
			return item.Release(qty, orderID)
		},
		event: func(sku string, qty int) domoutbox.Event {
			return domain.NewStockReleasedEvent(orderID, sku, qty)
		},
	})
}

// LineQty mirrors an order line for settlement without importing the order
// package.
type LineQty struct {
	SKU      string
	Quantity int
}

type settlement struct {
	record domain.MovementReason
	skip   []domain.MovementReason
	apply  func(item *domain.StockItem, qty int) (*domain.Movement, error)
	event  func(sku string, qty int) domoutbox.Event
}

func (s *Service) settleForOrder(ctx context.Context, orderID string, lines []LineQty, stl settlement) error {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("order_id", orderID))
	for _, line := range lines {
		settled, err := s.settleLine(ctx, orderID, line, stl)
		if err != nil {
			logger.Error("ledger_settlement_failed",
				observability.F("sku", line.SKU),
				observability.F("reason", string(stl.record)),
				observability.Err(err),
			)
			return fmt.Errorf("inventory: settle %s for order %s: %w", line.SKU, orderID, err)
		}
		if settled {
			s.publish(ctx, stl.event(line.SKU, line.Quantity))
		}
	}
	return nil
}

func (s *Service) settleLine(ctx context.Context, orderID string, line LineQty, stl settlement) (bool, error) {
	s.locks.Lock(line.SKU)
	defer s.locks.Unlock(line.SKU)

	for _, reason := range stl.skip {
		done, err := s.repo.HasMovement(ctx, line.SKU, reason, orderID)
		if err != nil {
			return false, err
		}
		if done {
			return false, nil
		}
	}

	item, err := s.repo.Get(ctx, line.SKU)
	if err != nil {
		return false, err
	}
	movement, err := stl.apply(item, line.Quantity)
	if err != nil {
		// guard() may have marked the row halted; persist that.
		if errors.Is(err, domain.ErrLedgerCorrupt) {
			_ = s.repo.Save(ctx, item)
		}
		return false, err
	}
	if err := s.repo.Save(ctx, item); err != nil {
		return false, err
	}
	if err := s.repo.AppendMovement(ctx, movement); err != nil {
		return false, err
	}
	s.count("settle_"+string(stl.record), "success")
	return true, nil
}

func (s *Service) mutate(ctx context.Context, sku, op string, fn func(item *domain.StockItem) (*domain.Movement, error)) error {
	s.locks.Lock(sku)
	defer s.locks.Unlock(sku)

	item, err := s.repo.Get(ctx, sku)
	if err != nil {
		s.count(op, "error")
		return err
	}

	wasLow := item.Status() != domain.StatusInStock
	movement, err := fn(item)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerCorrupt) {
			_ = s.repo.Save(ctx, item)
			logctx.FromOr(ctx, s.log).Error("ledger_corruption_detected",
				observability.F("sku", sku),
				observability.F("operation", op),
			)
		}
		s.count(op, "error")
		return err
	}

	if err := s.repo.Save(ctx, item); err != nil {
		s.count(op, "error")
		return fmt.Errorf("inventory: save %s: %w", sku, err)
	}
	if err := s.repo.AppendMovement(ctx, movement); err != nil {
		s.count(op, "error")
		return fmt.Errorf("inventory: record movement for %s: %w", sku, err)
	}
	s.count(op, "success")

	if !wasLow && item.Status() != domain.StatusInStock {
		s.publish(ctx, domain.NewLowStockEvent(item))
	}
	return nil
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, e); err != nil {
		logctx.FromOr(ctx, s.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.Err(err),
		)
	}
}

func (s *Service) count(op, outcome string) {
	if s.mutations == nil {
		return
	}
	s.mutations.Add(1,
		observability.L("operation", op),
		observability.L("outcome", outcome),
	)
}
