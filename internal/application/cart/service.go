package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/shopvn-labs/commerce-core/internal/domain/cart"
	dominventory "github.com/shopvn-labs/commerce-core/internal/domain/inventory"
	"github.com/shopvn-labs/commerce-core/internal/observability"
	"github.com/shopvn-labs/commerce-core/internal/observability/logctx"
)

var ErrOwnerRequired = errors.New("cart: owner required")

// Owner identifies who a cart belongs to. Exactly one field is set: a
// customer ID for authenticated sessions, a guest token otherwise.
type Owner struct {
	CustomerID string
	GuestToken string
}

func (o Owner) validate() error {
	if o.CustomerID == "" && o.GuestToken == "" {
		return ErrOwnerRequired
	}
	return nil
}

// Config carries cart policy knobs.
type Config struct {
	GuestTTL time.Duration
}

// Service owns cart mutations. Every line change keeps the ledger in step:
// items are reserved before they land in a cart and released the moment they
// leave it.
type Service struct {
	repo   domain.Repository
	ledger Ledger
	ids    IDGenerator
	cfg    Config

	log observability.Logger
}

func NewService(repo domain.Repository, ledger Ledger, ids IDGenerator, tel observability.Observability, cfg Config) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		repo:   repo,
		ledger: ledger,
		ids:    ids,
		cfg:    cfg,
		log:    tel.Logger().With(observability.F("service", "cart-service")),
	}
}

// AddItemInput describes one add-to-cart request. UnitPrice is the price the
// storefront displayed; the cart snapshots it so checkout charges what the
// customer saw.
type AddItemInput struct {
	Owner     Owner
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
}

// AddItem reserves stock first and only then touches the cart, so a failed
// reservation leaves the cart untouched and a failed cart write releases the
// hold again.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (*domain.Cart, error) {
	if err := in.Owner.validate(); err != nil {
		return nil, err
	}
	c, err := s.getOrCreate(ctx, in.Owner)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Reserve(ctx, in.SKU, in.Quantity, c.ID); err != nil {
		return nil, err
	}
	if err := c.AddLine(in.SKU, in.Quantity, in.UnitPrice); err != nil {
		s.compensate(ctx, in.SKU, in.Quantity, c.ID)
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		s.compensate(ctx, in.SKU, in.Quantity, c.ID)
		return nil, err
	}
	return c, nil
}

// UpdateItem sets a line to an absolute quantity, reserving the increase or
// releasing the surplus. Quantity zero removes the line.
func (s *Service) UpdateItem(ctx context.Context, owner Owner, sku string, quantity int) (*domain.Cart, error) {
	c, err := s.resolve(ctx, owner)
	if err != nil {
		return nil, err
	}
	line := c.Line(sku)
	if line == nil {
		return nil, domain.ErrLineNotFound
	}
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	delta := quantity - line.Quantity
	if delta > 0 {
		if err := s.ledger.Reserve(ctx, sku, delta, c.ID); err != nil {
			return nil, err
		}
	} else if delta < 0 {
		if err := s.ledger.Release(ctx, sku, -delta, c.ID); err != nil {
			return nil, err
		}
	}

	if _, err := c.SetLineQuantity(sku, quantity); err != nil {
		if delta > 0 {
			s.compensate(ctx, sku, delta, c.ID)
		}
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem drops a line and returns its reservation to the pool.
func (s *Service) RemoveItem(ctx context.Context, owner Owner, sku string) (*domain.Cart, error) {
	c, err := s.resolve(ctx, owner)
	if err != nil {
		return nil, err
	}
	qty, err := c.RemoveLine(sku)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Release(ctx, sku, qty, c.ID); err != nil {
		logctx.FromOr(ctx, s.log).Warn("cart_release_failed",
			observability.F("cart_id", c.ID),
			observability.F("sku", sku),
			observability.Err(err),
		)
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Clear empties the cart and releases every held reservation.
func (s *Service) Clear(ctx context.Context, owner Owner) error {
	c, err := s.resolve(ctx, owner)
	if err != nil {
		return err
	}
	s.releaseAll(ctx, c)
	return s.repo.Save(ctx, c)
}

// Get returns the owner's cart.
func (s *Service) Get(ctx context.Context, owner Owner) (*domain.Cart, error) {
	return s.resolve(ctx, owner)
}

// GetByCustomer returns the authenticated customer's cart.
func (s *Service) GetByCustomer(ctx context.Context, customerID string) (*domain.Cart, error) {
	return s.resolve(ctx, Owner{CustomerID: customerID})
}

// ClearAfterCheckout empties a cart without touching the ledger. Checkout
// hands the cart's reservations over to the order it created, so releasing
// them here would double-free the stock.
func (s *Service) ClearAfterCheckout(ctx context.Context, cartID string) error {
	c, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return err
	}
	c.Drain()
	return s.repo.Save(ctx, c)
}

// MergeOutcome reports what happened to a single guest line during a merge.
type MergeOutcome struct {
	SKU       string `json:"sku"`
	Requested int    `json:"requested"`
	Merged    int    `json:"merged"`
	Capped    bool   `json:"capped"`
}

// MergeResult is the per-line account of a guest-to-customer cart merge.
type MergeResult struct {
	Cart     *domain.Cart
	Outcomes []MergeOutcome
}

// Merge folds a guest cart into the authenticated customer's cart. Quantities
// for the same SKU are summed. Each guest line's hold is released first and
// re-reserved under the customer's cart; a line the ledger can no longer fully
// cover is capped to what is open rather than failing the whole merge.
func (s *Service) Merge(ctx context.Context, guestToken, customerID string) (*MergeResult, error) {
	if guestToken == "" || customerID == "" {
		return nil, ErrOwnerRequired
	}
	guest, err := s.repo.FindByGuestToken(ctx, guestToken)
	if err != nil {
		return nil, err
	}
	target, err := s.getOrCreate(ctx, Owner{CustomerID: customerID})
	if err != nil {
		return nil, err
	}

	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("guest_cart_id", guest.ID),
		observability.F("cart_id", target.ID),
	)

	result := &MergeResult{Cart: target}
	for _, line := range guest.Drain() {
		outcome := MergeOutcome{SKU: line.SKU, Requested: line.Quantity}

		if err := s.ledger.Release(ctx, line.SKU, line.Quantity, guest.ID); err != nil {
			logger.Warn("merge_release_failed",
				observability.F("sku", line.SKU),
				observability.Err(err),
			)
		}

		granted := line.Quantity
		if err := s.ledger.Reserve(ctx, line.SKU, granted, target.ID); err != nil {
			if !errors.Is(err, dominventory.ErrInsufficientStock) {
				logger.Warn("merge_reserve_failed",
					observability.F("sku", line.SKU),
					observability.Err(err),
				)
				result.Outcomes = append(result.Outcomes, outcome)
				continue
			}
			granted = s.reserveUpTo(ctx, line.SKU, line.Quantity, target.ID)
			outcome.Capped = true
		}
		outcome.Merged = granted
		result.Outcomes = append(result.Outcomes, outcome)

		if granted == 0 {
			continue
		}
		if existing := target.Line(line.SKU); existing != nil {
			if _, err := target.SetLineQuantity(line.SKU, existing.Quantity+granted); err != nil {
				return nil, err
			}
		} else if err := target.AddLine(line.SKU, granted, line.UnitPrice); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Delete(ctx, guest.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, target); err != nil {
		return nil, err
	}
	logger.Info("cart_merged", observability.F("lines", len(result.Outcomes)))
	return result, nil
}

// StockIssue flags a cart line the ledger can no longer back in full.
type StockIssue struct {
	SKU       string `json:"sku"`
	Requested int    `json:"requested"`
	OnHand    int    `json:"on_hand"`
	Problem   string `json:"problem"`
}

// ValidateStock re-checks every line against the ledger. An empty slice means
// the cart is good to check out.
func (s *Service) ValidateStock(ctx context.Context, owner Owner) ([]StockIssue, error) {
	c, err := s.resolve(ctx, owner)
	if err != nil {
		return nil, err
	}
	var issues []StockIssue
	for _, line := range c.Lines {
		item, err := s.ledger.Get(ctx, line.SKU)
		if err != nil {
			if errors.Is(err, dominventory.ErrNotFound) {
				issues = append(issues, StockIssue{SKU: line.SKU, Requested: line.Quantity, Problem: "sku_not_found"})
				continue
			}
			return nil, err
		}
		switch {
		case item.Halted:
			issues = append(issues, StockIssue{SKU: line.SKU, Requested: line.Quantity, OnHand: item.Quantity, Problem: "ledger_halted"})
		case item.Quantity < line.Quantity:
			issues = append(issues, StockIssue{SKU: line.SKU, Requested: line.Quantity, OnHand: item.Quantity, Problem: "exceeds_on_hand"})
		}
	}
	return issues, nil
}

// ExpireGuestCarts releases the reservations of expired guest carts and
// deletes them. Suited for a periodic sweep.
func (s *Service) ExpireGuestCarts(ctx context.Context) (int, error) {
	carts, err := s.repo.ListExpiredGuest(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, c := range carts {
		s.releaseAll(ctx, c)
		if err := s.repo.Delete(ctx, c.ID); err != nil {
			logctx.FromOr(ctx, s.log).Warn("cart_expiry_failed",
				observability.F("cart_id", c.ID),
				observability.Err(err),
			)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *Service) resolve(ctx context.Context, owner Owner) (*domain.Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	var (
		c   *domain.Cart
		err error
	)
	if owner.CustomerID != "" {
		c, err = s.repo.FindByCustomer(ctx, owner.CustomerID)
	} else {
		c, err = s.repo.FindByGuestToken(ctx, owner.GuestToken)
	}
	if err != nil {
		return nil, err
	}
	if c.IsExpired() {
		s.releaseAll(ctx, c)
		if err := s.repo.Delete(ctx, c.ID); err != nil {
			return nil, err
		}
		return nil, domain.ErrExpired
	}
	return c, nil
}

func (s *Service) getOrCreate(ctx context.Context, owner Owner) (*domain.Cart, error) {
	c, err := s.resolve(ctx, owner)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrExpired) {
		return nil, err
	}
	ttl := time.Duration(0)
	if owner.CustomerID == "" {
		ttl = s.cfg.GuestTTL
	}
	c, err = domain.New(s.ids.NewID(), owner.CustomerID, owner.GuestToken, ttl)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// reserveUpTo grabs as much of want as the ledger has open, retrying downward
// because another cart may race us between the read and the reserve.
func (s *Service) reserveUpTo(ctx context.Context, sku string, want int, reference string) int {
	for {
		item, err := s.ledger.Get(ctx, sku)
		if err != nil {
			return 0
		}
		open := item.Available()
		if open <= 0 {
			return 0
		}
		if open > want {
			open = want
		}
		err = s.ledger.Reserve(ctx, sku, open, reference)
		if err == nil {
			return open
		}
		if !errors.Is(err, dominventory.ErrInsufficientStock) {
			return 0
		}
	}
}

func (s *Service) releaseAll(ctx context.Context, c *domain.Cart) {
	for _, line := range c.Drain() {
		s.compensate(ctx, line.SKU, line.Quantity, c.ID)
	}
}

func (s *Service) compensate(ctx context.Context, sku string, qty int, cartID string) {
	if err := s.ledger.Release(ctx, sku, qty, cartID); err != nil {
		logctx.FromOr(ctx, s.log).Warn("cart_release_failed",
			observability.F("cart_id", cartID),
			observability.F("sku", sku),
			observability.Err(fmt.Errorf("release %d of %s: %w", qty, sku, err)),
		)
	}
}
