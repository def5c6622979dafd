package cart

import (
	"context"
	"time"
)

type Repository interface {
	Save(ctx context.Context, c *Cart) error
	FindByID(ctx context.Context, id string) (*Cart, error)
	FindByCustomer(ctx context.Context, customerID string) (*Cart, error)
	FindByGuestToken(ctx context.Context, token string) (*Cart, error)
	ListExpiredGuest(ctx context.Context, asOf time.Time) ([]*Cart, error)
	Delete(ctx context.Context, id string) error
}
