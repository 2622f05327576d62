package port

import (
	"context"

	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
)

type ItemRepository interface {
	// ListItems returns every item, ordered by id.
	ListItems(ctx context.Context) ([]domain.Item, error)

	// GetItem retrieves an item by id; nil when no row exists.
	GetItem(ctx context.Context, id int64) (*domain.Item, error)

	// CreateItem inserts a new item and returns the stored row with
	// its assigned id and timestamp.
	CreateItem(ctx context.Context, name string, quantity int) (*domain.Item, error)

	// UpdateQuantity sets the quantity of an existing item and returns
	// the stored row.
	UpdateQuantity(ctx context.Context, id int64, quantity int) (*domain.Item, error)

	// DeleteItem removes an item and returns the row as it existed
	// before removal.
	DeleteItem(ctx context.Context, id int64) (*domain.Item, error)
}
