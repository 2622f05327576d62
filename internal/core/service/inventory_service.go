package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
	"github.com/Selvababu93/realtime-inventory/internal/port"
)

var (
	ErrNotFound        = errors.New("item not found")
	ErrInvalidName     = errors.New("name must not be empty")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
)

// InventoryService validates requests and drives the item store. No
// event emission happens here: the store fires change capture itself
// after each commit, so a rejected request emits nothing.
type InventoryService struct {
	repo port.ItemRepository
}

func NewInventoryService(repo port.ItemRepository) *InventoryService {
	return &InventoryService{repo: repo}
}

func (s *InventoryService) List(ctx context.Context) ([]domain.Item, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *InventoryService) Create(ctx context.Context, name string, quantity int) (*domain.Item, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	it, err := s.repo.CreateItem(ctx, name, quantity)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return it, nil
}

func (s *InventoryService) UpdateQuantity(ctx context.Context, id int64, quantity int) (*domain.Item, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	it, err := s.repo.UpdateQuantity(ctx, id, quantity)
	if err != nil {
		return nil, fmt.Errorf("update item %d: %w", id, err)
	}
	if it == nil {
		return nil, ErrNotFound
	}
	return it, nil
}

func (s *InventoryService) Delete(ctx context.Context, id int64) (*domain.Item, error) {
	it, err := s.repo.DeleteItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete item %d: %w", id, err)
	}
	if it == nil {
		return nil, ErrNotFound
	}
	return it, nil
}
