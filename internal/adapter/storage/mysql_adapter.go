package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
	"github.com/Selvababu93/realtime-inventory/internal/port"
)

// MySQLAdapter is the item store. Every committed mutation publishes
// exactly one ChangeEvent to the bus after the commit, so any write
// path through this adapter is captured, not only the HTTP surface.
// A failed publish never fails the mutation: the commit stands, and
// the missed notification is repaired by the next client resync.
type MySQLAdapter struct {
	db  *sql.DB
	bus port.EventBus
}

func NewMySQLAdapter(db *sql.DB, bus port.EventBus) *MySQLAdapter {
	return &MySQLAdapter{db: db, bus: bus}
}

func (m *MySQLAdapter) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, quantity, updated_at
		FROM inventory ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Quantity, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}

	return items, nil
}

func (m *MySQLAdapter) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	var it domain.Item
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, quantity, updated_at
		FROM inventory WHERE id = ?`, id,
	).Scan(&it.ID, &it.Name, &it.Quantity, &it.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}

	return &it, nil
}

func (m *MySQLAdapter) CreateItem(ctx context.Context, name string, quantity int) (*domain.Item, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO inventory (name, quantity, updated_at)
		VALUES (?, ?, NOW())`,
		name, quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	it, err := scanItemTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	m.capture(ctx, domain.OpInsert, *it)
	return it, nil
}

func (m *MySQLAdapter) UpdateQuantity(ctx context.Context, id int64, quantity int) (*domain.Item, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE inventory SET quantity = ?, updated_at = NOW()
		WHERE id = ?`,
		quantity, id,
	); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	it, err := scanItemTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	m.capture(ctx, domain.OpUpdate, *it)
	return it, nil
}

func (m *MySQLAdapter) DeleteItem(ctx context.Context, id int64) (*domain.Item, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// The event payload is the row as it existed just before removal.
	it, err := scanItemTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	m.capture(ctx, domain.OpDelete, *it)
	return it, nil
}

// capture hands a committed mutation to the bus. Called only after a
// successful commit; failures are logged, never propagated.
func (m *MySQLAdapter) capture(ctx context.Context, op domain.Op, it domain.Item) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, domain.ChangeEvent{Op: op, Data: it}); err != nil {
		log.Printf("[storage] publish %s for item %d failed: %v", op, it.ID, err)
	}
}

func scanItemTx(ctx context.Context, tx *sql.Tx, id int64) (*domain.Item, error) {
	var it domain.Item
	err := tx.QueryRowContext(ctx, `
		SELECT id, name, quantity, updated_at
		FROM inventory WHERE id = ?`, id,
	).Scan(&it.ID, &it.Name, &it.Quantity, &it.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}

	return &it, nil
}
