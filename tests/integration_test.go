package tests

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/Selvababu93/realtime-inventory/internal/adapter/bus"
	"github.com/Selvababu93/realtime-inventory/internal/adapter/handler"
	"github.com/Selvababu93/realtime-inventory/internal/adapter/storage"
	"github.com/Selvababu93/realtime-inventory/internal/client"
	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
	"github.com/Selvababu93/realtime-inventory/internal/core/service"
)

// testEnv wires the whole pipeline the way cmd/server does, with the
// in-memory bus and a real MySQL, behind an httptest server.
type testEnv struct {
	server *httptest.Server
	api    *client.HTTPAPI
	cancel context.CancelFunc
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS inventory (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			quantity INT NOT NULL,
			updated_at DATETIME NOT NULL
		)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM inventory`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	eventBus := bus.NewMemoryBus()
	store := storage.NewMySQLAdapter(db, eventBus)
	inventory := service.NewInventoryService(store)
	gw := handler.NewGateway(eventBus)
	h := handler.NewHTTPHandler(inventory)

	server := httptest.NewServer(h.Routes(gw))

	runCtx, cancel := context.WithCancel(context.Background())
	go gw.Run(runCtx)
	time.Sleep(20 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		server.Close()
		db.Close()
	})

	return &testEnv{
		server: server,
		api:    client.NewHTTPAPI(server.URL),
		cancel: cancel,
	}
}

type viewRecorder struct {
	mu      sync.Mutex
	items   []domain.Item
	renders chan struct{}
}

func newViewRecorder() *viewRecorder {
	return &viewRecorder{renders: make(chan struct{}, 64)}
}

func (r *viewRecorder) render(items []domain.Item, pending map[int64]bool) {
	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
	select {
	case r.renders <- struct{}{}:
	default:
	}
}

func (r *viewRecorder) wait(t *testing.T, want func([]domain.Item) bool) []domain.Item {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		r.mu.Lock()
		items := r.items
		r.mu.Unlock()
		if want(items) {
			return items
		}
		select {
		case <-r.renders:
		case <-deadline:
			t.Fatalf("timed out waiting for view, have %+v", items)
		}
	}
}

func (e *testEnv) startSession(t *testing.T) *viewRecorder {
	t.Helper()

	rec := newViewRecorder()
	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	session := client.NewSession(e.api, &client.WSTransport{URL: wsURL}, client.Options{
		ReconnectDelay: 50 * time.Millisecond,
		Render:         rec.render,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go session.Run(ctx)
	return rec
}

func quantityOf(items []domain.Item, id int64) (int, bool) {
	for _, it := range items {
		if it.ID == id {
			return it.Quantity, true
		}
	}
	return 0, false
}

func TestPipeline_MutationReachesAllSessions(t *testing.T) {
	env := setupTestEnv(t)

	a := env.startSession(t)
	b := env.startSession(t)
	a.wait(t, func(items []domain.Item) bool { return items != nil })
	b.wait(t, func(items []domain.Item) bool { return items != nil })

	ctx := context.Background()
	created, err := env.api.Create(ctx, "Bolt", 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, rec := range []*viewRecorder{a, b} {
		rec.wait(t, func(items []domain.Item) bool {
			q, ok := quantityOf(items, created.ID)
			return ok && q == 10
		})
	}

	if _, err := env.api.UpdateQuantity(ctx, created.ID, 3); err != nil {
		t.Fatalf("update: %v", err)
	}
	for _, rec := range []*viewRecorder{a, b} {
		rec.wait(t, func(items []domain.Item) bool {
			q, ok := quantityOf(items, created.ID)
			return ok && q == 3
		})
	}

	if err := env.api.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, rec := range []*viewRecorder{a, b} {
		rec.wait(t, func(items []domain.Item) bool {
			_, ok := quantityOf(items, created.ID)
			return !ok
		})
	}
}

func TestPipeline_RejectedMutationEmitsNothing(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.startSession(t)
	rec.wait(t, func(items []domain.Item) bool { return items != nil })

	ctx := context.Background()
	if _, err := env.api.Create(ctx, "", 1); err == nil {
		t.Fatal("expected validation failure")
	}
	if _, err := env.api.Create(ctx, "Bolt", -1); err == nil {
		t.Fatal("expected validation failure")
	}

	// A valid create afterwards must be the first event the session
	// sees.
	created, err := env.api.Create(ctx, "Bolt", 5)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	items := rec.wait(t, func(items []domain.Item) bool { return len(items) > 0 })
	if len(items) != 1 || items[0].ID != created.ID {
		t.Errorf("expected only the committed item, got %+v", items)
	}
}

func TestPipeline_SessionStateMatchesStore(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.startSession(t)
	rec.wait(t, func(items []domain.Item) bool { return items != nil })

	ctx := context.Background()
	names := []string{"Bolt", "Nut", "Washer"}
	var last *domain.Item
	for _, name := range names {
		it, err := env.api.Create(ctx, name, 1)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		last = it
	}
	if _, err := env.api.UpdateQuantity(ctx, last.ID, 9); err != nil {
		t.Fatalf("update: %v", err)
	}

	items := rec.wait(t, func(items []domain.Item) bool {
		q, ok := quantityOf(items, last.ID)
		return len(items) == 3 && ok && q == 9
	})

	snapshot, err := env.api.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot) != len(items) {
		t.Fatalf("view has %d items, store has %d", len(items), len(snapshot))
	}
	for i := range snapshot {
		if snapshot[i].ID != items[i].ID || snapshot[i].Quantity != items[i].Quantity {
			t.Errorf("view diverges from store at %d: %+v vs %+v", i, items[i], snapshot[i])
		}
	}
}
