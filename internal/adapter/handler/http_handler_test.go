package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Selvababu93/realtime-inventory/internal/adapter/bus"
	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
	"github.com/Selvababu93/realtime-inventory/internal/core/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Mock ItemRepository
type mockRepo struct {
	items  map[int64]domain.Item
	nextID int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[int64]domain.Item)}
}

func (m *mockRepo) ListItems(ctx context.Context) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(m.items))
	for _, it := range m.items {
		items = append(items, it)
	}
	return items, nil
}

func (m *mockRepo) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	if it, ok := m.items[id]; ok {
		return &it, nil
	}
	return nil, nil
}

func (m *mockRepo) CreateItem(ctx context.Context, name string, quantity int) (*domain.Item, error) {
	m.nextID++
	it := domain.Item{ID: m.nextID, Name: name, Quantity: quantity, UpdatedAt: time.Now()}
	m.items[it.ID] = it
	return &it, nil
}

func (m *mockRepo) UpdateQuantity(ctx context.Context, id int64, quantity int) (*domain.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	it.Quantity = quantity
	m.items[id] = it
	return &it, nil
}

func (m *mockRepo) DeleteItem(ctx context.Context, id int64) (*domain.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	delete(m.items, id)
	return &it, nil
}

func newTestRouter(repo *mockRepo) http.Handler {
	h := NewHTTPHandler(service.NewInventoryService(repo))
	return h.Routes(NewGateway(bus.NewMemoryBus()))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndList(t *testing.T) {
	router := newTestRouter(newMockRepo())

	w := doJSON(t, router, http.MethodPost, "/api/inventory", map[string]any{"name": "Bolt", "quantity": 10})
	if w.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var created domain.Item
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created item: %v", err)
	}
	if created.ID == 0 || created.Name != "Bolt" || created.Quantity != 10 {
		t.Errorf("unexpected created item: %+v", created)
	}

	w = doJSON(t, router, http.MethodGet, "/api/inventory", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var items []domain.Item
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
}

func TestCreate_ValidationError(t *testing.T) {
	router := newTestRouter(newMockRepo())

	w := doJSON(t, router, http.MethodPost, "/api/inventory", map[string]any{"name": "", "quantity": 1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var fail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fail); err != nil || fail.Detail == "" {
		t.Errorf("expected a {detail} body, got %s", w.Body.String())
	}
}

func TestUpdate(t *testing.T) {
	repo := newMockRepo()
	router := newTestRouter(repo)
	doJSON(t, router, http.MethodPost, "/api/inventory", map[string]any{"name": "Bolt", "quantity": 10})

	w := doJSON(t, router, http.MethodPut, "/api/inventory/1", map[string]any{"quantity": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var it domain.Item
	json.Unmarshal(w.Body.Bytes(), &it)
	if it.Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", it.Quantity)
	}

	w = doJSON(t, router, http.MethodPut, "/api/inventory/99", map[string]any{"quantity": 3})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing item, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPut, "/api/inventory/1", map[string]any{"quantity": -5})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative quantity, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPut, "/api/inventory/abc", map[string]any{"quantity": 1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestDelete(t *testing.T) {
	repo := newMockRepo()
	router := newTestRouter(repo)
	doJSON(t, router, http.MethodPost, "/api/inventory", map[string]any{"name": "Bolt", "quantity": 10})

	w := doJSON(t, router, http.MethodDelete, "/api/inventory/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["message"] == "" {
		t.Errorf("expected a message body, got %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, "/api/inventory/1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(newMockRepo())
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if want := fmt.Sprintf("%q:%q", "status", "ok"); !bytes.Contains(w.Body.Bytes(), []byte(want)) {
		t.Errorf("unexpected health body: %s", w.Body.String())
	}
}
