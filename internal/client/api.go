package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
)

// HTTPAPI talks to the server's CRUD surface. Failures come back in
// the {detail: string} shape and are surfaced as errors.
type HTTPAPI struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPAPI(baseURL string) *HTTPAPI {
	return &HTTPAPI{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *HTTPAPI) Snapshot(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	if err := a.do(ctx, http.MethodGet, "/api/inventory", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (a *HTTPAPI) Create(ctx context.Context, name string, quantity int) (*domain.Item, error) {
	body := map[string]any{"name": name, "quantity": quantity}
	var it domain.Item
	if err := a.do(ctx, http.MethodPost, "/api/inventory", body, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (a *HTTPAPI) UpdateQuantity(ctx context.Context, id int64, quantity int) (*domain.Item, error) {
	body := map[string]any{"quantity": quantity}
	var it domain.Item
	if err := a.do(ctx, http.MethodPut, fmt.Sprintf("/api/inventory/%d", id), body, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (a *HTTPAPI) Delete(ctx context.Context, id int64) error {
	return a.do(ctx, http.MethodDelete, fmt.Sprintf("/api/inventory/%d", id), nil, nil)
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var fail struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&fail); err != nil || fail.Detail == "" {
			return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %s", method, path, fail.Detail)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
