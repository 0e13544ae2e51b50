package client

import (
	"context"
	"sync"

	"github.com/Sown0205/Anubis/internal/core/model"
)

// HistoryView is the fetch-once view over recorded scans: the list and
// each detail are fetched on first access and served from cache until
// Refresh or a mutation invalidates them. The history page is static
// between user actions, so it does not poll.
type HistoryView struct {
	client *Client

	mu      sync.Mutex
	loaded  bool
	items   []model.HistoryItem
	details map[string]*model.HistoryDetail
}

// NewHistoryView creates an empty view over the given client.
func NewHistoryView(c *Client) *HistoryView {
	return &HistoryView{client: c, details: make(map[string]*model.HistoryDetail)}
}

// Items returns the scan list, fetching it on the first call.
func (v *HistoryView) Items(ctx context.Context) ([]model.HistoryItem, error) {
	v.mu.Lock()
	if v.loaded {
		items := append([]model.HistoryItem(nil), v.items...)
		v.mu.Unlock()
		return items, nil
	}
	v.mu.Unlock()

	items, err := v.client.History(ctx)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.loaded = true
	v.items = items
	v.mu.Unlock()
	return append([]model.HistoryItem(nil), items...), nil
}

// Detail returns the full record of one scan, fetched at most once.
func (v *HistoryView) Detail(ctx context.Context, id string) (*model.HistoryDetail, error) {
	v.mu.Lock()
	if det, ok := v.details[id]; ok {
		v.mu.Unlock()
		return det, nil
	}
	v.mu.Unlock()

	det, err := v.client.HistoryDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.details[id] = det
	v.mu.Unlock()
	return det, nil
}

// Refresh drops every cached value; the next access fetches again.
func (v *HistoryView) Refresh() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loaded = false
	v.items = nil
	v.details = make(map[string]*model.HistoryDetail)
}

// Delete removes one recorded scan and invalidates the cache.
func (v *HistoryView) Delete(ctx context.Context, id string) error {
	if err := v.client.DeleteHistory(ctx, id); err != nil {
		return err
	}
	v.Refresh()
	return nil
}

// Export downloads the JSON export for one scan, or the whole history
// when id is empty. Exports always hit the server.
func (v *HistoryView) Export(ctx context.Context, id string) ([]byte, string, error) {
	return v.client.Export(ctx, id)
}
