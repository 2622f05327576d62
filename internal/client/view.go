package client

import (
	"sort"

	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
)

// View is a session's local copy of the inventory plus its in-flight
// optimistic edits. It is a best-effort cache: any arriving
// ChangeEvent overwrites whatever is held locally, speculative or
// not. View is not safe for concurrent use; the session loop owns it.
type View struct {
	items   map[int64]domain.Item
	pending map[int64]pendingEdit
	nextTok uint64
}

// pendingEdit marks one outstanding mutation for an item. Before holds
// the quantity to restore if the request fails; the token ties a
// revert to the edit that created it, so a stale failure result can
// never undo a later edit.
type pendingEdit struct {
	before int
	token  uint64
}

func NewView() *View {
	return &View{
		items:   make(map[int64]domain.Item),
		pending: make(map[int64]pendingEdit),
	}
}

// ReplaceAll swaps in a fresh snapshot. Outstanding pending markers
// survive: their requests are still in flight and resolve through the
// usual event or failure paths.
func (v *View) ReplaceAll(items []domain.Item) {
	v.items = make(map[int64]domain.Item, len(items))
	for _, it := range items {
		v.items[it.ID] = it
	}
}

// Apply reconciles one authoritative event. Created and Updated
// upsert by id, Deleted removes. The event always wins over any
// speculative local value, and the pending marker for that id is
// cleared. Applying the same event twice is harmless.
func (v *View) Apply(ev domain.ChangeEvent) {
	switch ev.Op {
	case domain.OpDelete:
		delete(v.items, ev.Data.ID)
	default:
		v.items[ev.Data.ID] = ev.Data
	}
	delete(v.pending, ev.Data.ID)
}

// BeginEdit records a speculative quantity change. It refuses when the
// item is unknown or an edit for it is already outstanding; at most
// one edit per id may be in flight.
func (v *View) BeginEdit(id int64, quantity int) (uint64, bool) {
	it, ok := v.items[id]
	if !ok {
		return 0, false
	}
	if _, outstanding := v.pending[id]; outstanding {
		return 0, false
	}

	v.nextTok++
	v.pending[id] = pendingEdit{before: it.Quantity, token: v.nextTok}
	it.Quantity = quantity
	v.items[id] = it
	return v.nextTok, true
}

// RevertEdit undoes a failed speculative write. It is a no-op unless
// the pending marker still belongs to the given token — an event that
// arrived in the meantime has already settled the item.
func (v *View) RevertEdit(id int64, token uint64) bool {
	p, ok := v.pending[id]
	if !ok || p.token != token {
		return false
	}
	delete(v.pending, id)

	it, ok := v.items[id]
	if !ok {
		return true
	}
	it.Quantity = p.before
	v.items[id] = it
	return true
}

func (v *View) Get(id int64) (domain.Item, bool) {
	it, ok := v.items[id]
	return it, ok
}

func (v *View) Len() int { return len(v.items) }

func (v *View) HasPending(id int64) bool {
	_, ok := v.pending[id]
	return ok
}

// Items returns a copy sorted by id, for rendering.
func (v *View) Items() []domain.Item {
	items := make([]domain.Item, 0, len(v.items))
	for _, it := range v.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// PendingIDs returns the ids with an outstanding edit, for disabling
// their controls.
func (v *View) PendingIDs() map[int64]bool {
	ids := make(map[int64]bool, len(v.pending))
	for id := range v.pending {
		ids[id] = true
	}
	return ids
}
