// Package memstore is an in-memory implementation of the settlement
// repositories, used by tests and by the server's standalone mode. It
// enforces the same optimistic concurrency contract as the postgres store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"payablelane/pkg/domain"
)

type Store struct {
	mu     sync.Mutex
	bills  map[string]domain.Bill
	deeds  map[string]domain.Deed
	notes  map[string]domain.ReceivableNote
	events map[string][]domain.EntityEvent
	notifs map[string][]domain.Notification
}

func New() *Store {
	return &Store{
		bills:  map[string]domain.Bill{},
		deeds:  map[string]domain.Deed{},
		notes:  map[string]domain.ReceivableNote{},
		events: map[string][]domain.EntityEvent{},
		notifs: map[string][]domain.Notification{},
	}
}

func (s *Store) Bills() *BillRepo { return &BillRepo{s} }
func (s *Store) Deeds() *DeedRepo { return &DeedRepo{s} }
func (s *Store) Notes() *NoteRepo { return &NoteRepo{s} }
func (s *Store) Events() *EventRepo {
	return &EventRepo{s}
}
func (s *Store) Notifications() *NotificationRepo { return &NotificationRepo{s} }

type BillRepo struct{ s *Store }

func (r *BillRepo) Create(_ context.Context, row domain.Bill) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bills[row.BillID]; ok {
		return domain.ErrConflict
	}
	r.s.bills[row.BillID] = row
	return nil
}

func (r *BillRepo) Get(_ context.Context, billID string) (domain.Bill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.bills[billID]
	if !ok {
		return domain.Bill{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *BillRepo) Update(_ context.Context, row domain.Bill) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.bills[row.BillID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != row.Version {
		return domain.ErrConflict
	}
	row.Version++
	r.s.bills[row.BillID] = row
	return nil
}

func (r *BillRepo) List(_ context.Context) ([]domain.Bill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Bill, 0, len(r.s.bills))
	for _, row := range r.s.bills {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type DeedRepo struct{ s *Store }

func (r *DeedRepo) Create(_ context.Context, row domain.Deed) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.deeds[row.DeedID]; ok {
		return domain.ErrConflict
	}
	r.s.deeds[row.DeedID] = row
	return nil
}

func (r *DeedRepo) Get(_ context.Context, deedID string) (domain.Deed, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.deeds[deedID]
	if !ok {
		return domain.Deed{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *DeedRepo) Update(_ context.Context, row domain.Deed) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.deeds[row.DeedID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != row.Version {
		return domain.ErrConflict
	}
	row.Version++
	r.s.deeds[row.DeedID] = row
	return nil
}

type NoteRepo struct{ s *Store }

func (r *NoteRepo) Create(_ context.Context, row domain.ReceivableNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notes[row.NoteID]; ok {
		return domain.ErrConflict
	}
	r.s.notes[row.NoteID] = row
	return nil
}

func (r *NoteRepo) Get(_ context.Context, noteID string) (domain.ReceivableNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.notes[noteID]
	if !ok {
		return domain.ReceivableNote{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *NoteRepo) Update(_ context.Context, row domain.ReceivableNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.notes[row.NoteID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != row.Version {
		return domain.ErrConflict
	}
	row.Version++
	r.s.notes[row.NoteID] = row
	return nil
}

type EventRepo struct{ s *Store }

func (r *EventRepo) Append(_ context.Context, row domain.EntityEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events[row.EntityID] = append(r.s.events[row.EntityID], row)
	return nil
}

func (r *EventRepo) ListByEntity(_ context.Context, entityID string) ([]domain.EntityEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.s.events[entityID]
	out := make([]domain.EntityEvent, len(rows))
	copy(out, rows)
	return out, nil
}

type NotificationRepo struct{ s *Store }

func (r *NotificationRepo) Save(_ context.Context, row domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notifs[row.Recipient] = append(r.s.notifs[row.Recipient], row)
	return nil
}

func (r *NotificationRepo) ListByRecipient(_ context.Context, recipient string) ([]domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.s.notifs[recipient]
	out := make([]domain.Notification, len(rows))
	copy(out, rows)
	return out, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, recipient, notificationID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.s.notifs[recipient]
	for i := range rows {
		if rows[i].NotificationID == notificationID {
			rows[i].MarkRead(at)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *NotificationRepo) UnreadCount(_ context.Context, recipient string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, row := range r.s.notifs[recipient] {
		if !row.Read() {
			n++
		}
	}
	return n, nil
}
