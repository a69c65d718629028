package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"payablelane/pkg/domain"
	"payablelane/pkg/evidence"

	"github.com/google/uuid"
)

// Actor is the caller-supplied identity for every operation. Authentication
// happened upstream; the engine only checks the role against its fixed
// role-to-transition table.
type Actor struct {
	ActorID string
	Role    domain.Role
}

// Repositories persist whole rows with optimistic concurrency: Update must
// succeed only when the stored version matches the row's version, bumping it
// by one, and return domain.ErrConflict otherwise.

type BillRepository interface {
	Create(ctx context.Context, row domain.Bill) error
	Get(ctx context.Context, billID string) (domain.Bill, error)
	Update(ctx context.Context, row domain.Bill) error
}

type DeedRepository interface {
	Create(ctx context.Context, row domain.Deed) error
	Get(ctx context.Context, deedID string) (domain.Deed, error)
	Update(ctx context.Context, row domain.Deed) error
}

type NoteRepository interface {
	Create(ctx context.Context, row domain.ReceivableNote) error
	Get(ctx context.Context, noteID string) (domain.ReceivableNote, error)
	Update(ctx context.Context, row domain.ReceivableNote) error
}

type EventRepository interface {
	Append(ctx context.Context, row domain.EntityEvent) error
	ListByEntity(ctx context.Context, entityID string) ([]domain.EntityEvent, error)
}

// Notifier is enqueue-only: implementations must not block and must never
// report delivery failure back into the transition that triggered them.
type Notifier interface {
	ToIdentity(recipient, title, message string)
	ToRole(role domain.Role, title, message string)
}

type Dependencies struct {
	Bills    BillRepository
	Deeds    DeedRepository
	Notes    NoteRepository
	Events   EventRepository
	Notifier Notifier
	Evidence evidence.Generator
	Logger   *slog.Logger
	NowFn    func() time.Time
}

type Service struct {
	bills    BillRepository
	deeds    DeedRepository
	notes    NoteRepository
	events   EventRepository
	notifier Notifier
	evidence evidence.Generator
	logger   *slog.Logger
	nowFn    func() time.Time
	locks    keyedLocks
}

func New(deps Dependencies) *Service {
	s := &Service{
		bills:    deps.Bills,
		deeds:    deps.Deeds,
		notes:    deps.Notes,
		events:   deps.Events,
		notifier: deps.Notifier,
		evidence: deps.Evidence,
		logger:   deps.Logger,
		nowFn:    deps.NowFn,
	}
	if s.evidence == nil {
		s.evidence = evidence.NewSimulated()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.nowFn == nil {
		s.nowFn = func() time.Time { return time.Now().UTC() }
	}
	s.locks.m = map[string]*sync.Mutex{}
	return s
}

// keyedLocks serializes operations per entity ID. Critical sections are
// short (read, validate, write); locks are never held across notification
// delivery.
type keyedLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyedLocks) acquire(id string) func() {
	k.mu.Lock()
	l, ok := k.m[id]
	if !ok {
		l = &sync.Mutex{}
		k.m[id] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *Service) appendEvent(ctx context.Context, entityID, typ, actorID string, payload map[string]any) {
	err := s.events.Append(ctx, domain.EntityEvent{
		EventID:    "evt_" + uuid.NewString(),
		EntityID:   entityID,
		Type:       typ,
		ActorID:    actorID,
		OccurredAt: s.nowFn(),
		Payload:    payload,
	})
	if err != nil {
		s.logger.Warn("append event failed", "entity_id", entityID, "type", typ, "err", err)
	}
}

func (s *Service) ListEvents(ctx context.Context, entityID string) ([]domain.EntityEvent, error) {
	return s.events.ListByEntity(ctx, entityID)
}

func newBillID() string { return "bill_" + uuid.NewString() }
func newDeedID() string { return "deed_" + uuid.NewString() }
func newNoteID() string { return "note_" + uuid.NewString() }
