// Package idempotency replays previously saved responses for mutating
// endpoints. The key is scoped per actor and endpoint, so reusing a key on
// a different action is not a replay.
package idempotency

import (
	"context"
	"sync"
)

type ActorContext struct {
	ActorID        string
	Role           string
	IdempotencyKey string
}

type Store interface {
	GetRecord(ctx context.Context, actorID, idempotencyKey, endpoint string) (int, map[string]any, bool, error)
	SaveRecord(ctx context.Context, actorID, idempotencyKey, endpoint string, responseStatus int, responseBody map[string]any) error
}

func Replay(ctx context.Context, st Store, actor ActorContext, endpoint string) (int, map[string]any, bool, error) {
	if actor.IdempotencyKey == "" {
		return 0, nil, false, nil
	}
	status, body, found, err := st.GetRecord(ctx, actor.ActorID, actor.IdempotencyKey, endpoint)
	if err != nil {
		return 0, nil, false, err
	}
	if !found {
		return 0, nil, false, nil
	}
	return status, body, true, nil
}

func Save(ctx context.Context, st Store, actor ActorContext, endpoint string, status int, response map[string]any) error {
	if actor.IdempotencyKey == "" {
		return nil
	}
	return st.SaveRecord(ctx, actor.ActorID, actor.IdempotencyKey, endpoint, status, response)
}

type record struct {
	status int
	body   map[string]any
}

// MemoryStore keeps records in process memory. The postgres store is the
// durable alternative when the server runs against a database.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[string]record{}}
}

func key(actorID, idempotencyKey, endpoint string) string {
	return actorID + "\x00" + idempotencyKey + "\x00" + endpoint
}

func (s *MemoryStore) GetRecord(_ context.Context, actorID, idempotencyKey, endpoint string) (int, map[string]any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[key(actorID, idempotencyKey, endpoint)]
	if !ok {
		return 0, nil, false, nil
	}
	return rec.status, rec.body, true, nil
}

func (s *MemoryStore) SaveRecord(_ context.Context, actorID, idempotencyKey, endpoint string, responseStatus int, responseBody map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(actorID, idempotencyKey, endpoint)] = record{status: responseStatus, body: responseBody}
	return nil
}
