package idempotency

import (
	"context"
	"testing"
)

func TestReplayNoKeyNoop(t *testing.T) {
	st := NewMemoryStore()
	_, _, replayed, err := Replay(context.Background(), st, ActorContext{
		ActorID: "sup_1",
	}, "POST /pay/bills")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if replayed {
		t.Fatalf("expected replayed=false without key")
	}
}

func TestSaveThenReplayReturnsSamePayload(t *testing.T) {
	st := NewMemoryStore()
	actor := ActorContext{ActorID: "sup_1", Role: "supplier", IdempotencyKey: "k1"}
	resp := map[string]any{"bill_id": "bill_1", "status": "submitted"}

	if err := Save(context.Background(), st, actor, "POST /pay/bills", 201, resp); err != nil {
		t.Fatalf("save err: %v", err)
	}
	status, body, replayed, err := Replay(context.Background(), st, actor, "POST /pay/bills")
	if err != nil {
		t.Fatalf("replay err: %v", err)
	}
	if !replayed || status != 201 {
		t.Fatalf("replayed=%v status=%d", replayed, status)
	}
	if body["bill_id"] != "bill_1" {
		t.Fatalf("unexpected replay body: %+v", body)
	}
}

func TestKeyScopedPerEndpointAndActor(t *testing.T) {
	st := NewMemoryStore()
	actor := ActorContext{ActorID: "sup_1", IdempotencyKey: "k1"}
	if err := Save(context.Background(), st, actor, "POST /pay/bills", 201, nil); err != nil {
		t.Fatalf("save err: %v", err)
	}
	if _, _, replayed, _ := Replay(context.Background(), st, actor, "POST /pay/deeds"); replayed {
		t.Fatalf("key must not replay across endpoints")
	}
	other := ActorContext{ActorID: "sup_2", IdempotencyKey: "k1"}
	if _, _, replayed, _ := Replay(context.Background(), st, other, "POST /pay/bills"); replayed {
		t.Fatalf("key must not replay across actors")
	}
}
