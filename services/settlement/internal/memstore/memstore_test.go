package memstore

import (
	"context"
	"errors"
	"testing"

	"payablelane/pkg/domain"
)

func TestBillVersionCheck(t *testing.T) {
	ctx := context.Background()
	st := New()
	bill := domain.Bill{BillID: "bill_1", Status: domain.BillSubmitted, Version: 1}
	if err := st.Bills().Create(ctx, bill); err != nil {
		t.Fatalf("create: %v", err)
	}

	bill.Status = domain.BillUnderReview
	if err := st.Bills().Update(ctx, bill); err != nil {
		t.Fatalf("update: %v", err)
	}
	// a writer still holding version 1 must lose
	stale := bill
	stale.Status = domain.BillOfferMade
	if err := st.Bills().Update(ctx, stale); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, err := st.Bills().Get(ctx, "bill_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 2 || got.Status != domain.BillUnderReview {
		t.Fatalf("stale write applied: %+v", got)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	st := New()
	if _, err := st.Bills().Get(ctx, "bill_x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := st.Deeds().Get(ctx, "deed_x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := st.Notes().Get(ctx, "note_x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEventsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	st := New()
	for _, id := range []string{"evt_1", "evt_2", "evt_3"} {
		if err := st.Events().Append(ctx, domain.EntityEvent{EventID: id, EntityID: "bill_1"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	rows, err := st.Events().ListByEntity(ctx, "bill_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 || rows[0].EventID != "evt_1" || rows[2].EventID != "evt_3" {
		t.Fatalf("unexpected order: %+v", rows)
	}
}
