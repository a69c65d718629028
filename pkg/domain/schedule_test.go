package domain

import "testing"

func TestParseQuarter(t *testing.T) {
	q, err := ParseQuarter("Q3 2025")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if q.Q != 3 || q.Year != 2025 {
		t.Fatalf("unexpected quarter: %+v", q)
	}
	for _, bad := range []string{"", "Q5 2025", "Q0 2025", "3Q 2025", "Q3-2025", "Q3 25"} {
		if _, err := ParseQuarter(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestQuarterWrapsYear(t *testing.T) {
	q := Quarter{Q: 4, Year: 2025}
	n := q.Next()
	if n.Q != 1 || n.Year != 2026 {
		t.Fatalf("expected Q1 2026, got %s", n)
	}
}

func TestBuildInstallmentsSumExact(t *testing.T) {
	amount := int64(10_000_00) // does not divide evenly by 3
	parts := BuildInstallments(amount, 3, Quarter{Q: 1, Year: 2026})
	if len(parts) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(parts))
	}
	var sum int64
	for _, p := range parts {
		sum += p.AmountMinor
	}
	if sum != amount {
		t.Fatalf("installments sum %d != %d", sum, amount)
	}
	if parts[2].AmountMinor <= parts[0].AmountMinor-2 || parts[2].AmountMinor < parts[0].AmountMinor {
		t.Fatalf("last installment should absorb the remainder: %+v", parts)
	}
}

func TestBuildInstallmentsQuarterLabels(t *testing.T) {
	parts := BuildInstallments(6_000_000, 6, Quarter{Q: 3, Year: 2025})
	want := []string{"Q3 2025", "Q4 2025", "Q1 2026", "Q2 2026", "Q3 2026", "Q4 2026"}
	for i, w := range want {
		if parts[i].Quarter != w {
			t.Fatalf("installment %d: expected %s, got %s", i, w, parts[i].Quarter)
		}
	}
}

func TestNoteAdvancesForwardOnly(t *testing.T) {
	if !NoteAdvances(NoteDraft, NoteMinted) {
		t.Fatalf("draft -> minted should advance")
	}
	if NoteAdvances(NoteMinted, NoteDraft) {
		t.Fatalf("minted -> draft must not advance")
	}
	if NoteAdvances(NoteDraft, NoteListed) {
		t.Fatalf("skipping a stage must not advance")
	}
}

func TestBillStatusOrdering(t *testing.T) {
	if !BillOfferAccepted.AtOrAfter(BillOfferAccepted) {
		t.Fatalf("status should be at its own stage")
	}
	if BillSubmitted.AtOrAfter(BillOfferAccepted) {
		t.Fatalf("submitted is before offer_accepted")
	}
	if !BillCertified.AtOrAfter(BillOfferAccepted) {
		t.Fatalf("certified is past every stage")
	}
	if BillRejected.AtOrAfter(BillSubmitted) {
		t.Fatalf("rejected is past no stage")
	}
	if !BillCertified.Terminal() || !BillRejected.Terminal() || BillTermsSet.Terminal() {
		t.Fatalf("terminal flags wrong")
	}
}
