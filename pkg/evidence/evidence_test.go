package evidence

import (
	"strings"
	"testing"
	"time"
)

func TestSimulatedTxHashShape(t *testing.T) {
	g := NewSimulated()
	h := g.TxHash()
	if !strings.HasPrefix(h, "0x") || len(h) != 66 {
		t.Fatalf("unexpected tx hash %q", h)
	}
	if g.TxHash() == h {
		t.Fatalf("expected fresh hashes per call")
	}
}

func TestSimulatedBlockNumberRange(t *testing.T) {
	g := NewSimulated()
	n := g.BlockNumber()
	if n < 18_000_000 || n >= 20_000_000 {
		t.Fatalf("block number out of range: %d", n)
	}
}

func TestNoteNumberUnique(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := NoteNumber(at)
	b := NoteNumber(at)
	if !strings.HasPrefix(a, "RN-20260301-") {
		t.Fatalf("unexpected note number %q", a)
	}
	if a == b {
		t.Fatalf("note numbers must not collide")
	}
}

func TestTokenIDShape(t *testing.T) {
	g := NewSimulated()
	id := g.TokenID()
	if !strings.HasPrefix(id, "TKN-") {
		t.Fatalf("unexpected token id %q", id)
	}
}
