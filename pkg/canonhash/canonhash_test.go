package canonhash

import (
	"strings"
	"testing"
)

type ordered struct {
	A string `json:"a"`
	B int64  `json:"b"`
	C string `json:"c"`
}

type reordered struct {
	C string `json:"c"`
	A string `json:"a"`
	B int64  `json:"b"`
}

func TestSumIgnoresFieldOrder(t *testing.T) {
	h1, _, err := Sum(ordered{A: "x", B: 42, C: "y"})
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	h2, _, err := Sum(reordered{C: "y", A: "x", B: 42})
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("same logical content hashed differently: %s vs %s", h1, h2)
	}
	if !strings.HasPrefix(h1, "sha256:") {
		t.Fatalf("expected sha256 prefix, got %s", h1)
	}
}

func TestSumMapInsertionOrder(t *testing.T) {
	m1 := map[string]any{}
	m1["alpha"] = 1
	m1["beta"] = 2
	m2 := map[string]any{}
	m2["beta"] = 2
	m2["alpha"] = 1
	h1, _, _ := Sum(m1)
	h2, _, _ := Sum(m2)
	if h1 != h2 {
		t.Fatalf("map insertion order must not affect hash")
	}
}

func TestSumSensitiveToEveryField(t *testing.T) {
	base := ordered{A: "x", B: 42, C: "y"}
	hBase, _, _ := Sum(base)
	variants := []ordered{
		{A: "x2", B: 42, C: "y"},
		{A: "x", B: 43, C: "y"},
		{A: "x", B: 42, C: "y2"},
	}
	seen := map[string]bool{hBase: true}
	for i, v := range variants {
		h, _, _ := Sum(v)
		if seen[h] {
			t.Fatalf("variant %d collided with a previous hash", i)
		}
		seen[h] = true
	}
}
