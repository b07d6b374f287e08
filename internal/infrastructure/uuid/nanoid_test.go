package uuid

import (
	"strings"
	"testing"
)

func TestNanoIDGenerator(t *testing.T) {
	g := NewNanoIDGenerator(24, ProgressAlphabet)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := g.Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(id) != 24 {
			t.Fatalf("expected length 24, got %d", len(id))
		}
		for _, r := range id {
			if !strings.ContainsRune(ProgressAlphabet, r) {
				t.Fatalf("unexpected rune %q in %s", r, id)
			}
		}
		if seen[id] {
			t.Fatalf("duplicated id %s", id)
		}
		seen[id] = true
	}
}

func TestNanoIDGeneratorDefaultAlphabet(t *testing.T) {
	id, err := NewNanoIDGenerator(10).Generate()
	if err != nil || len(id) != 10 {
		t.Fatalf("unexpected id %q, err %v", id, err)
	}
}

func TestNanoIDGeneratorPanicsOnZeroLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewNanoIDGenerator(0)
}
