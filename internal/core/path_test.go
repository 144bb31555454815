package core

import "testing"

func TestPathValid(t *testing.T) {
	p := Path{{0, 0}, {1, 0}, {1, 0}, {1, 1}}
	if !p.Valid() {
		t.Fatal("wait-in-place + 4-neighbour moves should be valid")
	}
	bad := Path{{0, 0}, {2, 0}}
	if bad.Valid() {
		t.Fatal("a diagonal jump should be invalid")
	}
}

func TestPathWithLeadingWaits(t *testing.T) {
	p := Path{{0, 0}, {1, 0}}
	waited := p.WithLeadingWaits(2)
	want := Path{{0, 0}, {0, 0}, {0, 0}, {1, 0}}
	if len(waited) != len(want) {
		t.Fatalf("got %v, want %v", waited, want)
	}
	for i := range want {
		if waited[i] != want[i] {
			t.Fatalf("got %v, want %v", waited, want)
		}
	}
}

func TestPathAt(t *testing.T) {
	p := Path{{0, 0}, {1, 0}, {2, 0}}
	if c, ok := p.At(2); !ok || c != (Cell{1, 0}) {
		t.Fatalf("step 2 should be (1,0), got %v, %v", c, ok)
	}
	if c, ok := p.At(10); !ok || c != (Cell{2, 0}) {
		t.Fatalf("beyond-path step should hold the last cell, got %v, %v", c, ok)
	}
	if _, ok := (Path{}).At(1); ok {
		t.Fatal("empty path should have no step")
	}
}
