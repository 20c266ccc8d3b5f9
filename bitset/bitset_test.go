package bitset

import "testing"

func TestAddAndHas(t *testing.T) {
	s := New(100)

	for _, i := range []int{0, 63, 64, 99} {
		s.Add(i)
	}
	for _, i := range []int{0, 63, 64, 99} {
		if !s.Has(i) {
			t.Errorf("expected bit %d to be set", i)
		}
	}
	if s.Has(1) {
		t.Error("expected bit 1 to be unset")
	}
}

func TestRemove(t *testing.T) {
	s := New(100)

	s.Add(10)
	s.Add(20)
	s.Add(30)
	s.Remove(20)

	if s.Has(20) {
		t.Error("expected bit 20 to be unset")
	}
	if !s.Has(10) || !s.Has(30) {
		t.Error("expected bits 10 and 30 to remain set")
	}
}

func TestWordBoundarySizing(t *testing.T) {
	for _, tc := range []struct{ n, words int }{
		{0, 0}, {1, 1}, {64, 1}, {65, 2}, {128, 2}, {129, 3},
	} {
		if got := len(New(tc.n)); got != tc.words {
			t.Errorf("New(%d): got %d words, want %d", tc.n, got, tc.words)
		}
	}
}
