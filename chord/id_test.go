package chord

import "testing"

func TestHashDeterministic(t *testing.T) {
	for _, s := range []string{"apple", "127.0.0.1:8008", "", "b"} {
		a := Hash(s)
		b := Hash(s)
		if a != b {
			t.Fatalf("Hash(%q) not stable: %d != %d", s, a, b)
		}
		if uint32(a) >= N {
			t.Fatalf("Hash(%q) = %d out of range [0, %d)", s, a, N)
		}
	}
}

func TestHashDistinctStrings(t *testing.T) {
	// Not a guarantee in general, but collisions between these literal
	// strings would indicate a broken reduction, not bad luck.
	seen := make(map[ID]string)
	for _, s := range []string{"a", "b", "c", "apple", "banana", "127.0.0.1:8008", "127.0.0.1:8009"} {
		h := Hash(s)
		if prev, ok := seen[h]; ok {
			t.Fatalf("Hash(%q) collided with Hash(%q) = %d", s, prev, h)
		}
		seen[h] = s
	}
}

func TestInArcHalfOpenRight(t *testing.T) {
	cases := []struct {
		x, a, b ID
		want    bool
	}{
		{x: 5, a: 1, b: 10, want: true},   // interior, non-wrapping
		{x: 1, a: 1, b: 10, want: false},  // left endpoint excluded
		{x: 10, a: 1, b: 10, want: true},  // right endpoint included
		{x: 11, a: 1, b: 10, want: false}, // outside
		{x: 0, a: 1, b: 10, want: false},
		{x: 20, a: 10, b: 1, want: true},   // wraps through 0, left half
		{x: 0, a: 10, b: 1, want: true},    // wraps through 0, hits right endpoint
		{x: 10, a: 10, b: 1, want: false},  // wrap case, left endpoint excluded
		{x: 1, a: 10, b: 1, want: true},    // wrap case, right endpoint included
		{x: 6, a: 10, b: 1, want: false},   // neither half
	}
	for _, c := range cases {
		got := InHalfOpenRight(c.x, c.a, c.b)
		if got != c.want {
			t.Errorf("InHalfOpenRight(%d, %d, %d) = %v, want %v", c.x, c.a, c.b, got, c.want)
		}
	}
}

func TestInArcEqualEndpoints(t *testing.T) {
	// Spec §8 law: in_arc(x, a, a, true, true) == (x == a)
	if !InArc(5, 5, 5, true, true) {
		t.Error("InArc(5, 5, 5, true, true) should be true")
	}
	if InArc(6, 5, 5, true, true) {
		t.Error("InArc(6, 5, 5, true, true) should be false")
	}
	// Spec §8 law: in_arc(x, a, a, false, false) == false
	if InArc(5, 5, 5, false, false) {
		t.Error("InArc(5, 5, 5, false, false) should be false")
	}
	if InArc(6, 5, 5, false, false) {
		t.Error("InArc(6, 5, 5, false, false) should be false")
	}
}

func TestAdd2Pow(t *testing.T) {
	if got := add2Pow(0, 0); got != 1 {
		t.Errorf("add2Pow(0, 0) = %d, want 1", got)
	}
	// Wraps at N.
	top := ID(N - 1)
	if got := add2Pow(top, 0); got != 0 {
		t.Errorf("add2Pow(N-1, 0) = %d, want 0", got)
	}
}
