package chord

import "testing"

// A single-node ring resolves to itself everywhere (spec §8 boundary:
// "single-node ring: predecessor = successor = self; all fingers point
// to self").
func TestJoinSoloRingBoundary(t *testing.T) {
	addr := Address{IP: "127.0.0.1", Port: 9001}
	var n *Node
	n = NewNode(addr, DefaultConfig(addr.IP, addr.Port), func(a Address) Peer {
		return NewLocalPeer(n)
	})

	if err := n.join(nil); err != nil {
		t.Fatalf("join(nil): %v", err)
	}

	succ, err := n.GetSuccessor()
	if err != nil || !succ.Equal(addr) {
		t.Errorf("successor = %v (err=%v), want self %v", succ, err, addr)
	}
	pred, ok := n.GetPredecessor()
	if !ok || !pred.Equal(addr) {
		t.Errorf("predecessor = %v (ok=%v), want self %v", pred, ok, addr)
	}
	for i := 0; i < M; i++ {
		f, ok := n.GetFinger(i)
		if !ok || !f.Equal(addr) {
			t.Errorf("finger[%d] = %v (ok=%v), want self %v", i, f, ok, addr)
		}
	}
}

// find_successor on a key equal to self.id returns self (spec §8
// boundary).
func TestFindSuccessorKeyEqualsSelf(t *testing.T) {
	addr := Address{IP: "127.0.0.1", Port: 9002}
	var n *Node
	n = NewNode(addr, DefaultConfig(addr.IP, addr.Port), func(a Address) Peer {
		return NewLocalPeer(n)
	})
	if err := n.join(nil); err != nil {
		t.Fatalf("join(nil): %v", err)
	}

	got, err := n.findSuccessor(n.selfID, 0)
	if err != nil {
		t.Fatalf("findSuccessor(self.id): %v", err)
	}
	if !got.Equal(addr) {
		t.Errorf("findSuccessor(self.id) = %v, want self %v", got, addr)
	}
}

// find_successor fails with RoutingDiverged once recursion exceeds M
// hops (spec §4.4 step 1).
func TestFindSuccessorDivergesPastMHops(t *testing.T) {
	addr := Address{IP: "127.0.0.1", Port: 9003}
	n := NewNode(addr, DefaultConfig(addr.IP, addr.Port), func(a Address) Peer { return nil })

	_, err := n.findSuccessor(ID(0), M+1)
	if err == nil {
		t.Fatal("expected RoutingDiverged, got nil")
	}
	if !Is(err, RoutingDiverged) {
		t.Errorf("error kind = %v, want RoutingDiverged", err)
	}
}

// notify only moves the predecessor pointer when the candidate fits
// strictly between the current predecessor and self (spec §4.7).
func TestNotifyAcceptsOnlyCloserCandidate(t *testing.T) {
	self := Address{IP: "127.0.0.1", Port: 100}
	var n *Node
	n = NewNode(self, DefaultConfig(self.IP, self.Port), func(a Address) Peer { return NewLocalPeer(n) })
	// Deliberately not joined: predecessor starts nil, so the first
	// notify below is accepted unconditionally (spec §4.7).

	// Pick two addresses and manually determine which is the arc-closer
	// candidate by checking InArc directly, so the test isn't tied to
	// incidental hash values.
	candA := Address{IP: "10.0.0.1", Port: 1}
	candB := Address{IP: "10.0.0.2", Port: 2}

	if err := n.notify(candA); err != nil {
		t.Fatalf("notify(candA): %v", err)
	}
	pred, _ := n.GetPredecessor()
	if !pred.Equal(candA) {
		t.Fatalf("first notify should always be accepted (no predecessor yet), got %v", pred)
	}

	// Whether candB now wins depends on InArc(candB.id, candA.id, self.id, false, false);
	// assert notify's decision matches that predicate exactly.
	shouldAccept := InArc(candB.ID(), candA.ID(), n.selfID, false, false)
	if err := n.notify(candB); err != nil {
		t.Fatalf("notify(candB): %v", err)
	}
	pred, _ = n.GetPredecessor()
	if shouldAccept && !pred.Equal(candB) {
		t.Errorf("expected candB accepted as predecessor, got %v", pred)
	}
	if !shouldAccept && !pred.Equal(candA) {
		t.Errorf("expected candA to remain predecessor, got %v", pred)
	}
}

// passData is a no-op when the ring is degenerate (spec §4.8).
func TestPassDataDegenerateRingNoOp(t *testing.T) {
	self := Address{IP: "127.0.0.1", Port: 200}
	var n *Node
	n = NewNode(self, DefaultConfig(self.IP, self.Port), func(a Address) Peer { return NewLocalPeer(n) })
	if err := n.join(nil); err != nil {
		t.Fatalf("join(nil): %v", err)
	}
	n.dataPut("k", "v")

	other := Address{IP: "10.0.0.9", Port: 9}
	if err := n.passData(other); err != nil {
		t.Fatalf("passData on a degenerate ring: %v", err)
	}
	if v, ok := n.dataGet("k"); !ok || v != "v" {
		t.Errorf("passData on a degenerate ring should not move data, got (%q, %v)", v, ok)
	}
}

// passData is a no-op when the receiver is self.
func TestPassDataToSelfNoOp(t *testing.T) {
	self := Address{IP: "127.0.0.1", Port: 201}
	var n *Node
	n = NewNode(self, DefaultConfig(self.IP, self.Port), func(a Address) Peer { return NewLocalPeer(n) })
	if err := n.join(nil); err != nil {
		t.Fatalf("join(nil): %v", err)
	}
	n.dataPut("k", "v")

	if err := n.passData(self); err != nil {
		t.Fatalf("passData(self): %v", err)
	}
	if v, ok := n.dataGet("k"); !ok || v != "v" {
		t.Errorf("passData(self) should not move data, got (%q, %v)", v, ok)
	}
}

// stabilize on a solo ring rebuilds every finger to point at self and
// doesn't error (spec §4.7).
func TestStabilizeSoloRing(t *testing.T) {
	self := Address{IP: "127.0.0.1", Port: 300}
	var n *Node
	n = NewNode(self, DefaultConfig(self.IP, self.Port), func(a Address) Peer { return NewLocalPeer(n) })
	if err := n.join(nil); err != nil {
		t.Fatalf("join(nil): %v", err)
	}

	if err := n.stabilize(); err != nil {
		t.Fatalf("stabilize: %v", err)
	}
	for i := 0; i < M; i++ {
		f, ok := n.GetFinger(i)
		if !ok || !f.Equal(self) {
			t.Errorf("finger[%d] = %v (ok=%v), want self %v", i, f, ok, self)
		}
	}
}

// lookup breaks a cycle immediately when the caller's own address
// already appears in the supplied history (spec §8 boundary).
func TestLookupBreaksCycleOnRevisitedHistory(t *testing.T) {
	self := Address{IP: "127.0.0.1", Port: 400}
	var n *Node
	n = NewNode(self, DefaultConfig(self.IP, self.Port), func(a Address) Peer { return NewLocalPeer(n) })
	if err := n.join(nil); err != nil {
		t.Fatalf("join(nil): %v", err)
	}
	n.dataPut("k", "v")

	history := []string{"local hit at " + self.String()}
	value, _, found, _, err := n.lookup("k", history)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found || value != NotFoundValue {
		t.Errorf("lookup on revisited history = (%q, found=%v), want (%q, false)", value, found, NotFoundValue)
	}
}
