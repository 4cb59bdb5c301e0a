package chord

import (
	"math/rand"

	"github.com/golang/glog"
)

// findSuccessor resolves the peer that owns key_id (spec §4.4). The node
// lock is only ever held for the individual field reads inside
// GetPredecessor/GetSuccessor/GetFinger below; it is never held while the
// eventual remote FindSuccessor call is in flight.
func (n *Node) findSuccessor(key ID, depth int) (Address, error) {
	if depth > M {
		return Address{}, newError(RoutingDiverged, "find_successor for %d exceeded %d hops, ring is inconsistent", key, M)
	}

	if pred, ok := n.GetPredecessor(); ok {
		if InArc(key, pred.ID(), n.selfID, false, true) {
			return n.selfAddr, nil
		}
	}

	succ, err := n.GetSuccessor()
	if err != nil {
		return Address{}, err
	}
	if InArc(key, n.selfID, succ.ID(), false, true) {
		return succ, nil
	}

	cp := n.closestPreceding(key)
	if cp.Equal(n.selfAddr) {
		// Degenerate ring: nothing closer than ourselves, so we must be
		// the owner despite the arc checks above missing it.
		return n.selfAddr, nil
	}

	peer := n.peerFor(cp)
	return peer.FindSuccessor(key, depth+1)
}

// closestPreceding scans the finger table from the farthest slot down,
// returning the first entry strictly between self and key (spec §4.4).
// Falls back to self if no finger qualifies.
func (n *Node) closestPreceding(key ID) Address {
	for i := M - 1; i >= 0; i-- {
		finger, ok := n.GetFinger(i)
		if !ok {
			continue
		}
		if InArc(finger.ID(), n.selfID, key, false, false) {
			return finger
		}
	}
	return n.selfAddr
}

// put stores (key, value) at its owner, forwarding if that isn't us
// (spec §4.5).
func (n *Node) put(key, value string) error {
	h := Hash(key)
	owner, err := n.findSuccessor(h, 0)
	if err != nil {
		return err
	}
	if owner.Equal(n.selfAddr) {
		n.dataPut(key, value)
		return nil
	}
	return n.peerFor(owner).Put(key, value)
}

// NotFoundValue is the distinguished "missing key" result of spec §7:
// not an error, a regular return value.
const NotFoundValue = "Key not found"

// lookup resolves key's value, returning a breadcrumb trail alongside it
// (spec §4.5). A caller address that already appears in the incoming
// history means the request looped back on itself; that terminates the
// walk locally with a NotFound rather than recursing forever.
func (n *Node) lookup(key string, history []string) (string, Address, bool, []string, error) {
	selfAddr := n.selfAddr.String()
	for _, h := range history {
		if addressInBreadcrumb(h, selfAddr) {
			glog.Warningf("lookup for %q revisited %s, breaking cycle", key, selfAddr)
			return NotFoundValue, Address{}, false, history, nil
		}
	}

	h := Hash(key)
	owner, err := n.findSuccessor(h, 0)
	if err != nil {
		return "", Address{}, false, history, err
	}

	if owner.Equal(n.selfAddr) {
		newHistory := append(append([]string{}, history...), "local hit at "+selfAddr)
		v, ok := n.dataGet(key)
		if !ok {
			return NotFoundValue, Address{}, false, newHistory, nil
		}
		return v, owner, true, newHistory, nil
	}

	// Forward with history unchanged: only the node that actually
	// handles the key records itself (above). Pre-naming the forward
	// target here would plant the target's own address in the
	// breadcrumb it's about to check against itself, so the very first
	// legitimate hop would look like a revisit.
	glog.V(2).Infof("lookup for %q forwarded from %s to %s", key, selfAddr, owner)
	return n.peerFor(owner).Lookup(key, history)
}

// addressInBreadcrumb reports whether a breadcrumb string names addr,
// i.e. ends with it ("local hit at 1.2.3.4:5").
func addressInBreadcrumb(breadcrumb, addr string) bool {
	if len(breadcrumb) < len(addr) {
		return false
	}
	return breadcrumb[len(breadcrumb)-len(addr):] == addr
}

// join implements spec §4.6. A nil bootstrap starts a brand-new,
// single-node ring; otherwise the node splices itself in via bootstrap.
func (n *Node) join(bootstrap Peer) error {
	if bootstrap == nil {
		glog.Infof("starting new ring at %s", n.selfAddr)
		n.SetPredecessor(n.selfAddr)
		n.SetSuccessor(n.selfAddr)
		for i := 0; i < M; i++ {
			n.SetFinger(i, n.selfAddr)
		}
		return nil
	}

	glog.Infof("joining ring through %s", bootstrap.Address())

	newSuccAddr, err := bootstrap.FindSuccessor(n.selfID, 0)
	if err != nil {
		return err
	}
	newSucc := n.peerFor(newSuccAddr)

	newPredAddr, hasPred, err := newSucc.GetPredecessor()
	if err != nil {
		return err
	}
	if !hasPred {
		newPredAddr = newSuccAddr
	}

	if err := newSucc.PassData(n.selfAddr); err != nil {
		return err
	}

	for i := 0; i < M; i++ {
		target := add2Pow(n.selfID, i)
		addr, err := bootstrap.FindSuccessor(target, 0)
		if err != nil {
			return err
		}
		n.SetFinger(i, addr)
	}

	n.SetPredecessor(newPredAddr)
	n.SetSuccessor(newSuccAddr)

	newPred := n.peerFor(newPredAddr)
	if err := newPred.SetSuccessor(n.selfAddr); err != nil {
		return err
	}
	if err := newSucc.SetPredecessor(n.selfAddr); err != nil {
		return err
	}

	glog.Infof("node %s joined the ring, successor=%s predecessor=%s", n.selfAddr, newSuccAddr, newPredAddr)
	return nil
}

// notify is invoked by a peer that believes it might be our predecessor
// (spec §4.7).
func (n *Node) notify(candidate Address) error {
	pred, ok := n.GetPredecessor()
	if !ok || InArc(candidate.ID(), pred.ID(), n.selfID, false, false) {
		n.SetPredecessor(candidate)
	}
	return nil
}

// stabilize is the periodic repair step of spec §4.7.
func (n *Node) stabilize() error {
	succAddr, err := n.GetSuccessor()
	if err != nil {
		return err
	}

	if succAddr.Equal(n.selfAddr) {
		for i := 0; i < M; i++ {
			n.SetFinger(i, n.selfAddr)
		}
		return nil
	}

	succ := n.peerFor(succAddr)
	x, hasX, err := succ.GetPredecessor()
	if err != nil {
		return err
	}
	if hasX && InArc(x.ID(), n.selfID, succAddr.ID(), false, false) {
		succAddr = x
		n.SetSuccessor(succAddr)
		succ = n.peerFor(succAddr)
	}

	if err := succ.Notify(n.selfAddr); err != nil {
		return err
	}

	return n.fixFingers()
}

// fixFingers repairs one randomly chosen finger slot per run (spec §4.7).
func (n *Node) fixFingers() error {
	i := rand.Intn(M)
	target := add2Pow(n.selfID, i)
	addr, err := n.findSuccessor(target, 0)
	if err != nil {
		return err
	}
	n.SetFinger(i, addr)
	return nil
}

// passData moves to receiver every key it now owns (spec §4.8). The
// self.predecessor == receiver special case shifts the arc's right
// endpoint to self.id, so a receiver that already sits immediately
// before self (the other node of a two-node ring on exit) is handed
// self's whole arc. Forwarding to the owner of receiver.id is what lets
// a joiner's pass_data reach the right node whichever bootstrap it used.
func (n *Node) passData(receiver Address) error {
	pred, hasPred := n.GetPredecessor()
	succ, err := n.GetSuccessor()
	if err != nil {
		return err
	}

	if receiver.Equal(n.selfAddr) {
		return nil
	}
	if hasPred && pred.Equal(n.selfAddr) && succ.Equal(n.selfAddr) {
		// Degenerate single-node ring: nothing to transfer.
		return nil
	}

	// Only go looking for the current owner of receiver.id when receiver
	// isn't already our own successor: a direct hand-off to our own
	// successor (exit_network's common case) is always ours to make,
	// and routing it through find_successor would bounce right back to
	// the successor itself and no-op there instead of transferring.
	if !succ.Equal(receiver) {
		owner, err := n.findSuccessor(receiver.ID(), 0)
		if err != nil {
			return err
		}
		if !owner.Equal(n.selfAddr) {
			return n.peerFor(owner).PassData(receiver)
		}
	}

	if !hasPred {
		return newError(StateNotReady, "%s has no predecessor, cannot determine owned arc", n.selfAddr)
	}

	end := receiver.ID()
	if pred.Equal(receiver) {
		end = n.selfID
	}

	transfer := make(map[string]string)
	for _, key := range n.dataKeys() {
		if InArc(Hash(key), pred.ID(), end, false, true) {
			if v, ok := n.dataPop(key); ok {
				transfer[key] = v
			}
		}
	}

	if len(transfer) == 0 {
		return nil
	}
	glog.Infof("transferring %d keys from %s to %s", len(transfer), n.selfAddr, receiver)
	return n.peerFor(receiver).UpdateData(transfer)
}

// exitNetwork implements spec §4.6's "Exit": splice self out of the ring,
// hand owned keys to the successor, and wipe local state.
func (n *Node) exitNetwork() error {
	succAddr, err := n.GetSuccessor()
	if err != nil {
		return err
	}
	predAddr, hasPred := n.GetPredecessor()

	if !succAddr.Equal(n.selfAddr) && hasPred && !predAddr.Equal(n.selfAddr) {
		pred := n.peerFor(predAddr)
		succ := n.peerFor(succAddr)

		errSucc := pred.SetSuccessor(succAddr)
		errPred := succ.SetPredecessor(predAddr)
		if err := mergeErrors(errSucc, errPred); err != nil {
			return err
		}
		if err := n.passData(succAddr); err != nil {
			return err
		}
	}

	n.reset()
	glog.Infof("node %s left the ring", n.selfAddr)
	return nil
}
