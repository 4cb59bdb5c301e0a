package chord

import (
	"sync"
)

// Node owns all mutable ring state for one Chord identity: its
// predecessor, successor, finger table, and owned key/value map (spec
// §3). Every mutation goes through n.mu, the single node lock of §4.3.
// n.mu must never be held while a remote RPC is in flight: routing code
// snapshots what it needs, releases the lock, performs the call, and
// reacquires only to commit results.
type Node struct {
	selfID   ID
	selfAddr Address
	conf     *Config

	mu          sync.Mutex
	predecessor *Address    // nil until the ring has a predecessor
	successor   *Address    // nil only before the node has joined a ring
	fingers     [M]*Address // fingers[0] always mirrors successor

	data map[string]string

	resolve func(Address) Peer // resolves an Address to a dispatchable Peer

	stopped bool
}

// NewNode creates ring state for the given identity. resolve turns an
// Address into a Peer (Local for self, Remote otherwise); it's injected
// so tests can swap in an in-memory transport (chord/testring).
func NewNode(addr Address, conf *Config, resolve func(Address) Peer) *Node {
	n := &Node{
		selfID:   addr.ID(),
		selfAddr: addr,
		conf:     conf,
		data:     make(map[string]string),
		resolve:  resolve,
	}
	return n
}

func (n *Node) ID() ID           { return n.selfID }
func (n *Node) Address() Address { return n.selfAddr }

// Join splices n into the ring reachable through bootstrap, or starts a
// new solo ring if bootstrap is nil (spec §4.6). Exported for callers
// outside the package, e.g. the controller façade.
func (n *Node) Join(bootstrap Peer) error { return n.join(bootstrap) }

// Put stores key/value at its owning node, local or remote (spec §4.5).
func (n *Node) Put(key, value string) error { return n.put(key, value) }

// Lookup resolves key's value and the breadcrumb trail the request
// took (spec §4.5). The trail is only filled in when this node handles
// the key itself: a LOOKUP response carries no history back, so a
// lookup forwarded to a remote owner returns the history passed in.
func (n *Node) Lookup(key string, history []string) (string, Address, bool, []string, error) {
	return n.lookup(key, history)
}

// Exit gracefully removes n from the ring, handing off owned keys to
// its successor (spec §4.6).
func (n *Node) Exit() error { return n.exitNetwork() }

func (n *Node) peerFor(addr Address) Peer {
	return n.resolve(addr)
}

// GetPredecessor returns the predecessor address, if any.
func (n *Node) GetPredecessor() (Address, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.predecessor == nil {
		return Address{}, false
	}
	return *n.predecessor, true
}

// SetPredecessor overwrites the predecessor pointer.
func (n *Node) SetPredecessor(addr Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	a := addr
	n.predecessor = &a
}

// GetSuccessor returns the successor address. Per spec §3 this is never
// nil once the node has joined; StateNotReady is returned if it hasn't.
func (n *Node) GetSuccessor() (Address, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.successor == nil {
		return Address{}, newError(StateNotReady, "node %s has not joined a ring", n.selfAddr)
	}
	return *n.successor, nil
}

// SetSuccessor overwrites the successor pointer and finger slot 0 to
// match, preserving the fingers[0] == successor invariant (spec §3).
func (n *Node) SetSuccessor(addr Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	a := addr
	n.successor = &a
	n.fingers[0] = &a
}

// GetFinger returns finger slot i, if populated.
func (n *Node) GetFinger(i int) (Address, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fingers[i] == nil {
		return Address{}, false
	}
	return *n.fingers[i], true
}

// SetFinger overwrites finger slot i. Slot 0 is kept in sync with the
// successor by SetSuccessor; callers fixing other slots use this
// directly.
func (n *Node) SetFinger(i int, addr Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	a := addr
	n.fingers[i] = &a
	if i == 0 {
		n.successor = &a
	}
}

// dataGet reads a locally owned key.
func (n *Node) dataGet(key string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.data[key]
	return v, ok
}

// dataPut writes a key/value pair under the node lock (spec §4.3).
func (n *Node) dataPut(key, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.data[key] = value
}

// dataMerge folds a transferred map into the local store (UpdateData).
func (n *Node) dataMerge(incoming map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for k, v := range incoming {
		n.data[k] = v
	}
}

// dataKeys returns a snapshot of currently stored keys.
func (n *Node) dataKeys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	keys := make([]string, 0, len(n.data))
	for k := range n.data {
		keys = append(keys, k)
	}
	return keys
}

// dataPop removes and returns key, if present.
func (n *Node) dataPop(key string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.data[key]
	if ok {
		delete(n.data, key)
	}
	return v, ok
}

// LocalData returns a copy of the owned key/value map, for diagnostics
// (controller façade's get_local_dict).
func (n *Node) LocalData() map[string]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]string, len(n.data))
	for k, v := range n.data {
		out[k] = v
	}
	return out
}

// FingerTable returns a copy of the finger table, for diagnostics
// (controller façade's get_finger_table). Unset slots are the zero
// Address.
func (n *Node) FingerTable() [M]Address {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out [M]Address
	for i, f := range n.fingers {
		if f != nil {
			out[i] = *f
		}
	}
	return out
}

// reset wipes predecessor, successor, fingers, and data; used by
// exit_network once ownership has been handed off.
func (n *Node) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.predecessor = nil
	n.successor = nil
	for i := range n.fingers {
		n.fingers[i] = nil
	}
	n.data = make(map[string]string)
}
