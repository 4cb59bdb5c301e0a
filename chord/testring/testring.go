// Package testring builds a multi-node Chord ring inside a single
// process for tests. Each node runs a real chord.Server against a
// memconn listener, and RemotePeers dial through memconn instead of a
// TCP socket, so the exact routing/stabilize/pass_data code paths that
// talk to a real RPC server in production also run in `go test` without
// ever binding a port.
//
// Grounded on the teacher pack's mock-transport idiom (coronanet's
// tornet/gateway.go in-memory net.Conn gateway): same code, different
// wire.
package testring

import (
	"fmt"
	"net"
	"time"

	"github.com/akutz/memconn"

	"github.com/narendran-r/chordkv/chord"
)

// memNetwork is the memconn provider name shared by every node in a
// Ring; memconn requires unbuffered ("memu") or buffered ("memb")
// providers be named, not constructed.
const memNetwork = "memu"

// Ring is a set of in-process Chord nodes wired together over memconn.
type Ring struct {
	nodes map[string]*node
}

type node struct {
	node   *chord.Node
	server *chord.Server
	ln     net.Listener
}

// NewRing creates an empty in-process ring.
func NewRing() *Ring {
	return &Ring{nodes: make(map[string]*node)}
}

// AddNode starts a new node bound to addr, wired so that any Peer
// resolution for another ring member dials through memconn.
func (r *Ring) AddNode(addr chord.Address, conf *chord.Config) (*chord.Node, error) {
	if _, exists := r.nodes[addr.String()]; exists {
		return nil, fmt.Errorf("testring: address %s already in use", addr)
	}

	n := chord.NewNode(addr, conf, r.resolverFor(addr))

	ln, err := memconn.Listen(memNetwork, addr.String())
	if err != nil {
		return nil, fmt.Errorf("testring: listen %s: %v", addr, err)
	}

	srv := chord.NewServer(n, conf)
	if err := srv.Serve(ln); err != nil {
		return nil, fmt.Errorf("testring: serve %s: %v", addr, err)
	}

	r.nodes[addr.String()] = &node{node: n, server: srv, ln: ln}
	return n, nil
}

// resolverFor returns a chord.Peer resolution function bound to self: it
// hands back a direct LocalPeer only when resolving self's own address
// (exactly as the production controller does), and dials every other
// ring member, including fellow testring nodes, through memconn and
// their real chord.Server. This keeps inter-node routing exercising the
// same Server/RemotePeer wire path production traffic uses, rather than
// silently short-circuiting every call in the ring to a direct method
// call.
func (r *Ring) resolverFor(self chord.Address) func(chord.Address) chord.Peer {
	return func(addr chord.Address) chord.Peer {
		if addr.Equal(self) {
			if n, ok := r.nodes[addr.String()]; ok {
				return chord.NewLocalPeer(n.node)
			}
		}
		return chord.NewRemotePeerWithDialer(addr, 5*time.Second, dialMem)
	}
}

func dialMem(network, address string, timeout time.Duration) (net.Conn, error) {
	return memconn.DialTimeout(memNetwork, address, timeout)
}

// Stop shuts down every node's server and maintenance timer.
func (r *Ring) Stop() {
	for _, n := range r.nodes {
		n.node.StopMaintenance()
		n.server.Stop()
	}
}

// Peer resolves addr to a Peer the way an external caller (e.g. a test
// driving a `join <bootstrap>` from outside the ring) would: always
// over memconn through the target's real chord.Server, never a direct
// LocalPeer short-circuit.
func (r *Ring) Peer(addr chord.Address) chord.Peer {
	return chord.NewRemotePeerWithDialer(addr, 5*time.Second, dialMem)
}

// Node returns the node bound to addr, or nil if none.
func (r *Ring) Node(addr chord.Address) *chord.Node {
	if n, ok := r.nodes[addr.String()]; ok {
		return n.node
	}
	return nil
}
