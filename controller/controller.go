// Package controller is the façade of spec §6.3: it is the only
// surface the interactive menu, CLI, or any other presentation layer
// is meant to call. Every operation that can fail returns a structured
// Result (or GetResult) rather than a raw Go error, so a caller never
// needs to import package chord to react to a failure; the read-only
// getters return plain values.
package controller

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/narendran-r/chordkv/chord"
)

// Result is the {success, message} shape returned by the façade's
// state-changing operations (spec §6.3).
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ok(msg string) Result   { return Result{Success: true, Message: msg} }
func fail(msg string) Result { return Result{Success: false, Message: msg} }

// invalidAddressMessage is kept byte-for-byte from the original
// controller.py so anything scripted against its exact text keeps
// working (spec §8 scenario 5).
const invalidAddressMessage = "Endereço inválido. Use o formato IP:PORTA"

// Controller owns one node's lifecycle: it's built once per process,
// started with either StartNetwork or JoinNetwork, and torn down with
// Stop.
type Controller struct {
	node   *chord.Node
	server *chord.Server
	conf   *chord.Config

	resolve func(chord.Address) chord.Peer
	stopped bool
}

// New builds a Controller for a node bound to bindHost:port. If
// conf.AnnouncedIP is empty it's auto-detected (spec §6.2). resolve
// turns an Address into a dispatchable Peer; pass nil to get the
// production TCP resolver.
func New(conf *chord.Config, resolve func(chord.Address) chord.Peer) (*Controller, error) {
	announced := conf.AnnouncedIP
	if announced == "" {
		announced = chord.DetectAnnouncedIP()
	}
	addr := chord.Address{IP: announced, Port: conf.Port}

	c := &Controller{conf: conf}
	if resolve == nil {
		resolve = func(a chord.Address) chord.Peer {
			if a.Equal(addr) {
				return chord.NewLocalPeer(c.node)
			}
			return chord.NewRemotePeer(a, conf.CallTimeout)
		}
	}
	c.resolve = resolve
	c.node = chord.NewNode(addr, conf, resolve)
	c.server = chord.NewServer(c.node, conf)

	if err := c.server.Start(); err != nil {
		return nil, fmt.Errorf("start rpc server: %v", err)
	}
	return c, nil
}

// StartNetwork initializes a brand-new, single-node ring (spec §6.3).
func (c *Controller) StartNetwork() Result {
	if err := c.node.Join(nil); err != nil {
		glog.Errorf("start_network failed: %v", err)
		return fail(err.Error())
	}
	c.node.Schedule()
	return ok(fmt.Sprintf("started new ring at %s", c.node.Address()))
}

// JoinNetwork validates bootstrapAddr and splices this node into the
// ring reachable through it (spec §6.3). An invalid address never
// reaches chord at all; the message matches controller.py verbatim.
func (c *Controller) JoinNetwork(bootstrapAddr string) Result {
	if !chord.LooksValid(bootstrapAddr) {
		glog.Warningf("join_network rejected malformed address %q", bootstrapAddr)
		return fail(invalidAddressMessage)
	}
	addr, err := chord.ParseAddress(bootstrapAddr)
	if err != nil {
		return fail(invalidAddressMessage)
	}

	bootstrap := c.resolve(addr)
	if err := c.node.Join(bootstrap); err != nil {
		glog.Errorf("join_network via %s failed: %v", bootstrapAddr, err)
		return fail(err.Error())
	}
	c.node.Schedule()
	return ok(fmt.Sprintf("joined ring through %s", bootstrapAddr))
}

// Put stores a key/value pair, rejecting empty key or value up front
// (spec §6.3).
func (c *Controller) Put(key, value string) Result {
	if key == "" || value == "" {
		return fail("key and value must both be non-empty")
	}
	if err := c.node.Put(key, value); err != nil {
		return fail(err.Error())
	}
	return ok(fmt.Sprintf("stored %q", key))
}

// GetResult carries get()'s richer payload: the value, who owns it, and
// the breadcrumb trail the lookup took (spec §6.3). History is empty
// when the key is owned by another node (see chord.Node.Lookup).
type GetResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Value   string   `json:"value,omitempty"`
	Owner   string   `json:"owner,omitempty"`
	History []string `json:"history,omitempty"`
}

// Get resolves key's value along with its owner and lookup history.
func (c *Controller) Get(key string) GetResult {
	if key == "" {
		return GetResult{Message: "key must be non-empty"}
	}
	value, owner, found, history, err := c.node.Lookup(key, nil)
	if err != nil {
		return GetResult{Message: err.Error()}
	}
	if !found {
		return GetResult{Success: true, Value: chord.NotFoundValue, History: history}
	}
	return GetResult{Success: true, Value: value, Owner: owner.String(), History: history}
}

// GetNeighbors reports the node's current successor and predecessor.
func (c *Controller) GetNeighbors() (successor, predecessor string) {
	if succ, err := c.node.GetSuccessor(); err == nil {
		successor = succ.String()
	}
	if pred, ok := c.node.GetPredecessor(); ok {
		predecessor = pred.String()
	}
	return successor, predecessor
}

// GetLocalDict returns the key/value pairs this node currently owns.
func (c *Controller) GetLocalDict() map[string]string {
	return c.node.LocalData()
}

// GetFingerTable returns the node's finger table, one address per slot
// (zero Address for an unset slot).
func (c *Controller) GetFingerTable() [chord.M]chord.Address {
	return c.node.FingerTable()
}

// GetID returns this node's ring identifier.
func (c *Controller) GetID() chord.ID {
	return c.node.ID()
}

// GetAddress returns this node's own address.
func (c *Controller) GetAddress() chord.Address {
	return c.node.Address()
}

// Stop gracefully exits the ring, stops the RPC listener, and is safe
// to call more than once (spec §6.3; controller.py guards the same way).
func (c *Controller) Stop() Result {
	if c.stopped {
		return ok("already stopped")
	}
	c.stopped = true

	c.node.StopMaintenance()
	if err := c.node.Exit(); err != nil {
		glog.Warningf("exit_network during stop failed: %v", err)
	}
	c.server.Stop()
	return ok("stopped")
}
