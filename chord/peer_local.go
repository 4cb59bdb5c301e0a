package chord

// LocalPeer is a direct handle to this node's own state: a Peer
// implementation that calls straight into Node's methods with no
// network round-trip (spec §4.2, §9 "Cyclic references").
type LocalPeer struct {
	node *Node
}

// NewLocalPeer wraps node as a Peer.
func NewLocalPeer(node *Node) *LocalPeer {
	return &LocalPeer{node: node}
}

func (p *LocalPeer) ID() ID           { return p.node.ID() }
func (p *LocalPeer) Address() Address { return p.node.Address() }

func (p *LocalPeer) GetSuccessor() (Address, error) { return p.node.GetSuccessor() }

func (p *LocalPeer) SetSuccessor(addr Address) error {
	p.node.SetSuccessor(addr)
	return nil
}

func (p *LocalPeer) GetPredecessor() (Address, bool, error) {
	addr, ok := p.node.GetPredecessor()
	return addr, ok, nil
}

func (p *LocalPeer) SetPredecessor(addr Address) error {
	p.node.SetPredecessor(addr)
	return nil
}

func (p *LocalPeer) FindSuccessor(key ID, depth int) (Address, error) {
	return p.node.findSuccessor(key, depth)
}

func (p *LocalPeer) Notify(candidate Address) error {
	return p.node.notify(candidate)
}

func (p *LocalPeer) Put(key, value string) error {
	return p.node.put(key, value)
}

func (p *LocalPeer) Lookup(key string, history []string) (string, Address, bool, []string, error) {
	return p.node.lookup(key, history)
}

func (p *LocalPeer) PassData(receiver Address) error {
	return p.node.passData(receiver)
}

func (p *LocalPeer) UpdateData(data map[string]string) error {
	p.node.dataMerge(data)
	return nil
}

func (p *LocalPeer) Join(bootstrap Address) error {
	return p.node.join(p.node.peerFor(bootstrap))
}
