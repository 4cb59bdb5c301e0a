package chord

// Peer is the uniform operation set every node exposes, whether it's
// addressed in-process (LocalPeer) or over the wire (RemotePeer). Routing
// code is written entirely against this interface and is oblivious to
// which kind of peer it's talking to (spec §4.2, §9).
type Peer interface {
	ID() ID
	Address() Address

	GetSuccessor() (Address, error)
	SetSuccessor(Address) error
	GetPredecessor() (Address, bool, error)
	SetPredecessor(Address) error

	FindSuccessor(key ID, depth int) (Address, error)
	Notify(candidate Address) error

	Put(key, value string) error
	Lookup(key string, history []string) (value string, owner Address, found bool, newHistory []string, err error)

	PassData(receiver Address) error
	UpdateData(data map[string]string) error

	// Join instructs this peer to join the ring through bootstrap.
	Join(bootstrap Address) error
}
