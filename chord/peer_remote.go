package chord

import (
	"encoding/json"
	"io"
	"net"
	"time"
)

// RemotePeer dispatches every Peer operation as a single framed
// round-trip (spec §4.2): dial, send one request, read one response,
// close. Each call gets a fresh connection; there is no connection
// pooling, matching the one-request-per-connection protocol of §6.1.
//
// dial is pluggable so tests can swap a real TCP dialer for an
// in-memory memconn one (chord/testring) without duplicating call().
type RemotePeer struct {
	addr    Address
	timeout time.Duration
	dial    func(network, address string, timeout time.Duration) (net.Conn, error)
}

// NewRemotePeer builds a Peer that talks to addr over TCP.
func NewRemotePeer(addr Address, timeout time.Duration) *RemotePeer {
	return &RemotePeer{addr: addr, timeout: timeout, dial: net.DialTimeout}
}

// NewRemotePeerWithDialer builds a Peer that talks to addr using a
// caller-supplied dialer, e.g. memconn.DialTimeout for an in-process
// test ring (chord/testring).
func NewRemotePeerWithDialer(addr Address, timeout time.Duration, dial func(network, address string, timeout time.Duration) (net.Conn, error)) *RemotePeer {
	return &RemotePeer{addr: addr, timeout: timeout, dial: dial}
}

func (p *RemotePeer) ID() ID           { return p.addr.ID() }
func (p *RemotePeer) Address() Address { return p.addr }

func (p *RemotePeer) call(op string, params interface{}, out interface{}) error {
	conn, err := p.dial("tcp", p.addr.String(), p.timeout)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return newError(Timeout, "dial %s timed out: %v", p.addr, err)
		}
		return newError(PeerUnreachable, "cannot reach %s: %v", p.addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(p.timeout)); err != nil {
		return newError(Timeout, "setting deadline for %s: %v", p.addr, err)
	}

	var rawParams json.RawMessage
	if params != nil {
		rawParams, err = json.Marshal(params)
		if err != nil {
			return newError(ProtocolError, "encoding %s request: %v", op, err)
		}
	}

	if err := json.NewEncoder(conn).Encode(wireRequest{Type: op, Parameters: rawParams}); err != nil {
		if isTimeout(err) {
			return newError(Timeout, "sending %s to %s timed out: %v", op, p.addr, err)
		}
		return newError(PeerUnreachable, "sending %s to %s: %v", op, p.addr, err)
	}

	dec := json.NewDecoder(io.LimitReader(conn, MaxFrameSize))

	var errResp wireErrorResponse
	raw := json.RawMessage{}
	if err := dec.Decode(&raw); err != nil {
		if isTimeout(err) {
			return newError(Timeout, "reading %s response from %s timed out: %v", op, p.addr, err)
		}
		return newError(ProtocolError, "reading %s response from %s: %v", op, p.addr, err)
	}
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error != "" {
		return newError(ProtocolError, "%s reported: %s", p.addr, errResp.Error)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return newError(ProtocolError, "decoding %s response from %s: %v", op, p.addr, err)
		}
	}
	return nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func (p *RemotePeer) GetSuccessor() (Address, error) {
	var resp nextResponse
	if err := p.call(OpGetNext, nil, &resp); err != nil {
		return Address{}, err
	}
	return resp.Next.Address(), nil
}

func (p *RemotePeer) SetSuccessor(addr Address) error {
	return p.call(OpSetNext, setNextParams{NewNext: addrTuple(addr)}, &statusResponse{})
}

func (p *RemotePeer) GetPredecessor() (Address, bool, error) {
	var resp prevResponse
	if err := p.call(OpGetPrev, nil, &resp); err != nil {
		return Address{}, false, err
	}
	if resp.Prev == nil {
		return Address{}, false, nil
	}
	return resp.Prev.Address(), true, nil
}

func (p *RemotePeer) SetPredecessor(addr Address) error {
	return p.call(OpSetPrev, setPrevParams{NewPrev: addrTuple(addr)}, &statusResponse{})
}

func (p *RemotePeer) FindSuccessor(key ID, depth int) (Address, error) {
	var resp successorResponse
	if err := p.call(OpFindSuccessor, findSuccessorParams{Key: key, Iterations: depth}, &resp); err != nil {
		return Address{}, err
	}
	return resp.Successor.Address(), nil
}

func (p *RemotePeer) Notify(candidate Address) error {
	return p.call(OpNotify, notifyParams{PotentialPrev: addrTuple(candidate)}, &statusResponse{})
}

func (p *RemotePeer) Put(key, value string) error {
	return p.call(OpPut, putParams{Key: key, Value: value}, &statusResponse{})
}

func (p *RemotePeer) Lookup(key string, history []string) (string, Address, bool, []string, error) {
	var resp lookupResponse
	if err := p.call(OpLookup, lookupParams{Key: key, History: history}, &resp); err != nil {
		return "", Address{}, false, history, err
	}
	if resp.NodeAddress == nil {
		return resp.Value, Address{}, false, history, nil
	}
	return resp.Value, resp.NodeAddress.Address(), true, history, nil
}

func (p *RemotePeer) PassData(receiver Address) error {
	return p.call(OpPassData, passDataParams{Receiver: addrTuple(receiver)}, &statusResponse{})
}

func (p *RemotePeer) UpdateData(data map[string]string) error {
	return p.call(OpUpdateData, updateDataParams{NewData: data}, &statusResponse{})
}

func (p *RemotePeer) Join(bootstrap Address) error {
	return p.call(OpJoin, joinParams{PotentialPrev: addrTuple(bootstrap)}, &statusResponse{})
}
