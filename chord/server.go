package chord

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/net/netutil"
)

// Server is the RPC listener of spec §4.9: it accepts TCP connections,
// reads one framed request per connection, dispatches it to the local
// Node, writes one framed response, and closes. Each connection is
// served on its own goroutine.
type Server struct {
	node *Node
	conf *Config

	mu       sync.Mutex
	listener net.Listener
	running  bool
	wg       sync.WaitGroup
}

// NewServer builds a Server that dispatches to node.
func NewServer(node *Node, conf *Config) *Server {
	return &Server{node: node, conf: conf}
}

// Start binds a TCP listener and begins accepting connections in the
// background. The listener is wrapped in netutil.LimitListener so a
// flood of slow/stalled peers can't exhaust file descriptors (spec §5's
// "one task per accepted connection" gets an explicit backpressure cap).
func (s *Server) Start() error {
	bind := fmt.Sprintf("%s:%d", s.conf.BindHost, s.conf.Port)
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %v", bind, err)
	}
	glog.Infof("RPC server listening on %s", bind)
	return s.Serve(ln)
}

// Serve runs the accept loop against an already-bound listener. Split
// out from Start so chord/testring can hand it an in-memory memconn
// listener instead of a real TCP socket.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = netutil.LimitListener(ln, s.conf.MaxConns)
	s.running = true
	s.mu.Unlock()

	go s.acceptLoop()
	return nil
}

func (s *Server) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.isRunning() {
				return
			}
			glog.Errorf("accept failed: %v", err)
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Stop shuts the listener down cooperatively: flip running to false,
// close the listener socket, then drain in-flight handlers (spec §4.9).
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	s.wg.Wait()
}

// handleConn walks the connection state machine of spec §4.9:
// Accepted -> Reading -> Dispatching -> Writing -> Closed. A read or
// decode error jumps straight to Closed with no response written.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	connID := uuid.New().String()

	var req wireRequest
	dec := json.NewDecoder(io.LimitReader(conn, MaxFrameSize))
	if err := dec.Decode(&req); err != nil {
		if err != io.EOF {
			glog.V(1).Infof("[%s] failed to read request: %v", connID, err)
		}
		return
	}

	glog.V(2).Infof("[%s] dispatching %s", connID, req.Type)
	resp := s.dispatch(connID, req)

	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		glog.V(1).Infof("[%s] failed to write response: %v", connID, err)
	}
}

// dispatch invokes the local operation named by req.Type and shapes its
// result into the wire response of spec §6.1. A panicking handler is
// recovered and turned into a {"error": "..."} response rather than
// taking the connection's goroutine down silently (spec §4.9), the same
// safety net the teacher's Ring.safeInvoke provides around delegate
// callbacks.
func (s *Server) dispatch(connID string, req wireRequest) (resp interface{}) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("[%s] panic handling %s: %v", connID, req.Type, r)
			resp = wireErrorResponse{Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	local := NewLocalPeer(s.node)

	switch req.Type {
	case OpGetNext:
		addr, err := local.GetSuccessor()
		if err != nil {
			return errResponse(err)
		}
		return nextResponse{Next: addrTuple(addr)}

	case OpSetNext:
		var p setNextParams
		if err := json.Unmarshal(req.Parameters, &p); err != nil {
			return errResponse(newError(ProtocolError, "bad %s parameters: %v", req.Type, err))
		}
		if err := local.SetSuccessor(p.NewNext.Address()); err != nil {
			return errResponse(err)
		}
		return okResponse

	case OpGetPrev:
		addr, ok, err := local.GetPredecessor()
		if err != nil {
			return errResponse(err)
		}
		if !ok {
			return prevResponse{Prev: nil}
		}
		at := addrTuple(addr)
		return prevResponse{Prev: &at}

	case OpSetPrev:
		var p setPrevParams
		if err := json.Unmarshal(req.Parameters, &p); err != nil {
			return errResponse(newError(ProtocolError, "bad %s parameters: %v", req.Type, err))
		}
		if err := local.SetPredecessor(p.NewPrev.Address()); err != nil {
			return errResponse(err)
		}
		return okResponse

	case OpGetID:
		return idResponse{ID: local.ID()}

	case OpFindSuccessor:
		var p findSuccessorParams
		if err := json.Unmarshal(req.Parameters, &p); err != nil {
			return errResponse(newError(ProtocolError, "bad %s parameters: %v", req.Type, err))
		}
		addr, err := local.FindSuccessor(p.Key, p.Iterations)
		if err != nil {
			return errResponse(err)
		}
		return successorResponse{Successor: addrTuple(addr)}

	case OpLookup:
		var p lookupParams
		if err := json.Unmarshal(req.Parameters, &p); err != nil {
			return errResponse(newError(ProtocolError, "bad %s parameters: %v", req.Type, err))
		}
		value, owner, found, _, err := local.Lookup(p.Key, p.History)
		if err != nil {
			return errResponse(err)
		}
		if !found {
			return lookupResponse{Value: value, NodeAddress: nil}
		}
		at := addrTuple(owner)
		return lookupResponse{Value: value, NodeAddress: &at}

	case OpPut:
		var p putParams
		if err := json.Unmarshal(req.Parameters, &p); err != nil {
			return errResponse(newError(ProtocolError, "bad %s parameters: %v", req.Type, err))
		}
		if err := local.Put(p.Key, p.Value); err != nil {
			return errResponse(err)
		}
		return okResponse

	case OpNotify:
		var p notifyParams
		if err := json.Unmarshal(req.Parameters, &p); err != nil {
			return errResponse(newError(ProtocolError, "bad %s parameters: %v", req.Type, err))
		}
		if err := local.Notify(p.PotentialPrev.Address()); err != nil {
			return errResponse(err)
		}
		return okResponse

	case OpJoin:
		var p joinParams
		if err := json.Unmarshal(req.Parameters, &p); err != nil {
			return errResponse(newError(ProtocolError, "bad %s parameters: %v", req.Type, err))
		}
		if err := local.Join(p.PotentialPrev.Address()); err != nil {
			return errResponse(err)
		}
		return okResponse

	case OpPassData:
		var p passDataParams
		if err := json.Unmarshal(req.Parameters, &p); err != nil {
			return errResponse(newError(ProtocolError, "bad %s parameters: %v", req.Type, err))
		}
		if err := local.PassData(p.Receiver.Address()); err != nil {
			return errResponse(err)
		}
		return okResponse

	case OpUpdateData:
		var p updateDataParams
		if err := json.Unmarshal(req.Parameters, &p); err != nil {
			return errResponse(newError(ProtocolError, "bad %s parameters: %v", req.Type, err))
		}
		if err := local.UpdateData(p.NewData); err != nil {
			return errResponse(err)
		}
		return okResponse

	default:
		return wireErrorResponse{Error: fmt.Sprintf("unknown request type %q", req.Type)}
	}
}

func errResponse(err error) wireErrorResponse {
	return wireErrorResponse{Error: err.Error()}
}
