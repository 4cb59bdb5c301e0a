package chord

import (
	"encoding/json"
	"fmt"
)

// Wire operation names, spec §6.1.
const (
	OpGetNext       = "GET_NEXT"
	OpSetNext       = "SET_NEXT"
	OpGetPrev       = "GET_PREV"
	OpSetPrev       = "SET_PREV"
	OpGetID         = "GET_ID"
	OpFindSuccessor = "FIND_SUCCESSOR"
	OpLookup        = "LOOKUP"
	OpPut           = "PUT"
	OpNotify        = "NOTIFY"
	OpJoin          = "JOIN"
	OpPassData      = "PASS_DATA"
	OpUpdateData    = "UPDATE_DATA"
)

// MaxFrameSize bounds a single request/response frame. The source reads a
// fixed 1024-byte recv(); this implementation instead reads until the
// JSON value ends or this cap is hit, so a large UPDATE_DATA payload
// during a join isn't silently truncated (spec §9 "Framing").
const MaxFrameSize = 64 * 1024

// wireRequest is one direction of the framed protocol: a JSON object
// naming the operation plus its parameters.
type wireRequest struct {
	Type       string          `json:"type"`
	Parameters json.RawMessage `json:"parameters"`
}

// wireErrorResponse is returned whenever dispatch fails (spec §4.9).
type wireErrorResponse struct {
	Error string `json:"error"`
}

// addrTuple marshals/unmarshals an Address as the two-element
// [ip, port] JSON array the wire protocol uses everywhere (spec §6.1).
type addrTuple Address

func (a addrTuple) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{a.IP, a.Port})
}

func (a *addrTuple) UnmarshalJSON(b []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("address tuple: %v", err)
	}
	if err := json.Unmarshal(raw[0], &a.IP); err != nil {
		return fmt.Errorf("address tuple ip: %v", err)
	}
	if err := json.Unmarshal(raw[1], &a.Port); err != nil {
		return fmt.Errorf("address tuple port: %v", err)
	}
	return nil
}

func (a addrTuple) Address() Address { return Address(a) }

// --- Per-operation parameter/response shapes ---

type setNextParams struct {
	NewNext addrTuple `json:"new_next"`
}

type setPrevParams struct {
	NewPrev addrTuple `json:"new_prev"`
}

type nextResponse struct {
	Next addrTuple `json:"next"`
}

type prevResponse struct {
	Prev *addrTuple `json:"prev"`
}

type idResponse struct {
	ID ID `json:"id"`
}

type findSuccessorParams struct {
	Key        ID  `json:"key"`
	Iterations int `json:"iterations"`
}

type successorResponse struct {
	Successor addrTuple `json:"successor"`
}

type lookupParams struct {
	Key     string   `json:"key"`
	History []string `json:"history"`
}

type lookupResponse struct {
	Value       string     `json:"value"`
	NodeAddress *addrTuple `json:"node_address"`
}

type putParams struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type notifyParams struct {
	PotentialPrev addrTuple `json:"potential_prev"`
}

type joinParams struct {
	PotentialPrev addrTuple `json:"potential_prev"`
}

type passDataParams struct {
	Receiver addrTuple `json:"receiver"`
}

type updateDataParams struct {
	NewData map[string]string `json:"new_data"`
}

type statusResponse struct {
	Status string `json:"status"`
}

var okResponse = statusResponse{Status: "success"}
