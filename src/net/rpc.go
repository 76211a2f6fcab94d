package net

import "fmt"

// rpcType is the first byte of every request frame.
type rpcType uint8

const (
	rpcNotarize rpcType = iota
	rpcSync
)

func (t rpcType) String() string {
	switch t {
	case rpcNotarize:
		return "Notarize"
	case rpcSync:
		return "Sync"
	default:
		return fmt.Sprintf("rpc(%d)", uint8(t))
	}
}

// newCommand returns an empty request of type t to decode into.
func newCommand(t rpcType) (interface{}, error) {
	switch t {
	case rpcNotarize:
		return new(NotarizeRequest), nil
	case rpcSync:
		return new(SyncRequest), nil
	default:
		return nil, fmt.Errorf("unknown rpc type %d", uint8(t))
	}
}

// RPCResponse captures both a response and a potential error.
type RPCResponse struct {
	Response interface{}
	Error    error
}

// RPC is an inbound request. Command is a *NotarizeRequest or a
// *SyncRequest.
type RPC struct {
	Command  interface{}
	RespChan chan<- RPCResponse
}

// Respond answers the request. It must be called exactly once.
func (r *RPC) Respond(resp interface{}, err error) {
	r.RespChan <- RPCResponse{Response: resp, Error: err}
}
