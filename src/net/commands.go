package net

import (
	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/feed"
)

// NotarizeRequest asks a peer with write access to the space to write
// credentials on behalf of the requester.
type NotarizeRequest struct {
	FromAddr    string
	Credentials []*credentials.Credential
}

// NotarizeResponse indicates how many credentials the responder wrote. The
// requester does not rely on it for completion; it waits until it sees the
// credentials through replication.
type NotarizeResponse struct {
	FromAddr string
	Written  int
}

// SyncRequest is used to retrieve unknown feed messages from another peer.
// The Known map, keyed by hex feed key, represents the highest sequence the
// requester holds for each feed. The SyncLimit indicates the max number of
// messages to include in the response.
type SyncRequest struct {
	FromAddr  string
	Known     map[string]int64
	SyncLimit int
}

// SyncResponse returns the messages requested by a SyncRequest, ordered by
// feed and sequence. The Known map indicates how much the responder knows.
type SyncResponse struct {
	FromAddr string
	Messages []*feed.Message
	Known    map[string]int64
}
