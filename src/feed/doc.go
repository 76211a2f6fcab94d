// Package feed stores the append-only logs that make up a space.
//
// A feed is an ordered sequence of credential messages identified by a
// public key. Local feeds are written through a Writer; remote feeds are
// filled by replication, which only accepts the next message in sequence.
// FeedStore sits on top of a Store (InmemStore or BadgerStore), tracks which
// feeds are writable, and notifies subscribers of every appended message.
package feed
