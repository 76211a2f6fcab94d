// Package notarization lets a peer without write access to a space get its
// credentials written by a peer that has it.
//
// A requester calls Plugin.Notarize with a set of signed credentials. The
// plugin asks connected peers, one at a time, to write the credentials to
// their control feed, and returns once every credential has come back
// through the local control pipeline (Plugin.Process). Peers that answer
// with an error are skipped in favour of the next one; once every peer has
// been tried the plugin waits RetryTimeout and starts over. Newly connected
// peers interrupt the wait.
//
// The responder side, Plugin.OnNotarize, verifies the credentials and writes
// them with the Writer installed by SetWriter. Without a writer it answers
// with the WRITER_NOT_SET error code so requesters move on quietly.
package notarization
