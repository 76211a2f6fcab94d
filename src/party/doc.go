// Package party derives the membership and feed topology of a space from an
// ordered stream of credentials.
//
// PartyStateMachine is the entry point. It verifies each credential, checks
// that its issuer is authorized, and delegates to MemberStateMachine or
// FeedStateMachine. Credentials are applied strictly in the order they are
// processed; callers replaying feeds are responsible for presenting
// credentials in an order consistent with their delegation dependencies.
//
// None of the types in this package are safe for concurrent use. A space has
// a single owner that serializes calls to Process.
package party
