// Package session provides the per-request session object and the
// server-side stores that persist session data.
//
// A [Session] is a map of values with bookkeeping flags: Modified is set by
// every write, Accessed by every read or write, and Permanent selects a
// persistent cookie. Each request decodes its own Session, so concurrent
// requests carrying the same session id never share an instance.
//
// Stores keep encoded session data keyed by session id:
//
//	store := session.NewMemoryStore(session.WithMaxEntries(10_000))
//	store := session.NewRedisStore(client, session.WithPrefix("sess"))
//
// Concurrent loads of the same id are coalesced into one backend call.
package session
