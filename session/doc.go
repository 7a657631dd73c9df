// Package session is the thin semantic layer between the engine and the
// Redis cache that owns session state.
//
// Two key families exist per live session: the primary entry
// session:<sid> -> userID and a tracking entry session:<uid>:<sid> -> sid.
// The tracking entry exists only so that every live session of one user can
// be found by prefix without a full keyspace scan. Login challenges live in
// their own short-TTL namespace and never gain a tracking entry.
package session
