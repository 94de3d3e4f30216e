package hub

import "sort"

// IdentityRegistry tracks which connections each display identity owns.
//
// An identity may own several connections at once (the same user in two
// browser tabs), so entries hold a list rather than a single connection.
// The list preserves registration order: element zero is the oldest open
// connection, which is the one invitation failure notices are addressed to.
//
// The registry is not safe for concurrent use on its own; the Hub serializes
// all access behind its mutex.
type IdentityRegistry struct {
	conns map[string][]string // identity -> connection ids, oldest first
	owner map[string]string   // connection id -> identity
}

func NewIdentityRegistry() *IdentityRegistry {
	return &IdentityRegistry{
		conns: make(map[string][]string),
		owner: make(map[string]string),
	}
}

// Register adds conn to identity's connection list, creating the identity on
// first sight. A connection belongs to at most one identity; any stale
// ownership of conn by another identity is dropped first.
func (r *IdentityRegistry) Register(identity, conn string) {
	if prev, ok := r.owner[conn]; ok && prev != identity {
		r.dropConn(prev, conn)
	}
	if !containsString(r.conns[identity], conn) {
		r.conns[identity] = append(r.conns[identity], conn)
	}
	r.owner[conn] = identity
}

// UnregisterConnection removes conn from its owning identity and deletes the
// identity once its connection list is empty. It reports the identity that
// owned conn and whether that identity still has other open connections.
//
// Unknown connections are a no-op, so redundant cleanup (a disconnect racing
// a late leave) is safe.
func (r *IdentityRegistry) UnregisterConnection(conn string) (identity string, online bool, ok bool) {
	identity, ok = r.owner[conn]
	if !ok {
		return "", false, false
	}
	delete(r.owner, conn)
	r.dropConn(identity, conn)
	_, online = r.conns[identity]
	return identity, online, true
}

// ConnectionsOf returns a copy of identity's open connections, oldest first.
// The result is empty for unknown identities.
func (r *IdentityRegistry) ConnectionsOf(identity string) []string {
	list := r.conns[identity]
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// AllIdentities returns a sorted snapshot of every identity with at least one
// open connection.
func (r *IdentityRegistry) AllIdentities() []string {
	out := make([]string, 0, len(r.conns))
	for identity := range r.conns {
		out = append(out, identity)
	}
	sort.Strings(out)
	return out
}

func (r *IdentityRegistry) dropConn(identity, conn string) {
	list := r.conns[identity]
	for i, c := range list {
		if c == conn {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.conns, identity)
		return
	}
	r.conns[identity] = list
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
