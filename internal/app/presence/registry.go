/*
Package presence tracks which connections have joined and who they claim to be.

The registry is keyed by connection handle, with a secondary user id index for
O(1) call routing. It is not safe for concurrent use: the signaling Manager owns it
and serializes every call under its own lock.
*/
package presence

import "callrelay/internal/app/user"

// Entry is one online user as published in presence broadcasts.
type Entry struct {
	user.Identity
	ConnectionID string `json:"connectionId"`
}

// Registry maps connection handles to identities.
type Registry struct {
	byConn map[string]user.Identity

	// byUser points at the connection that most recently joined as each user.
	byUser map[user.ID]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]user.Identity),
		byUser: make(map[user.ID]string),
	}
}

// Join attaches identity to connID, replacing any identity the connection had before.
// The connection becomes the routing target for identity.UserID; a different connection
// previously joined as the same user stays registered but is no longer resolved.
func (r *Registry) Join(connID string, identity user.Identity) {
	if prev, ok := r.byConn[connID]; ok && prev.UserID != identity.UserID {
		r.unindex(connID, prev.UserID)
	}

	r.byConn[connID] = identity
	r.byUser[identity.UserID] = connID
}

// Leave removes connID. It returns the identity it held and false if the connection
// never joined, which makes duplicate disconnects harmless.
func (r *Registry) Leave(connID string) (user.Identity, bool) {
	identity, ok := r.byConn[connID]
	if !ok {
		return user.Identity{}, false
	}

	delete(r.byConn, connID)
	r.unindex(connID, identity.UserID)

	return identity, true
}

// unindex drops the user index entry if it points at connID, falling back to any
// other connection still joined as the same user.
func (r *Registry) unindex(connID string, userID user.ID) {
	if r.byUser[userID] != connID {
		return
	}

	delete(r.byUser, userID)

	for other, identity := range r.byConn {
		if other != connID && identity.UserID == userID {
			r.byUser[userID] = other
			return
		}
	}
}

// Resolve returns the connection currently routed for userID.
func (r *Registry) Resolve(userID user.ID) (string, bool) {
	connID, ok := r.byUser[userID]
	return connID, ok
}

// Identity returns the identity attached to connID.
func (r *Registry) Identity(connID string) (user.Identity, bool) {
	identity, ok := r.byConn[connID]
	return identity, ok
}

// Snapshot returns the online users keyed by user id, each with the connection
// that currently resolves it. It is the body of the presence broadcast.
func (r *Registry) Snapshot() map[user.ID]Entry {
	out := make(map[user.ID]Entry, len(r.byUser))
	for userID, connID := range r.byUser {
		out[userID] = Entry{Identity: r.byConn[connID], ConnectionID: connID}
	}
	return out
}

// Len returns the number of joined connections.
func (r *Registry) Len() int {
	return len(r.byConn)
}
