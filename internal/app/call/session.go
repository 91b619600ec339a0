/*
Package call keeps the per-room call session records and their expiry timers.
*/
package call

import (
	"errors"
	"time"

	"callrelay/internal/app/user"
)

var (
	// ErrSessionConflict is returned by Start when the room already has a session.
	ErrSessionConflict = errors.New("call: room already has an active session")

	// ErrNoSuchSession is returned when the room has no session.
	ErrNoSuchSession = errors.New("call: no active session for room")

	// ErrNotRinging is returned when an operation needs a ringing call but it was answered.
	ErrNotRinging = errors.New("call: session is not ringing")

	// ErrInvalidLimit is returned by Start for a non-positive duration limit.
	ErrInvalidLimit = errors.New("call: duration limit must be positive")
)

// State is the lifecycle position of a live session.
type State int

const (
	// StateRinging means the callee has been notified and has not answered.
	StateRinging State = iota + 1

	// StateActive means the callee accepted.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateRinging:
		return "ringing"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Session is one call attempt occupying a room.
type Session struct {
	Room string

	CallerID           user.ID
	ReceiverID         user.ID
	CallerName         string
	ReceiverName       string
	CallerProfileImage string

	// Limit is the negotiated maximum lifetime; the session expires Limit after creation.
	Limit time.Duration

	CreatedAt time.Time

	// StartedAt is zero until the call is accepted.
	StartedAt time.Time

	// EndedAt and Duration are set on the record returned when the session is removed.
	// Duration stays zero for calls that were never accepted.
	EndedAt  time.Time
	Duration time.Duration

	// seq identifies this session among all sessions ever started, so a timer armed for
	// an earlier call in the same room cannot end a later one.
	seq uint64
}

// State reports whether the call is ringing or active.
func (s Session) State() State {
	if s.StartedAt.IsZero() {
		return StateRinging
	}
	return StateActive
}

// Answered reports whether the call was accepted.
func (s Session) Answered() bool {
	return !s.StartedAt.IsZero()
}

// Seq returns the session generation number.
func (s Session) Seq() uint64 {
	return s.seq
}

// Involves reports whether id is the caller or the receiver.
func (s Session) Involves(id user.ID) bool {
	return s.CallerID == id || s.ReceiverID == id
}

// StartParams describes a new call.
type StartParams struct {
	Room               string
	CallerID           user.ID
	ReceiverID         user.ID
	CallerName         string
	ReceiverName       string
	CallerProfileImage string
	Limit              time.Duration
}
