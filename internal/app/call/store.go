package call

import (
	"github.com/benbjohnson/clock"

	"callrelay/internal/app/user"
)

// ExpireFunc is invoked from a timer goroutine when a session's limit elapses.
// It receives the room and the generation of the session the timer was armed for.
type ExpireFunc func(room string, seq uint64)

type entry struct {
	session Session
	timer   *clock.Timer
}

// Store maps rooms to their live session. It is not safe for concurrent use;
// the signaling Manager serializes access, including the calls it makes from
// ExpireFunc.
type Store struct {
	clock    clock.Clock
	onExpire ExpireFunc

	sessions map[string]*entry
	seq      uint64
}

// NewStore returns an empty store whose timers run on clk and report to onExpire.
func NewStore(clk clock.Clock, onExpire ExpireFunc) *Store {
	if clk == nil {
		clk = clock.New()
	}

	return &Store{
		clock:    clk,
		onExpire: onExpire,
		sessions: make(map[string]*entry),
	}
}

// Start creates a ringing session and arms its expiry timer.
// An occupied room is rejected with ErrSessionConflict and left untouched.
func (s *Store) Start(p StartParams) (Session, error) {
	if _, ok := s.sessions[p.Room]; ok {
		return Session{}, ErrSessionConflict
	}
	if p.Limit <= 0 {
		return Session{}, ErrInvalidLimit
	}

	s.seq++
	sess := Session{
		Room:               p.Room,
		CallerID:           p.CallerID,
		ReceiverID:         p.ReceiverID,
		CallerName:         p.CallerName,
		ReceiverName:       p.ReceiverName,
		CallerProfileImage: p.CallerProfileImage,
		Limit:              p.Limit,
		CreatedAt:          s.clock.Now(),
		seq:                s.seq,
	}

	e := &entry{session: sess}
	if s.onExpire != nil {
		room, seq := p.Room, sess.seq
		e.timer = s.clock.AfterFunc(p.Limit, func() { s.onExpire(room, seq) })
	}
	s.sessions[p.Room] = e

	return sess, nil
}

// Accept moves a ringing session to active and stamps StartedAt.
func (s *Store) Accept(room string) (Session, error) {
	e, ok := s.sessions[room]
	if !ok {
		return Session{}, ErrNoSuchSession
	}
	if e.session.Answered() {
		return Session{}, ErrNotRinging
	}

	e.session.StartedAt = s.clock.Now()
	return e.session, nil
}

// End removes the session in any state, cancels its timer and returns the final record.
func (s *Store) End(room string) (Session, error) {
	if _, ok := s.sessions[room]; !ok {
		return Session{}, ErrNoSuchSession
	}
	return s.remove(room), nil
}

// Decline removes a session that is still ringing (reject, not answered).
// Answered calls are left alone and reported with ErrNotRinging.
func (s *Store) Decline(room string) (Session, error) {
	e, ok := s.sessions[room]
	if !ok {
		return Session{}, ErrNoSuchSession
	}
	if e.session.Answered() {
		return Session{}, ErrNotRinging
	}
	return s.remove(room), nil
}

// Expire removes the session if it is still the generation seq. It returns false
// when the session was already ended or the room now holds a newer call.
func (s *Store) Expire(room string, seq uint64) (Session, bool) {
	e, ok := s.sessions[room]
	if !ok || e.session.seq != seq {
		return Session{}, false
	}
	return s.remove(room), true
}

func (s *Store) remove(room string) Session {
	e := s.sessions[room]
	delete(s.sessions, room)

	if e.timer != nil {
		e.timer.Stop()
	}

	final := e.session
	final.EndedAt = s.clock.Now()
	if final.Answered() {
		final.Duration = final.EndedAt.Sub(final.StartedAt)
	}
	return final
}

// Get returns the live session for room.
func (s *Store) Get(room string) (Session, bool) {
	e, ok := s.sessions[room]
	if !ok {
		return Session{}, false
	}
	return e.session, true
}

// RoomsOf lists the rooms whose session involves id.
func (s *Store) RoomsOf(id user.ID) []string {
	var rooms []string
	for room, e := range s.sessions {
		if e.session.Involves(id) {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return len(s.sessions)
}

// Clear stops every timer and drops all sessions.
func (s *Store) Clear() {
	for room, e := range s.sessions {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.sessions, room)
	}
}
