package signaling

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"callrelay/internal/app/call"
	"callrelay/internal/app/credential"
	"callrelay/internal/pkg/errs"
	"callrelay/internal/pkg/randx"
)

// validateCallRoom checks a call room name. The room becomes the media channel of
// the call credential, so it must satisfy the channel charset.
func validateCallRoom(room string) *errs.CustomError {
	if room == "" {
		return errs.NewError(errs.ErrChannelRequired)
	}
	if !randx.IsValidChannel(room) {
		return errs.NewError(errs.ErrChannelInvalid)
	}
	return nil
}

// callError maps call store errors onto wire codes.
func callError(err error) *errs.CustomError {
	switch {
	case errors.Is(err, call.ErrNoSuchSession):
		return errs.NewError(errs.ErrNoSuchSession)
	case errors.Is(err, call.ErrNotRinging):
		return errs.NewError(errs.ErrCallNotRinging)
	case errors.Is(err, call.ErrSessionConflict):
		return errs.NewError(errs.ErrSessionConflict)
	case errors.Is(err, call.ErrInvalidLimit):
		return errs.NewError(errs.ErrDurationInvalid)
	default:
		return errs.From(err)
	}
}

func callEvent(sess call.Session) CallEvent {
	return CallEvent{Room: sess.Room, CallerID: sess.CallerID, ReceiverID: sess.ReceiverID}
}

// maxLimitSeconds is the longest limit a time.Duration can hold.
const maxLimitSeconds = float64(math.MaxInt64 / int64(time.Second))

// callLimit turns the requested seconds into the session limit: 0 selects the
// default, values above MaxCallDuration are capped.
func (m *Manager) callLimit(seconds Seconds) (time.Duration, *errs.CustomError) {
	secs := float64(seconds)
	if secs < 0 {
		return 0, errs.NewError(errs.ErrDurationInvalid)
	}

	var limit time.Duration
	switch {
	case secs == 0:
		limit = m.opts.DefaultCallDuration
	case m.opts.MaxCallDuration > 0 && secs > m.opts.MaxCallDuration.Seconds():
		limit = m.opts.MaxCallDuration
	case secs > maxLimitSeconds:
		return 0, errs.NewError(errs.ErrDurationInvalid)
	default:
		limit = seconds.Duration()
	}

	if m.opts.MaxCallDuration > 0 && limit > m.opts.MaxCallDuration {
		limit = m.opts.MaxCallDuration
	}
	if limit <= 0 {
		return 0, errs.NewError(errs.ErrDurationInvalid)
	}
	return limit, nil
}

// callScope lists the room members plus both participants' current connections,
// each once. Caller holds mu.
func (m *Manager) callScope(sess call.Session) []Conn {
	seen := make(map[string]struct{})
	var scope []Conn

	addConn := func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		if c, ok := m.conns[id]; ok {
			seen[id] = struct{}{}
			scope = append(scope, c)
		}
	}

	for id := range m.rooms[sess.Room] {
		addConn(id)
	}
	if id, ok := m.presence.Resolve(sess.CallerID); ok {
		addConn(id)
	}
	if id, ok := m.presence.Resolve(sess.ReceiverID); ok {
		addConn(id)
	}

	return scope
}

func (m *Manager) handleStartCall(conn Conn, raw json.RawMessage, out *outbox) *errs.CustomError {
	var p StartCallPayload
	if err := decode(raw, &p); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}
	if cerr := validateCallRoom(p.Room); cerr != nil {
		return cerr
	}
	if p.ReceiverID == "" {
		return errs.NewError(errs.ErrUserIDRequired)
	}

	limit, cerr := m.callLimit(p.Duration)
	if cerr != nil {
		return cerr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	receiverConn, online := m.presence.Resolve(p.ReceiverID)
	receiver, live := m.conns[receiverConn]
	if !online || !live {
		out.add(conn, EventReceiverOffline, ReceiverOffline{ReceiverName: p.ReceiverName, ReceiverID: p.ReceiverID})
		m.logger.Info().
			Str("room", p.Room).
			Str("receiver_id", string(p.ReceiverID)).
			Msg("Call target is offline.")
		return nil
	}

	sess, err := m.calls.Start(call.StartParams{
		Room:               p.Room,
		CallerID:           p.CallerID,
		ReceiverID:         p.ReceiverID,
		CallerName:         p.CallerName,
		ReceiverName:       p.ReceiverName,
		CallerProfileImage: p.CallerProfileImage,
		Limit:              limit,
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("room", p.Room).Msg("Rejected startCall.")
		return callError(err)
	}

	out.add(receiver, EventCallNotification, CallNotification{
		Room:               sess.Room,
		CallerID:           sess.CallerID,
		CallerName:         sess.CallerName,
		CallerProfileImage: sess.CallerProfileImage,
		ReceiverName:       sess.ReceiverName,
		Duration:           int64(sess.Limit / time.Second),
	})

	m.logger.Info().
		Str("room", sess.Room).
		Str("caller_id", string(sess.CallerID)).
		Str("receiver_id", string(sess.ReceiverID)).
		Dur("limit", sess.Limit).
		Msg("Call ringing.")
	return nil
}

// handleAcceptCall mints the caller's credential outside the lock, then accepts
// the session only if it is still the same ringing call. Any room that is not
// ringing reports ErrNoSuchSession.
func (m *Manager) handleAcceptCall(conn Conn, raw json.RawMessage, out *outbox) *errs.CustomError {
	var p CallControlPayload
	if err := decode(raw, &p); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}
	if cerr := validateCallRoom(p.Room); cerr != nil {
		return cerr
	}

	m.mu.Lock()
	ringing, ok := m.calls.Get(p.Room)
	m.mu.Unlock()

	if !ok || ringing.State() != call.StateRinging {
		return errs.NewError(errs.ErrNoSuchSession)
	}

	token, err := m.opts.Issuer.Issue(ringing.Room, ringing.CallerID.Numeric(), credential.RolePublisher, ringing.Limit)
	if err != nil {
		m.logger.Error().Err(err).Str("room", p.Room).Msg("Failed to issue call credential.")
		return errs.NewError(errs.ErrCredentialIssue)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.calls.Get(p.Room); !ok || current.Seq() != ringing.Seq() {
		return errs.NewError(errs.ErrNoSuchSession)
	}

	sess, err := m.calls.Accept(p.Room)
	if err != nil {
		return errs.NewError(errs.ErrNoSuchSession)
	}
	m.recordStart(sess)

	if callerConn, ok := m.presence.Resolve(sess.CallerID); ok {
		if caller, live := m.conns[callerConn]; live {
			out.add(caller, EventCallAccepted, CallAccepted{Room: sess.Room, Token: token})
		}
	} else {
		m.logger.Warn().Str("room", sess.Room).Msg("Call accepted but the caller is offline.")
	}

	m.logger.Info().
		Str("room", sess.Room).
		Str("caller_id", string(sess.CallerID)).
		Str("receiver_id", string(sess.ReceiverID)).
		Msg("Call accepted.")
	return nil
}

// handleDecline serves rejectCall and notAnswered; both end a ringing call.
func (m *Manager) handleDecline(conn Conn, raw json.RawMessage, event string, out *outbox) *errs.CustomError {
	var p CallControlPayload
	if err := decode(raw, &p); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}
	if cerr := validateCallRoom(p.Room); cerr != nil {
		return cerr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.calls.Decline(p.Room)
	if err != nil {
		return callError(err)
	}
	out.addAll(m.callScope(sess), event, callEvent(sess))

	m.logger.Info().Str("room", sess.Room).Str("reason", event).Msg("Call declined.")
	return nil
}

func (m *Manager) handleEndCall(conn Conn, raw json.RawMessage, out *outbox) *errs.CustomError {
	var p CallControlPayload
	if err := decode(raw, &p); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}
	if cerr := validateCallRoom(p.Room); cerr != nil {
		return cerr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.calls.End(p.Room)
	if err != nil {
		return callError(err)
	}
	m.recordEnd(sess)
	out.addAll(m.callScope(sess), EventCallEnded, callEvent(sess))

	m.logger.Info().
		Str("room", sess.Room).
		Stringer("state", sess.State()).
		Dur("duration", sess.Duration).
		Msg("Call ended.")
	return nil
}

// expire is the call store's timer callback.
func (m *Manager) expire(room string, seq uint64) {
	var out outbox

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	sess, ok := m.calls.Expire(room, seq)
	if ok {
		m.recordEnd(sess)
		out.addAll(m.callScope(sess), EventCallEnded, callEvent(sess))
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	m.logger.Info().
		Str("room", room).
		Dur("limit", sess.Limit).
		Msg("Call duration expired.")
	m.flush(out)
}
