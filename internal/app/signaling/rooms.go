package signaling

import (
	"encoding/json"
	"fmt"

	"callrelay/internal/pkg/errs"
)

const (
	anonymousName = "Anonymous"

	// MaxChatRoomBytes caps chat room names. Chat rooms are free-form; only call
	// rooms double as credential channels and use the stricter channel charset.
	MaxChatRoomBytes = 256
)

// validateChatRoom accepts any non-empty name up to MaxChatRoomBytes.
func validateChatRoom(room string) *errs.CustomError {
	if room == "" {
		return errs.NewError(errs.ErrChannelRequired)
	}
	if len(room) > MaxChatRoomBytes {
		return errs.NewError(errs.ErrChannelInvalid)
	}
	return nil
}

// displayName returns the joined name of connID. Caller holds mu.
func (m *Manager) displayName(connID string) string {
	if identity, ok := m.presence.Identity(connID); ok && identity.DisplayName != "" {
		return identity.DisplayName
	}
	return anonymousName
}

// othersIn lists the live members of room except connID. Caller holds mu.
func (m *Manager) othersIn(room, connID string) []Conn {
	var conns []Conn
	for id := range m.rooms[room] {
		if id == connID {
			continue
		}
		if c, ok := m.conns[id]; ok {
			conns = append(conns, c)
		}
	}
	return conns
}

// removeMember drops connID from room and forgets empty rooms. Caller holds mu.
func (m *Manager) removeMember(room, connID string) bool {
	members, ok := m.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[connID]; !ok {
		return false
	}

	delete(members, connID)
	if len(members) == 0 {
		delete(m.rooms, room)
	}

	if joined := m.memberOf[connID]; joined != nil {
		delete(joined, room)
		if len(joined) == 0 {
			delete(m.memberOf, connID)
		}
	}
	return true
}

func decodeRoom(raw json.RawMessage) (string, *errs.CustomError) {
	var p RoomPayload
	if err := decode(raw, &p); err != nil {
		return "", errs.NewError(errs.ErrInvalidJSONFormat)
	}
	if cerr := validateChatRoom(p.Room); cerr != nil {
		return "", cerr
	}
	return p.Room, nil
}

func (m *Manager) handleJoinRoom(conn Conn, raw json.RawMessage, out *outbox) *errs.CustomError {
	room, cerr := decodeRoom(raw)
	if cerr != nil {
		return cerr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		m.rooms[room] = members
	}
	if _, already := members[conn.ID()]; already {
		return nil
	}
	members[conn.ID()] = struct{}{}

	joined, ok := m.memberOf[conn.ID()]
	if !ok {
		joined = make(map[string]struct{})
		m.memberOf[conn.ID()] = joined
	}
	joined[room] = struct{}{}

	name := m.displayName(conn.ID())
	out.addAll(m.othersIn(room, conn.ID()), EventRoomNotification,
		RoomNotification{Message: fmt.Sprintf("%s has joined the room.", name)})

	m.logger.Debug().Str("room", room).Str("conn_id", conn.ID()).Msg("Connection joined chat room.")
	return nil
}

func (m *Manager) handleLeaveRoom(conn Conn, raw json.RawMessage, out *outbox) *errs.CustomError {
	room, cerr := decodeRoom(raw)
	if cerr != nil {
		return cerr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.removeMember(room, conn.ID()) {
		return nil
	}

	name := m.displayName(conn.ID())
	out.addAll(m.othersIn(room, conn.ID()), EventRoomNotification,
		RoomNotification{Message: fmt.Sprintf("%s has left the room.", name)})

	m.logger.Debug().Str("room", room).Str("conn_id", conn.ID()).Msg("Connection left chat room.")
	return nil
}

func (m *Manager) handleSendMessage(conn Conn, raw json.RawMessage, out *outbox) *errs.CustomError {
	var p MessagePayload
	if err := decode(raw, &p); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}
	if cerr := validateChatRoom(p.Room); cerr != nil {
		return cerr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	username := p.Username
	if username == "" {
		username = m.displayName(conn.ID())
	}
	out.addAll(m.othersIn(p.Room, conn.ID()), EventReceiveMessage,
		ReceivedMessage{Message: p.Message, Username: username})
	return nil
}

// handleTyping relays typing and stopTyping as event to the rest of the room.
func (m *Manager) handleTyping(conn Conn, raw json.RawMessage, event string, out *outbox) *errs.CustomError {
	room, cerr := decodeRoom(raw)
	if cerr != nil {
		return cerr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out.addAll(m.othersIn(room, conn.ID()), event, TypingNotice{Username: m.displayName(conn.ID())})
	return nil
}
