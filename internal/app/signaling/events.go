package signaling

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"callrelay/internal/app/user"
)

// Inbound event names.
const (
	EventJoin          = "join"
	EventUserConnected = "userConnected"
	EventJoinRoom      = "joinRoom"
	EventLeaveRoom     = "leaveRoom"
	EventSendMessage   = "sendMessage"
	EventTyping        = "typing"
	EventStopTyping    = "stopTyping"
	EventStartCall     = "startCall"
	EventAcceptCall    = "acceptCall"
	EventRejectCall    = "rejectCall"
	EventNotAnswered   = "notAnswered"
	EventEndCall       = "endCall"
)

// Outbound event names. rejectCall and notAnswered reuse the inbound names.
const (
	EventUpdateOnlineUsers = "updateOnlineUsers"
	EventRoomNotification  = "roomNotification"
	EventReceiveMessage    = "receiveMessage"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventCallNotification  = "callNotification"
	EventReceiverOffline   = "receiverOffline"
	EventCallAccepted      = "call-accepted"
	EventCallEnded         = "callEnded"
	EventError             = "error"
)

// Inbound is one frame received from a connection.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Envelope is one frame sent to a connection.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// JoinPayload is the body of join / userConnected.
type JoinPayload struct {
	UserID       user.ID `json:"userId"`
	DisplayName  string  `json:"displayName"`
	Username     string  `json:"username,omitempty"`
	ProfileImage string  `json:"profileImage,omitempty"`
}

// Identity returns the asserted identity; username is accepted as a display name alias.
func (p JoinPayload) Identity() user.Identity {
	name := p.DisplayName
	if name == "" {
		name = p.Username
	}
	return user.Identity{UserID: p.UserID, DisplayName: name, ProfileImage: p.ProfileImage}
}

// RoomPayload is the body of joinRoom, leaveRoom, typing and stopTyping.
// Clients may also send the bare room name as a JSON string.
type RoomPayload struct {
	Room string `json:"room"`
}

// UnmarshalJSON accepts {"room": "r1"} or "r1".
func (p *RoomPayload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.Room)
	}

	var obj struct {
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.Room = obj.Room
	return nil
}

// MessagePayload is the body of sendMessage.
type MessagePayload struct {
	Room     string `json:"room"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

// Seconds is a client-supplied span in seconds. It accepts a JSON number
// (fractions allowed), a numeric string such as "30", or null.
type Seconds float64

// UnmarshalJSON accepts 30, 5.5, "30" and null.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}

	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			*s = 0
			return nil
		}
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("seconds must be a finite number, got %s", data)
	}

	*s = Seconds(f)
	return nil
}

// Duration converts s to a time.Duration. Callers bound s first.
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// StartCallPayload is the body of startCall. Duration is in seconds; 0 selects
// the configured default.
type StartCallPayload struct {
	Room               string  `json:"room"`
	CallerID           user.ID `json:"callerId"`
	CallerName         string  `json:"callerName"`
	CallerProfileImage string  `json:"callerProfileImage,omitempty"`
	ReceiverID         user.ID `json:"receiverId"`
	ReceiverName       string  `json:"receiverName"`
	Duration           Seconds `json:"duration"`
}

// CallControlPayload is the body of acceptCall, rejectCall, notAnswered and endCall.
type CallControlPayload struct {
	Room       string  `json:"room"`
	CallerID   user.ID `json:"callerId"`
	ReceiverID user.ID `json:"receiverId"`
}

// CallNotification is sent to the callee when a call starts ringing.
type CallNotification struct {
	Room               string  `json:"room"`
	CallerID           user.ID `json:"callerId"`
	CallerName         string  `json:"callerName"`
	CallerProfileImage string  `json:"callerProfileImage,omitempty"`
	ReceiverName       string  `json:"receiverName"`
	Duration           int64   `json:"duration"`
}

// ReceiverOffline tells the caller the callee cannot be reached.
type ReceiverOffline struct {
	ReceiverName string  `json:"receiverName"`
	ReceiverID   user.ID `json:"receiverId"`
}

// CallAccepted hands the caller its media credential.
type CallAccepted struct {
	Room  string `json:"room"`
	Token string `json:"token"`
}

// CallEvent is the body of rejectCall, notAnswered and callEnded broadcasts.
type CallEvent struct {
	Room       string  `json:"room"`
	CallerID   user.ID `json:"callerId"`
	ReceiverID user.ID `json:"receiverId"`
}

// RoomNotification announces membership changes to a room.
type RoomNotification struct {
	Message string `json:"message"`
}

// ReceivedMessage is a chat line relayed to the rest of a room.
type ReceivedMessage struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// TypingNotice is the body of userTyping and userStoppedTyping.
type TypingNotice struct {
	Username string `json:"username"`
}

// ErrorPayload is sent only to the connection whose event failed.
type ErrorPayload struct {
	Event   string `json:"event"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var errEmptyPayload = errors.New("event payload is empty")

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return errEmptyPayload
	}
	return json.Unmarshal(raw, dst)
}
