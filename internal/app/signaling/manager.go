/*
Package signaling routes websocket events between connected users.

This file defines the Manager, which owns the presence registry, the call session
store and chat room membership behind a single mutex. Handlers mutate that state
under the lock, queue their outbound frames, and deliver them after unlocking so
a slow connection never holds up the rest of the relay.
*/
package signaling

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"callrelay/internal/app/call"
	"callrelay/internal/app/credential"
	"callrelay/internal/app/history"
	"callrelay/internal/app/presence"
	"callrelay/internal/app/user"
	"callrelay/internal/pkg/errs"
	"callrelay/internal/pkg/logx"
)

const (
	// maxPendingHistory bounds the writes waiting for the history loop; beyond it
	// records are dropped and logged.
	maxPendingHistory = 4096

	// historyWriteTimeout caps a single history store call.
	historyWriteTimeout = 5 * time.Second
)

// Conn is one live client connection as seen by the Manager.
type Conn interface {
	// ID returns the connection handle assigned at accept time.
	ID() string

	// Send queues env for delivery without blocking.
	Send(env Envelope) error

	// Close asks the transport to shut the connection down.
	Close()
}

// Options configures a Manager.
type Options struct {
	// Clock drives call expiry timers; nil uses the wall clock.
	Clock clock.Clock

	// Issuer mints the media credential handed to a caller on call-accepted.
	Issuer credential.Issuer

	// History receives call-duration records; nil disables recording.
	History history.Store

	// DefaultCallDuration applies when startCall omits a duration.
	DefaultCallDuration time.Duration

	// MaxCallDuration caps requested durations; zero means no cap.
	MaxCallDuration time.Duration

	// EndCallsOnDisconnect ends a user's calls when their last connection goes away.
	EndCallsOnDisconnect bool
}

// Stats is a point-in-time view of the relay used by the health endpoint.
type Stats struct {
	Connections int `json:"connections"`
	OnlineUsers int `json:"onlineUsers"`
	ActiveCalls int `json:"activeCalls"`
	ChatRooms   int `json:"chatRooms"`
}

// historyOp is one queued history write: a Begin, or a Finish when final is set.
type historyOp struct {
	channel   string
	startedAt time.Time
	final     *history.Record
}

// Manager coordinates presence, calls and chat rooms for every connection.
type Manager struct {
	// opts holds the read-only settings the Manager was built with.
	opts Options

	// mu guards conns, presence, calls, rooms, memberOf and closed.
	mu sync.Mutex

	// conns holds every live connection, joined or not, keyed by connection id.
	conns map[string]Conn

	// presence maps joined connections to identities and resolves user ids.
	presence *presence.Registry

	// calls holds the session of every room with a call in progress.
	calls *call.Store

	// rooms maps a chat room name to its member connection ids; memberOf is the reverse index.
	rooms    map[string]map[string]struct{}
	memberOf map[string]map[string]struct{}

	// closed is set once by Shutdown; later events and timer fires are ignored.
	closed bool

	// histMu guards pending. It is taken briefly, never across a store call, so a
	// stalled history backend cannot hold up mu.
	histMu  sync.Mutex
	pending []historyOp

	// wake nudges runHistoryLoop when pending gains work.
	wake chan struct{}

	// done tells runHistoryLoop to drain pending and exit.
	done chan struct{}

	// wg waits for runHistoryLoop during shutdown.
	wg sync.WaitGroup

	// structured logger with the signaling component tag.
	logger zerolog.Logger
}

// NewManager constructs a Manager and starts its history loop.
func NewManager(opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	m := &Manager{
		opts:     opts,
		conns:    make(map[string]Conn),
		presence: presence.NewRegistry(),
		rooms:    make(map[string]map[string]struct{}),
		memberOf: make(map[string]map[string]struct{}),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		logger:   logx.For("signaling"),
	}
	m.calls = call.NewStore(opts.Clock, m.expire)

	m.wg.Add(1)
	go m.runHistoryLoop()

	return m
}

// runHistoryLoop applies queued history writes one at a time, in the order they
// were queued. On shutdown it drains what is left before returning.
func (m *Manager) runHistoryLoop() {
	defer m.wg.Done()

	m.logger.Info().Msg("History loop started.")

	for {
		select {
		case <-m.wake:
			m.drainHistory()
		case <-m.done:
			m.drainHistory()
			m.logger.Info().Msg("History loop stopped.")
			return
		}
	}
}

func (m *Manager) drainHistory() {
	for {
		m.histMu.Lock()
		batch := m.pending
		m.pending = nil
		m.histMu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, op := range batch {
			m.applyHistory(op)
		}
	}
}

// enqueueHistory appends op without waiting on the store.
func (m *Manager) enqueueHistory(op historyOp) {
	m.histMu.Lock()
	if len(m.pending) >= maxPendingHistory {
		m.histMu.Unlock()
		m.logger.Warn().Str("room", op.channel).Msg("History queue full, dropping call-duration record.")
		return
	}
	m.pending = append(m.pending, op)
	m.histMu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) applyHistory(op historyOp) {
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	var err error
	if op.final != nil {
		err = m.opts.History.Finish(ctx, *op.final)
	} else {
		err = m.opts.History.Begin(ctx, op.channel, op.startedAt)
	}

	if err != nil {
		m.logger.Error().Err(err).Str("room", op.channel).Msg("Failed to write call-duration record.")
	}
}

// recordStart and recordEnd must be called with mu held; queueing under mu keeps
// Begin ahead of Finish for the same call.
func (m *Manager) recordStart(sess call.Session) {
	if m.opts.History == nil || m.closed {
		return
	}
	m.enqueueHistory(historyOp{channel: sess.Room, startedAt: sess.StartedAt})
}

func (m *Manager) recordEnd(sess call.Session) {
	if m.opts.History == nil || m.closed || !sess.Answered() {
		return
	}
	rec := history.Finished(sess.Room, sess.StartedAt, sess.EndedAt)
	m.enqueueHistory(historyOp{channel: sess.Room, final: &rec})
}

// Connect registers a new connection and sends it the current online list.
func (m *Manager) Connect(c Conn) {
	var out outbox

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		c.Close()
		return
	}
	m.conns[c.ID()] = c
	out.add(c, EventUpdateOnlineUsers, m.presence.Snapshot())
	m.mu.Unlock()

	m.logger.Debug().Str("conn_id", c.ID()).Msg("Connection registered.")
	m.flush(out)
}

// Disconnect removes a connection from presence and every chat room. When the
// user has no other connection left their calls are ended if configured to.
func (m *Manager) Disconnect(connID string) {
	var out outbox

	m.mu.Lock()
	if _, ok := m.conns[connID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.conns, connID)

	for room := range m.memberOf[connID] {
		m.removeMember(room, connID)
	}

	identity, joined := m.presence.Leave(connID)
	if joined {
		if _, stillOnline := m.presence.Resolve(identity.UserID); !stillOnline && m.opts.EndCallsOnDisconnect {
			m.endCallsOf(identity.UserID, &out)
		}
		m.broadcastOnline(&out)
	}
	m.mu.Unlock()

	m.logger.Debug().Str("conn_id", connID).Bool("was_joined", joined).Msg("Connection removed.")
	m.flush(out)
}

// endCallsOf ends every session involving id. Caller holds mu.
func (m *Manager) endCallsOf(id user.ID, out *outbox) {
	for _, room := range m.calls.RoomsOf(id) {
		sess, err := m.calls.End(room)
		if err != nil {
			continue
		}
		m.recordEnd(sess)
		out.addAll(m.callScope(sess), EventCallEnded, callEvent(sess))

		m.logger.Info().
			Str("room", room).
			Str("user_id", string(id)).
			Msg("Call ended because a participant disconnected.")
	}
}

// Handle decodes one inbound frame from connID and dispatches it.
func (m *Manager) Handle(connID string, raw []byte) {
	m.mu.Lock()
	conn, ok := m.conns[connID]
	closed := m.closed
	m.mu.Unlock()

	if !ok || closed {
		return
	}

	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		m.logger.Warn().Err(err).Str("conn_id", connID).Msg("Client sent invalid JSON")
		m.sendError(conn, "", errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	var out outbox
	var cerr *errs.CustomError

	switch in.Event {
	case EventJoin, EventUserConnected:
		cerr = m.handleJoin(conn, in.Data, &out)
	case EventJoinRoom:
		cerr = m.handleJoinRoom(conn, in.Data, &out)
	case EventLeaveRoom:
		cerr = m.handleLeaveRoom(conn, in.Data, &out)
	case EventSendMessage:
		cerr = m.handleSendMessage(conn, in.Data, &out)
	case EventTyping:
		cerr = m.handleTyping(conn, in.Data, EventUserTyping, &out)
	case EventStopTyping:
		cerr = m.handleTyping(conn, in.Data, EventUserStoppedTyping, &out)
	case EventStartCall:
		cerr = m.handleStartCall(conn, in.Data, &out)
	case EventAcceptCall:
		cerr = m.handleAcceptCall(conn, in.Data, &out)
	case EventRejectCall:
		cerr = m.handleDecline(conn, in.Data, EventRejectCall, &out)
	case EventNotAnswered:
		cerr = m.handleDecline(conn, in.Data, EventNotAnswered, &out)
	case EventEndCall:
		cerr = m.handleEndCall(conn, in.Data, &out)
	default:
		m.logger.Warn().Str("event", in.Event).Str("conn_id", connID).Msg("Client sent unsupported event")
		cerr = errs.NewError(errs.ErrUnknownEvent, in.Event)
	}

	m.flush(out)

	if cerr != nil {
		m.sendError(conn, in.Event, cerr)
	}
}

func (m *Manager) handleJoin(conn Conn, raw json.RawMessage, out *outbox) *errs.CustomError {
	var p JoinPayload
	if err := decode(raw, &p); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}
	if p.UserID == "" {
		return errs.NewError(errs.ErrUserIDRequired)
	}

	identity := p.Identity()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.presence.Join(conn.ID(), identity)
	m.broadcastOnline(out)

	m.logger.Info().
		Str("conn_id", conn.ID()).
		Str("user_id", string(identity.UserID)).
		Str("display_name", identity.DisplayName).
		Msg("User joined.")
	return nil
}

// broadcastOnline queues the online snapshot for every connection. Caller holds mu.
func (m *Manager) broadcastOnline(out *outbox) {
	online := m.presence.Snapshot()
	for _, c := range m.conns {
		out.add(c, EventUpdateOnlineUsers, online)
	}
}

// Stats reports current counts.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Connections: len(m.conns),
		OnlineUsers: len(m.presence.Snapshot()),
		ActiveCalls: m.calls.Len(),
		ChatRooms:   len(m.rooms),
	}
}

// Shutdown cancels every call timer, closes all connections and waits for
// pending history writes to drain.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down signaling manager...")

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.calls.Clear()

	conns := make([]Conn, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}

	close(m.done)
	m.wg.Wait()

	m.logger.Info().Msg("Signaling manager shutdown complete.")
}

func (m *Manager) sendError(conn Conn, event string, cerr *errs.CustomError) {
	payload := ErrorPayload{Event: event, Code: cerr.Code, Message: cerr.Message}
	if err := conn.Send(Envelope{Event: EventError, Data: payload}); err != nil {
		m.logger.Warn().Err(err).Str("conn_id", conn.ID()).Msg("Failed to queue error event")
	}
}

func (m *Manager) flush(out outbox) {
	for _, d := range out {
		if err := d.conn.Send(d.env); err != nil {
			m.logger.Warn().Err(err).
				Str("conn_id", d.conn.ID()).
				Str("event", d.env.Event).
				Msg("Dropped outbound event")
		}
	}
}

type delivery struct {
	conn Conn
	env  Envelope
}

// outbox collects frames produced under the lock for delivery after it is released.
type outbox []delivery

func (o *outbox) add(c Conn, event string, data any) {
	*o = append(*o, delivery{conn: c, env: Envelope{Event: event, Data: data}})
}

func (o *outbox) addAll(conns []Conn, event string, data any) {
	for _, c := range conns {
		o.add(c, event, data)
	}
}
