/*
Package signaling routes websocket events between connected users.

This file defines the Client, the websocket transport behind a Conn. It owns the
read and write pumps; every decoded frame is handed to the Manager.
*/
package signaling

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"callrelay/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// sendQueueSize is the number of frames buffered per connection.
	sendQueueSize = 256
)

var (
	// ErrSendQueueFull is returned by Send when the client is not draining its queue.
	ErrSendQueueFull = errors.New("signaling: client send queue full")

	// ErrClientClosed is returned by Send after Close.
	ErrClientClosed = errors.New("signaling: client closed")
)

// Client struct represents one websocket connection and implements Conn.
type Client struct {
	// id is the connection handle assigned at upgrade time.
	id string

	// manager receives every inbound frame and the final disconnect.
	manager *Manager

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// mu guards send and closed against a concurrent Close.
	mu sync.Mutex

	// a buffered channel of encoded frames waiting for WritePump.
	send chan []byte

	// closed is set by Close; Send fails afterwards instead of panicking on the closed channel.
	closed bool

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client around an upgraded websocket connection.
// The caller registers it with manager.Connect and then runs WritePump in a
// goroutine and ReadPump on the handler goroutine.
func NewClient(id string, manager *Manager, wsConn *websocket.Conn) *Client {
	return &Client{
		id:      id,
		manager: manager,
		conn:    wsConn,
		send:    make(chan []byte, sendQueueSize),
		logger:  logx.Logger().With().Str("conn_id", id).Logger(),
	}
}

// ID returns the connection handle.
func (c *Client) ID() string {
	return c.id
}

// Send marshals env and queues it without blocking.
// It returns ErrSendQueueFull when the peer is not keeping up and ErrClientClosed
// after Close; in both cases the frame is dropped.
func (c *Client) Send(env Envelope) error {
	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close stops the write pump, which sends a close frame and tears the socket down.
// It is safe to call more than once and from any goroutine.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump reads frames until the connection fails, then disconnects the client
// from the Manager. It keeps the read deadline alive on every Pong and enforces
// maxMessageSize on inbound frames.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.manager.Handle(c.id, frame)
	}
}

// cleanupOnDisconnect removes the client from the Manager and closes the socket
// once ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.manager.Disconnect(c.id)
	c.Close()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump drains the send queue onto the socket and keeps the heartbeat going.
// It exits when the queue is closed or a write fails, closing the socket on the way out.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame reports whether the write loop should continue.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePing sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
