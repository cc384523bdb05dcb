// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package websocket

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/tickguard/internal/detection"
	"github.com/tomtom215/tickguard/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 256
)

// clientIDCounter gives clients a stable broadcast order.
var clientIDCounter atomic.Uint64

// Client is a middleman between the websocket connection and the hub
type Client struct {
	id          uint64
	hub         *Hub
	conn        *websocket.Conn
	send        chan Message
	minStrategy atomic.Int32
}

// clientMessage is what clients send to the hub.
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type subscribeRequest struct {
	MinStrategy string `json:"min_strategy"`
}

// NewClient creates a new Client with a unique ID
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer),
	}
}

// ID returns the client's unique identifier
func (c *Client) ID() uint64 {
	return c.id
}

// MinStrategy returns the lowest violation strategy the client receives.
func (c *Client) MinStrategy() detection.Strategy {
	return detection.Strategy(c.minStrategy.Load())
}

// SetMinStrategy narrows the violation stream to s and above.
func (c *Client) SetMinStrategy(s detection.Strategy) {
	c.minStrategy.Store(int32(s))
}

// handleClientMessage applies one client request and returns the reply, if any.
func (c *Client) handleClientMessage(msg clientMessage) (Message, bool) {
	switch msg.Type {
	case MessageTypePing:
		return Message{Type: MessageTypePong}, true
	case MessageTypeSubscribe:
		var req subscribeRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			logging.Debug().Err(err).Uint64("client_id", c.id).Msg("invalid subscribe request")
			return Message{}, false
		}
		s, err := detection.ParseStrategy(strings.TrimSpace(req.MinStrategy))
		if err != nil {
			logging.Debug().Err(err).Uint64("client_id", c.id).Msg("invalid subscribe strategy")
			return Message{}, false
		}
		c.SetMinStrategy(s)
	}
	return Message{}, false
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			return
		}

		if reply, ok := c.handleClientMessage(msg); ok {
			select {
			case c.send <- reply:
			default:
			}
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Debug().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
