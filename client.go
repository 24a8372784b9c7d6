package main

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
	binaryMarker      = 0xFF
)

// Client represents a WebSocket connection on the room service
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	cid        string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	log        *logrus.Entry

	// set by a successful join
	roomID   string
	identity string
	perm     string
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	cid := uuid.NewString()
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		cid:        cid,
		remoteAddr: remoteAddr,
		log:        componentLog("client").WithFields(logrus.Fields{"cid": cid, "ip": remoteAddr}),
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("ws error")
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn("rate limit exceeded, disconnecting")
			break
		}

		if !c.handleMessage(message) {
			break
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == binaryMarker {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.WithError(err).Error("marshal")
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = binaryMarker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope).
// Returns false when the connection should be closed.
func (c *Client) handleMessage(raw []byte) bool {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.WithError(err).Debug("unmarshal")
		return true
	}

	if env.T != MsgJoin && c.roomID == "" {
		c.sendError("join first")
		return true
	}

	switch env.T {
	case MsgJoin:
		return c.handleJoin(env.D)
	case MsgPresence:
		c.handlePresence(env.D)
	case MsgPush:
		c.handlePush(env.D)
	case MsgClear:
		c.handleClear(env.D)
	case MsgLeave:
		c.handleLeave()
	}
	return true
}

func (c *Client) handleJoin(data json.RawMessage) bool {
	if c.roomID != "" {
		c.sendError("already joined")
		return true
	}
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("bad join")
		return true
	}
	claims, err := c.hub.auth.ValidateRoomToken(msg.Token)
	if err != nil {
		c.log.WithError(err).Info("join rejected")
		c.sendError("invalid token")
		return false
	}

	// welcome goes out before the join so it precedes the storage snapshot
	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		ConnectionID: c.cid,
		Identity:     claims.Identity,
		Room:         claims.Room,
		Info:         claims.Info,
	}})
	if _, err := c.hub.rooms.Join(claims.Room, c.cid, claims.Identity, claims.Info, c); err != nil {
		c.sendError(err.Error())
		return false
	}
	c.roomID = claims.Room
	c.identity = claims.Identity
	c.perm = claims.Perm
	c.log = c.log.WithFields(logrus.Fields{"room": c.roomID, "identity": c.identity})
	c.log.Info("joined")
	return true
}

func (c *Client) room() *Room {
	return c.hub.rooms.Get(c.roomID)
}

func (c *Client) canWrite() bool {
	if c.perm != PermFullAccess {
		c.sendError("read only")
		return false
	}
	return true
}

func (c *Client) handlePresence(data json.RawMessage) {
	if !c.canWrite() {
		return
	}
	var p Presence
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if room := c.room(); room != nil {
		room.UpdatePresence(c.cid, p)
	}
}

func (c *Client) handlePush(data json.RawMessage) {
	if !c.canWrite() {
		return
	}
	var msg PushMsg
	if err := json.Unmarshal(data, &msg); err != nil || msg.Item == "" {
		return
	}
	if room := c.room(); room != nil {
		if err := room.Push(c.cid, msg.List, msg.Item); err != nil {
			c.sendError(err.Error())
		}
	}
}

func (c *Client) handleClear(data json.RawMessage) {
	if !c.canWrite() {
		return
	}
	var msg ClearMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if room := c.room(); room != nil {
		if err := room.Clear(c.cid, msg.List); err != nil {
			c.sendError(err.Error())
		}
	}
}

func (c *Client) handleLeave() {
	if c.roomID != "" {
		c.hub.rooms.Leave(c.roomID, c.cid)
		c.roomID = ""
		c.identity = ""
		c.perm = ""
	}
}
