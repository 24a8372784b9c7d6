package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	presenceInterval = time.Second / BroadcastRate
	updateBufSize    = 64
	httpTimeout      = 10 * time.Second
)

// RoomLink is the peer's view of the room service
type RoomLink interface {
	UpdatePresence(p Presence)
	PushDefeated(identity string)
	ClearDefeated()
	Updates() <-chan RoomUpdate
	Close() error
}

// RoomUpdateKind tags a RoomUpdate
type RoomUpdateKind int

const (
	UpdateWelcome RoomUpdateKind = iota
	UpdateRoster
	UpdateStorage
	UpdateDisconnected
)

// RoomUpdate is one notification from the room service
type RoomUpdate struct {
	Kind    RoomUpdateKind
	Welcome *WelcomeMsg
	Roster  *RosterFrame
	Storage *StorageFrame
	Err     error
}

// Session is an authenticated account on the room service
type Session struct {
	Token    string
	Identity string
	Info     UserInfo
}

func postJSON(ctx context.Context, url, bearer string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e ErrorMsg
		json.NewDecoder(resp.Body).Decode(&e)
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrUnauthorized, e.Msg)
		}
		return fmt.Errorf("%s: %d %s", url, resp.StatusCode, e.Msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Login signs in with email and password, or as a guest when email is empty
func Login(ctx context.Context, serverURL, email, password string) (*Session, error) {
	var resp AuthResponse
	var err error
	if email == "" {
		err = postJSON(ctx, serverURL+"/api/guest", "", map[string]string{}, &resp)
	} else {
		err = postJSON(ctx, serverURL+"/api/login", "", map[string]string{
			"email":    email,
			"password": password,
		}, &resp)
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &Session{Token: resp.Token, Identity: resp.Identity, Info: resp.Info}, nil
}

// LiveAuth exchanges an account token for a room token
func LiveAuth(ctx context.Context, serverURL string, s *Session, room string) (string, error) {
	var resp LiveAuthResponse
	if err := postJSON(ctx, serverURL+"/api/live-auth", s.Token, map[string]string{"room": room}, &resp); err != nil {
		return "", fmt.Errorf("live auth: %w", err)
	}
	return resp.Token, nil
}

func wsURL(serverURL string) string {
	switch {
	case strings.HasPrefix(serverURL, "https://"):
		return "wss://" + strings.TrimPrefix(serverURL, "https://") + "/ws"
	case strings.HasPrefix(serverURL, "http://"):
		return "ws://" + strings.TrimPrefix(serverURL, "http://") + "/ws"
	}
	return serverURL + "/ws"
}

// RoomClient is a websocket connection to one room. Presence updates are
// coalesced: only the latest is sent, at most once per presenceInterval.
type RoomClient struct {
	conn    *websocket.Conn
	updates chan RoomUpdate
	out     chan []byte
	done    chan struct{}
	wrote   chan struct{} // closed when writePump exits
	wg      sync.WaitGroup
	log     *logrus.Entry

	mu          sync.Mutex
	pending     *Presence
	closeOnce   sync.Once
	presenceSig chan struct{}
}

var _ RoomLink = (*RoomClient)(nil)

// DialRoom connects and joins the room named in roomToken
func DialRoom(ctx context.Context, serverURL, roomToken string) (*RoomClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL(serverURL), nil)
	if err != nil {
		return nil, fmt.Errorf("dial room: %w", err)
	}
	join, err := json.Marshal(Envelope{T: MsgJoin, Data: JoinMsg{Token: roomToken}})
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		conn.Close()
		return nil, fmt.Errorf("join room: %w", err)
	}

	c := &RoomClient{
		conn:        conn,
		updates:     make(chan RoomUpdate, updateBufSize),
		out:         make(chan []byte, sendBufSize),
		done:        make(chan struct{}),
		wrote:       make(chan struct{}),
		presenceSig: make(chan struct{}, 1),
		log:         componentLog("roomclient"),
	}
	c.wg.Add(2)
	go c.readPump()
	go c.writePump()
	return c, nil
}

// Updates delivers room notifications until the connection drops
func (c *RoomClient) Updates() <-chan RoomUpdate {
	return c.updates
}

// UpdatePresence queues p, replacing any presence not yet sent
func (c *RoomClient) UpdatePresence(p Presence) {
	c.mu.Lock()
	c.pending = &p
	c.mu.Unlock()
	select {
	case c.presenceSig <- struct{}{}:
	default:
	}
}

// PushDefeated appends identity to the shared defeated list
func (c *RoomClient) PushDefeated(identity string) {
	c.enqueue(Envelope{T: MsgPush, Data: PushMsg{List: ListDefeated, Item: identity}})
}

// ClearDefeated empties the shared defeated list
func (c *RoomClient) ClearDefeated() {
	c.enqueue(Envelope{T: MsgClear, Data: ClearMsg{List: ListDefeated}})
}

func (c *RoomClient) enqueue(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		c.log.WithError(err).Error("marshal")
		return
	}
	select {
	case c.out <- data:
	case <-c.done:
	default:
		c.log.WithField("t", env.T).Warn("send buffer full, dropping")
	}
}

// Close leaves the room and waits for the pumps to stop
func (c *RoomClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		<-c.wrote
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	})
	c.wg.Wait()
	return nil
}

func (c *RoomClient) deliver(u RoomUpdate) bool {
	select {
	case c.updates <- u:
		return true
	case <-c.done:
		return false
	}
}

func (c *RoomClient) readPump() {
	defer c.wg.Done()
	defer close(c.updates)

	c.conn.SetReadLimit(1 << 20)
	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.deliver(RoomUpdate{Kind: UpdateDisconnected, Err: err})
			}
			return
		}

		if msgType == websocket.BinaryMessage {
			var frame RosterFrame
			if err := msgpack.Unmarshal(message, &frame); err != nil {
				c.log.WithError(err).Warn("bad roster frame")
				continue
			}
			if !c.deliver(RoomUpdate{Kind: UpdateRoster, Roster: &frame}) {
				return
			}
			continue
		}

		var env InEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.log.WithError(err).Warn("bad envelope")
			continue
		}
		var u RoomUpdate
		switch env.T {
		case MsgWelcome:
			var w WelcomeMsg
			if err := json.Unmarshal(env.D, &w); err != nil {
				continue
			}
			u = RoomUpdate{Kind: UpdateWelcome, Welcome: &w}
		case MsgStorage:
			var s StorageFrame
			if err := json.Unmarshal(env.D, &s); err != nil {
				continue
			}
			u = RoomUpdate{Kind: UpdateStorage, Storage: &s}
		case MsgError:
			var e ErrorMsg
			json.Unmarshal(env.D, &e)
			c.log.WithField("msg", e.Msg).Warn("room error")
			continue
		default:
			continue
		}
		if !c.deliver(u) {
			return
		}
	}
}

func (c *RoomClient) writePump() {
	defer c.wg.Done()
	defer close(c.wrote)
	ticker := time.NewTicker(presenceInterval)
	defer ticker.Stop()

	write := func(data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteMessage(websocket.TextMessage, data)
	}

	dirty := false
	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			if err := write(data); err != nil {
				c.log.WithError(err).Debug("write failed")
				return
			}
		case <-c.presenceSig:
			dirty = true
		case <-ticker.C:
			if !dirty {
				continue
			}
			c.mu.Lock()
			p := c.pending
			c.pending = nil
			c.mu.Unlock()
			dirty = false
			if p == nil {
				continue
			}
			data, err := json.Marshal(Envelope{T: MsgPresence, Data: p})
			if err != nil {
				continue
			}
			if err := write(data); err != nil {
				c.log.WithError(err).Debug("write failed")
				return
			}
		}
	}
}
