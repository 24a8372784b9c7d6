package main

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl64"
)

// Client -> Server message types
const (
	MsgJoin     = "join"     // authenticate with a room token
	MsgPresence = "presence" // replace own presence
	MsgPush     = "push"     // append to a shared list
	MsgClear    = "clear"    // empty a shared list
	MsgLeave    = "leave"
)

// Server -> Client message types
const (
	MsgWelcome = "welcome"
	MsgStorage = "storage"
	MsgError   = "error"
)

// ListDefeated is the shared list of eliminated identities
const ListDefeated = "defeated"

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; D stays raw until the type is known
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// Vec3Msg is a position on the wire
type Vec3Msg struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

func vecMsg(v mgl64.Vec3) *Vec3Msg {
	return &Vec3Msg{X: round2(v.X()), Y: round2(v.Y()), Z: round2(v.Z())}
}

// Vec converts back to a math vector
func (v Vec3Msg) Vec() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// Presence is a peer's broadcast state. Position may be absent for peers
// that have not reported yet.
type Presence struct {
	Position *Vec3Msg `json:"position" msgpack:"position"`
	Health   int      `json:"health" msgpack:"health"`
	Bullets  int      `json:"bullets" msgpack:"bullets"`
	Hit      bool     `json:"hit" msgpack:"hit"`
}

// InitialPresence is what a peer reports on room entry
func InitialPresence() Presence {
	return Presence{
		Position: &Vec3Msg{},
		Health:   100,
		Bullets:  50,
	}
}

// UserInfo is display metadata carried by room tokens
type UserInfo struct {
	Name   string `json:"name" msgpack:"name"`
	Email  string `json:"email" msgpack:"email"`
	Avatar string `json:"avatar" msgpack:"avatar"`
}

// JoinMsg is sent first on every connection
type JoinMsg struct {
	Token string `json:"token"`
}

// PushMsg appends item to a shared list
type PushMsg struct {
	List string `json:"list"`
	Item string `json:"item"`
}

// ClearMsg empties a shared list
type ClearMsg struct {
	List string `json:"list"`
}

// WelcomeMsg confirms a join
type WelcomeMsg struct {
	ConnectionID string   `json:"cid"`
	Identity     string   `json:"id"`
	Room         string   `json:"room"`
	Info         UserInfo `json:"info"`
}

// RosterPeer is one other connection in the room
type RosterPeer struct {
	ConnectionID string   `msgpack:"cid"`
	Identity     string   `msgpack:"id"`
	Info         UserInfo `msgpack:"info"`
	Presence     Presence `msgpack:"p"`
}

// RosterFrame is the binary roster broadcast. Seq grows by one per frame
// within a room.
type RosterFrame struct {
	Seq   uint64       `msgpack:"seq"`
	Peers []RosterPeer `msgpack:"peers"`
}

// StorageFrame is the full shared storage of a room. Round grows each time
// the defeated list is cleared.
type StorageFrame struct {
	Defeated []string `json:"defeated"`
	Round    uint64   `json:"round"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
