// Package transport is the boundary between a session and the Steam network layer.
// Implementations own the connection, the wire encoding and the connection timeout;
// sessions only see the typed events and calls below.
package transport

import (
	"github.com/escrow-tf/steamgc/gc"
	"github.com/escrow-tf/steamgc/steamid"
	"github.com/escrow-tf/steamgc/steamlang"
)

type LogOnDetails struct {
	Username string
	// Password is empty when LoginKey is set.
	Password string
	LoginKey string

	AuthCode      string
	TwoFactorCode string

	SentryFileHash []byte
	LoginID        uint32

	ShouldRememberPassword bool
}

type OneTimePassword struct {
	Type       uint32
	Identifier string
	Value      uint32
}

// MachineAuthResponse acknowledges a sentry chunk. Offset, JobID and FileName must
// echo the request or the platform resends it.
type MachineAuthResponse struct {
	JobID    uint64
	FileName string

	BytesWritten int
	FileSize     int
	Offset       int

	Result    steamlang.EResult
	LastError int

	OneTimePassword OneTimePassword
	SentryFileHash  []byte
}

// Event is delivered on Transport.Events in the order the network produced it.
type Event interface {
	event()
}

type ConnectedEvent struct{}

type DisconnectedEvent struct {
	UserInitiated bool
}

type LoggedOnEvent struct {
	Result         steamlang.EResult
	ExtendedResult steamlang.EResult
	EmailDomain    string
	SteamID        steamid.SteamID
}

type LoggedOffEvent struct {
	Result steamlang.EResult
}

type MachineAuthUpdateEvent struct {
	JobID           uint64
	FileName        string
	Offset          int
	BytesToWrite    int
	Data            []byte
	OneTimePassword OneTimePassword
}

type LoginKeyEvent struct {
	UniqueID uint32
	LoginKey string
}

type GCMessageEvent struct {
	AppID   uint32
	MsgType gc.MsgType
	Body    []byte
}

func (ConnectedEvent) event()         {}
func (DisconnectedEvent) event()      {}
func (LoggedOnEvent) event()          {}
func (LoggedOffEvent) event()         {}
func (MachineAuthUpdateEvent) event() {}
func (LoginKeyEvent) event()          {}
func (GCMessageEvent) event()         {}

// Transport must be safe for concurrent use: a session's Stop may run on a different
// goroutine than its event loop.
type Transport interface {
	Connect()
	Disconnect()
	Connected() bool
	Events() <-chan Event

	LogOn(details LogOnDetails)
	LogOff()
	// SteamID reports the identity bound by a successful logon.
	SteamID() (steamid.SteamID, bool)

	PersonaState() steamlang.EPersonaState
	SetPersonaState(state steamlang.EPersonaState)
	SetGamesPlayed(appIDs ...uint32)

	SendMachineAuthResponse(response MachineAuthResponse)
	AcceptLoginKey(uniqueID uint32)

	SendGC(appID uint32, message gc.Message)
}
