package transport

import (
	"sync"

	"github.com/escrow-tf/steamgc/gc"
	"github.com/escrow-tf/steamgc/steamid"
	"github.com/escrow-tf/steamgc/steamlang"
)

type GCPacket struct {
	AppID   uint32
	MsgType gc.MsgType
	Body    []byte
}

// Fake is an in-memory Transport for tests. It records every call and lets a test
// script the platform's replies through the On* hooks, which run without the lock
// held and may call Emit or Drop.
type Fake struct {
	mu sync.Mutex

	events    chan Event
	connected bool
	steamID   steamid.SteamID
	loggedOn  bool
	persona   steamlang.EPersonaState

	connects    int
	disconnects int
	logOffs     int
	logOns      []LogOnDetails
	gamesPlayed []uint32
	gcSent      []GCPacket
	authAcks    []MachineAuthResponse
	keysAcked   []uint32

	OnConnect func(f *Fake)
	OnLogOn   func(f *Fake, details LogOnDetails)
	OnSendGC  func(f *Fake, packet GCPacket)
}

func NewFake() *Fake {
	return &Fake{events: make(chan Event, 256)}
}

// Emit queues an event for the session. A successful LoggedOnEvent binds its SteamID.
func (f *Fake) Emit(event Event) {
	f.mu.Lock()
	switch e := event.(type) {
	case LoggedOnEvent:
		if e.Result == steamlang.OKResult {
			f.steamID = e.SteamID
			f.loggedOn = true
		}
	case LoggedOffEvent:
		f.loggedOn = false
	}
	f.mu.Unlock()

	f.events <- event
}

// Drop simulates the platform closing the connection.
func (f *Fake) Drop() {
	f.mu.Lock()
	f.connected = false
	f.loggedOn = false
	f.persona = steamlang.OfflinePersonaState
	f.mu.Unlock()

	f.events <- DisconnectedEvent{UserInitiated: false}
}

func (f *Fake) Connect() {
	f.mu.Lock()
	f.connects++
	f.connected = true
	hook := f.OnConnect
	f.mu.Unlock()

	if hook != nil {
		hook(f)
		return
	}
	f.events <- ConnectedEvent{}
}

func (f *Fake) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.connected = false
	f.loggedOn = false
	f.mu.Unlock()

	f.events <- DisconnectedEvent{UserInitiated: true}
}

func (f *Fake) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *Fake) Events() <-chan Event {
	return f.events
}

func (f *Fake) LogOn(details LogOnDetails) {
	f.mu.Lock()
	f.logOns = append(f.logOns, details)
	hook := f.OnLogOn
	f.mu.Unlock()

	if hook != nil {
		hook(f, details)
	}
}

func (f *Fake) LogOff() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logOffs++
	f.loggedOn = false
}

func (f *Fake) SteamID() (steamid.SteamID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steamID, f.loggedOn
}

func (f *Fake) PersonaState() steamlang.EPersonaState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.persona
}

func (f *Fake) SetPersonaState(state steamlang.EPersonaState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persona = state
}

func (f *Fake) SetGamesPlayed(appIDs ...uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gamesPlayed = append([]uint32(nil), appIDs...)
}

func (f *Fake) SendMachineAuthResponse(response MachineAuthResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authAcks = append(f.authAcks, response)
}

func (f *Fake) AcceptLoginKey(uniqueID uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keysAcked = append(f.keysAcked, uniqueID)
}

func (f *Fake) SendGC(appID uint32, message gc.Message) {
	packet := GCPacket{AppID: appID, MsgType: message.MsgType(), Body: message.Marshal()}

	f.mu.Lock()
	f.gcSent = append(f.gcSent, packet)
	hook := f.OnSendGC
	f.mu.Unlock()

	if hook != nil {
		hook(f, packet)
	}
}

func (f *Fake) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *Fake) Disconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

func (f *Fake) LogOffs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logOffs
}

func (f *Fake) LogOns() []LogOnDetails {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LogOnDetails(nil), f.logOns...)
}

func (f *Fake) GamesPlayed() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.gamesPlayed...)
}

func (f *Fake) GCSent() []GCPacket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]GCPacket(nil), f.gcSent...)
}

// SentOfType returns the coordinator messages of one type, in send order.
func (f *Fake) SentOfType(msgType gc.MsgType) []GCPacket {
	var packets []GCPacket
	for _, packet := range f.GCSent() {
		if packet.MsgType == msgType {
			packets = append(packets, packet)
		}
	}
	return packets
}

func (f *Fake) MachineAuthResponses() []MachineAuthResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MachineAuthResponse(nil), f.authAcks...)
}

func (f *Fake) AcceptedLoginKeys() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.keysAcked...)
}
