package steamid

import (
	"errors"
	"strconv"

	"github.com/rotisserie/eris"
)

type Universe uint
type Type uint
type Instance uint

//goland:noinspection GoUnusedConst
const (
	UniverseInvalid Universe = iota
	UniversePublic
	UniverseBeta
	UniverseInternal
	UniverseDev
)

//goland:noinspection GoUnusedConst
const (
	TypeInvalid Type = iota
	TypeIndividual
	TypeMultiseat
	TypeGameServer
	TypeAnonGameServer
	TypePending
	TypeContentServer
	TypeClan
	TypeChat
	TypeP2pSuperSeeder
	TypeAnonUser
)

//goland:noinspection GoUnusedConst
const (
	InstanceAll Instance = iota
	InstanceDesktop
	InstanceConsole
	InstanceWeb
)

//goland:noinspection GoUnusedConst
const (
	AccountIDMask       uint64 = 0xFFFFFFFF
	AccountInstanceMask uint64 = 0x000FFFFF
	AccountTypeMask     uint64 = 0xF
)

// individualBase is the SteamID64 of account 0 in the public universe, desktop instance.
const individualBase uint64 = 76561197960265728

var (
	ErrorEmpty = errors.New("can't parse empty string as SteamID64")
)

type SteamID struct {
	original  string
	universe  Universe
	idType    Type
	instance  Instance
	accountID uint32
}

func ParseSteamID64(s string) (SteamID, error) {
	steamID := SteamID{
		original:  s,
		universe:  UniverseInvalid,
		idType:    TypeInvalid,
		instance:  InstanceAll,
		accountID: 0,
	}

	if s == "" {
		return steamID, ErrorEmpty
	}

	parsedID, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return steamID, eris.Wrapf(err, "can't parse steamID into int64")
	}

	return FromUint64(parsedID), nil
}

// FromUint64 splits a SteamID64 into its components.
func FromUint64(raw uint64) SteamID {
	return SteamID{
		original:  strconv.FormatUint(raw, 10),
		accountID: uint32(raw & AccountIDMask),
		instance:  Instance((raw >> 32) & AccountInstanceMask),
		idType:    Type((raw >> 52) & AccountTypeMask),
		universe:  Universe(raw >> 56),
	}
}

// NewIndividual returns the public desktop SteamID for an account id, which is what
// the game coordinator reports for players.
func NewIndividual(accountID uint32) SteamID {
	return FromUint64(individualBase + uint64(accountID))
}

func (id SteamID) String() string {
	return id.original
}

func (id SteamID) Uint64() uint64 {
	return uint64(id.universe)<<56 |
		(uint64(id.idType)&AccountTypeMask)<<52 |
		(uint64(id.instance)&AccountInstanceMask)<<32 |
		uint64(id.accountID)
}

func (id SteamID) IsZero() bool {
	return id.accountID == 0 && id.idType == TypeInvalid && id.universe == UniverseInvalid
}

func (id SteamID) IsValid() bool {
	switch {
	case id.idType <= TypeInvalid || id.idType > TypeAnonUser:
		return false
	case id.universe <= UniverseInvalid || id.universe > UniverseDev:
		return false
	case id.idType == TypeIndividual && (id.accountID == 0 || id.instance > InstanceWeb):
		return false
	case id.idType == TypeClan && (id.accountID == 0 || id.instance != InstanceAll):
		return false
	case id.idType == TypeGameServer && id.accountID == 0:
		return false
	}

	return true
}

func (id SteamID) IsValidIndividual() bool {
	return id.universe == UniversePublic &&
		id.idType == TypeIndividual &&
		id.instance == InstanceDesktop &&
		id.accountID != 0
}

func (id SteamID) AccountId() uint32 {
	return id.accountID
}
