package gc

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/rotisserie/eris"
)

// PlaceholderMatchID marks the MatchInfo returned when no live match was found.
const PlaceholderMatchID uint64 = 8

type Welcome struct {
	Version uint32
	Country string
}

func DecodeWelcome(body []byte) (Welcome, error) {
	fields, err := parseFields(body)
	if err != nil {
		return Welcome{}, eris.Wrap(err, "decoding ClientWelcome")
	}

	var welcome Welcome
	for _, f := range fields {
		switch f.num {
		case 1:
			welcome.Version = uint32(f.scalar)
		case 5:
			location, err := parseFields(f.bytes)
			if err != nil {
				return Welcome{}, eris.Wrap(err, "decoding ClientWelcome location")
			}
			for _, l := range location {
				if l.num == 3 && l.typ == protowire.BytesType {
					welcome.Country = string(l.bytes)
				}
			}
		}
	}

	return welcome, nil
}

// MatchmakingHello carries the account's matchmaking standing. The Has* flags record
// field presence, which matters for penalty classification.
type MatchmakingHello struct {
	AccountID uint32

	PenaltySeconds    uint32
	HasPenaltySeconds bool
	PenaltyReason     uint32
	HasPenaltyReason  bool
	VACBanned         int32
	HasVACBanned      bool
}

func DecodeMatchmakingHello(body []byte) (MatchmakingHello, error) {
	fields, err := parseFields(body)
	if err != nil {
		return MatchmakingHello{}, eris.Wrap(err, "decoding MatchmakingGC2ClientHello")
	}

	var hello MatchmakingHello
	for _, f := range fields {
		switch f.num {
		case 1:
			hello.AccountID = uint32(f.scalar)
		case 4:
			hello.PenaltySeconds = uint32(f.scalar)
			hello.HasPenaltySeconds = true
		case 5:
			hello.PenaltyReason = uint32(f.scalar)
			hello.HasPenaltyReason = true
		case 6:
			hello.VACBanned = int32(f.scalar)
			hello.HasVACBanned = true
		}
	}

	return hello, nil
}

type ReportResponse struct {
	ConfirmationID uint64
	AccountID      uint32
	ResponseType   uint32
	ResponseResult uint32
}

func DecodeReportResponse(body []byte) (ReportResponse, error) {
	fields, err := parseFields(body)
	if err != nil {
		return ReportResponse{}, eris.Wrap(err, "decoding ClientReportResponse")
	}

	var response ReportResponse
	for _, f := range fields {
		switch f.num {
		case 1:
			response.ConfirmationID = f.scalar
		case 2:
			response.AccountID = uint32(f.scalar)
		case 4:
			response.ResponseType = uint32(f.scalar)
		case 5:
			response.ResponseResult = uint32(f.scalar)
		}
	}

	return response, nil
}

type CommendResponse struct {
	AccountID uint32
}

func DecodeCommendResponse(body []byte) (CommendResponse, error) {
	fields, err := parseFields(body)
	if err != nil {
		return CommendResponse{}, eris.Wrap(err, "decoding ClientCommendPlayerQueryResponse")
	}

	var response CommendResponse
	for _, f := range fields {
		if f.num == 1 {
			response.AccountID = uint32(f.scalar)
		}
	}

	return response, nil
}

// MatchInfo is a single match from a MatchList. Nested coordinator structures are
// kept as their raw encoded bodies.
type MatchInfo struct {
	MatchID            uint64
	MatchTime          uint32
	WatchableMatchInfo []byte
	RoundStats         [][]byte
}

// NoMatchInfo is exposed when the coordinator knows of no live match.
func NoMatchInfo() *MatchInfo {
	return &MatchInfo{MatchID: PlaceholderMatchID}
}

type MatchList struct {
	AccountID uint32
	Matches   []MatchInfo
}

func DecodeMatchList(body []byte) (MatchList, error) {
	fields, err := parseFields(body)
	if err != nil {
		return MatchList{}, eris.Wrap(err, "decoding MatchList")
	}

	var list MatchList
	for _, f := range fields {
		switch f.num {
		case 2:
			list.AccountID = uint32(f.scalar)
		case 4:
			match, err := decodeMatchInfo(f.bytes)
			if err != nil {
				return MatchList{}, err
			}
			list.Matches = append(list.Matches, match)
		}
	}

	return list, nil
}

func decodeMatchInfo(body []byte) (MatchInfo, error) {
	fields, err := parseFields(body)
	if err != nil {
		return MatchInfo{}, eris.Wrap(err, "decoding MatchInfo")
	}

	var match MatchInfo
	for _, f := range fields {
		switch f.num {
		case 1:
			match.MatchID = f.scalar
		case 2:
			match.MatchTime = uint32(f.scalar)
		case 3:
			match.WatchableMatchInfo = f.bytes
		case 5:
			match.RoundStats = append(match.RoundStats, f.bytes)
		}
	}

	return match, nil
}
