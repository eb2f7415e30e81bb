package gc

import (
	"strings"

	"github.com/escrow-tf/steamgc/steamid"
)

// ReportRequest asks the coordinator to file an abuse report against Target.
type ReportRequest struct {
	Target  steamid.SteamID
	MatchID uint64
	AppID   uint32

	AimHacking   bool
	WallHacking  bool
	OtherHacking bool
	Griefing     bool
	AbusiveText  bool
	AbusiveVoice bool
}

// CommendRequest asks the coordinator to commend Target.
type CommendRequest struct {
	Target steamid.SteamID
	AppID  uint32

	Friendly bool
	Teacher  bool
	Leader   bool
}

// LiveMatchRequest asks the coordinator for the match Target is currently playing.
type LiveMatchRequest struct {
	Target steamid.SteamID
	AppID  uint32
}

func appOrDefault(appID uint32) uint32 {
	if appID == 0 {
		return CSGOAppID
	}
	return appID
}

func (r ReportRequest) App() uint32    { return appOrDefault(r.AppID) }
func (r CommendRequest) App() uint32   { return appOrDefault(r.AppID) }
func (r LiveMatchRequest) App() uint32 { return appOrDefault(r.AppID) }

func (r CommendRequest) String() string {
	var parts []string
	if r.Friendly {
		parts = append(parts, "friendly")
	}
	if r.Teacher {
		parts = append(parts, "teacher")
	}
	if r.Leader {
		parts = append(parts, "leader")
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, ", ")
}
