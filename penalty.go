package steamgc

import (
	"fmt"
	"time"

	"github.com/escrow-tf/steamgc/gc"
)

// Matchmaking penalty reasons reported by the coordinator.
//
//goland:noinspection GoUnusedConst
const (
	PenaltyReasonNone                       uint32 = 0
	PenaltyReasonTeamKillAtRoundStart       uint32 = 3
	PenaltyReasonMatchAbandon               uint32 = 5
	PenaltyReasonOverwatchMajorlyDisruptive uint32 = 10
	PenaltyReasonOverwatchMinorlyDisruptive uint32 = 11
	PenaltyReasonPermanentlyUntrustedAngles uint32 = 13
	PenaltyReasonPermanentlyUntrustedVAC    uint32 = 14
)

// vac_banned value the coordinator sends for accounts banned by anti-cheat
const vacBannedByOverwatch int32 = 2

// CooldownThreshold separates temporary cooldowns from longer matchmaking bans.
const CooldownThreshold = 7 * 24 * time.Hour

type PenaltyKind int

const (
	NoPenalty PenaltyKind = iota
	OverwatchMajorPenalty
	OverwatchMinorPenalty
	UntrustedPenalty
	// CooldownPenalty is a penalty duration of at most CooldownThreshold.
	CooldownPenalty
	// ExtendedPenalty is a longer penalty, or a penalty reason without a duration.
	ExtendedPenalty
	VACBannedPenalty
)

var penaltyNames = [...]string{
	NoPenalty:             "none",
	OverwatchMajorPenalty: "overwatch convicted (majorly disruptive)",
	OverwatchMinorPenalty: "overwatch convicted (minorly disruptive)",
	UntrustedPenalty:      "permanently untrusted",
	CooldownPenalty:       "matchmaking cooldown",
	ExtendedPenalty:       "matchmaking ban",
	VACBannedPenalty:      "banned by anti-cheat",
}

func (k PenaltyKind) String() string {
	if k < 0 || int(k) >= len(penaltyNames) {
		return "unknown"
	}
	return penaltyNames[k]
}

// PenaltyOutcome is derived from a matchmaking hello and never stored beyond the session.
type PenaltyOutcome struct {
	Kind     PenaltyKind
	Reason   uint32
	Duration time.Duration
}

// Blocked reports whether the account may not perform coordinator actions. Every
// penalty blocks, cooldowns included.
func (p PenaltyOutcome) Blocked() bool {
	return p.Kind != NoPenalty
}

func (p PenaltyOutcome) String() string {
	if p.Duration > 0 {
		return fmt.Sprintf("%s (reason %d, %s remaining)", p.Kind, p.Reason, p.Duration)
	}
	return fmt.Sprintf("%s (reason %d)", p.Kind, p.Reason)
}

func ClassifyPenalty(hello gc.MatchmakingHello) PenaltyOutcome {
	duration := time.Duration(hello.PenaltySeconds) * time.Second
	hasDuration := hello.HasPenaltySeconds && hello.PenaltySeconds > 0
	hasReason := hello.HasPenaltyReason && hello.PenaltyReason != PenaltyReasonNone

	if hasReason {
		outcome := PenaltyOutcome{Reason: hello.PenaltyReason, Duration: duration}
		switch hello.PenaltyReason {
		case PenaltyReasonOverwatchMajorlyDisruptive:
			outcome.Kind = OverwatchMajorPenalty
		case PenaltyReasonOverwatchMinorlyDisruptive:
			outcome.Kind = OverwatchMinorPenalty
		case PenaltyReasonPermanentlyUntrustedAngles, PenaltyReasonPermanentlyUntrustedVAC:
			outcome.Kind = UntrustedPenalty
		default:
			outcome.Kind = durationPenalty(duration, hasDuration)
		}
		return outcome
	}

	if hasDuration {
		return PenaltyOutcome{Kind: durationPenalty(duration, true), Duration: duration}
	}

	if hello.HasVACBanned && hello.VACBanned == vacBannedByOverwatch {
		return PenaltyOutcome{Kind: VACBannedPenalty}
	}

	return PenaltyOutcome{Kind: NoPenalty}
}

func durationPenalty(duration time.Duration, hasDuration bool) PenaltyKind {
	if hasDuration && duration <= CooldownThreshold {
		return CooldownPenalty
	}
	return ExtendedPenalty
}
