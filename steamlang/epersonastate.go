package steamlang

type EPersonaState int

//goland:noinspection GoUnusedConst
const (
	OfflinePersonaState EPersonaState = iota
	OnlinePersonaState
	BusyPersonaState
	AwayPersonaState
	SnoozePersonaState
	LookingToTradePersonaState
	LookingToPlayPersonaState
	InvisiblePersonaState
)
