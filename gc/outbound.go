package gc

// Message is an outbound coordinator message body.
type Message interface {
	MsgType() MsgType
	Marshal() []byte
}

// ClientHello opens the coordinator session once the game is marked as played.
type ClientHello struct{}

func (ClientHello) MsgType() MsgType { return ClientHelloMsgType }
func (ClientHello) Marshal() []byte  { return nil }

// MatchmakingClientHello is answered with the account's matchmaking state, penalties included.
type MatchmakingClientHello struct{}

func (MatchmakingClientHello) MsgType() MsgType { return MatchmakingClient2GCHelloMsgType }
func (MatchmakingClientHello) Marshal() []byte  { return nil }

type ReportPlayer struct {
	AccountID  uint32
	MatchID    uint64
	Aimbot     bool
	Wallhack   bool
	Speedhack  bool
	Teamharm   bool
	Textabuse  bool
	Voiceabuse bool
}

func (ReportPlayer) MsgType() MsgType { return ClientReportPlayerMsgType }

func (p ReportPlayer) Marshal() []byte {
	var b []byte
	b = appendUint(b, 1, uint64(p.AccountID))
	b = appendFlag(b, 2, p.Aimbot)
	b = appendFlag(b, 3, p.Wallhack)
	b = appendFlag(b, 4, p.Speedhack)
	b = appendFlag(b, 5, p.Teamharm)
	b = appendFlag(b, 6, p.Textabuse)
	b = appendFlag(b, 7, p.Voiceabuse)
	b = appendUint(b, 8, p.MatchID)
	return b
}

type CommendPlayer struct {
	AccountID uint32
	MatchID   uint64
	Friendly  bool
	Teaching  bool
	Leader    bool
	Tokens    uint32
}

func (CommendPlayer) MsgType() MsgType { return ClientCommendPlayerMsgType }

func (p CommendPlayer) Marshal() []byte {
	var commendation []byte
	commendation = appendFlag(commendation, 1, p.Friendly)
	commendation = appendFlag(commendation, 2, p.Teaching)
	commendation = appendFlag(commendation, 4, p.Leader)

	var b []byte
	b = appendUint(b, 1, uint64(p.AccountID))
	b = appendUint(b, 8, p.MatchID)
	b = appendMessage(b, 9, commendation)
	b = appendUint(b, 10, uint64(p.Tokens))
	return b
}

type RequestLiveGame struct {
	AccountID uint32
}

func (RequestLiveGame) MsgType() MsgType { return MatchListRequestLiveGameForUserMsgType }

func (p RequestLiveGame) Marshal() []byte {
	return appendUint(nil, 1, uint64(p.AccountID))
}

func BuildReport(r ReportRequest) ReportPlayer {
	return ReportPlayer{
		AccountID:  r.Target.AccountId(),
		MatchID:    r.MatchID,
		Aimbot:     r.AimHacking,
		Wallhack:   r.WallHacking,
		Speedhack:  r.OtherHacking,
		Teamharm:   r.Griefing,
		Textabuse:  r.AbusiveText,
		Voiceabuse: r.AbusiveVoice,
	}
}

func BuildCommend(r CommendRequest) CommendPlayer {
	return CommendPlayer{
		AccountID: r.Target.AccountId(),
		Friendly:  r.Friendly,
		Teaching:  r.Teacher,
		Leader:    r.Leader,
	}
}

func BuildLiveGame(r LiveMatchRequest) RequestLiveGame {
	return RequestLiveGame{AccountID: r.Target.AccountId()}
}
