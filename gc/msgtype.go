package gc

// MsgType is a game coordinator message id.
type MsgType uint32

// AppID of the game the coordinator messages are exchanged for.
const CSGOAppID uint32 = 730

//goland:noinspection GoUnusedConst
const (
	ClientWelcomeMsgType MsgType = 4004
	ClientHelloMsgType   MsgType = 4006

	MatchmakingClient2GCHelloMsgType       MsgType = 9109
	MatchmakingGC2ClientHelloMsgType       MsgType = 9110
	ClientReportPlayerMsgType              MsgType = 9119
	ClientCommendPlayerMsgType             MsgType = 9121
	ClientReportResponseMsgType            MsgType = 9122
	ClientCommendPlayerQueryMsgType        MsgType = 9123
	ClientCommendPlayerQueryResponseType   MsgType = 9124
	MatchListMsgType                       MsgType = 9139
	MatchListRequestLiveGameForUserMsgType MsgType = 9154
)

var msgTypeNames = map[MsgType]string{
	ClientWelcomeMsgType:                   "ClientWelcome",
	ClientHelloMsgType:                     "ClientHello",
	MatchmakingClient2GCHelloMsgType:       "MatchmakingClient2GCHello",
	MatchmakingGC2ClientHelloMsgType:       "MatchmakingGC2ClientHello",
	ClientReportPlayerMsgType:              "ClientReportPlayer",
	ClientCommendPlayerMsgType:             "ClientCommendPlayer",
	ClientReportResponseMsgType:            "ClientReportResponse",
	ClientCommendPlayerQueryMsgType:        "ClientCommendPlayerQuery",
	ClientCommendPlayerQueryResponseType:   "ClientCommendPlayerQueryResponse",
	MatchListMsgType:                       "MatchList",
	MatchListRequestLiveGameForUserMsgType: "MatchListRequestLiveGameForUser",
}

func (t MsgType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return "unknown"
}
