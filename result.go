package steamgc

// Result is the terminal outcome of an AccountSession.
type Result int

const (
	ResultUnknown Result = iota
	ResultSuccess
	ResultAccountBanned
	ResultRateLimit
	ResultCode2FAWrong
	ResultSentryRequired
	ResultAlreadyLoggedInSomewhereElse
	ResultNoMatches
)

var resultNames = [...]string{
	ResultUnknown:                      "Unknown",
	ResultSuccess:                      "Success",
	ResultAccountBanned:                "AccountBanned",
	ResultRateLimit:                    "RateLimit",
	ResultCode2FAWrong:                 "Code2FAWrong",
	ResultSentryRequired:               "SentryRequired",
	ResultAlreadyLoggedInSomewhereElse: "AlreadyLoggedInSomewhereElse",
	ResultNoMatches:                    "NoMatches",
}

func (r Result) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return "Unknown"
	}
	return resultNames[r]
}

// Succeeded reports whether the session finished its action, even if the action found nothing.
func (r Result) Succeeded() bool {
	return r == ResultSuccess || r == ResultNoMatches
}
