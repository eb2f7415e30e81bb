package steamgc

import "github.com/rotisserie/eris"

var (
	ErrSessionFinished    = eris.New("session has already been started or stopped")
	ErrActionAlreadyBound = eris.New("an action is already bound to this session")
	ErrSessionStopped     = eris.New("session was stopped before reaching a result")
	ErrReconnectsExceeded = eris.New("lost connection to steam too many times")

	ErrLogonFailed        = eris.New("unable to logon to account")
	ErrServiceUnavailable = eris.New("steam is currently unavailable")
	ErrRateLimited        = eris.New("steam rate limit has been reached")
	ErrGuardCodeWrong     = eris.New("steam rejected the provided credentials or guard code")
	ErrSentryRequired     = eris.New("account requires steam guard but device trust is disabled for it")
	ErrAccountBanned      = eris.New("account is banned and cannot perform actions")
	ErrLoggedInElsewhere  = eris.New("account is already logged on somewhere else")
	ErrTargetBanned       = eris.New("target already carries a ban")
	ErrProtocol           = eris.New("unexpected message from the game coordinator")
)
