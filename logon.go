package steamgc

import (
	"github.com/escrow-tf/steamgc/steamlang"
)

type logonOutcome int

const (
	logonProceed logonOutcome = iota
	logonNeedTwoFactor
	logonNeedEmailCode
	// the platform drops the connection after these; the reconnect policy takes over
	logonAwaitReconnect
	logonTerminal
)

type logonDecision struct {
	outcome logonOutcome
	result  Result
	err     error
}

func classifyLogon(strategy CredentialStrategy, code steamlang.EResult) logonDecision {
	switch code {
	case steamlang.OKResult:
		return logonDecision{outcome: logonProceed}

	case steamlang.AccountLoginDeniedNeedTwoFactorResult, steamlang.AccountLogonDeniedResult:
		if !strategy.PersistTrust {
			return logonDecision{outcome: logonTerminal, result: ResultSentryRequired, err: ErrSentryRequired}
		}
		if code == steamlang.AccountLogonDeniedResult {
			return logonDecision{outcome: logonNeedEmailCode}
		}
		return logonDecision{outcome: logonNeedTwoFactor}

	case steamlang.TwoFactorCodeMismatchResult,
		steamlang.TwoFactorActivationCodeMismatchResult,
		steamlang.InvalidLoginAuthCodeResult,
		steamlang.ExpiredLoginAuthCodeResult,
		steamlang.InvalidPasswordResult,
		steamlang.InvalidResult:
		return logonDecision{outcome: logonTerminal, result: ResultCode2FAWrong, err: ErrGuardCodeWrong}

	case steamlang.RateLimitExceededResult, steamlang.AccountLoginDeniedThrottleResult:
		return logonDecision{outcome: logonTerminal, result: ResultRateLimit, err: ErrRateLimited}

	case steamlang.AccountDisabledResult, steamlang.BannedResult:
		return logonDecision{outcome: logonTerminal, result: ResultAccountBanned, err: ErrAccountBanned}

	case steamlang.ServiceUnavailableResult,
		steamlang.NoConnectionResult,
		steamlang.TimeoutResult,
		steamlang.TryAnotherCMResult:
		if strategy.RetryTransientLogon {
			return logonDecision{outcome: logonAwaitReconnect}
		}
		return logonDecision{outcome: logonTerminal, result: ResultUnknown, err: ErrServiceUnavailable}
	}

	return logonDecision{outcome: logonTerminal, result: ResultUnknown, err: ErrLogonFailed}
}
