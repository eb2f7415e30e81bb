package steamgc

// Account is the caller's configuration for one Steam account. Sessions never modify it.
type Account struct {
	Username string
	Password string
	// SharedSecret is the base64 mobile authenticator secret. When set, guard codes are
	// generated locally instead of being prompted for.
	SharedSecret string
	// Sentry marks accounts protected by Steam Guard whose device trust should be
	// remembered between runs.
	Sentry bool
}

// CredentialStrategy captures how an account variant authenticates.
type CredentialStrategy struct {
	Name string
	// PersistTrust stores sentry files and login keys, and allows the session to wait
	// for guard codes. Without it any guard challenge fails with SentryRequired.
	PersistTrust bool
	// GenerateCodes derives two-factor codes from the account's shared secret.
	GenerateCodes bool
	// RetryTransientLogon leaves transient logon failures to the reconnect policy
	// instead of failing the session.
	RetryTransientLogon bool
}

var (
	ProtectedStrategy = CredentialStrategy{
		Name:          "protected",
		PersistTrust:  true,
		GenerateCodes: true,
	}

	UnprotectedStrategy = CredentialStrategy{
		Name:                "unprotected",
		RetryTransientLogon: true,
	}
)

// StrategyFor picks the protected variant for accounts that either remember device
// trust or carry an authenticator secret.
func StrategyFor(account Account) CredentialStrategy {
	if account.Sentry || account.SharedSecret != "" {
		return ProtectedStrategy
	}
	return UnprotectedStrategy
}
