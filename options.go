package steamgc

import (
	"time"

	"github.com/escrow-tf/steamgc/api/bans"
	"github.com/escrow-tf/steamgc/api/twofactor"
	"github.com/escrow-tf/steamgc/guard"
	"github.com/escrow-tf/steamgc/trust"
	"go.uber.org/zap"
)

const (
	DefaultMaxReconnects  = 5
	DefaultReconnectDelay = 5 * time.Second
	// DefaultSettleDelay is the pause between going online and greeting the
	// coordinator. Hellos sent sooner are silently dropped.
	DefaultSettleDelay  = 5 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Presenter is whatever shows guard prompts and session outcomes to a person.
type Presenter interface {
	ShowCodePrompt(username string, kind guard.Kind, emailDomain string)
	HideCodePrompt(username string, kind guard.Kind)
	Notify(username string, result Result, err error)
}

type nopPresenter struct{}

func (nopPresenter) ShowCodePrompt(string, guard.Kind, string) {}
func (nopPresenter) HideCodePrompt(string, guard.Kind)         {}
func (nopPresenter) Notify(string, Result, error)              {}

type Option func(s *AccountSession)

// WithStrategy overrides the strategy StrategyFor would pick for the account.
func WithStrategy(strategy CredentialStrategy) Option {
	return func(s *AccountSession) {
		s.strategy = strategy
	}
}

func WithTrustStore(store trust.Store) Option {
	return func(s *AccountSession) {
		s.trustStore = store
	}
}

// WithBanLookup enables the target pre-check before a report is dispatched.
func WithBanLookup(lookup bans.Api) Option {
	return func(s *AccountSession) {
		s.banLookup = lookup
	}
}

func WithPresenter(presenter Presenter) Option {
	return func(s *AccountSession) {
		if presenter != nil {
			s.presenter = presenter
		}
	}
}

// WithOnFinished registers the owner's callback, run exactly once when the session stops.
func WithOnFinished(onFinished func(*AccountSession)) Option {
	return func(s *AccountSession) {
		s.onFinished = onFinished
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *AccountSession) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *AccountSession) {
		s.now = now
	}
}

// WithSteamTime sets the clock guard codes are generated against.
func WithSteamTime(steamTime func() time.Time) Option {
	return func(s *AccountSession) {
		s.steamTime = steamTime
	}
}

// WithAlignedTime generates guard codes against Steam's clock, falling back to the
// local clock until the client has been aligned.
func WithAlignedTime(client twofactor.Api) Option {
	return func(s *AccountSession) {
		s.steamTime = func() time.Time {
			steamTime, err := client.SteamTime()
			if err != nil {
				return s.now()
			}
			return steamTime
		}
	}
}

func WithReconnectPolicy(maxReconnects int, delay time.Duration) Option {
	return func(s *AccountSession) {
		s.maxReconnects = maxReconnects
		s.reconnectDelay = delay
	}
}

func WithSettleDelay(delay time.Duration) Option {
	return func(s *AccountSession) {
		s.settleDelay = delay
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(s *AccountSession) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}
