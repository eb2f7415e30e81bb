package steamgc

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/escrow-tf/steamgc/api/bans"
	"github.com/escrow-tf/steamgc/gc"
	"github.com/escrow-tf/steamgc/guard"
	"github.com/escrow-tf/steamgc/steamlang"
	"github.com/escrow-tf/steamgc/totp"
	"github.com/escrow-tf/steamgc/transport"
	"github.com/escrow-tf/steamgc/trust"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// AccountSession carries one account from connect to a single coordinator action.
// Handshake state is only touched by the goroutine running Start; Stop and the Feed*
// methods may be called from anywhere.
type AccountSession struct {
	id        string
	account   Account
	strategy  CredentialStrategy
	transport transport.Transport

	trustStore trust.Store
	banLookup  bans.Api
	presenter  Presenter
	onFinished func(*AccountSession)
	logger     *zap.Logger

	now       func() time.Time
	steamTime func() time.Time

	maxReconnects  int
	reconnectDelay time.Duration
	settleDelay    time.Duration
	pollInterval   time.Duration

	twoFactorCodes *guard.Channel
	emailCodes     *guard.Channel

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	// owned by the event loop
	reconnects       int
	deviceTrust      *trust.DeviceTrust
	pendingAuthCode  string
	pendingTwoFactor string

	mu        sync.Mutex
	started   bool
	stopped   bool
	running   bool
	result    Result
	err       error
	report    *gc.ReportRequest
	commend   *gc.CommendRequest
	liveMatch *gc.LiveMatchRequest
	matchInfo *gc.MatchInfo
	penalty   *PenaltyOutcome
}

func NewAccountSession(account Account, steamTransport transport.Transport, options ...Option) *AccountSession {
	ctx, cancel := context.WithCancel(context.Background())

	s := &AccountSession{
		id:             uuid.NewString(),
		account:        account,
		strategy:       StrategyFor(account),
		transport:      steamTransport,
		presenter:      nopPresenter{},
		logger:         zap.NewNop(),
		now:            time.Now,
		maxReconnects:  DefaultMaxReconnects,
		reconnectDelay: DefaultReconnectDelay,
		settleDelay:    DefaultSettleDelay,
		pollInterval:   DefaultPollInterval,
		twoFactorCodes: guard.NewChannel(guard.TwoFactorKind),
		emailCodes:     guard.NewChannel(guard.EmailKind),
		ctx:            ctx,
		cancel:         cancel,
	}

	for _, option := range options {
		option(s)
	}

	if s.steamTime == nil {
		s.steamTime = s.now
	}

	s.logger = s.logger.With(
		zap.String("session", s.id),
		zap.String("account", account.Username),
		zap.String("strategy", s.strategy.Name),
	)

	return s
}

func (s *AccountSession) bindAction(bind func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return ErrSessionFinished
	}
	if s.report != nil || s.commend != nil || s.liveMatch != nil {
		return ErrActionAlreadyBound
	}

	bind()
	return nil
}

func (s *AccountSession) FeedReport(request gc.ReportRequest) error {
	return s.bindAction(func() { s.report = &request })
}

func (s *AccountSession) FeedCommend(request gc.CommendRequest) error {
	return s.bindAction(func() { s.commend = &request })
}

func (s *AccountSession) FeedLiveMatch(request gc.LiveMatchRequest) error {
	return s.bindAction(func() { s.liveMatch = &request })
}

// FeedSecondFactorCode hands over a code from the authenticator app. It returns false
// when a code is already pending or the code is blank.
func (s *AccountSession) FeedSecondFactorCode(code string) bool {
	return s.twoFactorCodes.Fill(code)
}

func (s *AccountSession) FeedEmailAuthCode(code string) bool {
	return s.emailCodes.Fill(code)
}

// Start runs the session until it reaches a result or is stopped. It always stops the
// session before returning.
func (s *AccountSession) Start(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return s.Result(), ErrSessionFinished
	}
	s.started = true
	s.running = true
	s.mu.Unlock()

	defer s.Stop()

	stopWatching := context.AfterFunc(ctx, s.cancel)
	defer stopWatching()

	s.logger.Info("starting session")

	if !s.checkTarget() {
		return s.Result(), s.Err()
	}

	s.transport.Connect()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	events := s.transport.Events()
	for s.IsRunning() {
		select {
		case <-s.ctx.Done():
			s.setStopped()
		case event, ok := <-events:
			if !ok {
				s.finish(ResultUnknown, eris.Wrap(ErrServiceUnavailable, "transport closed its event stream"))
				continue
			}
			s.handle(event)
		case <-ticker.C:
		}
	}

	s.mu.Lock()
	if s.result == ResultUnknown && s.err == nil {
		s.err = ErrSessionStopped
	}
	result, err := s.result, s.err
	s.mu.Unlock()

	return result, err
}

// Stop tears the session down. It is safe to call more than once and from any goroutine;
// only the first call does anything.
func (s *AccountSession) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.report = nil
		s.commend = nil
		s.liveMatch = nil
		s.running = false
		s.stopped = true
		s.mu.Unlock()

		s.cancel()
		s.twoFactorCodes.Drain()
		s.emailCodes.Drain()

		if s.transport.PersonaState() != steamlang.OfflinePersonaState {
			s.transport.SetPersonaState(steamlang.OfflinePersonaState)
		}
		if _, loggedOn := s.transport.SteamID(); loggedOn {
			s.transport.LogOff()
		}
		if s.transport.Connected() {
			s.transport.Disconnect()
		}

		s.logger.Debug("session stopped", zap.Stringer("result", s.Result()))

		if s.onFinished != nil {
			s.onFinished(s)
		}
	})
}

func (s *AccountSession) Username() string {
	return s.account.Username
}

func (s *AccountSession) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *AccountSession) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err explains the result; it is nil for successful sessions.
func (s *AccountSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// MatchInfo is the live match found for a LiveMatchRequest, or the placeholder when
// the target was not playing.
func (s *AccountSession) MatchInfo() *gc.MatchInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchInfo
}

// Penalty is the account's matchmaking standing once the coordinator has reported it.
func (s *AccountSession) Penalty() (PenaltyOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.penalty == nil {
		return PenaltyOutcome{}, false
	}
	return *s.penalty, true
}

func (s *AccountSession) setStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// finish records the first terminal result and stops the session. Later calls are ignored.
func (s *AccountSession) finish(result Result, err error) {
	s.mu.Lock()
	if s.result != ResultUnknown || s.err != nil {
		s.mu.Unlock()
		return
	}
	s.result = result
	s.err = err
	s.running = false
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("session finished", zap.Stringer("result", result), zap.Error(err))
	} else {
		s.logger.Info("session finished", zap.Stringer("result", result))
	}

	s.presenter.Notify(s.account.Username, result, err)
	s.Stop()
}

func (s *AccountSession) appID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.report != nil:
		return s.report.App()
	case s.commend != nil:
		return s.commend.App()
	case s.liveMatch != nil:
		return s.liveMatch.App()
	}
	return gc.CSGOAppID
}

// sleep waits for d unless the session is stopped first.
func (s *AccountSession) sleep(d time.Duration) bool {
	if d <= 0 {
		return s.ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// checkTarget refuses to report players who are already banned. A failed lookup does
// not block the report.
func (s *AccountSession) checkTarget() bool {
	s.mu.Lock()
	report := s.report
	s.mu.Unlock()

	if report == nil || s.banLookup == nil {
		return true
	}

	summary, err := s.banLookup.Lookup(s.ctx, report.Target)
	if err != nil {
		s.logger.Warn("could not look up target bans, reporting anyway",
			zap.Stringer("target", report.Target), zap.Error(err))
		return true
	}

	if summary.Banned() {
		s.finish(ResultUnknown, eris.Wrapf(ErrTargetBanned,
			"%s has %d vac and %d game bans", report.Target, summary.VACBanCount, summary.GameBanCount))
		return false
	}

	return true
}

func (s *AccountSession) handle(event transport.Event) {
	switch e := event.(type) {
	case transport.ConnectedEvent:
		s.onConnected()
	case transport.DisconnectedEvent:
		s.onDisconnected(e)
	case transport.LoggedOnEvent:
		s.onLoggedOn(e)
	case transport.LoggedOffEvent:
		s.onLoggedOff(e)
	case transport.MachineAuthUpdateEvent:
		s.onMachineAuth(e)
	case transport.LoginKeyEvent:
		s.onLoginKey(e)
	case transport.GCMessageEvent:
		s.onGCMessage(e)
	default:
		s.logger.Debug("ignoring transport event", zap.Any("event", event))
	}
}

func (s *AccountSession) onConnected() {
	s.logger.Debug("connected to steam, logging on")
	s.loadTrust()
	s.logOn()
}

func (s *AccountSession) loadTrust() {
	if !s.strategy.PersistTrust || s.trustStore == nil {
		return
	}

	deviceTrust, err := s.trustStore.Load(s.account.Username)
	if err != nil {
		s.logger.Warn("could not load device trust, logging on without it", zap.Error(err))
		return
	}

	s.deviceTrust = deviceTrust
}

func (s *AccountSession) logOn() {
	details := transport.LogOnDetails{
		Username:               s.account.Username,
		Password:               s.account.Password,
		AuthCode:               s.pendingAuthCode,
		TwoFactorCode:          s.pendingTwoFactor,
		LoginID:                newLoginID(),
		ShouldRememberPassword: s.strategy.PersistTrust,
	}

	if s.deviceTrust != nil {
		if len(s.deviceTrust.SentryHash) > 0 {
			details.SentryFileHash = s.deviceTrust.SentryHash
		}
		if trust.LoginKeyUsable(s.deviceTrust.LoginKey, s.now()) {
			details.LoginKey = s.deviceTrust.LoginKey
			details.Password = ""
		}
	}

	s.transport.LogOn(details)
}

func newLoginID() uint32 {
	var buffer [4]byte
	if _, err := rand.Read(buffer[:]); err != nil {
		return uint32(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint32(buffer[:])
}

func (s *AccountSession) onDisconnected(e transport.DisconnectedEvent) {
	s.reconnects++

	result := s.Result()
	if !e.UserInitiated &&
		s.reconnects <= s.maxReconnects &&
		result != ResultSuccess &&
		result != ResultAlreadyLoggedInSomewhereElse &&
		s.IsRunning() {
		s.logger.Debug("disconnected from steam, reconnecting",
			zap.Int("attempt", s.reconnects),
			zap.Int("max", s.maxReconnects),
			zap.Duration("delay", s.reconnectDelay))

		if !s.sleep(s.reconnectDelay) {
			return
		}
		s.transport.Connect()
		return
	}

	if e.UserInitiated {
		s.finish(ResultUnknown, eris.Wrap(ErrSessionStopped, "disconnected by user"))
		return
	}

	s.finish(ResultUnknown, eris.Wrapf(ErrReconnectsExceeded, "gave up after %d reconnects", s.reconnects-1))
}

func (s *AccountSession) onLoggedOn(e transport.LoggedOnEvent) {
	decision := classifyLogon(s.strategy, e.Result)

	switch decision.outcome {
	case logonProceed:
		s.pendingAuthCode = ""
		s.pendingTwoFactor = ""
		s.logger.Info("logged on to steam", zap.Stringer("steamid", e.SteamID))

		app := s.appID()
		s.transport.SetPersonaState(steamlang.OnlinePersonaState)
		s.transport.SetGamesPlayed(app)

		if !s.sleep(s.settleDelay) {
			return
		}
		s.transport.SendGC(app, gc.ClientHello{})

	case logonNeedTwoFactor:
		code, err := s.twoFactorCode()
		if err != nil {
			s.failWaiting(err)
			return
		}
		s.pendingTwoFactor = code
		s.resubmit()

	case logonNeedEmailCode:
		code, err := s.promptCode(s.emailCodes, e.EmailDomain)
		if err != nil {
			s.failWaiting(err)
			return
		}
		s.pendingAuthCode = code
		s.resubmit()

	case logonAwaitReconnect:
		s.logger.Warn("steam refused logon, waiting for reconnect",
			zap.Stringer("result", e.Result), zap.Stringer("extended", e.ExtendedResult))

	case logonTerminal:
		s.finish(decision.result, eris.Wrapf(decision.err,
			"logon returned %s (extended %s)", e.Result, e.ExtendedResult))
	}
}

func (s *AccountSession) twoFactorCode() (string, error) {
	if s.strategy.GenerateCodes && s.account.SharedSecret != "" {
		code, err := totp.GenerateCode(s.account.SharedSecret, s.steamTime())
		if err != nil {
			return "", eris.Wrap(err, "generating two-factor code")
		}
		s.logger.Debug("generated two-factor code from shared secret")
		return code, nil
	}

	return s.promptCode(s.twoFactorCodes, "")
}

func (s *AccountSession) promptCode(channel *guard.Channel, emailDomain string) (string, error) {
	s.logger.Info("waiting for steam guard code", zap.Stringer("kind", channel.Kind()))

	s.presenter.ShowCodePrompt(s.account.Username, channel.Kind(), emailDomain)
	defer s.presenter.HideCodePrompt(s.account.Username, channel.Kind())

	return channel.Wait(s.ctx)
}

func (s *AccountSession) failWaiting(err error) {
	if eris.Is(err, guard.ErrCancelled) {
		s.logger.Debug("stopped while waiting for steam guard code")
		return
	}
	s.finish(ResultUnknown, err)
}

// resubmit logs on again with the pending codes. If the platform already dropped the
// connection the next ConnectedEvent carries them instead.
func (s *AccountSession) resubmit() {
	if !s.transport.Connected() {
		return
	}
	s.logOn()
}

func (s *AccountSession) onLoggedOff(e transport.LoggedOffEvent) {
	if e.Result == steamlang.LoggedInElsewhereResult || e.Result == steamlang.AlreadyLoggedInElsewhereResult {
		s.finish(ResultAlreadyLoggedInSomewhereElse, ErrLoggedInElsewhere)
		return
	}

	s.logger.Debug("logged off from steam", zap.Stringer("result", e.Result))
}

func (s *AccountSession) onMachineAuth(e transport.MachineAuthUpdateEvent) {
	if !s.strategy.PersistTrust || s.trustStore == nil {
		s.logger.Debug("ignoring sentry update, device trust is not kept for this account")
		return
	}

	hash, fileSize, err := s.trustStore.SaveSentry(s.account.Username, e.Offset, e.Data, e.BytesToWrite)
	if err != nil {
		s.logger.Error("could not save sentry file, steam will ask for a guard code next time", zap.Error(err))
		return
	}

	s.transport.SendMachineAuthResponse(transport.MachineAuthResponse{
		JobID:    e.JobID,
		FileName: e.FileName,

		BytesWritten: e.BytesToWrite,
		FileSize:     fileSize,
		Offset:       e.Offset,

		Result:    steamlang.OKResult,
		LastError: 0,

		OneTimePassword: e.OneTimePassword,
		SentryFileHash:  hash,
	})

	if s.deviceTrust == nil {
		s.deviceTrust = &trust.DeviceTrust{}
	}
	s.deviceTrust.SentryHash = hash

	s.logger.Info("updated sentry file")
}

func (s *AccountSession) onLoginKey(e transport.LoginKeyEvent) {
	if !s.strategy.PersistTrust || s.trustStore == nil {
		return
	}

	if err := s.trustStore.SaveLoginKey(s.account.Username, e.LoginKey); err != nil {
		s.logger.Error("could not save login key", zap.Error(err))
		return
	}

	s.transport.AcceptLoginKey(e.UniqueID)

	if s.deviceTrust == nil {
		s.deviceTrust = &trust.DeviceTrust{}
	}
	s.deviceTrust.LoginKey = e.LoginKey
}

func (s *AccountSession) onGCMessage(e transport.GCMessageEvent) {
	if e.AppID != s.appID() {
		s.logger.Debug("ignoring message for another app", zap.Uint32("app", e.AppID))
		return
	}

	switch e.MsgType {
	case gc.ClientWelcomeMsgType:
		welcome, err := gc.DecodeWelcome(e.Body)
		if err != nil {
			s.protocolFault(e.MsgType, err)
			return
		}
		s.logger.Debug("coordinator welcomed us",
			zap.Uint32("version", welcome.Version), zap.String("country", welcome.Country))
		s.transport.SendGC(e.AppID, gc.MatchmakingClientHello{})

	case gc.MatchmakingGC2ClientHelloMsgType:
		hello, err := gc.DecodeMatchmakingHello(e.Body)
		if err != nil {
			s.protocolFault(e.MsgType, err)
			return
		}
		s.onMatchmakingHello(e.AppID, hello)

	case gc.ClientReportResponseMsgType:
		response, err := gc.DecodeReportResponse(e.Body)
		if err != nil {
			s.protocolFault(e.MsgType, err)
			return
		}
		s.logger.Info("report accepted", zap.Uint64("confirmation", response.ConfirmationID))
		s.finish(ResultSuccess, nil)

	case gc.ClientCommendPlayerQueryResponseType:
		if _, err := gc.DecodeCommendResponse(e.Body); err != nil {
			s.protocolFault(e.MsgType, err)
			return
		}
		s.logger.Info("commendation accepted")
		s.finish(ResultSuccess, nil)

	case gc.MatchListMsgType:
		list, err := gc.DecodeMatchList(e.Body)
		if err != nil {
			s.protocolFault(e.MsgType, err)
			return
		}
		s.onMatchList(list)

	default:
		s.logger.Debug("ignoring coordinator message", zap.Stringer("type", e.MsgType))
	}
}

func (s *AccountSession) onMatchmakingHello(app uint32, hello gc.MatchmakingHello) {
	outcome := ClassifyPenalty(hello)

	s.mu.Lock()
	s.penalty = &outcome
	report, commend, liveMatch := s.report, s.commend, s.liveMatch
	s.mu.Unlock()

	if outcome.Blocked() {
		s.finish(ResultAccountBanned, eris.Wrapf(ErrAccountBanned, "%s", outcome))
		return
	}

	switch {
	case report != nil:
		s.logger.Info("reporting player", zap.Stringer("target", report.Target), zap.Uint64("match", report.MatchID))
		s.transport.SendGC(app, gc.BuildReport(*report))
	case commend != nil:
		s.logger.Info("commending player", zap.Stringer("target", commend.Target), zap.Stringer("commendation", commend))
		s.transport.SendGC(app, gc.BuildCommend(*commend))
	case liveMatch != nil:
		s.logger.Info("requesting live match", zap.Stringer("target", liveMatch.Target))
		s.transport.SendGC(app, gc.BuildLiveGame(*liveMatch))
	default:
		s.logger.Info("no action bound, account is in good standing")
		s.finish(ResultSuccess, nil)
	}
}

func (s *AccountSession) onMatchList(list gc.MatchList) {
	s.mu.Lock()
	if len(list.Matches) == 0 {
		s.matchInfo = gc.NoMatchInfo()
	} else {
		match := list.Matches[0]
		s.matchInfo = &match
	}
	matchID := s.matchInfo.MatchID
	s.mu.Unlock()

	if len(list.Matches) == 0 {
		s.logger.Info("target is not playing a match")
		s.finish(ResultNoMatches, nil)
		return
	}

	s.logger.Info("found live match", zap.Uint64("match", matchID), zap.Int("matches", len(list.Matches)))
	s.finish(ResultSuccess, nil)
}

func (s *AccountSession) protocolFault(msgType gc.MsgType, err error) {
	s.finish(ResultUnknown, eris.Wrapf(ErrProtocol, "%s: %v", msgType, err))
}
