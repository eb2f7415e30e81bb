package steamgc

import (
	"context"
	"crypto/sha1"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/escrow-tf/steamgc/api/bans"
	"github.com/escrow-tf/steamgc/api/twofactor"
	"github.com/escrow-tf/steamgc/gc"
	"github.com/escrow-tf/steamgc/guard"
	"github.com/escrow-tf/steamgc/steamid"
	"github.com/escrow-tf/steamgc/steamlang"
	"github.com/escrow-tf/steamgc/transport"
	"github.com/escrow-tf/steamgc/trust"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/protobuf/encoding/protowire"
)

//goland:noinspection SpellCheckingInspection
const testSharedSecret = "cnOgv/KdpLoP6Nbh0GMkXkPXALQ="

var (
	botID    = steamid.NewIndividual(1001)
	targetID = steamid.NewIndividual(22202)
)

// varints encodes (field number, value) pairs.
func varints(pairs ...uint64) []byte {
	var b []byte
	for i := 0; i+1 < len(pairs); i += 2 {
		b = protowire.AppendTag(b, protowire.Number(pairs[i]), protowire.VarintType)
		b = protowire.AppendVarint(b, pairs[i+1])
	}
	return b
}

func matchListBody(matches ...[]byte) []byte {
	b := varints(2, uint64(targetID.AccountId()))
	for _, match := range matches {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, match)
	}
	return b
}

func gcEvent(msgType gc.MsgType, body []byte) transport.GCMessageEvent {
	return transport.GCMessageEvent{AppID: gc.CSGOAppID, MsgType: msgType, Body: body}
}

// script drives a transport.Fake the way Steam answers a well behaved client.
type script struct {
	logOnResults []steamlang.EResult
	emailDomain  string
	beforeLogOn  []transport.Event
	afterLogOn   []transport.Event
	hello        []byte
	replies      map[gc.MsgType]transport.GCMessageEvent
}

func (s script) fake() *transport.Fake {
	fake := transport.NewFake()
	attempts := 0

	fake.OnLogOn = func(f *transport.Fake, details transport.LogOnDetails) {
		result := steamlang.OKResult
		if attempts < len(s.logOnResults) {
			result = s.logOnResults[attempts]
		}
		attempts++

		for _, event := range s.beforeLogOn {
			f.Emit(event)
		}
		f.Emit(transport.LoggedOnEvent{Result: result, EmailDomain: s.emailDomain, SteamID: botID})
		if result == steamlang.OKResult {
			for _, event := range s.afterLogOn {
				f.Emit(event)
			}
		}
	}

	fake.OnSendGC = func(f *transport.Fake, packet transport.GCPacket) {
		switch packet.MsgType {
		case gc.ClientHelloMsgType:
			f.Emit(gcEvent(gc.ClientWelcomeMsgType, varints(1, 2000)))
		case gc.MatchmakingClient2GCHelloMsgType:
			f.Emit(gcEvent(gc.MatchmakingGC2ClientHelloMsgType, s.hello))
		default:
			if reply, ok := s.replies[packet.MsgType]; ok {
				f.Emit(reply)
			}
		}
	}

	return fake
}

type recordingPresenter struct {
	mu       sync.Mutex
	shown    []guard.Kind
	domains  []string
	hidden   int
	notified []Result
	onShow   func(kind guard.Kind)
}

func (p *recordingPresenter) ShowCodePrompt(_ string, kind guard.Kind, emailDomain string) {
	p.mu.Lock()
	p.shown = append(p.shown, kind)
	p.domains = append(p.domains, emailDomain)
	onShow := p.onShow
	p.mu.Unlock()

	if onShow != nil {
		onShow(kind)
	}
}

func (p *recordingPresenter) HideCodePrompt(string, guard.Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden++
}

func (p *recordingPresenter) Notify(_ string, result Result, _ error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notified = append(p.notified, result)
}

func (p *recordingPresenter) prompts() []guard.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]guard.Kind(nil), p.shown...)
}

type stubBans struct {
	summary bans.Summary
	err     error
	calls   int
}

func (b *stubBans) Lookup(_ context.Context, id steamid.SteamID) (bans.Summary, error) {
	b.calls++
	summary := b.summary
	summary.SteamID = id
	return summary, b.err
}

func newTestSession(t *testing.T, account Account, fake *transport.Fake, options ...Option) *AccountSession {
	t.Helper()

	base := []Option{
		WithReconnectPolicy(DefaultMaxReconnects, 0),
		WithSettleDelay(0),
		WithPollInterval(10 * time.Millisecond),
		WithLogger(zaptest.NewLogger(t)),
	}
	return NewAccountSession(account, fake, append(base, options...)...)
}

func run(t *testing.T, session *AccountSession) (Result, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return session.Start(ctx)
}

func reportRequest() gc.ReportRequest {
	return gc.ReportRequest{Target: targetID, MatchID: gc.PlaceholderMatchID, AimHacking: true, AbusiveVoice: true}
}

func TestReportEndToEnd(t *testing.T) {
	fake := script{
		replies: map[gc.MsgType]transport.GCMessageEvent{
			gc.ClientReportPlayerMsgType: gcEvent(gc.ClientReportResponseMsgType,
				varints(1, 42, 2, uint64(targetID.AccountId()))),
		},
	}.fake()

	finished := 0
	presenter := &recordingPresenter{}
	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake,
		WithPresenter(presenter),
		WithOnFinished(func(*AccountSession) { finished++ }))
	require.NoError(t, session.FeedReport(reportRequest()))

	result, err := run(t, session)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result)
	assert.Equal(t, 1, finished)
	assert.False(t, session.IsRunning())
	assert.Equal(t, []Result{ResultSuccess}, presenter.notified)

	reports := fake.SentOfType(gc.ClientReportPlayerMsgType)
	require.Len(t, reports, 1)
	assert.Equal(t, gc.BuildReport(reportRequest()).Marshal(), reports[0].Body)

	assert.Equal(t, []uint32{gc.CSGOAppID}, fake.GamesPlayed())
	assert.Equal(t, steamlang.OfflinePersonaState, fake.PersonaState())
	assert.Equal(t, 1, fake.Connects())
	assert.Equal(t, 1, fake.LogOffs())
	assert.Equal(t, 1, fake.Disconnects())

	session.Stop()
	assert.Equal(t, 1, finished)
	assert.Equal(t, 1, fake.LogOffs())
}

func TestHandshakeOrder(t *testing.T) {
	fake := script{}.fake()
	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake)

	result, err := run(t, session)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result)

	var sent []gc.MsgType
	for _, packet := range fake.GCSent() {
		sent = append(sent, packet.MsgType)
	}
	assert.Equal(t, []gc.MsgType{gc.ClientHelloMsgType, gc.MatchmakingClient2GCHelloMsgType}, sent)

	penalty, ok := session.Penalty()
	require.True(t, ok)
	assert.Equal(t, NoPenalty, penalty.Kind)
}

func TestCommend(t *testing.T) {
	fake := script{
		replies: map[gc.MsgType]transport.GCMessageEvent{
			gc.ClientCommendPlayerMsgType: gcEvent(gc.ClientCommendPlayerQueryResponseType,
				varints(1, uint64(targetID.AccountId()))),
		},
	}.fake()

	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake)
	require.NoError(t, session.FeedCommend(gc.CommendRequest{Target: targetID, Friendly: true, Leader: true}))

	result, err := run(t, session)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result)
	assert.Len(t, fake.SentOfType(gc.ClientCommendPlayerMsgType), 1)
}

func TestOnlyOneActionBinds(t *testing.T) {
	session := newTestSession(t, Account{Username: "alice"}, transport.NewFake())

	require.NoError(t, session.FeedReport(reportRequest()))
	assert.ErrorIs(t, session.FeedReport(reportRequest()), ErrActionAlreadyBound)
	assert.ErrorIs(t, session.FeedCommend(gc.CommendRequest{Target: targetID}), ErrActionAlreadyBound)
	assert.ErrorIs(t, session.FeedLiveMatch(gc.LiveMatchRequest{Target: targetID}), ErrActionAlreadyBound)

	session.Stop()
	assert.ErrorIs(t, session.FeedLiveMatch(gc.LiveMatchRequest{Target: targetID}), ErrSessionFinished)
}

func TestSentryHashAttached(t *testing.T) {
	store := trust.NewFileStore(t.TempDir())
	hash, _, err := store.SaveSentry("alice", 0, []byte("sentry-bytes"), 12)
	require.NoError(t, err)

	fake := script{}.fake()
	presenter := &recordingPresenter{}
	session := newTestSession(t, Account{Username: "alice", Password: "hunter2", Sentry: true}, fake,
		WithTrustStore(store), WithPresenter(presenter))

	result, err := run(t, session)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result)

	logOns := fake.LogOns()
	require.Len(t, logOns, 1)
	assert.Equal(t, hash, logOns[0].SentryFileHash)
	assert.Empty(t, logOns[0].TwoFactorCode)
	assert.Empty(t, presenter.prompts())
}

func TestLoginKeyReplacesPassword(t *testing.T) {
	dir := t.TempDir()
	store := trust.NewFileStore(dir)
	require.NoError(t, store.SaveLoginKey("alice", "opaque-login-key"))

	fake := script{}.fake()
	session := newTestSession(t, Account{Username: "alice", Password: "hunter2", Sentry: true}, fake,
		WithTrustStore(store))

	_, err := run(t, session)
	require.NoError(t, err)

	logOns := fake.LogOns()
	require.Len(t, logOns, 1)
	assert.Equal(t, "opaque-login-key", logOns[0].LoginKey)
	assert.Empty(t, logOns[0].Password)
	assert.True(t, logOns[0].ShouldRememberPassword)
}

func TestSharedSecretSkipsPrompt(t *testing.T) {
	fake := script{logOnResults: []steamlang.EResult{steamlang.AccountLoginDeniedNeedTwoFactorResult}}.fake()
	presenter := &recordingPresenter{}
	session := newTestSession(t, Account{Username: "alice", Password: "hunter2", SharedSecret: testSharedSecret}, fake,
		WithPresenter(presenter),
		WithSteamTime(func() time.Time { return time.Unix(1700000000, 0) }))

	result, err := run(t, session)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result)

	logOns := fake.LogOns()
	require.Len(t, logOns, 2)
	assert.Empty(t, logOns[0].TwoFactorCode)
	assert.Equal(t, "X45RP", logOns[1].TwoFactorCode)
	assert.Empty(t, presenter.prompts())
}

func TestTwoFactorCodeResubmittedVerbatim(t *testing.T) {
	fake := script{logOnResults: []steamlang.EResult{steamlang.AccountLoginDeniedNeedTwoFactorResult}}.fake()
	presenter := &recordingPresenter{}
	session := newTestSession(t, Account{Username: "alice", Password: "hunter2", Sentry: true}, fake,
		WithPresenter(presenter))
	presenter.onShow = func(guard.Kind) {
		go session.FeedSecondFactorCode("F7KQ2")
	}

	result, err := run(t, session)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result)

	logOns := fake.LogOns()
	require.Len(t, logOns, 2)
	assert.Equal(t, "F7KQ2", logOns[1].TwoFactorCode)
	assert.Empty(t, logOns[1].AuthCode)
	assert.Equal(t, []guard.Kind{guard.TwoFactorKind}, presenter.prompts())
	assert.Equal(t, 1, presenter.hidden)
}

func TestEmailCodeResubmitted(t *testing.T) {
	fake := script{
		logOnResults: []steamlang.EResult{steamlang.AccountLogonDeniedResult},
		emailDomain:  "example.com",
	}.fake()
	presenter := &recordingPresenter{}
	session := newTestSession(t, Account{Username: "alice", Password: "hunter2", Sentry: true}, fake,
		WithPresenter(presenter))
	presenter.onShow = func(guard.Kind) {
		go session.FeedEmailAuthCode("G2D4B")
	}

	result, err := run(t, session)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result)

	logOns := fake.LogOns()
	require.Len(t, logOns, 2)
	assert.Equal(t, "G2D4B", logOns[1].AuthCode)
	assert.Equal(t, []guard.Kind{guard.EmailKind}, presenter.prompts())
	assert.Equal(t, []string{"example.com"}, presenter.domains)
}

func TestUnprotectedGuardChallengeFails(t *testing.T) {
	for _, code := range []steamlang.EResult{
		steamlang.AccountLogonDeniedResult,
		steamlang.AccountLoginDeniedNeedTwoFactorResult,
	} {
		t.Run(code.String(), func(t *testing.T) {
			fake := script{logOnResults: []steamlang.EResult{code}}.fake()
			presenter := &recordingPresenter{}
			session := newTestSession(t, Account{Username: "bob", Password: "hunter2"}, fake,
				WithPresenter(presenter))

			result, err := run(t, session)
			assert.Equal(t, ResultSentryRequired, result)
			assert.True(t, eris.Is(err, ErrSentryRequired))
			assert.Len(t, fake.LogOns(), 1)
			assert.Empty(t, presenter.prompts())
		})
	}
}

func TestTerminalLogonResults(t *testing.T) {
	cases := map[steamlang.EResult]Result{
		steamlang.RateLimitExceededResult:     ResultRateLimit,
		steamlang.TwoFactorCodeMismatchResult: ResultCode2FAWrong,
		steamlang.InvalidPasswordResult:       ResultCode2FAWrong,
		steamlang.AccountDisabledResult:       ResultAccountBanned,
		steamlang.IPBannedResult:              ResultUnknown,
	}

	for code, expected := range cases {
		t.Run(code.String(), func(t *testing.T) {
			fake := script{logOnResults: []steamlang.EResult{code}}.fake()
			session := newTestSession(t, Account{Username: "alice", Password: "hunter2", Sentry: true}, fake)

			result, err := run(t, session)
			assert.Equal(t, expected, result)
			require.Error(t, err)
			assert.Contains(t, err.Error(), code.String())
			assert.Len(t, fake.LogOns(), 1)
			assert.Empty(t, fake.GCSent())
		})
	}
}

func TestReconnectBudget(t *testing.T) {
	fake := transport.NewFake()
	fake.OnConnect = func(f *transport.Fake) {
		f.Drop()
	}

	finished := 0
	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake,
		WithOnFinished(func(*AccountSession) { finished++ }))

	result, err := run(t, session)
	assert.Equal(t, ResultUnknown, result)
	assert.True(t, eris.Is(err, ErrReconnectsExceeded))

	// the initial connect plus exactly five reconnects
	assert.Equal(t, 6, fake.Connects())
	assert.Empty(t, fake.LogOns())
	assert.Equal(t, 1, finished)
	assert.False(t, session.IsRunning())
}

func TestReconnectRecovers(t *testing.T) {
	fake := script{}.fake()
	drops := 0
	fake.OnConnect = func(f *transport.Fake) {
		if drops < 2 {
			drops++
			f.Drop()
			return
		}
		f.Emit(transport.ConnectedEvent{})
	}

	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake)

	result, err := run(t, session)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result)
	assert.Equal(t, 3, fake.Connects())
}

func TestLoggedInElsewhere(t *testing.T) {
	fake := script{
		afterLogOn: []transport.Event{transport.LoggedOffEvent{Result: steamlang.LoggedInElsewhereResult}},
	}.fake()

	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake)
	require.NoError(t, session.FeedReport(reportRequest()))

	result, err := run(t, session)
	assert.Equal(t, ResultAlreadyLoggedInSomewhereElse, result)
	assert.ErrorIs(t, err, ErrLoggedInElsewhere)
	assert.Equal(t, 1, fake.Connects())
	assert.Empty(t, fake.SentOfType(gc.ClientReportPlayerMsgType))
}

func TestMajorPenaltyBlocksAction(t *testing.T) {
	fake := script{
		hello: varints(1, uint64(botID.AccountId()), 4, 86400, 5, uint64(PenaltyReasonOverwatchMajorlyDisruptive)),
		replies: map[gc.MsgType]transport.GCMessageEvent{
			gc.ClientReportPlayerMsgType: gcEvent(gc.ClientReportResponseMsgType, varints(1, 42)),
		},
	}.fake()

	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake)
	require.NoError(t, session.FeedReport(reportRequest()))

	result, err := run(t, session)
	assert.Equal(t, ResultAccountBanned, result)
	assert.True(t, eris.Is(err, ErrAccountBanned))
	assert.Empty(t, fake.SentOfType(gc.ClientReportPlayerMsgType))

	penalty, ok := session.Penalty()
	require.True(t, ok)
	assert.Equal(t, OverwatchMajorPenalty, penalty.Kind)
}

func TestCooldownBlocksAction(t *testing.T) {
	fake := script{hello: varints(4, 3600)}.fake()

	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake)
	require.NoError(t, session.FeedCommend(gc.CommendRequest{Target: targetID, Teacher: true}))

	result, _ := run(t, session)
	assert.Equal(t, ResultAccountBanned, result)
	assert.Empty(t, fake.SentOfType(gc.ClientCommendPlayerMsgType))

	penalty, _ := session.Penalty()
	assert.Equal(t, CooldownPenalty, penalty.Kind)
	assert.Equal(t, time.Hour, penalty.Duration)
}

func TestLiveMatchWithoutMatches(t *testing.T) {
	fake := script{
		replies: map[gc.MsgType]transport.GCMessageEvent{
			gc.MatchListRequestLiveGameForUserMsgType: gcEvent(gc.MatchListMsgType, matchListBody()),
		},
	}.fake()

	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake)
	require.NoError(t, session.FeedLiveMatch(gc.LiveMatchRequest{Target: targetID}))

	result, err := run(t, session)
	require.NoError(t, err)
	assert.Equal(t, ResultNoMatches, result)

	info := session.MatchInfo()
	require.NotNil(t, info)
	assert.Equal(t, gc.PlaceholderMatchID, info.MatchID)
}

func TestLiveMatchTakesFirstMatch(t *testing.T) {
	fake := script{
		replies: map[gc.MsgType]transport.GCMessageEvent{
			gc.MatchListRequestLiveGameForUserMsgType: gcEvent(gc.MatchListMsgType, matchListBody(
				varints(1, 3141592653, 2, 1700000000),
				varints(1, 2718281828, 2, 1700000100),
			)),
		},
	}.fake()

	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake)
	require.NoError(t, session.FeedLiveMatch(gc.LiveMatchRequest{Target: targetID}))

	result, err := run(t, session)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result)

	info := session.MatchInfo()
	require.NotNil(t, info)
	assert.Equal(t, uint64(3141592653), info.MatchID)
	assert.Equal(t, uint32(1700000000), info.MatchTime)
}

func TestSentryUpdateAcknowledged(t *testing.T) {
	data := []byte("fresh sentry file")
	otp := transport.OneTimePassword{Type: 1, Identifier: "device", Value: 7}

	fake := script{
		afterLogOn: []transport.Event{
			transport.MachineAuthUpdateEvent{
				JobID:           99,
				FileName:        "ssfn123",
				Offset:          0,
				BytesToWrite:    len(data),
				Data:            data,
				OneTimePassword: otp,
			},
			transport.LoginKeyEvent{UniqueID: 7, LoginKey: "rotated-key"},
		},
	}.fake()
	// the coordinator never answers, so the session stays up until stopped
	fake.OnSendGC = nil

	store := trust.NewFileStore(t.TempDir())
	session := newTestSession(t, Account{Username: "alice", Password: "hunter2", Sentry: true}, fake,
		WithTrustStore(store))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = run(t, session)
	}()

	require.Eventually(t, func() bool {
		return len(fake.AcceptedLoginKeys()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	session.Stop()
	<-done

	expectedHash := sha1.Sum(data)
	acks := fake.MachineAuthResponses()
	require.Len(t, acks, 1)
	assert.Equal(t, uint64(99), acks[0].JobID)
	assert.Equal(t, "ssfn123", acks[0].FileName)
	assert.Equal(t, 0, acks[0].Offset)
	assert.Equal(t, len(data), acks[0].BytesWritten)
	assert.Equal(t, len(data), acks[0].FileSize)
	assert.Equal(t, steamlang.OKResult, acks[0].Result)
	assert.Equal(t, otp, acks[0].OneTimePassword)
	assert.Equal(t, expectedHash[:], acks[0].SentryFileHash)

	assert.Equal(t, []uint32{7}, fake.AcceptedLoginKeys())
	stored, err := store.Load("alice")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "rotated-key", stored.LoginKey)
	assert.Equal(t, expectedHash[:], stored.SentryHash)
}

func TestSentrySaveFailureSkipsAck(t *testing.T) {
	notADir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0o600))

	fake := script{
		beforeLogOn: []transport.Event{
			transport.MachineAuthUpdateEvent{JobID: 1, FileName: "ssfn", BytesToWrite: 3, Data: []byte("abc")},
		},
	}.fake()

	session := newTestSession(t, Account{Username: "alice", Password: "hunter2", Sentry: true}, fake,
		WithTrustStore(trust.NewFileStore(notADir)))

	result, err := run(t, session)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result)
	assert.Empty(t, fake.MachineAuthResponses())
}

func TestStopIsIdempotent(t *testing.T) {
	finished := 0
	fake := transport.NewFake()
	session := newTestSession(t, Account{Username: "alice"}, fake,
		WithOnFinished(func(*AccountSession) { finished++ }))

	session.Stop()
	assert.False(t, session.IsRunning())
	session.Stop()
	assert.False(t, session.IsRunning())
	assert.Equal(t, 1, finished)

	_, err := session.Start(context.Background())
	assert.ErrorIs(t, err, ErrSessionFinished)
	assert.Zero(t, fake.Connects())
}

func TestStopWhileWaitingForCode(t *testing.T) {
	fake := script{logOnResults: []steamlang.EResult{steamlang.AccountLoginDeniedNeedTwoFactorResult}}.fake()
	presenter := &recordingPresenter{}

	finished := 0
	session := newTestSession(t, Account{Username: "alice", Password: "hunter2", Sentry: true}, fake,
		WithPresenter(presenter),
		WithOnFinished(func(*AccountSession) { finished++ }))
	presenter.onShow = func(guard.Kind) {
		go session.Stop()
	}

	result, err := run(t, session)
	assert.Equal(t, ResultUnknown, result)
	assert.ErrorIs(t, err, ErrSessionStopped)
	assert.Len(t, fake.LogOns(), 1)
	assert.Equal(t, 1, finished)
	assert.Equal(t, 1, fake.Disconnects())
}

func TestContextCancelStopsSession(t *testing.T) {
	fake := transport.NewFake()
	fake.OnConnect = func(*transport.Fake) {}

	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := session.Start(ctx)
	assert.Equal(t, ResultUnknown, result)
	assert.ErrorIs(t, err, ErrSessionStopped)
	assert.False(t, session.IsRunning())
}

func TestBannedTargetIsNotReported(t *testing.T) {
	lookup := &stubBans{summary: bans.Summary{VACBanned: true, VACBanCount: 1}}
	fake := script{}.fake()

	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake, WithBanLookup(lookup))
	require.NoError(t, session.FeedReport(reportRequest()))

	result, err := run(t, session)
	assert.Equal(t, ResultUnknown, result)
	assert.True(t, eris.Is(err, ErrTargetBanned))
	assert.Equal(t, 1, lookup.calls)
	assert.Zero(t, fake.Connects())
}

func TestBanLookupFailureDoesNotBlock(t *testing.T) {
	lookup := &stubBans{err: bans.ErrPlayerNotFound}
	fake := script{
		replies: map[gc.MsgType]transport.GCMessageEvent{
			gc.ClientReportPlayerMsgType: gcEvent(gc.ClientReportResponseMsgType, varints(1, 42)),
		},
	}.fake()

	session := newTestSession(t, Account{Username: "alice", Password: "hunter2"}, fake, WithBanLookup(lookup))
	require.NoError(t, session.FeedReport(reportRequest()))

	result, err := run(t, session)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result)
	assert.Equal(t, 1, lookup.calls)
}

type fixedSteamClock struct {
	at  time.Time
	err error
}

func (c fixedSteamClock) SteamTime() (time.Time, error) { return c.at, c.err }

func (c fixedSteamClock) AlignTime(context.Context) error { return nil }

func (c fixedSteamClock) QueryTime(context.Context) (*twofactor.QueryTimeResponse, error) {
	return nil, nil
}

func TestAlignedTimeDrivesGeneratedCodes(t *testing.T) {
	cases := map[string]struct {
		clock    fixedSteamClock
		expected string
	}{
		"aligned":     {fixedSteamClock{at: time.Unix(1700000000, 0)}, "X45RP"},
		"not aligned": {fixedSteamClock{err: twofactor.ErrNotAligned}, "W3J46"},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			fake := script{logOnResults: []steamlang.EResult{steamlang.AccountLoginDeniedNeedTwoFactorResult}}.fake()
			session := newTestSession(t, Account{Username: "alice", SharedSecret: testSharedSecret}, fake,
				WithClock(func() time.Time { return time.Unix(0, 0) }),
				WithAlignedTime(c.clock))

			_, err := run(t, session)
			require.NoError(t, err)

			logOns := fake.LogOns()
			require.Len(t, logOns, 2)
			assert.Equal(t, c.expected, logOns[1].TwoFactorCode)
		})
	}
}
