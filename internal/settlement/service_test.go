package settlement

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/game-provider-platform/internal/games/catalog"
	"github.com/radieske/game-provider-platform/internal/games/crash"
	"github.com/radieske/game-provider-platform/internal/games/dice"
	"github.com/radieske/game-provider-platform/internal/games/engine"
	"github.com/radieske/game-provider-platform/internal/games/slot"
	"github.com/radieske/game-provider-platform/internal/settlement/dto"
	"github.com/radieske/game-provider-platform/internal/settlement/repo"
	"github.com/radieske/game-provider-platform/internal/shared/apperr"
	"github.com/radieske/game-provider-platform/internal/shared/idempotency"
	"github.com/radieske/game-provider-platform/internal/shared/lock"
	"github.com/radieske/game-provider-platform/internal/shared/money"
	"github.com/radieske/game-provider-platform/internal/wallet"
	walletrepo "github.com/radieske/game-provider-platform/internal/wallet/repo"
	"github.com/radieske/game-provider-platform/pkg/contracts/events"
)

var zeroSeed = strings.Repeat("0", 64)

const operator = "op-1"

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.RoundSettled
}

func (p *recordingPublisher) PublishRoundSettled(_ context.Context, e events.RoundSettled) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	svc     *Service
	ledger  *wallet.Ledger
	rounds  *repo.Memory
	locker  *lock.Memory
	idem    *idempotency.Memory
	pub     *recordingPublisher
	metrics *Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := catalog.Default()
	require.NoError(t, err)

	f := &fixture{
		ledger:  wallet.NewLedger(walletrepo.NewMemory(), zap.NewNop(), nil),
		rounds:  repo.NewMemory(),
		locker:  lock.NewMemory(),
		idem:    idempotency.NewMemory(),
		pub:     &recordingPublisher{},
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	f.svc = NewService(Deps{
		Log:       zap.NewNop(),
		Registry:  reg,
		Rounds:    f.rounds,
		Ledger:    f.ledger,
		Locker:    f.locker,
		Guard:     idempotency.NewGuard(f.idem, nil),
		Publisher: f.pub,
		Metrics:   f.metrics,
		LockTTL:   time.Second,
	})
	f.svc.newSeed = func() (string, error) { return zeroSeed, nil }
	return f
}

func (f *fixture) fund(t *testing.T, player, amount string) {
	t.Helper()
	_, err := f.ledger.Credit(context.Background(), wallet.Op{
		OperatorID: operator, PlayerExternalID: player, Currency: "USD", Amount: money.MustParse(amount),
	})
	require.NoError(t, err)
}

func (f *fixture) init(t *testing.T, game, player string) dto.InitResponse {
	t.Helper()
	out, err := f.svc.Init(context.Background(), operator, dto.InitRequest{
		GameCode: game, PlayerExternalID: player, Currency: "USD", ClientSeed: "abc",
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) txs(t *testing.T, player string) []walletrepo.Transaction {
	t.Helper()
	_, txs, err := f.ledger.Statement(context.Background(), operator, player, "USD")
	require.NoError(t, err)
	return txs
}

func decode(t *testing.T, body []byte) dto.PlayResponse {
	t.Helper()
	var out dto.PlayResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func diceUnder50(bet, key string) dto.PlayRequest {
	return dto.PlayRequest{
		Bet:            money.MustParse(bet),
		IdempotencyKey: key,
		Action:         json.RawMessage(`{"type":"DICE_ROLL","target":50,"mode":"UNDER"}`),
	}
}

func TestInitCommitsSeedHash(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "25")

	out := f.init(t, dice.OverUnder.ID, "alice")
	require.Equal(t, "60e05bd1b195af2f94112fa7197a5c88289058840ce7c6df9693756bc6250f55", out.ServerSeedHash)
	require.Equal(t, "25", out.WalletBalance.String())
	require.Equal(t, 0.99, out.RTP)

	v, err := f.svc.Verify(context.Background(), operator, out.RoundID)
	require.NoError(t, err)
	require.Equal(t, "CREATED", v.Status)
	require.Empty(t, v.Fairness.ServerSeed)

	// default client seed
	def, err := f.svc.Init(context.Background(), operator, dto.InitRequest{GameCode: "fire_reels", PlayerExternalID: "bob", Currency: "USD"})
	require.NoError(t, err)
	require.Equal(t, "player:bob", def.ClientSeed)

	_, err = f.svc.Init(context.Background(), operator, dto.InitRequest{GameCode: "nope", PlayerExternalID: "bob", Currency: "USD"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Init(context.Background(), operator, dto.InitRequest{GameCode: "fire_reels", Currency: "USD"})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDicePlaySettles(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "100")
	round := f.init(t, dice.OverUnder.ID, "alice")

	req := diceUnder50("10", "")
	req.RoundID = round.RoundID
	body, err := f.svc.Play(context.Background(), operator, req)
	require.NoError(t, err)

	out := decode(t, body)
	require.Equal(t, "SETTLED", out.Status)
	require.Equal(t, "10", out.Stake.String())
	require.Equal(t, "19.8", out.Win.String())
	require.Equal(t, "109.8", out.WalletBalance.String())
	require.Equal(t, int64(1), out.Nonce)
	require.Equal(t, "HMAC_SHA256", out.Fairness.Algorithm)

	v, err := f.svc.Verify(context.Background(), operator, round.RoundID)
	require.NoError(t, err)
	require.Equal(t, "SETTLED", v.Status)
	require.Equal(t, zeroSeed, v.Fairness.ServerSeed)
	require.Equal(t, int64(1), v.Fairness.Nonce)
	require.NotNil(t, v.SettledAt)
	require.Equal(t, "19.8", v.Win.String())

	// a settled round cannot be played again
	_, err = f.svc.Play(context.Background(), operator, req)
	require.ErrorIs(t, err, apperr.ErrConflict)

	require.Len(t, f.pub.events, 1)
	require.Equal(t, "19.8", f.pub.events[0].Win)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.plays.WithLabelValues(dice.OverUnder.ID, "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.plays.WithLabelValues(dice.OverUnder.ID, "CONFLICT")))
}

func TestReplayIsByteIdentical(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "100")
	round := f.init(t, dice.OverUnder.ID, "alice")

	req := diceUnder50("10", "play-1")
	req.RoundID = round.RoundID

	first, err := f.svc.Play(context.Background(), operator, req)
	require.NoError(t, err)
	before := f.txs(t, "alice")

	again, err := f.svc.Play(context.Background(), operator, req)
	require.NoError(t, err)
	require.Equal(t, string(first), string(again))
	require.Len(t, f.txs(t, "alice"), len(before))

	changed := diceUnder50("5", "play-1")
	changed.RoundID = round.RoundID
	_, err = f.svc.Play(context.Background(), operator, changed)
	require.ErrorIs(t, err, apperr.ErrConflict)

	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.replayed))
	require.Len(t, f.pub.events, 1)
}

func TestReplayIgnoresEncoding(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "100")
	round := f.init(t, dice.OverUnder.ID, "alice")

	req := diceUnder50("10", "play-1")
	req.RoundID = round.RoundID
	first, err := f.svc.Play(context.Background(), operator, req)
	require.NoError(t, err)
	before := f.txs(t, "alice")

	for _, tc := range []struct {
		name   string
		bet    string
		action string
	}{
		{"reordered keys", "10", `{"mode":"UNDER","target":50,"type":"DICE_ROLL"}`},
		{"float target", "10", `{"type":"DICE_ROLL","target":50.0,"mode":"UNDER"}`},
		{"lower case", "10", `{"type":"dice_roll","target":50,"mode":"under"}`},
		{"padded bet", "10.00", `{"type":"DICE_ROLL","target":5e1,"mode":"Under"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			retry := dto.PlayRequest{
				RoundID:        round.RoundID,
				Bet:            money.MustParse(tc.bet),
				IdempotencyKey: "play-1",
				Action:         json.RawMessage(tc.action),
			}
			again, err := f.svc.Play(context.Background(), operator, retry)
			require.NoError(t, err)
			require.Equal(t, string(first), string(again))
		})
	}
	require.Len(t, f.txs(t, "alice"), len(before))

	other := dto.PlayRequest{
		RoundID:        round.RoundID,
		Bet:            money.MustParse("10"),
		IdempotencyKey: "play-1",
		Action:         json.RawMessage(`{"type":"DICE_ROLL","target":51,"mode":"UNDER"}`),
	}
	_, err = f.svc.Play(context.Background(), operator, other)
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestBusyWhenLockHeld(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "100")
	round := f.init(t, dice.OverUnder.ID, "alice")
	player, err := f.ledger.EnsurePlayer(context.Background(), operator, "alice")
	require.NoError(t, err)

	lease, ok, err := f.locker.Acquire(context.Background(), "lock:play:"+operator+":"+player.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	before := f.txs(t, "alice")

	req := diceUnder50("10", "k")
	req.RoundID = round.RoundID
	_, err = f.svc.Play(context.Background(), operator, req)
	require.ErrorIs(t, err, apperr.ErrBusy)
	require.True(t, apperr.CodeOf(err).Retryable())
	require.Zero(t, f.idem.Len())
	require.Len(t, f.txs(t, "alice"), len(before))
	stored, err := f.rounds.RoundByID(context.Background(), operator, round.RoundID)
	require.NoError(t, err)
	require.Equal(t, repo.RoundCreated, stored.Status)

	require.NoError(t, f.locker.Release(context.Background(), lease))
	_, err = f.svc.Play(context.Background(), operator, req)
	require.NoError(t, err)
}

func TestFailedPlayLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	round := f.init(t, dice.OverUnder.ID, "alice")
	player, err := f.ledger.EnsurePlayer(context.Background(), operator, "alice")
	require.NoError(t, err)

	req := diceUnder50("10", "k-broke")
	req.RoundID = round.RoundID
	_, err = f.svc.Play(context.Background(), operator, req)
	require.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	require.False(t, f.locker.Held("lock:play:"+operator+":"+player.ID))
	require.Zero(t, f.idem.Len())
	require.Empty(t, f.txs(t, "alice"))
	require.Empty(t, f.pub.events)

	v, err := f.svc.Verify(context.Background(), operator, round.RoundID)
	require.NoError(t, err)
	require.Equal(t, "CREATED", v.Status)
	require.Zero(t, v.Fairness.Nonce)

	// after funding, the same key goes through
	f.fund(t, "alice", "10")
	_, err = f.svc.Play(context.Background(), operator, req)
	require.NoError(t, err)
}

func TestPlayValidation(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "100")
	round := f.init(t, dice.OverUnder.ID, "alice")

	_, err := f.svc.Play(context.Background(), operator, dto.PlayRequest{RoundID: "missing", Bet: money.MustParse("1")})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	// rounds are scoped by operator
	_, err = f.svc.Play(context.Background(), "op-2", dto.PlayRequest{RoundID: round.RoundID, Bet: money.MustParse("1")})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Verify(context.Background(), "op-2", round.RoundID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	zero := diceUnder50("0", "")
	zero.RoundID = round.RoundID
	_, err = f.svc.Play(context.Background(), operator, zero)
	require.ErrorIs(t, err, apperr.ErrValidation)

	spin := dto.PlayRequest{RoundID: round.RoundID, Bet: money.MustParse("1"), Action: json.RawMessage(`{"type":"SPIN"}`)}
	_, err = f.svc.Play(context.Background(), operator, spin)
	require.ErrorIs(t, err, apperr.ErrInvalidAction)

	edge := dto.PlayRequest{RoundID: round.RoundID, Bet: money.MustParse("1"), Action: json.RawMessage(`{"type":"DICE_ROLL","target":100,"mode":"UNDER"}`)}
	_, err = f.svc.Play(context.Background(), operator, edge)
	require.ErrorIs(t, err, apperr.ErrInvalidAction)

	// only the funding credit
	require.Len(t, f.txs(t, "alice"), 1)
}

func TestCrashRoundSpansTwoPlays(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "carol", "100")
	round := f.init(t, crash.DefaultID, "carol")

	start := dto.PlayRequest{RoundID: round.RoundID, Bet: money.MustParse("10")}
	body, err := f.svc.Play(context.Background(), operator, start)
	require.NoError(t, err)
	out := decode(t, body)
	require.Equal(t, "CREATED", out.Status)
	require.Equal(t, "10", out.Stake.String())
	require.True(t, out.Win.IsZero())
	require.Equal(t, "90", out.WalletBalance.String())
	require.NotContains(t, string(body), "bustAt")

	v, err := f.svc.Verify(context.Background(), operator, round.RoundID)
	require.NoError(t, err)
	require.Equal(t, "CREATED", v.Status)
	require.Empty(t, v.Fairness.ServerSeed)
	require.Equal(t, int64(1), v.Fairness.Nonce)

	// starting the same round twice is rejected
	_, err = f.svc.Play(context.Background(), operator, start)
	require.ErrorIs(t, err, apperr.ErrInvalidAction)

	// bust point for this draw is 1.21x
	cashout := dto.PlayRequest{RoundID: round.RoundID, Action: json.RawMessage(`{"type":"CRASH_CASHOUT","at":"1.2"}`)}
	body, err = f.svc.Play(context.Background(), operator, cashout)
	require.NoError(t, err)
	out = decode(t, body)
	require.Equal(t, "SETTLED", out.Status)
	require.True(t, out.Stake.IsZero())
	require.Equal(t, "12", out.Win.String())
	require.Equal(t, "102", out.WalletBalance.String())
	require.Equal(t, int64(1), out.Nonce)

	v, err = f.svc.Verify(context.Background(), operator, round.RoundID)
	require.NoError(t, err)
	require.Equal(t, zeroSeed, v.Fairness.ServerSeed)
	require.Equal(t, int64(1), v.Fairness.Nonce)

	_, err = f.svc.Play(context.Background(), operator, cashout)
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Len(t, f.pub.events, 2)
}

func TestCrashCashoutBeforeStart(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "carol", "100")
	round := f.init(t, crash.DefaultID, "carol")

	_, err := f.svc.Play(context.Background(), operator, dto.PlayRequest{
		RoundID: round.RoundID, Action: json.RawMessage(`{"type":"CRASH_CASHOUT","at":"2"}`),
	})
	require.ErrorIs(t, err, apperr.ErrInvalidAction)
	require.Len(t, f.txs(t, "carol"), 1)
}

func TestFreeSpinsStakeNothing(t *testing.T) {
	f := newFixture(t)
	player, err := f.ledger.EnsurePlayer(context.Background(), operator, "dave")
	require.NoError(t, err)

	locked := money.MustParse("2")
	sess, err := json.Marshal(slot.Session{FreeSpinsRemaining: 2, FreeSpinBet: &locked})
	require.NoError(t, err)
	seedRound := &repo.Round{OperatorID: operator, PlayerID: player.ID, GameCode: slot.FruitClassic.ID, Status: repo.RoundCreated}
	require.NoError(t, f.rounds.CreateRound(context.Background(), seedRound))
	key := repo.SessionKey{OperatorID: operator, PlayerID: player.ID, GameCode: slot.FruitClassic.ID}
	require.NoError(t, f.rounds.SaveRound(context.Background(), *seedRound, key, sess))

	// no funds: a free spin must not debit
	round := f.init(t, slot.FruitClassic.ID, "dave")
	body, err := f.svc.Play(context.Background(), operator, dto.PlayRequest{RoundID: round.RoundID, Bet: money.MustParse("5")})
	require.NoError(t, err)

	out := decode(t, body)
	require.Equal(t, engine.StateFreeSpins, out.State)
	require.True(t, out.Stake.IsZero())
	require.Equal(t, "2", out.Bet.String())
	for _, tr := range f.txs(t, "dave") {
		require.Equal(t, walletrepo.TxCredit, tr.Type)
	}
	require.Equal(t, out.Win.String(), out.WalletBalance.String())

	raw, err := f.rounds.Session(context.Background(), key)
	require.NoError(t, err)
	next, err := slot.DecodeSession(raw)
	require.NoError(t, err)
	require.GreaterOrEqual(t, next.FreeSpinsRemaining, 1)
}

func TestSlotPlayBalances(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "erin", "50")

	for i := 0; i < 5; i++ {
		round := f.init(t, slot.DiamondRush.ID, "erin")
		before, err := f.ledger.Balance(context.Background(), operator, "erin", "USD")
		require.NoError(t, err)

		body, err := f.svc.Play(context.Background(), operator, dto.PlayRequest{RoundID: round.RoundID, Bet: money.MustParse("1")})
		require.NoError(t, err)
		out := decode(t, body)
		require.Equal(t, "SETTLED", out.Status)
		want := before.Balance.Sub(out.Stake).Add(out.Win)
		require.Equal(t, want.String(), out.WalletBalance.String())
	}
}

func TestConcurrentPlaysDebitOnce(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "frank", "100")
	round := f.init(t, dice.OverUnder.ID, "frank")

	const n = 8
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make(chan error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			req := diceUnder50("10", "")
			req.RoundID = round.RoundID
			_, err := f.svc.Play(context.Background(), operator, req)
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		code := apperr.CodeOf(err)
		require.Contains(t, []apperr.Code{apperr.CodeBusy, apperr.CodeConflict}, code)
	}
	require.Equal(t, 1, ok)

	debits := 0
	for _, tr := range f.txs(t, "frank") {
		if tr.Type == walletrepo.TxDebit {
			debits++
		}
	}
	require.Equal(t, 1, debits)
}

func TestRecompute(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.Recompute(dto.FairnessVerifyRequest{
		GameCode: crash.DefaultID, ServerSeed: zeroSeed, ClientSeed: "abc", Nonce: 1,
		Bet: money.MustParse("10"), Action: json.RawMessage(`{"type":"CRASH_CASHOUT","at":"1.2"}`),
	})
	require.NoError(t, err)
	require.Equal(t, "1.21", out.CrashPoint.String())
	require.False(t, out.InstantBust)
	require.Equal(t, "12", out.Result.Win.String())

	out, err = f.svc.Recompute(dto.FairnessVerifyRequest{
		GameCode: dice.OverUnder.ID, ServerSeed: zeroSeed, ClientSeed: "abc", Nonce: 1,
		Action: json.RawMessage(`{"type":"DICE_ROLL","target":50,"mode":"UNDER"}`),
	})
	require.NoError(t, err)
	require.Nil(t, out.CrashPoint)
	require.Equal(t, "1.98", out.Result.Win.String())

	_, err = f.svc.Recompute(dto.FairnessVerifyRequest{GameCode: "nope", ServerSeed: zeroSeed, ClientSeed: "abc"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Recompute(dto.FairnessVerifyRequest{GameCode: crash.DefaultID, ClientSeed: "abc"})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListGames(t *testing.T) {
	f := newFixture(t)

	all, err := f.svc.ListGames("")
	require.NoError(t, err)
	require.Len(t, all, 5)

	slots, err := f.svc.ListGames(engine.KindSlot)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	require.Equal(t, "diamond_rush", slots[0].GameCode)

	_, err = f.svc.ListGames("ROULETTE")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGameConfig(t *testing.T) {
	f := newFixture(t)

	cfg, err := f.svc.GameConfig(crash.DefaultID)
	require.NoError(t, err)
	require.Equal(t, "CRASH", cfg.Kind)
	require.Equal(t, crash.DefaultRTP, cfg.RTP)
	require.IsType(t, crash.Table{}, cfg.Table)

	cfg, err = f.svc.GameConfig(slot.FireReels.ID)
	require.NoError(t, err)
	tab, ok := cfg.Table.(slot.Table)
	require.True(t, ok)
	require.Equal(t, slot.FireReels.Paylines, tab.Paylines)

	_, err = f.svc.GameConfig("nope")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
