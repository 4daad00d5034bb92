package crash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/radieske/game-provider-platform/internal/games/engine"
	"github.com/radieske/game-provider-platform/internal/shared/apperr"
	"github.com/radieske/game-provider-platform/internal/shared/money"
)

var zeroSeed = strings.Repeat("0", 64)

func TestComputePointPinned(t *testing.T) {
	cases := []struct {
		serverSeed string
		clientSeed string
		nonce      int64
		hundredths int64
		bust       bool
	}{
		{zeroSeed, "abc", 1, 121, false},
		{zeroSeed, "abc", 2, 2555, false},
		{zeroSeed, "abc", 3, 125, false},
		{zeroSeed, "abc", 4, 154, false},
		{zeroSeed, "abc", 5, 121, false},
		{zeroSeed, "abc", 218, 100, true},
		{strings.Repeat("a", 64), "player:1", 7, 116, false},
		{"deadbeef", "seed", 42, 159, false},
	}
	for _, tc := range cases {
		p := ComputePoint(tc.serverSeed, tc.clientSeed, tc.nonce)
		require.Equal(t, tc.hundredths, p.Hundredths, "nonce %d", tc.nonce)
		require.Equal(t, tc.bust, p.InstantBust, "nonce %d", tc.nonce)
	}
	require.Equal(t, "1.21", ComputePoint(zeroSeed, "abc", 1).Multiplier().String())
}

func TestComputePointBounds(t *testing.T) {
	for nonce := int64(1); nonce <= 2000; nonce++ {
		p := ComputePoint("bounds", "client", nonce)
		require.GreaterOrEqual(t, p.Hundredths, int64(minHundredths))
		require.LessOrEqual(t, p.Hundredths, int64(maxHundredths))
	}
}

func ctx(round string, bet string, session []byte) engine.Context {
	return engine.Context{
		GameID:     DefaultID,
		RoundID:    round,
		Currency:   "USD",
		Bet:        money.MustParse(bet),
		ServerSeed: zeroSeed,
		ClientSeed: "abc",
		Nonce:      1,
		Session:    session,
	}
}

func TestStartHidesPoint(t *testing.T) {
	e := New(DefaultID, DefaultRTP)
	res, blob, err := e.Handle(ctx("r1", "10", nil), engine.CrashStart{})
	require.NoError(t, err)
	require.False(t, res.Final)
	require.Equal(t, "10", res.Stake.String())
	require.True(t, res.Win.IsZero())
	for _, ev := range res.Events {
		d, ok := ev.Data.(map[string]any)
		if ok {
			require.NotContains(t, d, "bustAt")
		}
	}
	require.NotEmpty(t, blob)

	_, _, err = e.Handle(ctx("r1", "10", blob), engine.CrashStart{})
	require.ErrorIs(t, err, apperr.ErrInvalidAction)
}

func TestCashoutBelowPointPays(t *testing.T) {
	e := New(DefaultID, DefaultRTP)
	_, blob, err := e.Handle(ctx("r1", "10", nil), engine.CrashStart{})
	require.NoError(t, err)

	// point for nonce 1 is 1.21x
	in := ctx("r1", "10", blob)
	in.Nonce = 2
	res, after, err := e.Handle(in, engine.CrashCashout{At: money.MustParse("1.2")})
	require.NoError(t, err)
	require.True(t, res.Final)
	require.True(t, res.Stake.IsZero())
	require.Equal(t, "12", res.Win.String())
	require.Equal(t, int64(1), res.Fairness.Nonce)

	_, _, err = e.Handle(ctx("r1", "10", after), engine.CrashCashout{At: money.MustParse("1.1")})
	require.ErrorIs(t, err, apperr.ErrInvalidAction)
}

func TestCashoutAtOrAbovePointLoses(t *testing.T) {
	e := New(DefaultID, DefaultRTP)
	_, blob, err := e.Handle(ctx("r1", "10", nil), engine.CrashStart{})
	require.NoError(t, err)

	res, _, err := e.Handle(ctx("r1", "10", blob), engine.CrashCashout{At: money.MustParse("1.21")})
	require.NoError(t, err)
	require.True(t, res.Win.IsZero())
	require.True(t, res.Final)
}

func TestCashoutRejections(t *testing.T) {
	e := New(DefaultID, DefaultRTP)

	_, _, err := e.Handle(ctx("r1", "10", nil), engine.CrashCashout{At: money.MustParse("1.5")})
	require.ErrorIs(t, err, apperr.ErrInvalidAction)

	_, blob, err := e.Handle(ctx("r1", "10", nil), engine.CrashStart{})
	require.NoError(t, err)

	_, _, err = e.Handle(ctx("r2", "10", blob), engine.CrashCashout{At: money.MustParse("1.5")})
	require.ErrorIs(t, err, apperr.ErrInvalidAction)

	_, _, err = e.Handle(ctx("r1", "10", blob), engine.CrashCashout{At: money.MustParse("0.5")})
	require.ErrorIs(t, err, apperr.ErrInvalidAction)

	_, _, err = e.Handle(ctx("r1", "10", blob), engine.Spin{})
	require.ErrorIs(t, err, apperr.ErrInvalidAction)
}

func TestDescribe(t *testing.T) {
	tab, ok := New(DefaultID, DefaultRTP).Describe().(Table)
	require.True(t, ok)
	require.Equal(t, "1", tab.MinMultiplier.String())
	require.Equal(t, "1000000", tab.MaxMultiplier.String())
	require.InDelta(t, 0.0099, tab.BustOdds, 0.0001)
}
