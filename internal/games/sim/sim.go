// Package sim estimates the return-to-player of slot titles by running
// synthetic spins through the real engines.
package sim

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/game-provider-platform/internal/games/engine"
	"github.com/radieske/game-provider-platform/internal/games/fairness"
	"github.com/radieske/game-provider-platform/internal/shared/apperr"
	"github.com/radieske/game-provider-platform/internal/shared/money"
)

const (
	// DefaultRotateEvery bounds how many draws share one server seed.
	DefaultRotateEvery = 50_000
	clientSeed         = "SIMULATION"
	progressEvery      = 100_000
)

type Params struct {
	GameID      string
	Spins       int
	Bet         money.Amount
	RotateEvery int64
}

type Report struct {
	GameID     string       `json:"gameId"`
	Spins      int          `json:"spins"`
	FreeSpins  int          `json:"freeSpins"`
	TotalStake money.Amount `json:"totalStake"`
	TotalWin   money.Amount `json:"totalWin"`
	RTP        float64      `json:"rtp"`
	TargetRTP  float64      `json:"targetRtp"`
	Seeds      int          `json:"seeds"`
}

// Runner runs simulations against a registry.
type Runner struct {
	Log      *zap.Logger
	Registry *engine.Registry
	// NewSeed defaults to fairness.NewServerSeed.
	NewSeed func() (string, error)
}

// Run plays p.Spins spins, carrying the session between them so free spins
// play out like they would for a real player.
func (r *Runner) Run(ctx context.Context, p Params) (Report, error) {
	e, err := r.Registry.Get(p.GameID)
	if err != nil {
		return Report{}, err
	}
	if e.Kind() != engine.KindSlot {
		return Report{}, apperr.Validation("rtp simulation supports slots only, %s is %s", p.GameID, e.Kind())
	}
	if p.Spins <= 0 {
		return Report{}, apperr.Validation("spins must be positive")
	}
	if !p.Bet.IsPositive() {
		p.Bet = money.FromInt(1)
	}
	if p.RotateEvery <= 0 {
		p.RotateEvery = DefaultRotateEvery
	}
	newSeed := r.NewSeed
	if newSeed == nil {
		newSeed = fairness.NewServerSeed
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	seed, err := newSeed()
	if err != nil {
		return Report{}, err
	}
	rep := Report{GameID: p.GameID, Spins: p.Spins, TargetRTP: e.RTP(), Seeds: 1}
	stake, win := money.Zero(), money.Zero()

	var (
		session []byte
		nonce   int64
	)
	for i := 0; i < p.Spins; i++ {
		if i%progressEvery == 0 && i > 0 {
			if err := ctx.Err(); err != nil {
				return Report{}, err
			}
			log.Debug("rtp sim progress", zap.String("game", p.GameID), zap.Int("spins", i))
		}

		res, next, err := e.Handle(engine.Context{
			OperatorID: "sim",
			PlayerID:   "sim",
			Currency:   "SIM",
			GameID:     p.GameID,
			RoundID:    fmt.Sprintf("sim-%d", i),
			Bet:        p.Bet,
			ServerSeed: seed,
			ClientSeed: clientSeed,
			Nonce:      nonce,
			Session:    session,
		}, engine.Spin{})
		if err != nil {
			return Report{}, fmt.Errorf("spin %d: %w", i, err)
		}
		session = next
		stake = stake.Add(res.Stake)
		win = win.Add(res.Win)
		if res.State == engine.StateFreeSpins {
			rep.FreeSpins++
		}

		nonce++
		if nonce%p.RotateEvery == 0 {
			if seed, err = newSeed(); err != nil {
				return Report{}, err
			}
			rep.Seeds++
		}
	}

	rep.TotalStake, rep.TotalWin = stake, win
	if stake.IsPositive() {
		rep.RTP = win.Float64() / stake.Float64()
	}
	log.Info("rtp sim done",
		zap.String("game", p.GameID),
		zap.Int("spins", p.Spins),
		zap.Float64("rtp", rep.RTP),
		zap.Float64("target", rep.TargetRTP),
	)
	return rep, nil
}
