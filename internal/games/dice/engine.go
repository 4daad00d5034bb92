// Package dice implements over/under dice with a configurable house edge.
package dice

import (
	"math"

	"github.com/radieske/game-provider-platform/internal/games/engine"
	"github.com/radieske/game-provider-platform/internal/games/fairness"
	"github.com/radieske/game-provider-platform/internal/shared/apperr"
	"github.com/radieske/game-provider-platform/internal/shared/money"
)

// Tag is the fairness tag of the single dice draw.
const Tag = "dice"

type Config struct {
	ID        string
	Name      string
	RTP       float64
	Min       float64
	Max       float64
	HouseEdge float64
}

// OverUnder is the default 0-100 table with a 1% edge.
var OverUnder = Config{
	ID:        "dice_over_under",
	Name:      "Dice Over/Under",
	RTP:       0.99,
	Min:       0,
	Max:       100,
	HouseEdge: 0.01,
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine { return &Engine{cfg: cfg} }

func (e *Engine) ID() string        { return e.cfg.ID }
func (e *Engine) Kind() engine.Kind { return engine.KindDice }
func (e *Engine) RTP() float64      { return e.cfg.RTP }

// Table is the public dice range. Targets must fall strictly inside it.
type Table struct {
	Name      string            `json:"name"`
	Min       float64           `json:"min"`
	Max       float64           `json:"max"`
	HouseEdge float64           `json:"houseEdge"`
	Modes     []engine.DiceMode `json:"modes"`
}

func (e *Engine) Describe() any {
	return Table{
		Name:      e.cfg.Name,
		Min:       e.cfg.Min,
		Max:       e.cfg.Max,
		HouseEdge: e.cfg.HouseEdge,
		Modes:     []engine.DiceMode{engine.DiceUnder, engine.DiceOver},
	}
}

// Multiplier returns (max-min)*(1-edge)/winWidth computed in fixed point.
func (e *Engine) Multiplier(target float64, mode engine.DiceMode) (money.Amount, error) {
	if target <= e.cfg.Min || target >= e.cfg.Max {
		return money.Amount{}, apperr.InvalidAction("target %v outside (%v, %v)", target, e.cfg.Min, e.cfg.Max)
	}
	lo, hi, t := money.FromFloat(e.cfg.Min), money.FromFloat(e.cfg.Max), money.FromFloat(target)

	var width money.Amount
	switch mode {
	case engine.DiceUnder:
		width = t.Sub(lo)
	case engine.DiceOver:
		width = hi.Sub(t)
	default:
		return money.Amount{}, apperr.InvalidAction("dice mode %q", mode)
	}

	keep := money.FromInt(1).Sub(money.FromFloat(e.cfg.HouseEdge))
	m, err := hi.Sub(lo).Mul(keep).Div(width)
	if err != nil {
		return money.Amount{}, apperr.InvalidAction("target %v leaves no winning range", target)
	}
	return m, nil
}

func (e *Engine) Handle(in engine.Context, action engine.Action) (engine.Result, []byte, error) {
	a, ok := action.(engine.DiceRoll)
	if !ok {
		return engine.Result{}, nil, engine.Unsupported(e.cfg.ID, action)
	}
	if !in.Bet.IsPositive() {
		return engine.Result{}, nil, apperr.InvalidAction("bet must be positive")
	}
	mult, err := e.Multiplier(a.Target, a.Mode)
	if err != nil {
		return engine.Result{}, nil, err
	}

	u := fairness.Uniform01(in.ServerSeed, in.ClientSeed, in.Nonce, Tag)
	roll := e.cfg.Min + u*(e.cfg.Max-e.cfg.Min)
	won := roll < a.Target
	if a.Mode == engine.DiceOver {
		won = roll > a.Target
	}

	win := money.Zero()
	if won {
		win = in.Bet.Mul(mult)
	}

	f := engine.NewFairness(in)
	var ev engine.Events
	ev.Add(engine.EventDiceRoll, map[string]any{
		"mode":       a.Mode,
		"target":     a.Target,
		"roll":       math.Round(roll*10000) / 10000,
		"multiplier": mult,
		"win":        win,
	})
	ev = append(ev, engine.FairnessEvent(f))
	ev.Add(engine.EventRoundEnd, map[string]any{"win": win})

	// dice keeps no state between rolls
	return engine.Result{
		RoundID:  in.RoundID,
		GameID:   e.cfg.ID,
		Currency: in.Currency,
		Bet:      in.Bet,
		Stake:    in.Bet,
		Win:      win,
		State:    engine.StateNormal,
		Final:    true,
		Events:   ev,
		Fairness: f,
	}, in.Session, nil
}
