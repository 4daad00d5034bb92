// Package slot implements strip-based video slots with paylines, wilds,
// scatters and a free-spins feature.
package slot

import (
	"encoding/json"

	"github.com/radieske/game-provider-platform/internal/games/engine"
	"github.com/radieske/game-provider-platform/internal/shared/apperr"
	"github.com/radieske/game-provider-platform/internal/shared/money"
)

// Session is the per-player feature state carried between spins.
type Session struct {
	FreeSpinsRemaining int           `json:"freeSpinsRemaining"`
	FreeSpinBet        *money.Amount `json:"freeSpinBet,omitempty"`
}

// DecodeSession reads a session blob; nil or empty means a fresh player.
func DecodeSession(b []byte) (Session, error) {
	var s Session
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, apperr.Wrap(apperr.CodeInternal, "decode slot session", err)
	}
	return s, nil
}

type Engine struct {
	cfg Config
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) ID() string        { return e.cfg.ID }
func (e *Engine) Kind() engine.Kind { return engine.KindSlot }
func (e *Engine) RTP() float64      { return e.cfg.RTP }
func (e *Engine) Config() Config    { return e.cfg }
func (e *Engine) Describe() any     { return e.cfg.Table() }

// Handle plays one spin. Inside free spins the bet is the one locked when the
// feature started and nothing is staked.
func (e *Engine) Handle(in engine.Context, action engine.Action) (engine.Result, []byte, error) {
	if _, ok := action.(engine.Spin); !ok {
		return engine.Result{}, nil, engine.Unsupported(e.cfg.ID, action)
	}

	sess, err := DecodeSession(in.Session)
	if err != nil {
		return engine.Result{}, nil, err
	}

	inFS := sess.FreeSpinsRemaining > 0
	state := engine.StateNormal
	bet, stake := in.Bet, in.Bet
	if inFS {
		state = engine.StateFreeSpins
		if sess.FreeSpinBet != nil {
			bet = *sess.FreeSpinBet
		}
		stake = money.Zero()
	}
	if !bet.IsPositive() {
		return engine.Result{}, nil, apperr.InvalidAction("bet must be positive")
	}

	var ev engine.Events
	ev.Add(engine.EventSpinStart, map[string]any{"state": state, "bet": bet})

	out := Spin(e.cfg, in.ServerSeed, in.ClientSeed, in.Nonce)
	ev.Add(engine.EventReelsStop, map[string]any{"grid": out.Grid})
	for _, w := range out.Wins {
		ev.Add(engine.EventWinLine, w)
	}

	next := sess
	if award := e.cfg.freeSpinsFor(out.Scatters); award > 0 {
		ev.Add(engine.EventScatterTrigger, map[string]any{"scatters": out.Scatters, "freeSpins": award})
		if inFS {
			next.FreeSpinsRemaining += award
			ev.Add(engine.EventFreeSpinsRetrigger, map[string]any{"added": award, "remaining": next.FreeSpinsRemaining})
		} else {
			locked := bet
			next.FreeSpinsRemaining = award
			next.FreeSpinBet = &locked
			ev.Add(engine.EventFreeSpinsStart, map[string]any{"total": award, "bet": bet})
		}
	}

	mul := out.TotalMul
	if inFS {
		if m := e.cfg.freeSpinMultiplier(); m != 1 {
			before := mul
			mul *= m
			ev.Add(engine.EventMultiplierApplied, map[string]any{
				"from": before, "to": mul, "multiplier": m, "reason": "FREE_SPINS",
			})
		}
	}
	win := bet.MulFactor(mul)

	if inFS {
		next.FreeSpinsRemaining--
		if next.FreeSpinsRemaining <= 0 {
			next = Session{}
			ev.Add(engine.EventFreeSpinsEnd, map[string]any{})
		}
	}

	f := engine.NewFairness(in)
	ev = append(ev, engine.FairnessEvent(f))
	ev.Add(engine.EventRoundEnd, map[string]any{"win": win, "freeSpinsRemaining": next.FreeSpinsRemaining})

	blob, err := json.Marshal(next)
	if err != nil {
		return engine.Result{}, nil, apperr.Wrap(apperr.CodeInternal, "encode slot session", err)
	}

	return engine.Result{
		RoundID:  in.RoundID,
		GameID:   e.cfg.ID,
		Currency: in.Currency,
		Bet:      bet,
		Stake:    stake,
		Win:      win,
		State:    state,
		Final:    true,
		Events:   ev,
		Fairness: f,
	}, blob, nil
}
