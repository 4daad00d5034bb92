// Package crash implements the rising-multiplier game. The crash point is
// fixed by the seeds at start and kept in the session until cash-out.
package crash

import (
	"encoding/json"

	"github.com/radieske/game-provider-platform/internal/games/engine"
	"github.com/radieske/game-provider-platform/internal/shared/apperr"
	"github.com/radieske/game-provider-platform/internal/shared/money"
)

const (
	DefaultID  = "crash_multiplier"
	DefaultRTP = 0.97
)

// Session is the hidden per-player crash state.
type Session struct {
	RoundID    string       `json:"roundId"`
	Active     bool         `json:"active"`
	CashedOut  bool         `json:"cashedOut"`
	Bet        money.Amount `json:"bet"`
	BustAt     Point        `json:"bustAt"`
	ClientSeed string       `json:"clientSeed"`
	Nonce      int64        `json:"nonce"`
}

type Engine struct {
	id  string
	rtp float64
}

func New(id string, rtp float64) *Engine { return &Engine{id: id, rtp: rtp} }

func (e *Engine) ID() string        { return e.id }
func (e *Engine) Kind() engine.Kind { return engine.KindCrash }
func (e *Engine) RTP() float64      { return e.rtp }

type Table struct {
	MinMultiplier money.Amount `json:"minMultiplier"`
	MaxMultiplier money.Amount `json:"maxMultiplier"`
	// BustOdds is the chance a round busts at 1.00x.
	BustOdds float64 `json:"bustOdds"`
}

func (e *Engine) Describe() any {
	return Table{
		MinMultiplier: Point{Hundredths: minHundredths}.Multiplier(),
		MaxMultiplier: Point{Hundredths: maxHundredths}.Multiplier(),
		BustOdds:      1.0 / instantBustModulus,
	}
}

func (e *Engine) Handle(in engine.Context, action engine.Action) (engine.Result, []byte, error) {
	var sess Session
	if len(in.Session) > 0 {
		if err := json.Unmarshal(in.Session, &sess); err != nil {
			return engine.Result{}, nil, apperr.Wrap(apperr.CodeInternal, "decode crash session", err)
		}
	}

	switch a := action.(type) {
	case engine.CrashStart:
		return e.start(in, sess)
	case engine.CrashCashout:
		return e.cashout(in, sess, a.At)
	default:
		return engine.Result{}, nil, engine.Unsupported(e.id, action)
	}
}

func (e *Engine) start(in engine.Context, sess Session) (engine.Result, []byte, error) {
	if sess.Active && sess.RoundID == in.RoundID {
		return engine.Result{}, nil, apperr.InvalidAction("crash round %s already started", in.RoundID)
	}
	if !in.Bet.IsPositive() {
		return engine.Result{}, nil, apperr.InvalidAction("bet must be positive")
	}

	next := Session{
		RoundID:    in.RoundID,
		Active:     true,
		Bet:        in.Bet,
		BustAt:     ComputePoint(in.ServerSeed, in.ClientSeed, in.Nonce),
		ClientSeed: in.ClientSeed,
		Nonce:      in.Nonce,
	}

	f := engine.NewFairness(in)
	var ev engine.Events
	ev.Add(engine.EventCrashStart, map[string]any{"bet": in.Bet})
	ev = append(ev, engine.FairnessEvent(f))

	blob, err := json.Marshal(next)
	if err != nil {
		return engine.Result{}, nil, apperr.Wrap(apperr.CodeInternal, "encode crash session", err)
	}
	return engine.Result{
		RoundID:  in.RoundID,
		GameID:   e.id,
		Currency: in.Currency,
		Bet:      in.Bet,
		Stake:    in.Bet,
		Win:      money.Zero(),
		State:    engine.StateNormal,
		Final:    false,
		Events:   ev,
		Fairness: f,
	}, blob, nil
}

func (e *Engine) cashout(in engine.Context, sess Session, at money.Amount) (engine.Result, []byte, error) {
	if sess.CashedOut && sess.RoundID == in.RoundID {
		return engine.Result{}, nil, apperr.InvalidAction("crash round %s already cashed out", in.RoundID)
	}
	if !sess.Active || sess.RoundID != in.RoundID {
		return engine.Result{}, nil, apperr.InvalidAction("no active crash round %s", in.RoundID)
	}
	if at.Cmp(money.FromInt(1)) < 0 {
		return engine.Result{}, nil, apperr.InvalidAction("cashout multiplier %s below 1", at)
	}

	bust := sess.BustAt.Multiplier()
	win := money.Zero()
	if at.Cmp(bust) < 0 {
		win = sess.Bet.Mul(at)
	}

	// the draw belongs to the start action
	f := engine.NewFairness(in)
	f.ClientSeed = sess.ClientSeed
	f.Nonce = sess.Nonce

	var ev engine.Events
	ev.Add(engine.EventCashout, map[string]any{"at": at, "bustAt": bust, "instantBust": sess.BustAt.InstantBust, "win": win})
	if win.IsPositive() {
		ev.Add(engine.EventMultiplierApplied, map[string]any{"multiplier": at})
	}
	ev = append(ev, engine.FairnessEvent(f))
	ev.Add(engine.EventRoundEnd, map[string]any{"win": win})

	next := sess
	next.Active = false
	next.CashedOut = true
	blob, err := json.Marshal(next)
	if err != nil {
		return engine.Result{}, nil, apperr.Wrap(apperr.CodeInternal, "encode crash session", err)
	}

	return engine.Result{
		RoundID:  in.RoundID,
		GameID:   e.id,
		Currency: in.Currency,
		Bet:      sess.Bet,
		Stake:    money.Zero(),
		Win:      win,
		State:    engine.StateNormal,
		Final:    true,
		Events:   ev,
		Fairness: f,
	}, blob, nil
}
