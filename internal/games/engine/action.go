package engine

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/radieske/game-provider-platform/internal/shared/apperr"
	"github.com/radieske/game-provider-platform/internal/shared/money"
)

// Action types as they appear on the wire.
const (
	ActionSpin         = "SPIN"
	ActionCrashStart   = "CRASH_START"
	ActionCrashCashout = "CRASH_CASHOUT"
	ActionDiceRoll     = "DICE_ROLL"
)

// Action is a closed set of variants; only this package can add one.
type Action interface {
	Type() string
	isAction()
}

type Spin struct{}

type CrashStart struct{}

// CrashCashout claims a multiplier for an active crash round.
type CrashCashout struct {
	At money.Amount
}

type DiceMode string

const (
	DiceUnder DiceMode = "UNDER"
	DiceOver  DiceMode = "OVER"
)

// DiceRoll bets on a roll landing strictly under or over Target.
type DiceRoll struct {
	Target float64
	Mode   DiceMode
}

func (Spin) Type() string         { return ActionSpin }
func (CrashStart) Type() string   { return ActionCrashStart }
func (CrashCashout) Type() string { return ActionCrashCashout }
func (DiceRoll) Type() string     { return ActionDiceRoll }

func (Spin) isAction()         {}
func (CrashStart) isAction()   {}
func (CrashCashout) isAction() {}
func (DiceRoll) isAction()     {}

type actionPayload struct {
	Type   string        `json:"type"`
	At     *money.Amount `json:"at,omitempty"`
	Target *float64      `json:"target,omitempty"`
	Mode   string        `json:"mode,omitempty"`
}

// ParseAction decodes {"type": ..., ...} into a typed action. An empty
// payload defaults to the natural action of kind.
func ParseAction(kind Kind, raw json.RawMessage) (Action, error) {
	var p actionPayload
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, apperr.InvalidAction("malformed action: %v", err)
		}
	}
	t := strings.ToUpper(strings.TrimSpace(p.Type))
	if t == "" {
		switch kind {
		case KindSlot:
			t = ActionSpin
		case KindDice:
			t = ActionDiceRoll
		case KindCrash:
			t = ActionCrashStart
		}
	}

	switch t {
	case ActionSpin:
		return Spin{}, nil
	case ActionCrashStart:
		return CrashStart{}, nil
	case ActionCrashCashout:
		if p.At == nil {
			return nil, apperr.InvalidAction("cashout requires at")
		}
		return CrashCashout{At: *p.At}, nil
	case ActionDiceRoll:
		if p.Target == nil || math.IsNaN(*p.Target) || math.IsInf(*p.Target, 0) {
			return nil, apperr.InvalidAction("dice roll requires a finite target")
		}
		mode := DiceMode(strings.ToUpper(p.Mode))
		if mode != DiceUnder && mode != DiceOver {
			return nil, apperr.InvalidAction("dice mode must be UNDER or OVER")
		}
		return DiceRoll{Target: *p.Target, Mode: mode}, nil
	default:
		return nil, apperr.InvalidAction("unknown action %q", p.Type)
	}
}

// Unsupported is returned by engines handed a variant they don't handle.
func Unsupported(engineID string, a Action) error {
	return apperr.InvalidAction("action %s not supported by %s", a.Type(), engineID)
}
