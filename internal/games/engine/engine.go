// Package engine defines the contract every game engine implements.
//
// Engines are pure: Handle reads the context, draws from the fairness
// primitive and returns a result plus the next session blob. No clocks, no I/O.
package engine

import (
	"github.com/radieske/game-provider-platform/internal/games/fairness"
	"github.com/radieske/game-provider-platform/internal/shared/money"
)

// Kind enumerates the supported game families.
type Kind string

const (
	KindSlot  Kind = "SLOT"
	KindCrash Kind = "CRASH"
	KindDice  Kind = "DICE"
)

func (k Kind) Valid() bool {
	switch k {
	case KindSlot, KindCrash, KindDice:
		return true
	default:
		return false
	}
}

// Context carries everything an engine needs for one action.
type Context struct {
	OperatorID string
	PlayerID   string
	Currency   string
	GameID     string
	RoundID    string
	Bet        money.Amount
	ServerSeed string
	ClientSeed string
	Nonce      int64
	// Session is the opaque blob the engine returned last time for this
	// player and game. Nil on first play.
	Session []byte
}

// Engine computes round outcomes for one game.
type Engine interface {
	ID() string
	Kind() Kind
	RTP() float64
	Handle(in Context, action Action) (Result, []byte, error)
}

// Describer is implemented by engines that publish their table math.
type Describer interface {
	Describe() any
}

// Round states reported in Result.State.
const (
	StateNormal    = "NORMAL"
	StateFreeSpins = "FREE_SPINS"
)

// Result is the outcome of one engine action.
type Result struct {
	RoundID  string       `json:"roundId"`
	GameID   string       `json:"gameId"`
	Currency string       `json:"currency"`
	Bet      money.Amount `json:"bet"`
	// Stake is what the ledger debits for this action. Zero for free spins
	// and crash cash-outs.
	Stake    money.Amount `json:"stake"`
	Win      money.Amount `json:"win"`
	State    string       `json:"state"`
	Final    bool         `json:"final"`
	Events   []Event      `json:"events"`
	Fairness Fairness     `json:"fairness"`
}

// Fairness lets a third party recompute the draw once the seed is revealed.
type Fairness struct {
	Algorithm      string `json:"algo"`
	ServerSeedHash string `json:"serverSeedHash"`
	ClientSeed     string `json:"clientSeed"`
	Nonce          int64  `json:"nonce"`
}

// NewFairness builds the fairness block for the draw made with in's seeds.
func NewFairness(in Context) Fairness {
	return Fairness{
		Algorithm:      fairness.Algorithm,
		ServerSeedHash: fairness.ServerSeedHash(in.ServerSeed),
		ClientSeed:     in.ClientSeed,
		Nonce:          in.Nonce,
	}
}
