package repo

import (
	"encoding/json"
	"time"

	"github.com/radieske/game-provider-platform/internal/shared/money"
)

type RoundStatus string

const (
	RoundCreated RoundStatus = "CREATED"
	RoundSettled RoundStatus = "SETTLED"
)

// Round is one provably-fair game round. It is created with a committed
// seed hash and settled at most once.
type Round struct {
	ID               string          `db:"id"`
	OperatorID       string          `db:"operator_id"`
	PlayerID         string          `db:"player_id"`
	PlayerExternalID string          `db:"player_external_id"`
	GameCode         string          `db:"game_code"`
	Currency         string          `db:"currency"`
	BetAmount        money.Amount    `db:"bet_amount"`
	WinAmount        money.Amount    `db:"win_amount"`
	ServerSeed       string          `db:"server_seed"`
	ServerSeedHash   string          `db:"server_seed_hash"`
	ClientSeed       string          `db:"client_seed"`
	Nonce            int64           `db:"nonce"`
	Status           RoundStatus     `db:"status"`
	Result           json.RawMessage `db:"-"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
	SettledAt        *time.Time      `db:"settled_at"`
}

// SessionKey identifies the engine session of one player in one game.
type SessionKey struct {
	OperatorID string
	PlayerID   string
	GameCode   string
}
