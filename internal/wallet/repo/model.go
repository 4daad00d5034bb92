package repo

import (
	"time"

	"github.com/radieske/game-provider-platform/internal/shared/money"
)

type TxType string

const (
	TxDebit  TxType = "DEBIT"
	TxCredit TxType = "CREDIT"
)

type TxStatus string

const (
	TxPending  TxStatus = "PENDING"
	TxApplied  TxStatus = "APPLIED"
	TxReversed TxStatus = "REVERSED"
)

// Player is an operator's end user, unique per (operator, external id).
type Player struct {
	ID         string    `db:"id"`
	OperatorID string    `db:"operator_id"`
	ExternalID string    `db:"external_id"`
	CreatedAt  time.Time `db:"created_at"`
}

// Wallet holds one player's balance in one currency.
type Wallet struct {
	ID         string       `db:"id"`
	OperatorID string       `db:"operator_id"`
	PlayerID   string       `db:"player_id"`
	Currency   string       `db:"currency"`
	Balance    money.Amount `db:"balance"`
	Version    int64        `db:"version"`
}

// Transaction is one ledger entry.
type Transaction struct {
	ID             string       `db:"id"`
	OperatorID     string       `db:"operator_id"`
	PlayerID       string       `db:"player_id"`
	WalletID       string       `db:"wallet_id"`
	Currency       string       `db:"currency"`
	Type           TxType       `db:"type"`
	Status         TxStatus     `db:"status"`
	Amount         money.Amount `db:"amount"`
	ReferenceID    *string      `db:"reference_id"`
	IdempotencyKey *string      `db:"idempotency_key"`
	Meta           string       `db:"meta"`
	CreatedAt      time.Time    `db:"created_at"`
	AppliedAt      *time.Time   `db:"applied_at"`
	ReversedAt     *time.Time   `db:"reversed_at"`
}

// Signed is the effect of the transaction on the balance while applied.
func (t Transaction) Signed() money.Amount {
	if t.Type == TxDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
