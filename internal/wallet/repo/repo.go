// Package repo persists players, wallets and ledger transactions.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/radieske/game-provider-platform/internal/shared/money"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate idempotency key")
)

// Store runs ledger work in atomic units.
type Store interface {
	// InTx runs fn in one transaction. fn's error rolls everything back.
	InTx(ctx context.Context, fn func(Tx) error) error
	ListTransactions(ctx context.Context, walletID string) ([]Transaction, error)
}

// Tx is the set of operations available inside a unit of work.
type Tx interface {
	UpsertPlayer(ctx context.Context, operatorID, externalID string) (Player, error)
	PlayerByID(ctx context.Context, operatorID, playerID string) (Player, error)
	// LockWallet returns the wallet for (player, currency), creating it with a
	// zero balance if needed, and holds its row lock until the unit ends.
	LockWallet(ctx context.Context, operatorID, playerID, currency string) (Wallet, error)
	LockWalletByID(ctx context.Context, walletID string) (Wallet, error)
	SetBalance(ctx context.Context, walletID string, balance money.Amount) error

	InsertTransaction(ctx context.Context, t *Transaction) error
	SetTransactionStatus(ctx context.Context, id string, status TxStatus, at time.Time) error
	// TransactionByKey finds the non-reversed transaction bound to key.
	TransactionByKey(ctx context.Context, operatorID, key string) (Transaction, error)
	LockTransaction(ctx context.Context, operatorID, id string) (Transaction, error)
}
