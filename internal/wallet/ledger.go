// Package wallet is the ledger: balances per (player, currency) moved only by
// debit, credit and rollback transactions.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/game-provider-platform/internal/shared/apperr"
	"github.com/radieske/game-provider-platform/internal/shared/money"
	"github.com/radieske/game-provider-platform/internal/wallet/repo"
)

// Op describes one debit or credit.
type Op struct {
	OperatorID       string
	PlayerExternalID string
	Currency         string
	Amount           money.Amount
	ReferenceID      string
	// IdempotencyKey binds the entry; a retry with the same key returns the
	// original transaction instead of applying twice.
	IdempotencyKey string
	Meta           map[string]any
}

type Receipt struct {
	TransactionID    string       `json:"transactionId"`
	PlayerExternalID string       `json:"playerExternalId"`
	Currency         string       `json:"currency"`
	Balance          money.Amount `json:"balance"`
	Replayed         bool         `json:"-"`
}

type Balance struct {
	PlayerExternalID string       `json:"playerExternalId"`
	Currency         string       `json:"currency"`
	Balance          money.Amount `json:"balance"`
}

type RollbackResult struct {
	RolledBack    bool         `json:"rolledBack"`
	TransactionID string       `json:"transactionId"`
	Balance       money.Amount `json:"balance"`
}

type Ledger struct {
	store   repo.Store
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

func NewLedger(store repo.Store, log *zap.Logger, m *Metrics) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, log: log, metrics: m, now: time.Now}
}

// EnsurePlayer returns the player for (operator, external id), creating it.
func (l *Ledger) EnsurePlayer(ctx context.Context, operatorID, externalID string) (repo.Player, error) {
	if operatorID == "" || strings.TrimSpace(externalID) == "" {
		return repo.Player{}, apperr.Validation("operator and player are required")
	}
	var p repo.Player
	err := l.store.InTx(ctx, func(tx repo.Tx) error {
		var err error
		p, err = tx.UpsertPlayer(ctx, operatorID, externalID)
		return err
	})
	return p, apperr.Internal("ensure player", err)
}

// Balance reads the balance, creating player and wallet on first reference.
func (l *Ledger) Balance(ctx context.Context, operatorID, externalID, currency string) (Balance, error) {
	if err := validateOwner(operatorID, externalID, currency); err != nil {
		return Balance{}, err
	}
	var out Balance
	err := l.store.InTx(ctx, func(tx repo.Tx) error {
		p, err := tx.UpsertPlayer(ctx, operatorID, externalID)
		if err != nil {
			return err
		}
		w, err := tx.LockWallet(ctx, operatorID, p.ID, currency)
		if err != nil {
			return err
		}
		out = Balance{PlayerExternalID: externalID, Currency: currency, Balance: w.Balance}
		return nil
	})
	return out, apperr.Internal("balance", err)
}

// Debit removes op.Amount, failing with INSUFFICIENT_FUNDS if the balance
// would go negative.
func (l *Ledger) Debit(ctx context.Context, op Op) (Receipt, error) {
	rec, err := l.apply(ctx, repo.TxDebit, op)
	l.metrics.observe("debit", err)
	return rec, err
}

// Credit adds op.Amount.
func (l *Ledger) Credit(ctx context.Context, op Op) (Receipt, error) {
	rec, err := l.apply(ctx, repo.TxCredit, op)
	l.metrics.observe("credit", err)
	return rec, err
}

func (l *Ledger) apply(ctx context.Context, typ repo.TxType, op Op) (Receipt, error) {
	if err := validateOwner(op.OperatorID, op.PlayerExternalID, op.Currency); err != nil {
		return Receipt{}, err
	}
	if !op.Amount.IsPositive() {
		return Receipt{}, apperr.Validation("amount must be positive, got %s", op.Amount)
	}
	meta := "{}"
	if len(op.Meta) > 0 {
		b, err := json.Marshal(op.Meta)
		if err != nil {
			return Receipt{}, apperr.Validation("meta: %v", err)
		}
		meta = string(b)
	}

	var rec Receipt
	err := l.store.InTx(ctx, func(tx repo.Tx) error {
		p, err := tx.UpsertPlayer(ctx, op.OperatorID, op.PlayerExternalID)
		if err != nil {
			return err
		}
		w, err := tx.LockWallet(ctx, op.OperatorID, p.ID, op.Currency)
		if err != nil {
			return err
		}

		if op.IdempotencyKey != "" {
			prev, err := tx.TransactionByKey(ctx, op.OperatorID, op.IdempotencyKey)
			switch {
			case err == nil:
				if prev.Type != typ || prev.WalletID != w.ID || !prev.Amount.Equal(op.Amount) {
					return apperr.Conflict("ledger key %q already used for a different %s", op.IdempotencyKey, prev.Type)
				}
				rec = Receipt{TransactionID: prev.ID, PlayerExternalID: op.PlayerExternalID, Currency: op.Currency, Balance: w.Balance, Replayed: true}
				return nil
			case !errors.Is(err, repo.ErrNotFound):
				return err
			}
		}

		signed := op.Amount
		if typ == repo.TxDebit {
			signed = op.Amount.Neg()
		}
		next := w.Balance.Add(signed)
		if next.IsNegative() {
			return apperr.Newf(apperr.CodeInsufficientFunds, "insufficient funds: balance %s, debit %s", w.Balance, op.Amount)
		}

		now := l.now()
		tr := &repo.Transaction{
			OperatorID:     op.OperatorID,
			PlayerID:       p.ID,
			WalletID:       w.ID,
			Currency:       op.Currency,
			Type:           typ,
			Status:         repo.TxPending,
			Amount:         op.Amount,
			ReferenceID:    optional(op.ReferenceID),
			IdempotencyKey: optional(op.IdempotencyKey),
			Meta:           meta,
			CreatedAt:      now,
		}
		if err := tx.InsertTransaction(ctx, tr); err != nil {
			if errors.Is(err, repo.ErrDuplicateKey) {
				return apperr.Conflict("ledger key %q already used", op.IdempotencyKey)
			}
			return err
		}
		if err := tx.SetBalance(ctx, w.ID, next); err != nil {
			return err
		}
		if err := tx.SetTransactionStatus(ctx, tr.ID, repo.TxApplied, now); err != nil {
			return err
		}
		rec = Receipt{TransactionID: tr.ID, PlayerExternalID: op.PlayerExternalID, Currency: op.Currency, Balance: next}
		return nil
	})
	if err != nil {
		return Receipt{}, apperr.Internal(strings.ToLower(string(typ)), err)
	}
	if rec.Replayed {
		l.log.Info("ledger replay", zap.String("operator", op.OperatorID), zap.String("key", op.IdempotencyKey), zap.String("tx", rec.TransactionID))
	}
	return rec, nil
}

// Rollback inverts an applied transaction once. Rolling back a reversed
// transaction returns the current state without touching the balance.
func (l *Ledger) Rollback(ctx context.Context, operatorID, transactionID string) (RollbackResult, error) {
	res, err := l.rollback(ctx, operatorID, transactionID)
	l.metrics.observe("rollback", err)
	return res, err
}

func (l *Ledger) rollback(ctx context.Context, operatorID, transactionID string) (RollbackResult, error) {
	if operatorID == "" || transactionID == "" {
		return RollbackResult{}, apperr.Validation("operator and transaction are required")
	}
	var out RollbackResult
	err := l.store.InTx(ctx, func(tx repo.Tx) error {
		t, err := tx.LockTransaction(ctx, operatorID, transactionID)
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("transaction %s not found", transactionID)
		}
		if err != nil {
			return err
		}
		w, err := tx.LockWalletByID(ctx, t.WalletID)
		if err != nil {
			return err
		}

		switch t.Status {
		case repo.TxReversed:
			out = RollbackResult{RolledBack: true, TransactionID: t.ID, Balance: w.Balance}
			return nil
		case repo.TxApplied:
		default:
			return apperr.Conflict("transaction %s is %s, not APPLIED", t.ID, t.Status)
		}

		next := w.Balance.Sub(t.Signed())
		if next.IsNegative() {
			return apperr.Newf(apperr.CodeInsufficientFunds, "rollback of %s would leave balance %s", t.ID, next)
		}
		if err := tx.SetBalance(ctx, w.ID, next); err != nil {
			return err
		}
		if err := tx.SetTransactionStatus(ctx, t.ID, repo.TxReversed, l.now()); err != nil {
			return err
		}
		out = RollbackResult{RolledBack: true, TransactionID: t.ID, Balance: next}
		return nil
	})
	return out, apperr.Internal("rollback", err)
}

// Statement returns the wallet and every transaction recorded against it.
func (l *Ledger) Statement(ctx context.Context, operatorID, externalID, currency string) (repo.Wallet, []repo.Transaction, error) {
	if err := validateOwner(operatorID, externalID, currency); err != nil {
		return repo.Wallet{}, nil, err
	}
	var w repo.Wallet
	err := l.store.InTx(ctx, func(tx repo.Tx) error {
		p, err := tx.UpsertPlayer(ctx, operatorID, externalID)
		if err != nil {
			return err
		}
		w, err = tx.LockWallet(ctx, operatorID, p.ID, currency)
		return err
	})
	if err != nil {
		return repo.Wallet{}, nil, apperr.Internal("statement", err)
	}
	txs, err := l.store.ListTransactions(ctx, w.ID)
	if err != nil {
		return repo.Wallet{}, nil, apperr.Internal("statement", err)
	}
	return w, txs, nil
}

func validateOwner(operatorID, externalID, currency string) error {
	if operatorID == "" || strings.TrimSpace(externalID) == "" {
		return apperr.Validation("operator and player are required")
	}
	if strings.TrimSpace(currency) == "" {
		return apperr.Validation("currency is required")
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
