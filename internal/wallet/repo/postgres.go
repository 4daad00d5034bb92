package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/radieske/game-provider-platform/internal/shared/money"
)

// Postgres stores the ledger. Wallet rows are locked FOR UPDATE for the
// duration of each unit of work.
type Postgres struct{ db *sqlx.DB }

func NewPostgres(db *sqlx.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

const txColumns = `id, operator_id, player_id, wallet_id, currency, type, status, amount,
	reference_id, idempotency_key, meta::text AS meta, created_at, applied_at, reversed_at`

func (p *Postgres) ListTransactions(ctx context.Context, walletID string) ([]Transaction, error) {
	var out []Transaction
	err := p.db.SelectContext(ctx, &out,
		`SELECT `+txColumns+` FROM wallet_transactions WHERE wallet_id=$1 ORDER BY created_at, id`, walletID)
	return out, err
}

type pgTx struct{ tx *sqlx.Tx }

func (t *pgTx) UpsertPlayer(ctx context.Context, operatorID, externalID string) (Player, error) {
	var pl Player
	err := t.tx.GetContext(ctx, &pl, `
		INSERT INTO players(id, operator_id, external_id) VALUES($1,$2,$3)
		ON CONFLICT (operator_id, external_id) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING id, operator_id, external_id, created_at`,
		uuid.NewString(), operatorID, externalID)
	return pl, err
}

func (t *pgTx) PlayerByID(ctx context.Context, operatorID, playerID string) (Player, error) {
	var pl Player
	err := t.tx.GetContext(ctx, &pl,
		`SELECT id, operator_id, external_id, created_at FROM players WHERE id=$1 AND operator_id=$2`,
		playerID, operatorID)
	return pl, notFound(err)
}

func (t *pgTx) LockWallet(ctx context.Context, operatorID, playerID, currency string) (Wallet, error) {
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO wallets(id, operator_id, player_id, currency, balance, version) VALUES($1,$2,$3,$4,0,1)
		ON CONFLICT (player_id, currency) DO NOTHING`,
		uuid.NewString(), operatorID, playerID, currency); err != nil {
		return Wallet{}, err
	}
	var w Wallet
	err := t.tx.GetContext(ctx, &w, `
		SELECT id, operator_id, player_id, currency, balance, version
		FROM wallets WHERE player_id=$1 AND currency=$2 FOR UPDATE`, playerID, currency)
	return w, err
}

func (t *pgTx) LockWalletByID(ctx context.Context, walletID string) (Wallet, error) {
	var w Wallet
	err := t.tx.GetContext(ctx, &w, `
		SELECT id, operator_id, player_id, currency, balance, version
		FROM wallets WHERE id=$1 FOR UPDATE`, walletID)
	return w, notFound(err)
}

func (t *pgTx) SetBalance(ctx context.Context, walletID string, balance money.Amount) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE wallets SET balance=$1, version = version + 1, updated_at = now() WHERE id=$2`,
		balance, walletID)
	return err
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr *Transaction) error {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	if tr.Meta == "" {
		tr.Meta = "{}"
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions(id, operator_id, player_id, wallet_id, currency, type, status, amount,
			reference_id, idempotency_key, meta, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::jsonb,$12)`,
		tr.ID, tr.OperatorID, tr.PlayerID, tr.WalletID, tr.Currency, tr.Type, tr.Status, tr.Amount,
		tr.ReferenceID, tr.IdempotencyKey, tr.Meta, tr.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateKey
	}
	return err
}

func (t *pgTx) SetTransactionStatus(ctx context.Context, id string, status TxStatus, at time.Time) error {
	switch status {
	case TxApplied:
		_, err := t.tx.ExecContext(ctx, `UPDATE wallet_transactions SET status=$1, applied_at=$2 WHERE id=$3`, status, at, id)
		return err
	case TxReversed:
		_, err := t.tx.ExecContext(ctx, `UPDATE wallet_transactions SET status=$1, reversed_at=$2 WHERE id=$3`, status, at, id)
		return err
	default:
		_, err := t.tx.ExecContext(ctx, `UPDATE wallet_transactions SET status=$1 WHERE id=$2`, status, id)
		return err
	}
}

func (t *pgTx) TransactionByKey(ctx context.Context, operatorID, key string) (Transaction, error) {
	var tr Transaction
	err := t.tx.GetContext(ctx, &tr, `SELECT `+txColumns+` FROM wallet_transactions
		WHERE operator_id=$1 AND idempotency_key=$2 AND status <> 'REVERSED'`, operatorID, key)
	return tr, notFound(err)
}

func (t *pgTx) LockTransaction(ctx context.Context, operatorID, id string) (Transaction, error) {
	var tr Transaction
	err := t.tx.GetContext(ctx, &tr, `SELECT `+txColumns+` FROM wallet_transactions
		WHERE id=$1 AND operator_id=$2 FOR UPDATE`, id, operatorID)
	return tr, notFound(err)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
