package idempotency

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type Postgres struct{ db *sqlx.DB }

func NewPostgres(db *sqlx.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Get(ctx context.Context, operatorID, key string) (Record, error) {
	var rec Record
	err := p.db.GetContext(ctx, &rec, `
		SELECT operator_id, key, endpoint, request_hash, response, created_at
		FROM idempotency_keys WHERE operator_id=$1 AND key=$2`, operatorID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (p *Postgres) Put(ctx context.Context, rec Record) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys(operator_id, key, endpoint, request_hash, response, created_at)
		VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT (operator_id, key) DO NOTHING`,
		rec.OperatorID, rec.Key, rec.Endpoint, rec.RequestHash, rec.Response, rec.CreatedAt)
	return err
}
