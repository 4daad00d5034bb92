package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Postgres struct{ db *sqlx.DB }

func NewPostgres(db *sqlx.DB) *Postgres { return &Postgres{db: db} }

type roundRow struct {
	Round
	ResultText sql.NullString `db:"result"`
}

const roundColumns = `id, operator_id, player_id, player_external_id, game_code, currency,
	bet_amount, win_amount, server_seed, server_seed_hash, client_seed, nonce, status,
	result::text AS result, created_at, updated_at, settled_at`

func (p *Postgres) CreateRound(ctx context.Context, r *Round) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO game_rounds(id, operator_id, player_id, player_external_id, game_code, currency,
			bet_amount, win_amount, server_seed, server_seed_hash, client_seed, nonce, status, result,
			created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14::jsonb,$15,$15)`,
		r.ID, r.OperatorID, r.PlayerID, r.PlayerExternalID, r.GameCode, r.Currency,
		r.BetAmount, r.WinAmount, r.ServerSeed, r.ServerSeedHash, r.ClientSeed, r.Nonce, r.Status,
		jsonText(r.Result), r.CreatedAt)
	return err
}

func (p *Postgres) RoundByID(ctx context.Context, operatorID, id string) (Round, error) {
	var row roundRow
	err := p.db.GetContext(ctx, &row,
		`SELECT `+roundColumns+` FROM game_rounds WHERE id=$1 AND operator_id=$2`, id, operatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return Round{}, ErrNotFound
	}
	if err != nil {
		return Round{}, err
	}
	r := row.Round
	if row.ResultText.Valid {
		r.Result = json.RawMessage(row.ResultText.String)
	}
	return r, nil
}

func (p *Postgres) SaveRound(ctx context.Context, r Round, key SessionKey, session []byte) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE game_rounds
		SET bet_amount=$1, win_amount=$2, client_seed=$3, nonce=$4, status=$5, result=$6::jsonb,
			updated_at=$7, settled_at=$8
		WHERE id=$9 AND operator_id=$10 AND status='CREATED'`,
		r.BetAmount, r.WinAmount, r.ClientSeed, r.Nonce, r.Status, jsonText(r.Result),
		r.UpdatedAt, r.SettledAt, r.ID, r.OperatorID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotCreated
	}

	if session != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO game_sessions(operator_id, player_id, game_code, state, updated_at)
			VALUES($1,$2,$3,$4::jsonb,$5)
			ON CONFLICT (operator_id, player_id, game_code)
			DO UPDATE SET state=EXCLUDED.state, updated_at=EXCLUDED.updated_at`,
			key.OperatorID, key.PlayerID, key.GameCode, string(session), r.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) Session(ctx context.Context, key SessionKey) ([]byte, error) {
	var state string
	err := p.db.GetContext(ctx, &state, `
		SELECT state::text FROM game_sessions WHERE operator_id=$1 AND player_id=$2 AND game_code=$3`,
		key.OperatorID, key.PlayerID, key.GameCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(state), nil
}

func jsonText(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
