package dto

import (
	"encoding/json"

	"github.com/radieske/game-provider-platform/internal/shared/money"
)

type InitRequest struct {
	GameCode         string `json:"gameCode"`
	PlayerExternalID string `json:"playerExternalId"`
	Currency         string `json:"currency"`
	ClientSeed       string `json:"clientSeed,omitempty"`
}

// PlayRequest carries the engine action as raw JSON; an absent action means
// the game's default one (spin, roll, crash start).
type PlayRequest struct {
	RoundID        string          `json:"roundId"`
	Bet            money.Amount    `json:"bet"`
	ClientSeed     string          `json:"clientSeed,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	Action         json.RawMessage `json:"action,omitempty"`
}

// FairnessVerifyRequest recomputes a draw from revealed seeds.
type FairnessVerifyRequest struct {
	GameCode   string          `json:"gameCode"`
	ServerSeed string          `json:"serverSeed"`
	ClientSeed string          `json:"clientSeed"`
	Nonce      int64           `json:"nonce"`
	Bet        money.Amount    `json:"bet"`
	Action     json.RawMessage `json:"action,omitempty"`
}
