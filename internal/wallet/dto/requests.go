package dto

import "github.com/radieske/game-provider-platform/internal/shared/money"

type MoveRequest struct {
	PlayerExternalID string         `json:"playerExternalId"`
	Currency         string         `json:"currency"`
	Amount           money.Amount   `json:"amount"`
	ReferenceID      string         `json:"referenceId,omitempty"`
	IdempotencyKey   string         `json:"idempotencyKey,omitempty"`
	Meta             map[string]any `json:"meta,omitempty"`
}

type RollbackRequest struct {
	TransactionID  string `json:"transactionId"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}
