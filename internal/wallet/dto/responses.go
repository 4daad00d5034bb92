package dto

import (
	"time"

	"github.com/radieske/game-provider-platform/internal/shared/money"
)

type TransactionView struct {
	ID             string       `json:"id"`
	Type           string       `json:"type"`
	Status         string       `json:"status"`
	Amount         money.Amount `json:"amount"`
	ReferenceID    string       `json:"referenceId,omitempty"`
	IdempotencyKey string       `json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

type StatementResponse struct {
	PlayerExternalID string            `json:"playerExternalId"`
	Currency         string            `json:"currency"`
	Balance          money.Amount      `json:"balance"`
	Transactions     []TransactionView `json:"transactions"`
}
