package dto

import (
	"encoding/json"
	"time"

	"github.com/radieske/game-provider-platform/internal/games/engine"
	"github.com/radieske/game-provider-platform/internal/shared/money"
)

type GameInfo struct {
	GameCode string  `json:"gameCode"`
	Kind     string  `json:"kind"`
	RTP      float64 `json:"rtp"`
}

type GameConfig struct {
	GameCode string  `json:"gameCode"`
	Kind     string  `json:"kind"`
	RTP      float64 `json:"rtp"`
	Table    any     `json:"table,omitempty"`
}

type InitResponse struct {
	RoundID        string       `json:"roundId"`
	GameCode       string       `json:"gameCode"`
	RTP            float64      `json:"rtp"`
	ServerSeedHash string       `json:"serverSeedHash"`
	ClientSeed     string       `json:"clientSeed"`
	Currency       string       `json:"currency"`
	WalletBalance  money.Amount `json:"walletBalance"`
}

type PlayResponse struct {
	RoundID       string          `json:"roundId"`
	GameCode      string          `json:"gameCode"`
	Status        string          `json:"status"`
	Bet           money.Amount    `json:"bet"`
	Stake         money.Amount    `json:"stake"`
	Win           money.Amount    `json:"win"`
	Currency      string          `json:"currency"`
	State         string          `json:"state"`
	Events        []engine.Event  `json:"events"`
	Fairness      engine.Fairness `json:"fairness"`
	Nonce         int64           `json:"nonce"`
	WalletBalance money.Amount    `json:"walletBalance"`
}

type RoundFairness struct {
	Algorithm      string `json:"algo"`
	ServerSeedHash string `json:"serverSeedHash"`
	// ServerSeed is only revealed once the round is SETTLED.
	ServerSeed string `json:"serverSeed,omitempty"`
	ClientSeed string `json:"clientSeed"`
	Nonce      int64  `json:"nonce"`
}

type VerifyResponse struct {
	RoundID   string          `json:"roundId"`
	GameCode  string          `json:"gameCode"`
	Status    string          `json:"status"`
	Bet       money.Amount    `json:"bet"`
	Win       money.Amount    `json:"win"`
	Currency  string          `json:"currency"`
	Fairness  RoundFairness   `json:"fairness"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	SettledAt *time.Time      `json:"settledAt,omitempty"`
}

type FairnessVerifyResponse struct {
	GameCode       string        `json:"gameCode"`
	ServerSeedHash string        `json:"serverSeedHash"`
	Result         engine.Result `json:"result"`
	// CrashPoint is the bust multiplier fixed by the seeds (crash games only).
	CrashPoint  *money.Amount `json:"crashPoint,omitempty"`
	InstantBust bool          `json:"instantBust,omitempty"`
}
