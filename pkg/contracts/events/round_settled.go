package events

// RoundSettled is published after a play commits. Amounts are decimal
// strings with at most six fractional digits.
type RoundSettled struct {
	EventID          string `json:"event_id"`
	OperatorID       string `json:"operator_id"`
	RoundID          string `json:"round_id"`
	GameCode         string `json:"game_code"`
	PlayerExternalID string `json:"player_external_id"`
	Currency         string `json:"currency"`
	Stake            string `json:"stake"`
	Win              string `json:"win"`
	Nonce            int64  `json:"nonce"`
	Status           string `json:"status"` // CREATED while a crash round is still open
	ServerSeedHash   string `json:"server_seed_hash"`
	TsUnixMs         int64  `json:"ts_unix_ms"`
}
