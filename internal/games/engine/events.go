package engine

// Event types emitted in Result.Events.
const (
	EventSpinStart          = "SPIN_START"
	EventReelsStop          = "REELS_STOP"
	EventWinLine            = "WIN_LINE"
	EventScatterTrigger     = "SCATTER_TRIGGER"
	EventFreeSpinsStart     = "FREE_SPINS_START"
	EventFreeSpinsRetrigger = "FREE_SPINS_RETRIGGER"
	EventFreeSpinsEnd       = "FREE_SPINS_END"
	EventMultiplierApplied  = "MULTIPLIER_APPLIED"
	EventCrashStart         = "CRASH_START"
	EventCashout            = "CASHOUT"
	EventDiceRoll           = "DICE_ROLL"
	EventFairness           = "FAIRNESS"
	EventRoundEnd           = "ROUND_END"
)

// Event is one step of a round as shown to the player.
type Event struct {
	Type string `json:"t"`
	Data any    `json:"d,omitempty"`
}

// Events accumulates round events in order.
type Events []Event

func (e *Events) Add(t string, d any) { *e = append(*e, Event{Type: t, Data: d}) }

// FairnessEvent mirrors the fairness block as an event.
func FairnessEvent(f Fairness) Event {
	return Event{Type: EventFairness, Data: map[string]any{
		"serverSeedHash": f.ServerSeedHash,
		"clientSeed":     f.ClientSeed,
		"nonce":          f.Nonce,
	}}
}
