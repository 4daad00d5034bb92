package slot

import (
	"encoding/json"

	"github.com/radieske/game-provider-platform/internal/games/engine"
)

func jsonSession(s Session) ([]byte, error) { return json.Marshal(s) }

func eventTypes(r engine.Result) []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
