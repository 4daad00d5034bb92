// Package catalog wires the built-in games into a registry.
package catalog

import (
	"fmt"

	"github.com/radieske/game-provider-platform/internal/games/crash"
	"github.com/radieske/game-provider-platform/internal/games/dice"
	"github.com/radieske/game-provider-platform/internal/games/engine"
	"github.com/radieske/game-provider-platform/internal/games/slot"
)

// Default builds the registry with every slot title, crash and dice.
func Default() (*engine.Registry, error) {
	var engines []engine.Engine
	for _, cfg := range slot.Catalog() {
		e, err := slot.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", cfg.ID, err)
		}
		engines = append(engines, e)
	}
	engines = append(engines,
		crash.New(crash.DefaultID, crash.DefaultRTP),
		dice.New(dice.OverUnder),
	)
	return engine.NewRegistry(engines...)
}
