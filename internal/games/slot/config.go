package slot

import (
	"fmt"
	"sort"
)

// MinScatters is the fewest scatters that can trigger free spins.
const MinScatters = 3

// Config describes one video slot: reel strips, lines and pay rules.
type Config struct {
	ID         string
	Name       string
	RTP        float64
	Volatility string
	Rows       int
	// Strips holds one symbol strip per reel.
	Strips   [][]string
	Paylines [][]int
	Wild     string
	Scatter  string
	// Paytable maps symbol -> run length -> multiplier of the total bet.
	// Line wins are summed before the bet is applied.
	Paytable map[string]map[int]float64
	// ScatterFreeSpins maps scatter count -> free spins awarded.
	ScatterFreeSpins   map[int]int
	BaseMultiplier     float64
	FreeSpinMultiplier float64
}

// Table is the public view of a slot's math.
type Table struct {
	Name               string                     `json:"name"`
	Volatility         string                     `json:"volatility,omitempty"`
	Rows               int                        `json:"rows"`
	Reels              int                        `json:"reels"`
	Strips             [][]string                 `json:"strips"`
	Paylines           [][]int                    `json:"paylines"`
	Wild               string                     `json:"wild"`
	Scatter            string                     `json:"scatter"`
	Paytable           map[string]map[int]float64 `json:"paytable"`
	ScatterFreeSpins   map[int]int                `json:"scatterFreeSpins"`
	FreeSpinMultiplier float64                    `json:"freeSpinMultiplier"`
}

func (c Config) Table() Table {
	return Table{
		Name:               c.Name,
		Volatility:         c.Volatility,
		Rows:               c.Rows,
		Reels:              c.Reels(),
		Strips:             c.Strips,
		Paylines:           c.Paylines,
		Wild:               c.Wild,
		Scatter:            c.Scatter,
		Paytable:           c.Paytable,
		ScatterFreeSpins:   c.ScatterFreeSpins,
		FreeSpinMultiplier: c.freeSpinMultiplier(),
	}
}

// Reels returns the number of reels.
func (c Config) Reels() int { return len(c.Strips) }

// Validate checks the config is internally consistent.
func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("slot config without id")
	}
	if c.Rows <= 0 || len(c.Strips) == 0 {
		return fmt.Errorf("slot %s: empty grid", c.ID)
	}
	for i, s := range c.Strips {
		if len(s) == 0 {
			return fmt.Errorf("slot %s: reel %d has an empty strip", c.ID, i)
		}
	}
	for i, line := range c.Paylines {
		if len(line) != len(c.Strips) {
			return fmt.Errorf("slot %s: payline %d has %d positions, want %d", c.ID, i+1, len(line), len(c.Strips))
		}
		for _, row := range line {
			if row < 0 || row >= c.Rows {
				return fmt.Errorf("slot %s: payline %d row %d out of range", c.ID, i+1, row)
			}
		}
	}
	for n, spins := range c.ScatterFreeSpins {
		if n < MinScatters {
			return fmt.Errorf("slot %s: free spins need at least %d scatters, got threshold %d", c.ID, MinScatters, n)
		}
		if spins <= 0 {
			return fmt.Errorf("slot %s: %d scatters award %d free spins", c.ID, n, spins)
		}
	}
	return nil
}

func (c Config) freeSpinsFor(scatters int) int {
	keys := make([]int, 0, len(c.ScatterFreeSpins))
	for k := range c.ScatterFreeSpins {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	award := 0
	for _, k := range keys {
		if scatters >= k {
			award = c.ScatterFreeSpins[k]
		}
	}
	return award
}

func (c Config) baseMultiplier() float64 {
	if c.BaseMultiplier == 0 {
		return 1
	}
	return c.BaseMultiplier
}

func (c Config) freeSpinMultiplier() float64 {
	if c.FreeSpinMultiplier == 0 {
		return 1
	}
	return c.FreeSpinMultiplier
}
