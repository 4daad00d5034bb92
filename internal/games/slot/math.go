package slot

import (
	"strconv"

	"github.com/radieske/game-provider-platform/internal/games/fairness"
)

// Position addresses one cell of the grid.
type Position struct {
	Reel int `json:"reel"`
	Row  int `json:"row"`
}

// LineWin is one paying payline.
type LineWin struct {
	Type      string     `json:"type"`
	Line      int        `json:"line"`
	Symbol    string     `json:"symbol"`
	Count     int        `json:"count"`
	PayoutMul float64    `json:"payoutMul"`
	Positions []Position `json:"positions"`
}

// Outcome is the raw result of one spin before bet and feature handling.
type Outcome struct {
	Grid     [][]string
	Wins     []LineWin
	Scatters int
	TotalMul float64
}

// ReelTag is the fairness tag of reel i.
func ReelTag(i int) string { return "reel:" + strconv.Itoa(i) }

// BuildGrid draws one value per reel and reads Rows symbols contiguously from
// the strip starting at the drawn offset, wrapping around the strip end.
func BuildGrid(c Config, serverSeed, clientSeed string, nonce int64) [][]string {
	grid := make([][]string, c.Reels())
	for r, strip := range c.Strips {
		u := fairness.Uniform01(serverSeed, clientSeed, nonce, ReelTag(r))
		start := stripOffset(u, len(strip))
		col := make([]string, c.Rows)
		for row := 0; row < c.Rows; row++ {
			col[row] = strip[(start+row)%len(strip)]
		}
		grid[r] = col
	}
	return grid
}

func stripOffset(u float64, n int) int {
	idx := int(u * float64(n))
	if idx < 0 {
		return 0
	}
	if idx > n-1 {
		return n - 1
	}
	return idx
}

// EvaluateLines scores every payline of grid.
func EvaluateLines(c Config, grid [][]string) ([]LineWin, float64) {
	var (
		wins  []LineWin
		total float64
	)
	for li, line := range c.Paylines {
		target, count := "", 0
		for r, row := range line {
			sym := grid[r][row]
			wild := sym == c.Wild
			if target == "" {
				if !wild {
					target = sym
				}
				count++
				continue
			}
			if sym != target && !wild {
				break
			}
			count++
		}
		if target == "" {
			target = c.Wild
		}
		if target == c.Scatter {
			continue
		}
		mul, ok := c.Paytable[target][count]
		if !ok || mul == 0 {
			continue
		}
		mul *= c.baseMultiplier()
		total += mul

		pos := make([]Position, count)
		for r := 0; r < count; r++ {
			pos[r] = Position{Reel: r, Row: line[r]}
		}
		wins = append(wins, LineWin{
			Type:      "LINE",
			Line:      li + 1,
			Symbol:    target,
			Count:     count,
			PayoutMul: mul,
			Positions: pos,
		})
	}
	return wins, total
}

// CountScatters counts scatter symbols anywhere on the grid.
func CountScatters(c Config, grid [][]string) int {
	n := 0
	for _, col := range grid {
		for _, sym := range col {
			if sym == c.Scatter {
				n++
			}
		}
	}
	return n
}

// Spin builds the grid and evaluates it.
func Spin(c Config, serverSeed, clientSeed string, nonce int64) Outcome {
	grid := BuildGrid(c, serverSeed, clientSeed, nonce)
	wins, total := EvaluateLines(c, grid)
	return Outcome{
		Grid:     grid,
		Wins:     wins,
		Scatters: CountScatters(c, grid),
		TotalMul: total,
	}
}
