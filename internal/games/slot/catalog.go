package slot

// Paylines20 is the 20-line layout shared by the 5x3 titles. Each entry is a
// row index per reel.
var Paylines20 = [][]int{
	{1, 1, 1, 1, 1},
	{0, 0, 0, 0, 0},
	{2, 2, 2, 2, 2},
	{0, 1, 2, 1, 0},
	{2, 1, 0, 1, 2},
	{0, 0, 1, 2, 2},
	{2, 2, 1, 0, 0},
	{1, 0, 0, 0, 1},
	{1, 2, 2, 2, 1},
	{1, 0, 1, 2, 1},
	{1, 2, 1, 0, 1},
	{0, 1, 1, 1, 0},
	{2, 1, 1, 1, 2},
	{0, 1, 0, 1, 0},
	{2, 1, 2, 1, 2},
	{1, 1, 0, 1, 1},
	{1, 1, 2, 1, 1},
	{0, 0, 2, 0, 0},
	{2, 2, 0, 2, 2},
	{0, 2, 2, 2, 0},
}

// themed builds a 5x3 title from the shared strip layout. hi1 and hi2 are the
// two themed high symbols.
func themed(id, name, hi1, hi2 string) Config {
	return Config{
		ID:         id,
		Name:       name,
		RTP:        0.96,
		Volatility: "MEDIUM",
		Rows:       3,
		Strips: [][]string{
			{"A", "K", "Q", "J", "10", "9", hi1, hi2, "W", "S", "A", "K", "Q", "J", "10", "9", hi1, "A", "K"},
			{"A", "K", "Q", "J", "10", "9", hi1, hi2, "W", "S", "A", "K", "Q", "J", "10", "9", hi2, "A", "Q"},
			{"A", "K", "Q", "J", "10", "9", hi1, hi2, "W", "S", "A", "K", "Q", "J", "10", "9", hi1, hi2, "Q"},
			{"A", "K", "Q", "J", "10", "9", hi1, hi2, "W", "S", "A", "K", "Q", "J", "10", "9", hi2, "J", "K"},
			{"A", "K", "Q", "J", "10", "9", hi1, hi2, "W", "S", "A", "K", "Q", "J", "10", "9", hi1, "10", "A"},
		},
		Paylines: Paylines20,
		Wild:     "W",
		Scatter:  "S",
		Paytable: map[string]map[int]float64{
			"A":  {3: 0.5, 4: 1.5, 5: 5},
			"K":  {3: 0.4, 4: 1.2, 5: 4},
			"Q":  {3: 0.3, 4: 1.0, 5: 3},
			"J":  {3: 0.25, 4: 0.8, 5: 2.5},
			"10": {3: 0.2, 4: 0.6, 5: 2},
			"9":  {3: 0.15, 4: 0.5, 5: 1.5},
			hi1:  {3: 0.6, 4: 2.0, 5: 8},
			hi2:  {3: 0.8, 4: 3.0, 5: 12},
			"W":  {3: 1.0, 4: 4.0, 5: 20},
		},
		ScatterFreeSpins:   map[int]int{3: 8, 4: 12, 5: 20},
		FreeSpinMultiplier: 2,
	}
}

var (
	FruitClassic = themed("fruit_classic", "Fruit Classic", "FR1", "FR2")
	DiamondRush  = themed("diamond_rush", "Diamond Rush", "DR1", "DR2")
	FireReels    = themed("fire_reels", "Fire Reels", "FRL1", "FRL2")
)

// Catalog lists the built-in slot titles.
func Catalog() []Config {
	return []Config{FruitClassic, DiamondRush, FireReels}
}
