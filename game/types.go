package game

// SymbolID is a single reel symbol. Zero is reserved for the blank marker
// unless the game config overrides it.
type SymbolID int

// Grid is the visible symbol window, reel-major: Grid[reel][row].
// Dimensions are fixed per game configuration and never vary per spin.
type Grid [][]SymbolID

// NewGrid allocates an empty grid of the configured shape.
func NewGrid(reels, rows int) Grid {
	g := make(Grid, reels)
	for i := range g {
		g[i] = make([]SymbolID, rows)
	}
	return g
}

// Reels returns the number of reels in the grid.
func (g Grid) Reels() int {
	return len(g)
}

// Rows returns the number of rows in the grid (0 for an empty grid).
func (g Grid) Rows() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Equal reports whether two grids have identical shape and symbols.
func (g Grid) Equal(other Grid) bool {
	if len(g) != len(other) {
		return false
	}
	for i := range g {
		if len(g[i]) != len(other[i]) {
			return false
		}
		for j := range g[i] {
			if g[i][j] != other[i][j] {
				return false
			}
		}
	}
	return true
}

// PaylinePattern is an ordered row index per reel, defining the path across
// the grid tested for matches. Patterns are immutable game configuration.
type PaylinePattern []int

// PaytableEntry holds payout multipliers for 3, 4 and 5 consecutive matches.
// Multipliers are applied to the per-line bet in base units.
type PaytableEntry struct {
	Match3 int64 `mapstructure:"match3" json:"match3"`
	Match4 int64 `mapstructure:"match4" json:"match4"`
	Match5 int64 `mapstructure:"match5" json:"match5"`
}

// PayoutFor returns the multiplier for a run of the given length.
func (e PaytableEntry) PayoutFor(matchCount int) int64 {
	switch matchCount {
	case 3:
		return e.Match3
	case 4:
		return e.Match4
	case 5:
		return e.Match5
	default:
		return 0
	}
}

// Paytable maps a symbol to its payout multipliers.
type Paytable map[SymbolID]PaytableEntry

// WinningLine is one payline hit. Payout is in base units.
type WinningLine struct {
	PaylineIndex int      `json:"paylineIndex"`
	Symbol       SymbolID `json:"symbol"`
	MatchCount   int      `json:"matchCount"`
	Payout       int64    `json:"payout"`
}

// Win levels classify a payout relative to the total bet.
const (
	WinLevelNone    = ""
	WinLevelSmall   = "small"
	WinLevelMedium  = "medium"
	WinLevelLarge   = "large"
	WinLevelJackpot = "jackpot"
)

// WinLevel classifies payout/totalBet: <5x small, [5,20) medium,
// [20,100) large, >=100x jackpot. Zero payout has no level.
func WinLevel(payout, totalBet int64) string {
	if payout <= 0 || totalBet <= 0 {
		return WinLevelNone
	}
	switch {
	case payout >= 100*totalBet:
		return WinLevelJackpot
	case payout >= 20*totalBet:
		return WinLevelLarge
	case payout >= 5*totalBet:
		return WinLevelMedium
	default:
		return WinLevelSmall
	}
}
