package game

import (
	"fmt"
	"strconv"
)

// Config holds game configuration. Loaded from YAML via the config loader;
// immutable once the engine is constructed.
type Config struct {
	GameCode    string             `mapstructure:"game_code" json:"gameCode"`
	GameName    string             `mapstructure:"game_name" json:"gameName"`
	ContractID  string             `mapstructure:"contract_id" json:"contractId"`
	Reels       int                `mapstructure:"reels" json:"reels"`
	Rows        int                `mapstructure:"rows" json:"rows"`
	ReelStrips  [][]int            `mapstructure:"reel_strips" json:"reelStrips"`
	Paylines    [][]int            `mapstructure:"paylines" json:"paylines"`
	Paytable    map[string][]int64 `mapstructure:"paytable" json:"paytable"`
	WildSymbol  int                `mapstructure:"wild_symbol" json:"wildSymbol"`
	BlankSymbol int                `mapstructure:"blank_symbol" json:"blankSymbol"`
	MinBet      int64              `mapstructure:"min_bet" json:"minBet"`
	MaxBet      int64              `mapstructure:"max_bet" json:"maxBet"`
	MaxPaylines int                `mapstructure:"max_paylines" json:"maxPaylines"`
	RTP         float64            `mapstructure:"rtp" json:"rtp"`
	HouseEdge   float64            `mapstructure:"house_edge" json:"houseEdge"`
	Volatility  string             `mapstructure:"volatility" json:"volatility"`
}

// Validate checks structural invariants of the loaded configuration.
func (c *Config) Validate() error {
	if c.Reels <= 0 || c.Rows <= 0 {
		return fmt.Errorf("grid shape %dx%d is invalid", c.Reels, c.Rows)
	}
	if len(c.ReelStrips) != c.Reels {
		return fmt.Errorf("expected %d reel strips, got %d", c.Reels, len(c.ReelStrips))
	}
	for i, strip := range c.ReelStrips {
		if len(strip) < c.Rows {
			return fmt.Errorf("reel strip %d has %d symbols, need at least %d", i, len(strip), c.Rows)
		}
	}
	if len(c.Paylines) == 0 {
		return fmt.Errorf("no paylines configured")
	}
	for i, line := range c.Paylines {
		if len(line) != c.Reels {
			return fmt.Errorf("payline %d has %d entries, expected %d", i, len(line), c.Reels)
		}
		for _, row := range line {
			if row < 0 || row >= c.Rows {
				return fmt.Errorf("payline %d references row %d outside 0..%d", i, row, c.Rows-1)
			}
		}
	}
	if c.MaxPaylines <= 0 || c.MaxPaylines > len(c.Paylines) {
		return fmt.Errorf("max_paylines %d must be within 1..%d", c.MaxPaylines, len(c.Paylines))
	}
	if c.MinBet <= 0 || c.MaxBet < c.MinBet {
		return fmt.Errorf("bet bounds [%d, %d] are invalid", c.MinBet, c.MaxBet)
	}
	for key := range c.Paytable {
		if _, err := strconv.Atoi(key); err != nil {
			return fmt.Errorf("paytable key %q is not a symbol ID", key)
		}
	}
	return nil
}

// PaylinePatterns converts the raw payline rows into typed patterns.
func (c *Config) PaylinePatterns() []PaylinePattern {
	patterns := make([]PaylinePattern, len(c.Paylines))
	for i, line := range c.Paylines {
		patterns[i] = PaylinePattern(line)
	}
	return patterns
}

// PaytableEntries converts the raw paytable rows into a typed Paytable.
// Each row is [match3, match4, match5] keyed by symbol ID. Keys are strings
// in YAML because viper stringifies map keys.
func (c *Config) PaytableEntries() (Paytable, error) {
	table := make(Paytable, len(c.Paytable))
	for key, multipliers := range c.Paytable {
		sym, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("paytable key %q is not a symbol ID: %w", key, err)
		}
		entry := PaytableEntry{}
		if len(multipliers) > 0 {
			entry.Match3 = multipliers[0]
		}
		if len(multipliers) > 1 {
			entry.Match4 = multipliers[1]
		}
		if len(multipliers) > 2 {
			entry.Match5 = multipliers[2]
		}
		table[SymbolID(sym)] = entry
	}
	return table, nil
}

// ReelLengths returns the strip length per reel (used by the reconstructor).
func (c *Config) ReelLengths() []int {
	lengths := make([]int, len(c.ReelStrips))
	for i, strip := range c.ReelStrips {
		lengths[i] = len(strip)
	}
	return lengths
}

// SymbolStrips converts the raw reel strips into typed symbol slices.
func (c *Config) SymbolStrips() [][]SymbolID {
	strips := make([][]SymbolID, len(c.ReelStrips))
	for i, strip := range c.ReelStrips {
		symbols := make([]SymbolID, len(strip))
		for j, s := range strip {
			symbols[j] = SymbolID(s)
		}
		strips[i] = symbols
	}
	return strips
}

// Normalize converts Config to the response shape pushed to game surfaces.
// Reel strips are deliberately included: they are chain-public and required
// for third-party verification.
func (c *Config) Normalize() map[string]interface{} {
	return map[string]interface{}{
		"contractId":  c.ContractID,
		"minBet":      c.MinBet,
		"maxBet":      c.MaxBet,
		"maxPaylines": c.MaxPaylines,
		"rtpTarget":   c.RTP,
		"houseEdge":   c.HouseEdge,
		"reels":       c.Reels,
		"rows":        c.Rows,
		"reelStrips":  c.ReelStrips,
		"paylines":    c.Paylines,
	}
}
