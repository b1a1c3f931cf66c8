package game

import (
	"github.com/samber/lo"
)

// EvaluatorOptions controls symbol semantics during payline evaluation.
type EvaluatorOptions struct {
	// WildSymbol substitutes for any paying symbol when set (>= 0).
	WildSymbol SymbolID
	// BlankSymbol never participates in a match and terminates runs.
	BlankSymbol SymbolID
	// HasWild enables wild substitution.
	HasWild bool
}

// OptionsFromConfig derives evaluator options from a game config.
func OptionsFromConfig(cfg *Config) EvaluatorOptions {
	return EvaluatorOptions{
		WildSymbol:  SymbolID(cfg.WildSymbol),
		BlankSymbol: SymbolID(cfg.BlankSymbol),
		HasWild:     cfg.WildSymbol > 0,
	}
}

// EvaluatePaylines scores the grid against every active payline pattern.
// A line pays only for a contiguous run starting at reel 0; the run stops at
// the first non-matching symbol and runs shorter than 3 pay nothing. Payouts
// are paytable multiplier times betPerLine, in base units. Results are in
// payline-index order, one entry per winning line.
func EvaluatePaylines(grid Grid, patterns []PaylinePattern, paytable Paytable, betPerLine int64, opts EvaluatorOptions) []WinningLine {
	var wins []WinningLine
	for idx, pattern := range patterns {
		if len(pattern) != grid.Reels() {
			continue
		}
		line, ok := evaluateLine(grid, idx, pattern, paytable, betPerLine, opts)
		if ok {
			wins = append(wins, line)
		}
	}
	return wins
}

func evaluateLine(grid Grid, idx int, pattern PaylinePattern, paytable Paytable, betPerLine int64, opts EvaluatorOptions) (WinningLine, bool) {
	symbols := make([]SymbolID, len(pattern))
	for reel, row := range pattern {
		if row < 0 || row >= grid.Rows() {
			return WinningLine{}, false
		}
		symbols[reel] = grid[reel][row]
	}

	// The paying symbol is the first non-wild on the line. A line of pure
	// wilds pays as the wild symbol itself, if the paytable prices it.
	paySymbol := symbols[0]
	if opts.HasWild {
		for _, s := range symbols {
			if s != opts.WildSymbol {
				paySymbol = s
				break
			}
		}
	}
	if paySymbol == opts.BlankSymbol {
		return WinningLine{}, false
	}

	matchCount := 0
	for _, s := range symbols {
		if s == paySymbol || (opts.HasWild && s == opts.WildSymbol) {
			matchCount++
			continue
		}
		break
	}
	if matchCount < 3 {
		return WinningLine{}, false
	}

	entry, ok := paytable[paySymbol]
	if !ok {
		return WinningLine{}, false
	}
	multiplier := entry.PayoutFor(matchCount)
	if multiplier <= 0 {
		return WinningLine{}, false
	}

	return WinningLine{
		PaylineIndex: idx,
		Symbol:       paySymbol,
		MatchCount:   matchCount,
		Payout:       multiplier * betPerLine,
	}, true
}

// TotalPayout sums the payouts of all winning lines.
func TotalPayout(lines []WinningLine) int64 {
	return lo.SumBy(lines, func(l WinningLine) int64 { return l.Payout })
}
