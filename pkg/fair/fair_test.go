package fair

import (
	"testing"

	"github.com/Digital-Creators-Team/chain-slots-engine/game"
)

func testStrips() [][]game.SymbolID {
	return [][]game.SymbolID{
		{1, 2, 3, 4, 5, 6, 7, 8},
		{2, 3, 4, 5, 6, 7, 8, 1},
		{3, 4, 5, 6, 7, 8, 1, 2},
		{4, 5, 6, 7, 8, 1, 2, 3},
		{5, 6, 7, 8, 1, 2, 3, 4},
	}
}

func stripLengths(strips [][]game.SymbolID) []int {
	lengths := make([]int, len(strips))
	for i, s := range strips {
		lengths[i] = len(s)
	}
	return lengths
}

func TestGenerateReelTopsDeterministic(t *testing.T) {
	lengths := stripLengths(testStrips())

	first, err := GenerateReelTops("block-seed-0042", "bet-key-alpha", lengths)
	if err != nil {
		t.Fatalf("GenerateReelTops failed: %v", err)
	}
	second, err := GenerateReelTops("block-seed-0042", "bet-key-alpha", lengths)
	if err != nil {
		t.Fatalf("GenerateReelTops failed: %v", err)
	}

	if len(first) != len(lengths) {
		t.Fatalf("expected %d tops, got %d", len(lengths), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("reel %d: tops differ across runs (%d vs %d)", i, first[i], second[i])
		}
		if first[i] < 0 || first[i] >= lengths[i] {
			t.Errorf("reel %d: top %d out of strip range %d", i, first[i], lengths[i])
		}
	}
}

func TestGenerateReelTopsInputSensitivity(t *testing.T) {
	lengths := stripLengths(testStrips())
	base, _ := GenerateReelTops("block-seed-0042", "bet-key-alpha", lengths)

	tests := []struct {
		name      string
		blockSeed string
		betKey    string
	}{
		{"different block seed", "block-seed-0043", "bet-key-alpha"},
		{"different bet key", "block-seed-0042", "bet-key-beta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other, err := GenerateReelTops(tt.blockSeed, tt.betKey, lengths)
			if err != nil {
				t.Fatalf("GenerateReelTops failed: %v", err)
			}
			same := true
			for i := range base {
				if base[i] != other[i] {
					same = false
					break
				}
			}
			if same {
				t.Error("expected different tops for different inputs")
			}
		})
	}
}

func TestGenerateReelTopsManyReels(t *testing.T) {
	// More reels than a single digest covers forces the hash chain to extend.
	lengths := make([]int, 12)
	for i := range lengths {
		lengths[i] = 20
	}
	tops, err := GenerateReelTops("seed", "key", lengths)
	if err != nil {
		t.Fatalf("GenerateReelTops failed: %v", err)
	}
	for i, top := range tops {
		if top < 0 || top >= 20 {
			t.Errorf("reel %d: top %d out of range", i, top)
		}
	}
}

func TestGenerateReelTopsRejectsEmptyInputs(t *testing.T) {
	lengths := []int{8}
	if _, err := GenerateReelTops("", "key", lengths); err == nil {
		t.Error("expected error for empty block seed")
	}
	if _, err := GenerateReelTops("seed", "", lengths); err == nil {
		t.Error("expected error for empty bet key")
	}
	if _, err := GenerateReelTops("seed", "key", []int{0}); err == nil {
		t.Error("expected error for zero-length strip")
	}
}

func TestGenerateGridWrapsAround(t *testing.T) {
	strips := [][]game.SymbolID{{1, 2, 3, 4, 5}}
	grid, err := GenerateGrid([]int{3}, strips, 3)
	if err != nil {
		t.Fatalf("GenerateGrid failed: %v", err)
	}
	want := []game.SymbolID{4, 5, 1}
	for row, sym := range want {
		if grid[0][row] != sym {
			t.Errorf("row %d = %d, want %d", row, grid[0][row], sym)
		}
	}
}

func TestVerifySpinOutcomeHonestClaim(t *testing.T) {
	strips := testStrips()
	grid, _, err := ReconstructGrid("block-seed-0042", "bet-key-alpha", strips, 3)
	if err != nil {
		t.Fatalf("ReconstructGrid failed: %v", err)
	}

	paylines := []game.PaylinePattern{
		{0, 0, 0, 0, 0},
		{1, 1, 1, 1, 1},
		{2, 2, 2, 2, 2},
	}
	paytable := game.Paytable{}
	for sym := game.SymbolID(1); sym <= 8; sym++ {
		paytable[sym] = game.PaytableEntry{Match3: 5, Match4: 25, Match5: 100}
	}
	lines := game.EvaluatePaylines(grid, paylines, paytable, 10, game.EvaluatorOptions{})

	result, err := VerifySpinOutcome(VerifyRequest{
		BlockSeed:     "block-seed-0042",
		BetKey:        "bet-key-alpha",
		ClaimedGrid:   grid,
		ClaimedPayout: game.TotalPayout(lines),
		ReelStrips:    strips,
		Rows:          3,
		Paylines:      paylines,
		Paytable:      paytable,
		BetPerLine:    10,
	})
	if err != nil {
		t.Fatalf("VerifySpinOutcome failed: %v", err)
	}
	if !result.Verified {
		t.Errorf("honest claim not verified: %+v", result.Steps)
	}
	if len(result.Steps) != 3 {
		t.Errorf("expected 3 verification steps, got %d", len(result.Steps))
	}
	for _, step := range result.Steps {
		if !step.Passed {
			t.Errorf("step %s failed on honest claim", step.Name)
		}
	}
}

func TestVerifySpinOutcomeTamperedGrid(t *testing.T) {
	strips := testStrips()
	grid, _, err := ReconstructGrid("block-seed-0042", "bet-key-alpha", strips, 3)
	if err != nil {
		t.Fatalf("ReconstructGrid failed: %v", err)
	}

	tampered := game.NewGrid(grid.Reels(), grid.Rows())
	for i := range grid {
		copy(tampered[i], grid[i])
	}
	tampered[0][0]++

	result, err := VerifySpinOutcome(VerifyRequest{
		BlockSeed:     "block-seed-0042",
		BetKey:        "bet-key-alpha",
		ClaimedGrid:   tampered,
		ClaimedPayout: 0,
		ReelStrips:    strips,
		Rows:          3,
		Paylines:      []game.PaylinePattern{{0, 0, 0, 0, 0}},
		Paytable:      game.Paytable{},
		BetPerLine:    10,
	})
	if err != nil {
		t.Fatalf("VerifySpinOutcome failed: %v", err)
	}
	if result.Verified {
		t.Error("tampered grid must not verify")
	}

	var gridStep *VerificationStep
	for i := range result.Steps {
		if result.Steps[i].Name == StepGridMatch {
			gridStep = &result.Steps[i]
		}
	}
	if gridStep == nil || gridStep.Passed {
		t.Error("grid_match step should be recorded as failed")
	}
}

func TestVerifySpinOutcomeInflatedPayout(t *testing.T) {
	strips := testStrips()
	grid, _, err := ReconstructGrid("block-seed-0042", "bet-key-alpha", strips, 3)
	if err != nil {
		t.Fatalf("ReconstructGrid failed: %v", err)
	}

	result, err := VerifySpinOutcome(VerifyRequest{
		BlockSeed:     "block-seed-0042",
		BetKey:        "bet-key-alpha",
		ClaimedGrid:   grid,
		ClaimedPayout: 999999999,
		ReelStrips:    strips,
		Rows:          3,
		Paylines:      []game.PaylinePattern{{0, 0, 0, 0, 0}},
		Paytable:      game.Paytable{},
		BetPerLine:    10,
	})
	if err != nil {
		t.Fatalf("VerifySpinOutcome failed: %v", err)
	}
	if result.Verified {
		t.Error("inflated payout must not verify")
	}
	if result.ComputedPayout != 0 {
		t.Errorf("ComputedPayout = %d, want 0", result.ComputedPayout)
	}
}

func TestVerifySpinOutcomeUnusableInputs(t *testing.T) {
	if _, err := VerifySpinOutcome(VerifyRequest{BetKey: "k", ReelStrips: testStrips(), Rows: 3}); err == nil {
		t.Error("expected error for missing block seed")
	}
}
