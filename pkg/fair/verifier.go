package fair

import (
	"github.com/Digital-Creators-Team/chain-slots-engine/game"
)

// Verification step names, stable for API consumers.
const (
	StepReelTops    = "derive_reel_tops"
	StepGridMatch   = "grid_match"
	StepPayoutMatch = "payout_match"
)

// VerifyRequest carries everything needed to audit one settled bet:
// the chain-public inputs, the claimed outcome, and the game parameters
// in force when the bet was placed.
type VerifyRequest struct {
	BlockSeed     string                `json:"blockSeed"`
	BetKey        string                `json:"betKey"`
	ClaimedGrid   game.Grid             `json:"claimedGrid"`
	ClaimedPayout int64                 `json:"claimedPayout"`
	ReelStrips    [][]game.SymbolID     `json:"reelStrips"`
	Rows          int                   `json:"rows"`
	Paylines      []game.PaylinePattern `json:"paylines"`
	Paytable      game.Paytable         `json:"paytable"`
	BetPerLine    int64                 `json:"betPerLine"`
	ActiveLines   int                   `json:"activeLines"`
	Options       game.EvaluatorOptions `json:"-"`
}

// VerificationStep records one comparison performed by the verifier.
type VerificationStep struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// ProvablyFairData is the verifier's output. Verified is true only when the
// reconstructed grid and recomputed payout both match the claims. A mismatch
// is a finding, not an error; errors are reserved for unusable inputs.
type ProvablyFairData struct {
	BlockSeed         string             `json:"blockSeed"`
	BetKey            string             `json:"betKey"`
	ReelTops          []int              `json:"reelTops"`
	ReconstructedGrid game.Grid          `json:"reconstructedGrid"`
	ClaimedGrid       game.Grid          `json:"claimedGrid"`
	ComputedPayout    int64              `json:"computedPayout"`
	ClaimedPayout     int64              `json:"claimedPayout"`
	WinningLines      []game.WinningLine `json:"winningLines"`
	Verified          bool               `json:"verified"`
	Steps             []VerificationStep `json:"verificationSteps"`
}

// VerifySpinOutcome independently reconstructs the grid and recomputes the
// payout, comparing each against the claimed values.
func VerifySpinOutcome(req VerifyRequest) (*ProvablyFairData, error) {
	grid, tops, err := ReconstructGrid(req.BlockSeed, req.BetKey, req.ReelStrips, req.Rows)
	if err != nil {
		return nil, err
	}

	data := &ProvablyFairData{
		BlockSeed:         req.BlockSeed,
		BetKey:            req.BetKey,
		ReelTops:          tops,
		ReconstructedGrid: grid,
		ClaimedGrid:       req.ClaimedGrid,
		ClaimedPayout:     req.ClaimedPayout,
	}
	data.addStep(StepReelTops, true, "")

	gridOK := grid.Equal(req.ClaimedGrid)
	if gridOK {
		data.addStep(StepGridMatch, true, "")
	} else {
		data.addStep(StepGridMatch, false, "reconstructed grid differs from claimed grid")
	}

	active := req.ActiveLines
	if active <= 0 || active > len(req.Paylines) {
		active = len(req.Paylines)
	}
	lines := game.EvaluatePaylines(grid, req.Paylines[:active], req.Paytable, req.BetPerLine, req.Options)
	data.WinningLines = lines
	data.ComputedPayout = game.TotalPayout(lines)

	payoutOK := data.ComputedPayout == req.ClaimedPayout
	if payoutOK {
		data.addStep(StepPayoutMatch, true, "")
	} else {
		data.addStep(StepPayoutMatch, false, "recomputed payout differs from claimed payout")
	}

	data.Verified = gridOK && payoutOK
	return data, nil
}

func (d *ProvablyFairData) addStep(name string, passed bool, detail string) {
	d.Steps = append(d.Steps, VerificationStep{Name: name, Passed: passed, Detail: detail})
}
