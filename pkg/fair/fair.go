// Package fair reconstructs spin grids from chain-public inputs and verifies
// claimed outcomes against them. Everything here is pure and deterministic so
// a third party can audit a bet without wallet access.
package fair

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/Digital-Creators-Team/chain-slots-engine/game"
)

// GenerateReelTops derives one stop position per reel from the chain block
// seed and the bet key. The digest chain consumes 4 bytes per reel and is
// extended by rehashing when more reels are needed than one digest covers.
func GenerateReelTops(blockSeed, betKey string, reelLengths []int) ([]int, error) {
	if blockSeed == "" || betKey == "" {
		return nil, fmt.Errorf("block seed and bet key must be non-empty")
	}

	tops := make([]int, len(reelLengths))
	digest := sha256.Sum256([]byte(blockSeed + ":" + betKey))
	offset := 0
	for i, length := range reelLengths {
		if length <= 0 {
			return nil, fmt.Errorf("reel %d has invalid strip length %d", i, length)
		}
		if offset+4 > len(digest) {
			digest = sha256.Sum256(digest[:])
			offset = 0
		}
		raw := binary.BigEndian.Uint32(digest[offset : offset+4])
		tops[i] = int(raw % uint32(length))
		offset += 4
	}
	return tops, nil
}

// GenerateGrid reads rows symbols per reel from each strip starting at the
// reel top, wrapping around the strip end.
func GenerateGrid(reelTops []int, reelStrips [][]game.SymbolID, rows int) (game.Grid, error) {
	if len(reelTops) != len(reelStrips) {
		return nil, fmt.Errorf("got %d reel tops for %d strips", len(reelTops), len(reelStrips))
	}

	grid := game.NewGrid(len(reelStrips), rows)
	for reel, strip := range reelStrips {
		if len(strip) < rows {
			return nil, fmt.Errorf("reel strip %d has %d symbols, need at least %d", reel, len(strip), rows)
		}
		top := reelTops[reel]
		if top < 0 || top >= len(strip) {
			return nil, fmt.Errorf("reel top %d out of range for strip %d", top, reel)
		}
		for row := 0; row < rows; row++ {
			grid[reel][row] = strip[(top+row)%len(strip)]
		}
	}
	return grid, nil
}

// ReconstructGrid runs the full seed-to-grid pipeline for a single bet.
func ReconstructGrid(blockSeed, betKey string, reelStrips [][]game.SymbolID, rows int) (game.Grid, []int, error) {
	lengths := make([]int, len(reelStrips))
	for i, strip := range reelStrips {
		lengths[i] = len(strip)
	}
	tops, err := GenerateReelTops(blockSeed, betKey, lengths)
	if err != nil {
		return nil, nil, err
	}
	grid, err := GenerateGrid(tops, reelStrips, rows)
	if err != nil {
		return nil, nil, err
	}
	return grid, tops, nil
}
