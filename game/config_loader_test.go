package game

import (
	"os"
	"path/filepath"
	"testing"
)

const baseGameYAML = `
game_code: chain_slots
game_name: Chain Slots
contract_id: CT-SLOTS-01
reels: 5
rows: 3
reel_strips:
  - [1, 2, 3, 4, 5, 1, 2, 3]
  - [2, 3, 4, 5, 1, 2, 3, 4]
  - [3, 4, 5, 1, 2, 3, 4, 5]
  - [4, 5, 1, 2, 3, 4, 5, 1]
  - [5, 1, 2, 3, 4, 5, 1, 2]
paylines:
  - [0, 0, 0, 0, 0]
  - [1, 1, 1, 1, 1]
  - [2, 2, 2, 2, 2]
paytable:
  "1": [5, 25, 100]
  "2": [3, 10, 40]
min_bet: 100
max_bet: 100000
max_paylines: 3
rtp: 96.5
house_edge: 3.5
volatility: medium
`

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfigSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "game.yaml", baseGameYAML)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.GameCode != "chain_slots" {
		t.Errorf("GameCode = %q, want chain_slots", cfg.GameCode)
	}
	if cfg.Reels != 5 || cfg.Rows != 3 {
		t.Errorf("grid shape = %dx%d, want 5x3", cfg.Reels, cfg.Rows)
	}
	if len(cfg.ReelStrips) != 5 {
		t.Fatalf("expected 5 reel strips, got %d", len(cfg.ReelStrips))
	}
	if cfg.MinBet != 100 || cfg.MaxBet != 100000 {
		t.Errorf("bet bounds = [%d, %d], want [100, 100000]", cfg.MinBet, cfg.MaxBet)
	}

	table, err := cfg.PaytableEntries()
	if err != nil {
		t.Fatalf("PaytableEntries failed: %v", err)
	}
	if entry := table[SymbolID(1)]; entry.Match3 != 5 || entry.Match5 != 100 {
		t.Errorf("paytable entry for symbol 1 = %+v", entry)
	}
}

func TestLoadConfigDirectoryMerge(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "00_base.yaml", baseGameYAML)
	writeConfigFile(t, dir, "10_override.yaml", "max_bet: 500000\n")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MaxBet != 500000 {
		t.Errorf("MaxBet = %d, want override 500000", cfg.MaxBet)
	}
	if cfg.MinBet != 100 {
		t.Errorf("MinBet = %d, want base 100", cfg.MinBet)
	}
}

func TestLoadConfigMissingPath(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config path")
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		patch string
	}{
		{"payline too wide", "paylines:\n  - [0, 0, 0, 0, 0, 0]\n"},
		{"payline row out of range", "paylines:\n  - [0, 0, 3, 0, 0]\n"},
		{"max_paylines above count", "max_paylines: 99\n"},
		{"inverted bet bounds", "min_bet: 200\nmax_bet: 100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfigFile(t, dir, "00_base.yaml", baseGameYAML)
			writeConfigFile(t, dir, "10_patch.yaml", tt.patch)
			if _, err := LoadConfig(dir); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfigValidateShortStrip(t *testing.T) {
	cfg := &Config{
		Reels:       2,
		Rows:        3,
		ReelStrips:  [][]int{{1, 2, 3}, {1, 2}},
		Paylines:    [][]int{{0, 0}},
		MaxPaylines: 1,
		MinBet:      1,
		MaxBet:      10,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for strip shorter than rows")
	}
}
