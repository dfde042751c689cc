package entity

import (
	"fmt"

	"github.com/goccy/go-json"
)

// ModeClassic is the only game mode advertised by match labels.
const ModeClassic = "classic"

// MatchLabel is the metadata a match advertises to matchmaking queries.
type MatchLabel struct {
	Open int    `json:"open"`
	Fast int    `json:"fast"`
	Mode string `json:"mode"`
	AI   int    `json:"ai"`
}

func NewMatchLabel(fast, ai bool) MatchLabel {
	return MatchLabel{
		Open: 1,
		Fast: boolToInt(fast),
		Mode: ModeClassic,
		AI:   boolToInt(ai),
	}
}

func (that MatchLabel) IsOpen() bool {
	return that.Open == 1
}

func (that MatchLabel) IsFast() bool {
	return that.Fast == 1
}

// Encode returns the JSON form sent with label updates.
func (that MatchLabel) Encode() string {
	data, err := json.Marshal(that)
	if err != nil {
		// a struct of ints and a string always marshals
		return "{}"
	}

	return string(data)
}

func DecodeMatchLabel(raw string) (MatchLabel, error) {
	var label MatchLabel
	if err := json.Unmarshal([]byte(raw), &label); err != nil {
		return MatchLabel{}, fmt.Errorf("failed to decode match label: %w", err)
	}

	return label, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
