package tictactoe

import "github.com/rocketscienceinc/tictactoe-arena/internal/entity"

// Timing holds the turn timers in seconds and the scheduler rate they are converted with.
type Timing struct {
	TickRate          int
	TurnTimeFastSec   int
	TurnTimeNormalSec int
}

// DeadlineTicks returns how many ticks a player has to move.
func DeadlineTicks(label entity.MatchLabel, timing Timing) int {
	if label.IsFast() {
		return timing.TurnTimeFastSec * timing.TickRate
	}
	return timing.TurnTimeNormalSec * timing.TickRate
}

// TicksToSeconds converts a tick countdown into whole seconds.
func TicksToSeconds(ticks, tickRate int) int64 {
	if tickRate <= 0 {
		return 0
	}
	return int64(ticks / tickRate)
}
