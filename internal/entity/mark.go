package entity

// Mark is a player's piece for the current round. The zero value marks an empty cell.
type Mark int

const (
	MarkUndefined Mark = iota
	MarkX
	MarkO
)

func (m Mark) String() string {
	switch m {
	case MarkX:
		return "X"
	case MarkO:
		return "O"
	default:
		return "-"
	}
}
