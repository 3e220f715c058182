package game

import "github.com/4cecoder/snakeserver/models"

// SnakeState is one living snake inside a Snapshot.
type SnakeState struct {
	PlayerID string
	Color    models.Color
	Body     []models.Cell
}

// Snapshot is an immutable view of the world after a tick. It is published as
// a single pointer so readers never see a half-applied tick.
type Snapshot struct {
	Tick    uint64
	Rows    int
	Players int
	Snakes  []SnakeState
	Snacks  []models.Cell
}

// Snake returns the living snake owned by playerID, if any.
func (s *Snapshot) Snake(playerID string) (SnakeState, bool) {
	for _, snake := range s.Snakes {
		if snake.PlayerID == playerID {
			return snake, true
		}
	}
	return SnakeState{}, false
}

func cloneCells(cells []models.Cell) []models.Cell {
	out := make([]models.Cell, len(cells))
	copy(out, cells)
	return out
}
