// Package game holds the authoritative world, the pending input set and the
// tick loop that drives them.
package game

import (
	"sync"

	"github.com/4cecoder/snakeserver/models"
)

// MoveQueue collects the latest requested direction per player between ticks.
// Many session goroutines write, the tick loop drains once per tick.
type MoveQueue struct {
	mu    sync.Mutex
	moves map[string]models.Direction // player ID -> last requested direction
}

func NewMoveQueue() *MoveQueue {
	return &MoveQueue{
		moves: make(map[string]models.Direction),
	}
}

// Enqueue records a direction for playerID, replacing any earlier one this tick.
func (mq *MoveQueue) Enqueue(playerID string, dir models.Direction) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	mq.moves[playerID] = dir
}

// Drain swaps in an empty set and hands back everything queued so far.
func (mq *MoveQueue) Drain() map[string]models.Direction {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	drained := mq.moves
	mq.moves = make(map[string]models.Direction, len(drained))
	return drained
}

func (mq *MoveQueue) QueueSize() int {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	return len(mq.moves)
}

func (mq *MoveQueue) ClearQueue(playerID string) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	delete(mq.moves, playerID)
}
