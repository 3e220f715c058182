package game

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/4cecoder/snakeserver/models"
)

const DefaultTickInterval = 200 * time.Millisecond

// LoopStats is a point-in-time summary of the simulation for the stats endpoint.
type LoopStats struct {
	Tick        uint64  `json:"tick"`
	Players     int     `json:"players"`
	Alive       int     `json:"alive"`
	Snacks      int     `json:"snacks"`
	TotalDeaths int64   `json:"totalDeaths"`
	TotalEaten  int64   `json:"totalEaten"`
	Overruns    int64   `json:"overruns"`
	AvgTickMs   float64 `json:"avgTickMs"`
	MaxTickMs   float64 `json:"maxTickMs"`
}

// Loop owns the World. The tick goroutine and the lifecycle calls (Join,
// Leave, Reset) are the only writers and take mu; readers load the last
// published Snapshot without locking.
type Loop struct {
	mu       sync.Mutex
	world    *World
	moves    *MoveQueue
	interval time.Duration

	current atomic.Pointer[Snapshot]

	totalDeaths atomic.Int64
	totalEaten  atomic.Int64
	overruns    atomic.Int64

	statsMu       sync.Mutex
	tickDurations [60]time.Duration
	tickDurIdx    int
	maxTick       time.Duration

	// Run's clock and per-tick work; swapped out in tests.
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
	step  func() (StepResult, error)
}

func NewLoop(world *World, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	l := &Loop{
		world:    world,
		moves:    NewMoveQueue(),
		interval: interval,
		now:      time.Now,
		after:    time.After,
	}
	l.step = l.Step
	l.current.Store(world.Snapshot())
	return l
}

// Snapshot returns the most recently published world state.
func (l *Loop) Snapshot() *Snapshot {
	return l.current.Load()
}

// Submit queues a direction for the next tick. Moves from players without a
// living snake are rejected with ErrInvalidTransition.
func (l *Loop) Submit(playerID string, dir models.Direction) error {
	if _, ok := l.Snapshot().Snake(playerID); !ok {
		return fmt.Errorf("%w: move from player %s without a snake", ErrInvalidTransition, playerID)
	}
	l.moves.Enqueue(playerID, dir)
	return nil
}

func (l *Loop) Join(playerID string, color models.Color) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.world.AddPlayer(playerID, color); err != nil {
		return err
	}
	l.publishLocked()
	return nil
}

// Leave removes the player; calling it again for the same id does nothing.
func (l *Loop) Leave(playerID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.moves.ClearQueue(playerID)
	if !l.world.RemovePlayer(playerID) {
		return false
	}
	l.publishLocked()
	return true
}

func (l *Loop) Reset(playerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.moves.ClearQueue(playerID)
	if err := l.world.ResetPlayer(playerID); err != nil {
		return err
	}
	l.publishLocked()
	return nil
}

// Step drains pending moves, advances the world once and publishes the result.
func (l *Loop) Step() (StepResult, error) {
	start := time.Now()

	l.mu.Lock()
	result, err := l.world.Step(l.moves.Drain())
	if err == nil {
		l.publishLocked()
	}
	l.mu.Unlock()
	if err != nil {
		return result, err
	}

	for _, d := range result.Deaths {
		log.Printf("[DEATH] player %s died at tick %d (%s)", d.PlayerID, result.Tick, d.Cause)
	}
	l.totalDeaths.Add(int64(len(result.Deaths)))
	l.totalEaten.Add(int64(result.Eaten))
	l.recordTick(time.Since(start))
	return result, nil
}

// Run ticks on a fixed schedule until ctx is done. The schedule is anchored so
// it does not drift; an overrun starts the next tick immediately without
// trying to catch up. A Step error ends the loop.
func (l *Loop) Run(ctx context.Context) error {
	next := l.now().Add(l.interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.after(next.Sub(l.now())):
		}

		if _, err := l.step(); err != nil {
			return fmt.Errorf("tick: %w", err)
		}

		now := l.now()
		next = next.Add(l.interval)
		if next.Before(now) {
			l.overruns.Add(1)
			log.Printf("[TICK] tick %d overran the %s interval", l.Snapshot().Tick, l.interval)
			next = now
		}
	}
}

func (l *Loop) publishLocked() {
	l.current.Store(l.world.Snapshot())
}

func (l *Loop) recordTick(d time.Duration) {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()

	l.tickDurations[l.tickDurIdx%len(l.tickDurations)] = d
	l.tickDurIdx++
	if d > l.maxTick {
		l.maxTick = d
	}
}

func (l *Loop) Stats() LoopStats {
	snap := l.Snapshot()

	l.statsMu.Lock()
	var total time.Duration
	count := 0
	for _, d := range l.tickDurations {
		if d > 0 {
			total += d
			count++
		}
	}
	maxTick := l.maxTick
	l.statsMu.Unlock()

	avgMs := 0.0
	if count > 0 {
		avgMs = float64(total.Nanoseconds()) / float64(count) / 1e6
	}

	return LoopStats{
		Tick:        snap.Tick,
		Players:     snap.Players,
		Alive:       len(snap.Snakes),
		Snacks:      len(snap.Snacks),
		TotalDeaths: l.totalDeaths.Load(),
		TotalEaten:  l.totalEaten.Load(),
		Overruns:    l.overruns.Load(),
		AvgTickMs:   math.Round(avgMs*100) / 100,
		MaxTickMs:   math.Round(float64(maxTick.Nanoseconds())/1e6*100) / 100,
	}
}
