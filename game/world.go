package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/4cecoder/snakeserver/models"
)

var (
	// ErrInvalidTransition is returned for lifecycle calls that make no sense
	// for the player's current state (unknown id, duplicate join, ...).
	ErrInvalidTransition = errors.New("invalid transition")
	ErrBoardFull         = errors.New("no free space for snake")
	// ErrInvariant means the world reached a state that must never exist.
	ErrInvariant = errors.New("world invariant violated")
)

const (
	DeathCauseWall       = "wall-collision"
	DeathCauseSnake      = "snake-collision"
	DeathCauseHeadToHead = "head-collision"
	DeathCauseSelf       = "self-collision"
)

type WorldConfig struct {
	Rows        int `json:"rows"`
	Snacks      int `json:"snacks"`
	StartLength int `json:"startLength"`
}

func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Rows:        20,
		Snacks:      1,
		StartLength: 3,
	}
}

type Player struct {
	ID      string
	Color   models.Color
	Body    []models.Cell // head first, empty while dead
	Heading models.Direction
	Alive   bool
}

type Death struct {
	PlayerID string
	Cause    string
}

// StepResult reports what happened during one tick.
type StepResult struct {
	Tick   uint64
	Deaths []Death
	Eaten  int
}

// World is the authoritative board. It is not safe for concurrent use; Loop
// serializes every call.
type World struct {
	cfg WorldConfig
	rng *rand.Rand

	players map[string]*Player
	order   []string // join order, keeps iteration deterministic
	snacks  []models.Cell
	tick    uint64

	spawnOrder []models.Cell
}

func NewWorld(cfg WorldConfig, rng *rand.Rand) *World {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	w := &World{
		cfg:        cfg,
		rng:        rng,
		players:    make(map[string]*Player),
		spawnOrder: centreOutward(cfg.Rows),
	}
	w.replenishSnacks()
	return w
}

func (w *World) Player(id string) (*Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

// AddPlayer places a new snake at the first free spawn slot.
func (w *World) AddPlayer(id string, color models.Color) error {
	if _, exists := w.players[id]; exists {
		return fmt.Errorf("%w: player %s already joined", ErrInvalidTransition, id)
	}
	p := &Player{ID: id, Color: color}
	if err := w.spawn(p); err != nil {
		return err
	}
	w.players[id] = p
	w.order = append(w.order, id)
	return nil
}

// ResetPlayer gives the player a fresh body, whether it is alive or dead.
func (w *World) ResetPlayer(id string) error {
	p, ok := w.players[id]
	if !ok {
		return fmt.Errorf("%w: reset for unknown player %s", ErrInvalidTransition, id)
	}
	old, oldHeading, wasAlive := p.Body, p.Heading, p.Alive
	p.Body, p.Alive = nil, false
	if err := w.spawn(p); err != nil {
		p.Body, p.Heading, p.Alive = old, oldHeading, wasAlive
		return err
	}
	return nil
}

// RemovePlayer frees the player's cells. Removing an unknown id is a no-op.
func (w *World) RemovePlayer(id string) bool {
	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	for i, pid := range w.order {
		if pid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return true
}

func (w *World) spawn(p *Player) error {
	blocked := w.occupied()
	for _, s := range w.snacks {
		blocked[s] = true
	}

	heading := models.DirRight
	for _, head := range w.spawnOrder {
		body := make([]models.Cell, 0, w.cfg.StartLength)
		fits := true
		for i := 0; i < w.cfg.StartLength; i++ {
			c := models.Cell{X: head.X - i, Y: head.Y}
			if !w.inBounds(c) || blocked[c] {
				fits = false
				break
			}
			body = append(body, c)
		}
		ahead := head.Step(heading)
		if !fits || !w.inBounds(ahead) || blocked[ahead] {
			continue
		}
		p.Body = body
		p.Heading = heading
		p.Alive = true
		return nil
	}
	return ErrBoardFull
}

// Step advances the world by one tick. Every snake moves against the same
// pre-tick state, so the outcome does not depend on iteration order.
func (w *World) Step(moves map[string]models.Direction) (StepResult, error) {
	type plan struct {
		p    *Player
		next models.Cell
		eats bool
		dies string
	}

	snackAt := make(map[models.Cell]bool, len(w.snacks))
	for _, s := range w.snacks {
		snackAt[s] = true
	}

	plans := make([]*plan, 0, len(w.order))
	for _, id := range w.order {
		p := w.players[id]
		if !p.Alive {
			continue
		}
		if dir, ok := moves[id]; ok {
			w.steer(p, dir)
		}
		next := p.Body[0].Step(p.Heading)
		plans = append(plans, &plan{p: p, next: next, eats: snackAt[next]})
	}

	// A tail only blocks if its owner grows this tick.
	owner := make(map[models.Cell]string)
	for _, pl := range plans {
		body := pl.p.Body
		for i, c := range body {
			if i == len(body)-1 && !pl.eats {
				continue
			}
			owner[c] = pl.p.ID
		}
	}
	heads := make(map[models.Cell]int, len(plans))
	for _, pl := range plans {
		heads[pl.next]++
	}

	for _, pl := range plans {
		switch {
		case !w.inBounds(pl.next):
			pl.dies = DeathCauseWall
		case heads[pl.next] > 1:
			pl.dies = DeathCauseHeadToHead
		case owner[pl.next] == pl.p.ID:
			pl.dies = DeathCauseSelf
		case owner[pl.next] != "":
			pl.dies = DeathCauseSnake
		}
	}

	result := StepResult{}
	eaten := make(map[models.Cell]bool)
	for _, pl := range plans {
		if pl.dies != "" {
			pl.p.Alive = false
			pl.p.Body = nil
			result.Deaths = append(result.Deaths, Death{PlayerID: pl.p.ID, Cause: pl.dies})
			continue
		}
		body := pl.p.Body
		if !pl.eats {
			body = body[:len(body)-1]
		} else {
			eaten[pl.next] = true
			result.Eaten++
		}
		pl.p.Body = append([]models.Cell{pl.next}, body...)
	}

	if len(eaten) > 0 {
		kept := w.snacks[:0]
		for _, s := range w.snacks {
			if !eaten[s] {
				kept = append(kept, s)
			}
		}
		w.snacks = kept
	}
	w.replenishSnacks()

	w.tick++
	result.Tick = w.tick
	if err := w.CheckInvariants(); err != nil {
		return result, err
	}
	return result, nil
}

// steer applies a requested direction unless it would turn the head back
// onto the second segment.
func (w *World) steer(p *Player, dir models.Direction) {
	if !dir.Valid() {
		return
	}
	if len(p.Body) > 1 && models.DirectionBetween(p.Body[0], p.Body[1]) == dir {
		return
	}
	p.Heading = dir
}

func (w *World) replenishSnacks() {
	for len(w.snacks) < w.cfg.Snacks {
		cell, ok := w.randomFreeCell()
		if !ok {
			return
		}
		w.snacks = append(w.snacks, cell)
	}
}

func (w *World) randomFreeCell() (models.Cell, bool) {
	blocked := w.occupied()
	for _, s := range w.snacks {
		blocked[s] = true
	}
	free := make([]models.Cell, 0, w.cfg.Rows*w.cfg.Rows-len(blocked))
	for y := 0; y < w.cfg.Rows; y++ {
		for x := 0; x < w.cfg.Rows; x++ {
			c := models.Cell{X: x, Y: y}
			if !blocked[c] {
				free = append(free, c)
			}
		}
	}
	if len(free) == 0 {
		return models.Cell{}, false
	}
	return free[w.rng.IntN(len(free))], true
}

func (w *World) occupied() map[models.Cell]bool {
	cells := make(map[models.Cell]bool)
	for _, p := range w.players {
		if !p.Alive {
			continue
		}
		for _, c := range p.Body {
			cells[c] = true
		}
	}
	return cells
}

func (w *World) inBounds(c models.Cell) bool {
	return c.X >= 0 && c.X < w.cfg.Rows && c.Y >= 0 && c.Y < w.cfg.Rows
}

// CheckInvariants verifies that no cell is claimed twice and that every snack
// sits on a free in-bounds cell.
func (w *World) CheckInvariants() error {
	seen := make(map[models.Cell]string)
	for _, id := range w.order {
		p := w.players[id]
		if !p.Alive {
			continue
		}
		for _, c := range p.Body {
			if !w.inBounds(c) {
				return fmt.Errorf("%w: player %s out of bounds at %v", ErrInvariant, id, c)
			}
			if other, dup := seen[c]; dup {
				return fmt.Errorf("%w: cell %v held by %s and %s", ErrInvariant, c, other, id)
			}
			seen[c] = id
		}
	}
	snacks := make(map[models.Cell]bool, len(w.snacks))
	for _, s := range w.snacks {
		if !w.inBounds(s) || snacks[s] {
			return fmt.Errorf("%w: bad snack at %v", ErrInvariant, s)
		}
		if holder, ok := seen[s]; ok {
			return fmt.Errorf("%w: snack at %v under %s", ErrInvariant, s, holder)
		}
		snacks[s] = true
	}
	return nil
}

// Snapshot copies the current state into an immutable Snapshot.
func (w *World) Snapshot() *Snapshot {
	snap := &Snapshot{
		Tick:    w.tick,
		Rows:    w.cfg.Rows,
		Players: len(w.players),
		Snakes:  make([]SnakeState, 0, len(w.order)),
		Snacks:  cloneCells(w.snacks),
	}
	for _, id := range w.order {
		p := w.players[id]
		if !p.Alive {
			continue
		}
		snap.Snakes = append(snap.Snakes, SnakeState{
			PlayerID: p.ID,
			Color:    p.Color,
			Body:     cloneCells(p.Body),
		})
	}
	return snap
}

// centreOutward lists every cell ordered by ring distance from the centre,
// then row, then column.
func centreOutward(rows int) []models.Cell {
	cells := make([]models.Cell, 0, rows*rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < rows; x++ {
			cells = append(cells, models.Cell{X: x, Y: y})
		}
	}
	mid := rows / 2
	ring := func(c models.Cell) int {
		return max(abs(c.X-mid), abs(c.Y-mid))
	}
	sort.SliceStable(cells, func(i, j int) bool {
		return ring(cells[i]) < ring(cells[j])
	})
	return cells
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
