// Package models player.go
package models

import (
	"encoding/json"
	"fmt"

	"github.com/joonazan/vec2"
)

// Cell is a grid coordinate. On the wire it is a two element array [x, y].
type Cell struct {
	X int
	Y int
}

func (c Cell) Vec() vec2.Vector {
	return vec2.Vector{X: float64(c.X), Y: float64(c.Y)}
}

// CellFromVec truncates a vector back onto the grid.
func CellFromVec(v vec2.Vector) Cell {
	return Cell{X: int(v.X), Y: int(v.Y)}
}

// Step returns the neighbouring cell in direction d.
func (c Cell) Step(d Direction) Cell {
	return CellFromVec(c.Vec().Plus(d.Vector()))
}

func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.X, c.Y})
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	var xy [2]int
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("cell: %w", err)
	}
	c.X, c.Y = xy[0], xy[1]
	return nil
}

// Color is an RGB triple, encoded as [r, g, b].
type Color [3]uint8

var Palette = []Color{
	{255, 0, 0},   // red
	{0, 255, 0},   // green
	{0, 0, 255},   // blue
	{255, 255, 0}, // yellow
	{255, 165, 0}, // orange
}

type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

// Up is -y.
var directionVectors = map[Direction]vec2.Vector{
	DirUp:    {X: 0, Y: -1},
	DirDown:  {X: 0, Y: 1},
	DirLeft:  {X: -1, Y: 0},
	DirRight: {X: 1, Y: 0},
}

var directionNames = map[Direction]string{
	DirUp:    "up",
	DirDown:  "down",
	DirLeft:  "left",
	DirRight: "right",
}

func (d Direction) Vector() vec2.Vector {
	return directionVectors[d]
}

func (d Direction) Valid() bool {
	_, ok := directionVectors[d]
	return ok
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return "none"
}

// ParseDirection maps a CONTROL verb onto a direction.
func ParseDirection(verb string) (Direction, bool) {
	for d, name := range directionNames {
		if name == verb {
			return d, true
		}
	}
	return DirNone, false
}

// DirectionBetween returns the direction of the unit step from -> to, or DirNone.
func DirectionBetween(from, to Cell) Direction {
	step := to.Vec().Minus(from.Vec())
	for d, v := range directionVectors {
		if v == step {
			return d
		}
	}
	return DirNone
}
