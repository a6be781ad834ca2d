package grid

import (
	"errors"
	"fmt"
	"math/rand"

	"snake-server/models"
)

var (
	ErrGridFull    = errors.New("grid full: no empty cell available")
	ErrOutOfBounds = errors.New("cell out of grid bounds")
)

type Tag uint8

const (
	Empty Tag = iota
	Food
	Snake
)

// Occupant describes what sits on a cell. Owner carries the session ID for
// snake cells and is empty otherwise.
type Occupant struct {
	Tag   Tag
	Owner string
}

// Grid is a fixed-size 2D cell space tracking occupancy. Coordinates are
// never clamped or wrapped; out-of-bounds cells are rejected.
type Grid struct {
	width  int
	height int
	cells  []Occupant
	free   int
	rng    *rand.Rand
}

func New(width, height int, rng *rand.Rand) *Grid {
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]Occupant, width*height),
		free:   width * height,
		rng:    rng,
	}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

func (g *Grid) InBounds(p models.Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// Occupant reports what occupies the cell. The bool is false for
// out-of-bounds cells.
func (g *Grid) Occupant(p models.Position) (Occupant, bool) {
	if !g.InBounds(p) {
		return Occupant{}, false
	}
	return g.cells[p.Y*g.width+p.X], true
}

func (g *Grid) Set(p models.Position, occ Occupant) error {
	if !g.InBounds(p) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, p.X, p.Y)
	}
	idx := p.Y*g.width + p.X
	if g.cells[idx].Tag == Empty && occ.Tag != Empty {
		g.free--
	} else if g.cells[idx].Tag != Empty && occ.Tag == Empty {
		g.free++
	}
	g.cells[idx] = occ
	return nil
}

func (g *Grid) Clear(p models.Position) error {
	return g.Set(p, Occupant{})
}

func (g *Grid) FreeCells() int {
	return g.free
}

// RandomEmptyCell picks a uniformly random empty cell, or ErrGridFull when
// none exists. Uniformity comes from counting into the free cells rather
// than rejection sampling, so the draw is a single rng call.
func (g *Grid) RandomEmptyCell() (models.Position, error) {
	if g.free == 0 {
		return models.Position{}, ErrGridFull
	}
	n := g.rng.Intn(g.free)
	for i := range g.cells {
		if g.cells[i].Tag != Empty {
			continue
		}
		if n == 0 {
			return models.Position{X: i % g.width, Y: i / g.width}, nil
		}
		n--
	}
	// free count and cell tags disagree
	return models.Position{}, ErrGridFull
}

// Occupied returns every non-empty cell in row-major order.
func (g *Grid) Occupied() []models.Position {
	out := make([]models.Position, 0, len(g.cells)-g.free)
	for i := range g.cells {
		if g.cells[i].Tag != Empty {
			out = append(out, models.Position{X: i % g.width, Y: i / g.width})
		}
	}
	return out
}
