package game

import (
	"snake-server/grid"
	"snake-server/models"
)

// resolveTick advances every live entity one step and resolves collisions.
// order must be the live entities' session IDs in ascending order so that
// outcomes are reproducible. All collision checks read the pre-tick grid
// and bodies, which makes results independent of processing order: a tie
// on the same cell kills both entities rather than favoring either.
// Returns the food cells consumed this tick; the caller relocates food.
func resolveTick(g *grid.Grid, entities map[string]*Snake, order []string) []models.Position {
	candidates := make(map[string]models.Position, len(order))
	grows := make(map[string]bool, len(order))
	dead := make(map[string]bool)

	for _, id := range order {
		s := entities[id]

		// pending direction is sticky: it stays the previous heading
		// when no new input arrived since last tick
		s.Heading = s.pending
		dx, dy := s.Heading.Vector()
		head := s.Head()
		cand := models.Position{X: head.X + dx, Y: head.Y + dy}
		candidates[id] = cand

		// wall
		if !g.InBounds(cand) {
			dead[id] = true
			continue
		}

		occ, _ := g.Occupant(cand)
		grows[id] = occ.Tag == grid.Food

		// self, ignoring the tail cell that will be vacated unless the
		// entity grows this tick
		if s.occupiesExceptTail(cand, !grows[id]) {
			dead[id] = true
			continue
		}

		// another entity's pre-tick body, tail included
		if occ.Tag == grid.Snake && occ.Owner != id {
			dead[id] = true
		}
	}

	// head-to-head: every entity whose candidate lands on a contested cell
	// dies, symmetric by construction
	byCell := make(map[models.Position][]string, len(order))
	for _, id := range order {
		byCell[candidates[id]] = append(byCell[candidates[id]], id)
	}
	for _, ids := range byCell {
		if len(ids) > 1 {
			for _, id := range ids {
				dead[id] = true
			}
		}
	}

	var eaten []models.Position
	for _, id := range order {
		if dead[id] {
			entities[id].Alive = false
			continue
		}
		s := entities[id]
		cand := candidates[id]

		// Survivors' new heads only ever land on empty or food cells:
		// anything else was ruled a collision above. Vacated tails and new
		// heads are therefore disjoint across entities and the grid can be
		// updated per entity.
		if !grows[id] {
			g.Clear(s.Tail())
		} else {
			eaten = append(eaten, cand)
		}
		s.advance(cand, grows[id])
		g.Set(cand, grid.Occupant{Tag: grid.Snake, Owner: id})
	}
	return eaten
}
