package game

import (
	"sort"

	"snake-server/models"
)

// buildSnapshot serializes the current state into a wire-ready form. Cell
// and session ordering is deterministic: entities ascending by session ID
// with bodies head to tail, food cells row-major.
func (e *Engine) buildSnapshot() models.Snapshot {
	ids := make([]string, 0, len(e.entities))
	for id := range e.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	snap := models.Snapshot{
		Tick:     e.tick.Load(),
		Width:    e.grid.Width(),
		Height:   e.grid.Height(),
		Cells:    make([]models.OccupiedCell, 0),
		Sessions: make([]models.SessionInfo, 0, len(ids)),
	}

	for _, id := range ids {
		s := e.entities[id]
		for _, p := range s.Body {
			snap.Cells = append(snap.Cells, models.OccupiedCell{
				X: p.X, Y: p.Y, Tag: models.TagSnake, Owner: id,
			})
		}
		snap.Sessions = append(snap.Sessions, models.SessionInfo{
			ID:    id,
			Score: s.Score,
			Alive: s.Alive,
		})
	}

	food := make([]models.Position, 0, len(e.food))
	for p := range e.food {
		food = append(food, p)
	}
	sort.Slice(food, func(i, j int) bool {
		if food[i].Y != food[j].Y {
			return food[i].Y < food[j].Y
		}
		return food[i].X < food[j].X
	})
	for _, p := range food {
		snap.Cells = append(snap.Cells, models.OccupiedCell{X: p.X, Y: p.Y, Tag: models.TagFood})
	}

	return snap
}

// publish fans the snapshot out to every session. Delivery never blocks
// the loop; each subscriber queue drops its oldest snapshot when full.
func (e *Engine) publish(snap models.Snapshot) {
	for _, sess := range e.sessions.Snapshot() {
		sess.Publish(snap)
	}
}
