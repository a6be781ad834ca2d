package game

import (
	"snake-server/constants"
	"snake-server/models"
)

// Snake is one session's entity: an ordered body (head first), the heading
// applied last tick, and the sticky pending direction for the next tick.
// Only the game loop touches a Snake after creation.
type Snake struct {
	ID      string
	Body    []models.Position
	Heading constants.Direction
	Score   int
	Alive   bool

	pending constants.Direction

	// death already included in a published snapshot, entity may be reaped
	observed bool
	// session asked to leave, cells freed on the next reap pass
	leaving bool
}

func newSnake(id string, body []models.Position, heading constants.Direction) *Snake {
	return &Snake{
		ID:      id,
		Body:    body,
		Heading: heading,
		Alive:   true,
		pending: heading,
	}
}

func (s *Snake) Head() models.Position { return s.Body[0] }
func (s *Snake) Tail() models.Position { return s.Body[len(s.Body)-1] }

// ProposeDirection buffers d for the next tick. Reversing the current
// heading with a body longer than one cell is silently ignored; the snake
// keeps its previous pending direction.
func (s *Snake) ProposeDirection(d constants.Direction) {
	if !s.Alive {
		return
	}
	if len(s.Body) > 1 && d == s.Heading.Opposite() {
		return
	}
	s.pending = d
}

// advance prepends the new head. When not growing the tail cell is dropped
// so body length stays constant; growing keeps the tail and scores.
func (s *Snake) advance(newHead models.Position, grows bool) {
	if grows {
		s.Body = append([]models.Position{newHead}, s.Body...)
		s.Score++
		return
	}
	copy(s.Body[1:], s.Body[:len(s.Body)-1])
	s.Body[0] = newHead
}

// occupiesExceptTail reports whether p is on the body, optionally ignoring
// the tail cell about to be vacated this tick.
func (s *Snake) occupiesExceptTail(p models.Position, ignoreTail bool) bool {
	last := len(s.Body)
	if ignoreTail {
		last--
	}
	for i := 0; i < last; i++ {
		if s.Body[i] == p {
			return true
		}
	}
	return false
}
