package game

import (
	"math/rand"
	"sort"
	"testing"

	"snake-server/constants"
	"snake-server/grid"
	"snake-server/models"
)

// buildWorld places the given snakes and food on a fresh grid and returns
// the pieces resolveTick needs.
func buildWorld(t *testing.T, w, h int, snakes map[string]*Snake, food ...models.Position) (*grid.Grid, []string) {
	t.Helper()
	g := grid.New(w, h, rand.New(rand.NewSource(1)))
	for id, s := range snakes {
		for _, p := range s.Body {
			if err := g.Set(p, grid.Occupant{Tag: grid.Snake, Owner: id}); err != nil {
				t.Fatalf("placing %s: %v", id, err)
			}
		}
	}
	for _, p := range food {
		if err := g.Set(p, grid.Occupant{Tag: grid.Food}); err != nil {
			t.Fatalf("placing food: %v", err)
		}
	}
	order := make([]string, 0, len(snakes))
	for id := range snakes {
		order = append(order, id)
	}
	sort.Strings(order)
	return g, order
}

func TestResolveTick_WallCollision(t *testing.T) {
	s := newSnake("a", []models.Position{{X: 9, Y: 5}, {X: 8, Y: 5}}, constants.RIGHT)
	entities := map[string]*Snake{"a": s}
	g, order := buildWorld(t, 10, 10, entities)

	resolveTick(g, entities, order)

	if s.Alive {
		t.Error("snake moving into the wall survived")
	}
	// dead entity does not advance
	if s.Head() != (models.Position{X: 9, Y: 5}) {
		t.Errorf("dead snake moved, head = %v", s.Head())
	}
}

func TestResolveTick_SelfCollision(t *testing.T) {
	t.Run("second segment kills", func(t *testing.T) {
		// a 5-cell hook: turning up runs into its own side
		body := []models.Position{
			{X: 3, Y: 3}, {X: 3, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 3}, {X: 4, Y: 2},
		}
		s := newSnake("a", body, constants.UP)
		s.ProposeDirection(constants.RIGHT)
		entities := map[string]*Snake{"a": s}
		g, order := buildWorld(t, 10, 10, entities)

		resolveTick(g, entities, order)

		if s.Alive {
			t.Error("snake turning into its own body survived")
		}
	})

	t.Run("vacating tail cell is safe", func(t *testing.T) {
		// 2x2 loop: head chases its tail, which frees the cell this tick
		body := []models.Position{
			{X: 2, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 3}, {X: 2, Y: 3},
		}
		s := newSnake("a", body, constants.LEFT)
		s.ProposeDirection(constants.DOWN)
		entities := map[string]*Snake{"a": s}
		g, order := buildWorld(t, 10, 10, entities)

		resolveTick(g, entities, order)

		if !s.Alive {
			t.Fatal("snake moving onto its vacating tail died")
		}
		if s.Head() != (models.Position{X: 2, Y: 3}) {
			t.Errorf("head = %v, want (2,3)", s.Head())
		}
	})
}

func TestResolveTick_FoodGrowth(t *testing.T) {
	s := newSnake("a", []models.Position{{X: 5, Y: 5}, {X: 4, Y: 5}}, constants.RIGHT)
	entities := map[string]*Snake{"a": s}
	food := models.Position{X: 6, Y: 5}
	g, order := buildWorld(t, 10, 10, entities, food)

	eaten := resolveTick(g, entities, order)

	if !s.Alive {
		t.Fatal("snake died eating food")
	}
	if len(s.Body) != 3 {
		t.Errorf("body length = %d, want 3", len(s.Body))
	}
	if s.Score != 1 {
		t.Errorf("score = %d, want 1", s.Score)
	}
	if len(eaten) != 1 || eaten[0] != food {
		t.Errorf("eaten = %v, want [%v]", eaten, food)
	}
	occ, _ := g.Occupant(food)
	if occ.Tag != grid.Snake || occ.Owner != "a" {
		t.Errorf("food cell now %v, want snake a head", occ)
	}
}

func TestResolveTick_HeadToHead(t *testing.T) {
	run := func(t *testing.T, order []string) (map[string]*Snake, *grid.Grid) {
		a := newSnake("a", []models.Position{{X: 2, Y: 3}, {X: 1, Y: 3}}, constants.RIGHT)
		b := newSnake("b", []models.Position{{X: 4, Y: 3}, {X: 5, Y: 3}}, constants.LEFT)
		entities := map[string]*Snake{"a": a, "b": b}
		g, _ := buildWorld(t, 10, 10, entities)
		resolveTick(g, entities, order)
		return entities, g
	}

	t.Run("both die", func(t *testing.T) {
		entities, _ := run(t, []string{"a", "b"})
		if entities["a"].Alive || entities["b"].Alive {
			t.Errorf("alive = %v/%v, want both dead",
				entities["a"].Alive, entities["b"].Alive)
		}
	})

	t.Run("outcome independent of processing order", func(t *testing.T) {
		forward, _ := run(t, []string{"a", "b"})
		reversed, _ := run(t, []string{"b", "a"})
		for _, id := range []string{"a", "b"} {
			if forward[id].Alive != reversed[id].Alive {
				t.Errorf("snake %s outcome depends on order", id)
			}
			if forward[id].Head() != reversed[id].Head() {
				t.Errorf("snake %s position depends on order", id)
			}
		}
	})
}

func TestResolveTick_HeadToBody(t *testing.T) {
	a := newSnake("a", []models.Position{{X: 3, Y: 2}, {X: 3, Y: 1}}, constants.DOWN)
	b := newSnake("b", []models.Position{{X: 4, Y: 3}, {X: 3, Y: 3}, {X: 2, Y: 3}}, constants.RIGHT)
	entities := map[string]*Snake{"a": a, "b": b}
	g, order := buildWorld(t, 10, 10, entities)

	resolveTick(g, entities, order)

	if a.Alive {
		t.Error("snake a survived moving into b's body")
	}
	if !b.Alive {
		t.Error("snake b died without colliding")
	}
	if b.Head() != (models.Position{X: 5, Y: 3}) {
		t.Errorf("b head = %v, want (5,3)", b.Head())
	}
}

func TestResolveTick_StickyDirection(t *testing.T) {
	// no input since last tick: the snake keeps its heading
	s := newSnake("a", []models.Position{{X: 5, Y: 5}, {X: 4, Y: 5}}, constants.RIGHT)
	entities := map[string]*Snake{"a": s}
	g, order := buildWorld(t, 10, 10, entities)

	resolveTick(g, entities, order)
	resolveTick(g, entities, order)

	if s.Head() != (models.Position{X: 7, Y: 5}) {
		t.Errorf("head = %v, want (7,5) after two ticks heading right", s.Head())
	}
}

func TestResolveTick_GridStaysConsistent(t *testing.T) {
	a := newSnake("a", []models.Position{{X: 2, Y: 2}, {X: 1, Y: 2}}, constants.RIGHT)
	b := newSnake("b", []models.Position{{X: 7, Y: 7}, {X: 7, Y: 6}}, constants.DOWN)
	entities := map[string]*Snake{"a": a, "b": b}
	g, order := buildWorld(t, 10, 10, entities)

	for i := 0; i < 3; i++ {
		resolveTick(g, entities, order)

		cells := make(map[models.Position]string)
		for id, s := range entities {
			if !s.Alive {
				continue
			}
			for _, p := range s.Body {
				cells[p] = id
			}
		}
		for p, id := range cells {
			occ, ok := g.Occupant(p)
			if !ok || occ.Tag != grid.Snake || occ.Owner != id {
				t.Fatalf("tick %d: cell %v holds %v, want snake %s", i, p, occ, id)
			}
		}
	}
}
