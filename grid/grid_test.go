package grid

import (
	"errors"
	"math/rand"
	"testing"

	"snake-server/models"
)

func newTestGrid(w, h int, seed int64) *Grid {
	return New(w, h, rand.New(rand.NewSource(seed)))
}

func TestGrid_Bounds(t *testing.T) {
	g := newTestGrid(4, 3, 1)

	cases := []struct {
		pos models.Position
		in  bool
	}{
		{models.Position{X: 0, Y: 0}, true},
		{models.Position{X: 3, Y: 2}, true},
		{models.Position{X: 4, Y: 0}, false},
		{models.Position{X: 0, Y: 3}, false},
		{models.Position{X: -1, Y: 0}, false},
		{models.Position{X: 0, Y: -1}, false},
	}
	for _, c := range cases {
		if got := g.InBounds(c.pos); got != c.in {
			t.Errorf("InBounds(%v) = %v, want %v", c.pos, got, c.in)
		}
	}

	if err := g.Set(models.Position{X: 4, Y: 0}, Occupant{Tag: Food}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Set out of bounds: got %v, want ErrOutOfBounds", err)
	}
	if _, ok := g.Occupant(models.Position{X: -1, Y: 0}); ok {
		t.Error("Occupant out of bounds reported ok")
	}
}

func TestGrid_SetClearTracksFreeCells(t *testing.T) {
	g := newTestGrid(3, 3, 1)
	p := models.Position{X: 1, Y: 1}

	if g.FreeCells() != 9 {
		t.Fatalf("fresh grid free cells = %d, want 9", g.FreeCells())
	}

	if err := g.Set(p, Occupant{Tag: Snake, Owner: "a"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if g.FreeCells() != 8 {
		t.Errorf("free cells after set = %d, want 8", g.FreeCells())
	}

	// overwriting occupied with occupied must not change the count
	if err := g.Set(p, Occupant{Tag: Food}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if g.FreeCells() != 8 {
		t.Errorf("free cells after overwrite = %d, want 8", g.FreeCells())
	}

	occ, ok := g.Occupant(p)
	if !ok || occ.Tag != Food {
		t.Errorf("Occupant = %v, want food", occ)
	}

	if err := g.Clear(p); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if g.FreeCells() != 9 {
		t.Errorf("free cells after clear = %d, want 9", g.FreeCells())
	}
}

func TestGrid_RandomEmptyCell(t *testing.T) {
	t.Run("avoids occupied cells", func(t *testing.T) {
		g := newTestGrid(2, 2, 42)
		occupied := []models.Position{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
		for _, p := range occupied {
			g.Set(p, Occupant{Tag: Snake, Owner: "a"})
		}
		for i := 0; i < 20; i++ {
			p, err := g.RandomEmptyCell()
			if err != nil {
				t.Fatalf("RandomEmptyCell: %v", err)
			}
			if p != (models.Position{X: 1, Y: 1}) {
				t.Fatalf("RandomEmptyCell = %v, want the only free cell (1,1)", p)
			}
		}
	})

	t.Run("full grid fails", func(t *testing.T) {
		g := newTestGrid(2, 2, 42)
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				g.Set(models.Position{X: x, Y: y}, Occupant{Tag: Food})
			}
		}
		if _, err := g.RandomEmptyCell(); !errors.Is(err, ErrGridFull) {
			t.Errorf("got %v, want ErrGridFull", err)
		}
	})

	t.Run("deterministic under a fixed seed", func(t *testing.T) {
		a := newTestGrid(10, 10, 7)
		b := newTestGrid(10, 10, 7)
		for i := 0; i < 50; i++ {
			pa, errA := a.RandomEmptyCell()
			pb, errB := b.RandomEmptyCell()
			if errA != nil || errB != nil {
				t.Fatalf("unexpected errors: %v, %v", errA, errB)
			}
			if pa != pb {
				t.Fatalf("draw %d diverged: %v vs %v", i, pa, pb)
			}
			a.Set(pa, Occupant{Tag: Food})
			b.Set(pb, Occupant{Tag: Food})
		}
	})
}

func TestGrid_Occupied(t *testing.T) {
	g := newTestGrid(3, 2, 1)
	g.Set(models.Position{X: 2, Y: 0}, Occupant{Tag: Food})
	g.Set(models.Position{X: 0, Y: 1}, Occupant{Tag: Snake, Owner: "a"})

	got := g.Occupied()
	want := []models.Position{{X: 2, Y: 0}, {X: 0, Y: 1}}
	if len(got) != len(want) {
		t.Fatalf("Occupied() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Occupied()[%d] = %v, want %v (row-major order)", i, got[i], want[i])
		}
	}
}
