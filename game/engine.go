package game

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"snake-server/config"
	"snake-server/constants"
	"snake-server/grid"
	"snake-server/models"
	"snake-server/session"
)

var (
	ErrCapacityExceeded = errors.New("session capacity exceeded")
	ErrSessionNotFound  = errors.New("session not found")
	ErrEngineStopped    = errors.New("engine stopped")
	ErrAlreadyRunning   = errors.New("engine already running")
)

const initialBodyLength = 3

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdLeave
	cmdMove
)

type joinReply struct {
	id  string
	err error
}

type command struct {
	kind  commandKind
	id    string
	dir   constants.Direction
	reply chan joinReply
}

// Engine owns one shared world. The game loop goroutine is the sole writer
// of grid, entities and roster membership; everything else reaches the
// engine through the command channel or the thread-safe session registry.
type Engine struct {
	cfg      config.Config
	grid     *grid.Grid
	rng      *rand.Rand
	sessions *session.Registry

	// loop-owned state
	entities    map[string]*Snake
	food        map[models.Position]struct{}
	foodDeficit int
	pendingDirs map[string]constants.Direction
	idleTicks   int

	tick atomic.Uint64

	commands chan command
	stopc    chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	started  atomic.Bool

	failure atomic.Value // error
}

func New(cfg config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	e := &Engine{
		cfg:         cfg,
		grid:        grid.New(cfg.GridWidth, cfg.GridHeight, rng),
		rng:         rng,
		sessions:    session.NewRegistry(),
		entities:    make(map[string]*Snake),
		food:        make(map[models.Position]struct{}),
		foodDeficit: cfg.FoodCount,
		pendingDirs: make(map[string]constants.Direction),
		commands:    make(chan command, 256),
		stopc:       make(chan struct{}),
		done:        make(chan struct{}),
	}
	return e, nil
}

// Start launches the game loop. The engine must be started before Join.
func (e *Engine) Start() error {
	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	go e.run()
	return nil
}

// Stop requests administrative shutdown. The loop finishes its current tick,
// closes all subscriber streams and then Done is closed.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopc) })
}

func (e *Engine) Done() <-chan struct{} { return e.done }

// Err reports the fatal error that terminated the engine, if any. A clean
// Stop leaves it nil.
func (e *Engine) Err() error {
	if v := e.failure.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Tick reports the current tick counter. Diagnostics only.
func (e *Engine) Tick() uint64 { return e.tick.Load() }

// Join creates a session with a freshly spawned snake and returns its ID.
// Fails with ErrCapacityExceeded at the session limit or grid.ErrGridFull
// when no spawn placement exists.
func (e *Engine) Join() (string, error) {
	reply := make(chan joinReply, 1)
	select {
	case e.commands <- command{kind: cmdJoin, reply: reply}:
	case <-e.done:
		return "", ErrEngineStopped
	}
	select {
	case r := <-reply:
		return r.id, r.err
	case <-e.done:
		return "", ErrEngineStopped
	}
}

// SubmitInput buffers a direction for the session's next tick. Fire and
// forget: unknown or dead sessions and a saturated inbound queue all drop
// the input silently.
func (e *Engine) SubmitInput(id string, d constants.Direction) {
	select {
	case e.commands <- command{kind: cmdMove, id: id, dir: d}:
	default:
	}
}

// EndSession marks the session for removal; its cells are released on the
// next tick's reap pass. Unknown sessions are ignored.
func (e *Engine) EndSession(id string) {
	select {
	case e.commands <- command{kind: cmdLeave, id: id}:
	case <-e.done:
	}
}

// Subscribe opens a finite snapshot stream for the session. The stream ends
// when the session is reaped or the engine stops. The cancel func detaches
// early without ending the session.
func (e *Engine) Subscribe(id string) (<-chan models.Snapshot, func(), error) {
	s, ok := e.sessions.Get(id)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	ch, cancel := s.Subscribe()
	return ch, cancel, nil
}

// Heartbeat refreshes the session's liveness clock.
func (e *Engine) Heartbeat(id string) {
	if s, ok := e.sessions.Get(id); ok {
		s.Touch(time.Now())
	}
}

// handleJoin runs on the loop goroutine.
func (e *Engine) handleJoin(reply chan joinReply) {
	if e.sessions.Len() >= e.cfg.MaxSessions {
		reply <- joinReply{err: ErrCapacityExceeded}
		return
	}

	body, heading, err := e.placeSnake()
	if err != nil {
		reply <- joinReply{err: err}
		return
	}

	id := uuid.New().String()
	for _, p := range body {
		e.grid.Set(p, grid.Occupant{Tag: grid.Snake, Owner: id})
	}
	e.entities[id] = newSnake(id, body, heading)
	e.sessions.Add(session.New(id, e.cfg.QueueDepth, time.Now()))

	log.Printf("session %s joined at (%d,%d) heading %s, %d active", id, body[0].X, body[0].Y, heading, e.sessions.Len())
	reply <- joinReply{id: id}
}

// placeSnake finds a free horizontal segment for a new snake: head plus
// tail extending away from the grid center, none of the cells occupied or
// orthogonally adjacent to another snake. Fails with grid.ErrGridFull when
// no placement exists within a bounded number of draws.
func (e *Engine) placeSnake() ([]models.Position, constants.Direction, error) {
	attempts := e.grid.Width() * e.grid.Height()
	for i := 0; i < attempts; i++ {
		head, err := e.grid.RandomEmptyCell()
		if err != nil {
			return nil, 0, err
		}

		heading := constants.RIGHT
		step := -1 // tail extends opposite the heading
		if head.X > e.grid.Width()/2 {
			heading = constants.LEFT
			step = 1
		}

		body := make([]models.Position, 0, initialBodyLength)
		ok := true
		for j := 0; j < initialBodyLength; j++ {
			p := models.Position{X: head.X + j*step, Y: head.Y}
			if !e.cellSpawnable(p) {
				ok = false
				break
			}
			body = append(body, p)
		}
		if ok {
			return body, heading, nil
		}
	}
	return nil, 0, grid.ErrGridFull
}

// cellSpawnable requires the cell to be empty and all orthogonal neighbors
// to be free of snakes.
func (e *Engine) cellSpawnable(p models.Position) bool {
	occ, in := e.grid.Occupant(p)
	if !in || occ.Tag != grid.Empty {
		return false
	}
	neighbors := [4]models.Position{
		{X: p.X + 1, Y: p.Y},
		{X: p.X - 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X, Y: p.Y - 1},
	}
	for _, n := range neighbors {
		if occ, in := e.grid.Occupant(n); in && occ.Tag == grid.Snake {
			return false
		}
	}
	return true
}

// checkInvariant verifies that the non-empty grid cells are exactly the
// union of unreaped entity bodies and food. A mismatch is a synchronization
// bug and fatal for the instance.
func (e *Engine) checkInvariant() error {
	expected := make(map[models.Position]grid.Occupant)
	for id, s := range e.entities {
		for _, p := range s.Body {
			expected[p] = grid.Occupant{Tag: grid.Snake, Owner: id}
		}
	}
	for p := range e.food {
		expected[p] = grid.Occupant{Tag: grid.Food}
	}

	occupied := e.grid.Occupied()
	if len(occupied) != len(expected) {
		return fmt.Errorf("grid desync: %d occupied cells, expected %d", len(occupied), len(expected))
	}
	for _, p := range occupied {
		occ, _ := e.grid.Occupant(p)
		want, ok := expected[p]
		if !ok || occ != want {
			return fmt.Errorf("grid desync at (%d,%d): have %v, want %v", p.X, p.Y, occ, want)
		}
	}
	return nil
}

// fail records a fatal invariant violation and terminates the instance.
func (e *Engine) fail(err error) {
	log.Printf("fatal engine error: %v", err)
	e.failure.Store(err)
}
