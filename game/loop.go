package game

import (
	"log"
	"sort"
	"time"

	"snake-server/grid"
	"snake-server/models"
)

// run is the game loop: the single writer of all game state. Commands
// arriving between ticks are applied immediately (membership) or buffered
// (directions); every tick boundary then drains the buffered input, reaps,
// resolves and publishes.
func (e *Engine) run() {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	defer e.shutdown()

	for {
		select {
		case <-e.stopc:
			return
		case cmd := <-e.commands:
			e.handleCommand(cmd)
		case now := <-ticker.C:
			// drain whatever else accumulated during the tick interval
			for drained := false; !drained; {
				select {
				case cmd := <-e.commands:
					e.handleCommand(cmd)
				default:
					drained = true
				}
			}
			if !e.step(now) {
				return
			}
		}
	}
}

func (e *Engine) handleCommand(cmd command) {
	switch cmd.kind {
	case cmdJoin:
		e.handleJoin(cmd.reply)
	case cmdLeave:
		if s, ok := e.entities[cmd.id]; ok {
			s.leaving = true
		}
	case cmdMove:
		if s, ok := e.entities[cmd.id]; ok && s.Alive {
			e.pendingDirs[cmd.id] = cmd.dir
		}
	}
}

// step advances the world one tick. Returns false when the loop should
// terminate.
func (e *Engine) step(now time.Time) bool {
	// buffered directions, in ascending session-id order
	e.applyPendingDirs()

	// reap entities whose terminal state was already published, and
	// sessions that left or timed out
	e.reap()
	e.expireSessions(now)

	if e.sessions.Len() == 0 {
		e.idleTicks++
		if e.cfg.IdleShutdownTicks > 0 && e.idleTicks >= e.cfg.IdleShutdownTicks {
			log.Printf("no sessions for %d ticks, terminating", e.idleTicks)
			return false
		}
	} else {
		e.idleTicks = 0
	}

	order := e.liveOrder()
	eaten := resolveTick(e.grid, e.entities, order)
	e.relocateFood(eaten)

	e.tick.Add(1)

	if err := e.checkInvariant(); err != nil {
		e.fail(err)
		return false
	}

	e.publish(e.buildSnapshot())

	// the snapshot above carried each fresh death once; reap next tick
	for _, s := range e.entities {
		if !s.Alive {
			s.observed = true
		}
	}
	return true
}

func (e *Engine) applyPendingDirs() {
	if len(e.pendingDirs) == 0 {
		return
	}
	ids := make([]string, 0, len(e.pendingDirs))
	for id := range e.pendingDirs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if s, ok := e.entities[id]; ok {
			s.ProposeDirection(e.pendingDirs[id])
		}
		delete(e.pendingDirs, id)
	}
}

// liveOrder returns live entity IDs in ascending order for deterministic
// collision tie-breaks.
func (e *Engine) liveOrder() []string {
	ids := make([]string, 0, len(e.entities))
	for id, s := range e.entities {
		if s.Alive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) reap() {
	for id, s := range e.entities {
		if !s.leaving && !(s.observed && !s.Alive) {
			continue
		}
		for _, p := range s.Body {
			e.grid.Clear(p)
		}
		delete(e.entities, id)
		delete(e.pendingDirs, id)
		if sess, ok := e.sessions.Get(id); ok {
			e.sessions.Remove(id)
			sess.Close()
		}
		log.Printf("session %s reaped (alive=%v), %d active", id, s.Alive, e.sessions.Len())
	}
}

func (e *Engine) expireSessions(now time.Time) {
	if e.cfg.HeartbeatTimeout <= 0 {
		return
	}
	for _, sess := range e.sessions.Snapshot() {
		if now.Sub(sess.LastBeat()) <= e.cfg.HeartbeatTimeout {
			continue
		}
		if s, ok := e.entities[sess.ID]; ok && !s.leaving {
			s.leaving = true
			log.Printf("session %s heartbeat timed out", sess.ID)
		}
	}
}

// relocateFood removes consumed food and respawns up to the configured
// count. A full grid pauses respawn until a cell frees on a later tick.
func (e *Engine) relocateFood(eaten []models.Position) {
	for _, p := range eaten {
		delete(e.food, p)
		e.foodDeficit++
	}
	for e.foodDeficit > 0 {
		p, err := e.grid.RandomEmptyCell()
		if err != nil {
			log.Printf("grid full, deferring respawn of %d food", e.foodDeficit)
			return
		}
		e.grid.Set(p, grid.Occupant{Tag: grid.Food})
		e.food[p] = struct{}{}
		e.foodDeficit--
	}
}

func (e *Engine) shutdown() {
	for _, sess := range e.sessions.Snapshot() {
		e.sessions.Remove(sess.ID)
		sess.Close()
	}
	close(e.done)
	log.Printf("engine terminated at tick %d", e.tick.Load())
}
