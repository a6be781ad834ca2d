package constants

import "time"

const (
	// Game defaults, overridable through config
	DEFAULT_GRID_WIDTH        = 40
	DEFAULT_GRID_HEIGHT       = 30
	DEFAULT_TICK_RATE         = 150 * time.Millisecond
	DEFAULT_MAX_SESSIONS      = 8
	DEFAULT_FOOD_COUNT        = 1
	DEFAULT_QUEUE_DEPTH       = 16
	DEFAULT_HEARTBEAT_TIMEOUT = 60 * time.Second

	// Message types
	MSG_CONNECTED   = "connected"
	MSG_GAME_UPDATE = "game_update"
	MSG_PLAYER_MOVE = "player_move"
	MSG_LEAVE       = "leave"
	MSG_GAME_OVER   = "game_over"
	MSG_ERROR       = "error"
)

type Direction int

const (
	UP Direction = iota
	DOWN
	LEFT
	RIGHT
)

// Vector returns the (dx, dy) offset for one step in this direction.
// Up decreases Y, down increases Y (screen coordinates).
func (d Direction) Vector() (dx, dy int) {
	switch d {
	case UP:
		return 0, -1
	case DOWN:
		return 0, 1
	case LEFT:
		return -1, 0
	case RIGHT:
		return 1, 0
	default:
		return 0, 0
	}
}

func (d Direction) Opposite() Direction {
	switch d {
	case UP:
		return DOWN
	case DOWN:
		return UP
	case LEFT:
		return RIGHT
	case RIGHT:
		return LEFT
	default:
		return d
	}
}

func (d Direction) String() string {
	switch d {
	case UP:
		return "up"
	case DOWN:
		return "down"
	case LEFT:
		return "left"
	case RIGHT:
		return "right"
	default:
		return "unknown"
	}
}

// ParseDirection maps the wire strings "up", "down", "left", "right" to a
// Direction. Anything else reports false.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "up":
		return UP, true
	case "down":
		return DOWN, true
	case "left":
		return LEFT, true
	case "right":
		return RIGHT, true
	default:
		return UP, false
	}
}
