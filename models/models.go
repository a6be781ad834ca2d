package models

type Position struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

// CellTag identifies what occupies a grid cell in a snapshot.
type CellTag string

const (
	TagFood  CellTag = "food"
	TagSnake CellTag = "snake"
)

// OccupiedCell is one non-empty grid cell. Owner carries the session ID for
// snake cells and is empty for food.
type OccupiedCell struct {
	X     int     `json:"x" msgpack:"x"`
	Y     int     `json:"y" msgpack:"y"`
	Tag   CellTag `json:"tag" msgpack:"tag"`
	Owner string  `json:"owner,omitempty" msgpack:"owner,omitempty"`
}

type SessionInfo struct {
	ID    string `json:"id" msgpack:"id"`
	Score int    `json:"score" msgpack:"score"`
	Alive bool   `json:"alive" msgpack:"alive"`
}

// Snapshot is a complete serialized view of game state at one tick. Every
// snapshot is self-contained; a late subscriber never needs prior history.
type Snapshot struct {
	Tick     uint64         `json:"tick" msgpack:"tick"`
	Width    int            `json:"width" msgpack:"width"`
	Height   int            `json:"height" msgpack:"height"`
	Cells    []OccupiedCell `json:"cells" msgpack:"cells"`
	Sessions []SessionInfo  `json:"sessions" msgpack:"sessions"`
}
