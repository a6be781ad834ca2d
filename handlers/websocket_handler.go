package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"snake-server/auth"
	"snake-server/constants"
	"snake-server/game"
	"snake-server/grid"
	"snake-server/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type WebSocketHandler struct {
	engine *game.Engine
}

func NewWebSocketHandler(engine *game.Engine) *WebSocketHandler {
	return &WebSocketHandler{engine: engine}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	sessionID, err := h.engine.Join()
	if err != nil {
		writeError(conn, joinErrorCode(err), err.Error())
		conn.Close()
		return
	}

	token, err := auth.GenerateToken(sessionID)
	if err != nil {
		log.Printf("token generation failed for %s: %v", sessionID, err)
	}

	snapshots, cancel, err := h.engine.Subscribe(sessionID)
	if err != nil {
		writeError(conn, "SUBSCRIBE_FAILED", err.Error())
		conn.Close()
		return
	}

	connected, _ := json.Marshal(map[string]any{
		"type":       constants.MSG_CONNECTED,
		"session_id": sessionID,
		"token":      token,
	})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, connected); err != nil {
		cancel()
		h.engine.EndSession(sessionID)
		conn.Close()
		return
	}

	go h.writePump(conn, snapshots)
	h.readPump(conn, sessionID, cancel)
}

func (h *WebSocketHandler) readPump(conn *websocket.Conn, sessionID string, cancel func()) {
	defer func() {
		cancel()
		h.engine.EndSession(sessionID)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		h.engine.Heartbeat(sessionID)
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for %s: %v", sessionID, err)
			}
			break
		}
		h.engine.Heartbeat(sessionID)

		var msg struct {
			Type      string `json:"type"`
			Direction string `json:"direction"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message from %s: %v", sessionID, err)
			continue
		}

		switch msg.Type {
		case constants.MSG_PLAYER_MOVE:
			// malformed directions are a no-op, never an error
			if d, ok := constants.ParseDirection(msg.Direction); ok {
				h.engine.SubmitInput(sessionID, d)
			}
		case constants.MSG_LEAVE:
			return
		}
	}
}

// writePump streams snapshots until the session's stream closes, then
// signals game over and shuts the connection.
func (h *WebSocketHandler) writePump(conn *websocket.Conn, snapshots <-chan models.Snapshot) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case snap, ok := <-snapshots:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				over, _ := json.Marshal(map[string]any{"type": constants.MSG_GAME_OVER})
				conn.WriteMessage(websocket.TextMessage, over)
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, err := json.Marshal(map[string]any{
				"type": constants.MSG_GAME_UPDATE,
				"data": snap,
			})
			if err != nil {
				log.Printf("snapshot marshal error: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeError(conn *websocket.Conn, code, message string) {
	payload, _ := json.Marshal(map[string]any{
		"type":    constants.MSG_ERROR,
		"code":    code,
		"message": message,
	})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.TextMessage, payload)
}

func joinErrorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrCapacityExceeded):
		return "CAPACITY_EXCEEDED"
	case errors.Is(err, grid.ErrGridFull):
		return "GRID_FULL"
	default:
		return "JOIN_FAILED"
	}
}
