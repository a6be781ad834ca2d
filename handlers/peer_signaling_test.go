package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"snake-server/auth"
	"snake-server/config"
	"snake-server/game"
	"snake-server/webrtc"
)

func newSignalingHandler(t *testing.T) *PeerSignalingHandler {
	t.Helper()
	engine, err := game.New(config.Default())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return NewPeerSignalingHandler(webrtc.NewManager(engine))
}

func signalingEndpoints(h *PeerSignalingHandler) map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"offer": h.HandlePeerOffer,
		"ice":   h.HandleICECandidate,
	}
}

func TestPeerSignaling_MethodGuard(t *testing.T) {
	h := newSignalingHandler(t)
	for name, fn := range signalingEndpoints(h) {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			fn(w, httptest.NewRequest(http.MethodGet, "/", nil))
			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("GET status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
			}

			w = httptest.NewRecorder()
			fn(w, httptest.NewRequest(http.MethodOptions, "/", nil))
			if w.Code != http.StatusOK {
				t.Errorf("OPTIONS status = %d, want %d", w.Code, http.StatusOK)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("CORS origin = %q, want *", got)
			}
		})
	}
}

func TestPeerSignaling_RejectsBadPayloads(t *testing.T) {
	h := newSignalingHandler(t)
	for name, fn := range signalingEndpoints(h) {
		t.Run(name+" invalid json", func(t *testing.T) {
			w := httptest.NewRecorder()
			fn(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json")))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})

		t.Run(name+" invalid token", func(t *testing.T) {
			w := httptest.NewRecorder()
			fn(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"token":"garbage"}`)))
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestPeerSignaling_ICECandidateForGoneSession(t *testing.T) {
	// a valid token for a session with no peer connection is accepted and
	// the candidate silently dropped
	h := newSignalingHandler(t)
	token, err := auth.GenerateToken("gone")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	body := fmt.Sprintf(`{"token":%q,"candidate":"candidate:0"}`, token)
	w := httptest.NewRecorder()
	h.HandleICECandidate(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
