package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	pion "github.com/pion/webrtc/v3"

	"snake-server/auth"
	"snake-server/webrtc"
)

// PeerSignalingHandler exchanges WebRTC session descriptions so a client
// can attach a datachannel snapshot feed to its existing session. Requests
// carry the session token issued at join.
type PeerSignalingHandler struct {
	peers *webrtc.Manager
}

type PeerOffer struct {
	Token string `json:"token"`
	Offer struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	} `json:"offer"`
}

type ICECandidate struct {
	Token         string  `json:"token"`
	Candidate     string  `json:"candidate"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
	SDPMid        *string `json:"sdpMid"`
}

func NewPeerSignalingHandler(peers *webrtc.Manager) *PeerSignalingHandler {
	return &PeerSignalingHandler{peers: peers}
}

// HandlePeerOffer answers a client offer with the server's local
// description for the session's snapshot feed.
func (h *PeerSignalingHandler) HandlePeerOffer(w http.ResponseWriter, r *http.Request) {
	h.enableCORS(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	var offer PeerOffer
	if err := json.Unmarshal(body, &offer); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	claims, err := auth.ValidateToken(offer.Token)
	if err != nil {
		http.Error(w, "Unauthorized: invalid session token", http.StatusUnauthorized)
		return
	}

	log.Printf("Peer offer for session %s", claims.SessionID)

	answer, err := h.peers.Answer(claims.SessionID, pion.SessionDescription{
		Type: pion.NewSDPType(offer.Offer.Type),
		SDP:  offer.Offer.SDP,
	})
	if err != nil {
		log.Printf("Peer answer failed for %s: %v", claims.SessionID, err)
		http.Error(w, "Failed to create answer", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"session_id": claims.SessionID,
		"answer": map[string]string{
			"type": answer.Type.String(),
			"sdp":  answer.SDP,
		},
	})
}

// HandleICECandidate feeds a trickled remote candidate into the session's
// peer connection.
func (h *PeerSignalingHandler) HandleICECandidate(w http.ResponseWriter, r *http.Request) {
	h.enableCORS(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	var candidate ICECandidate
	if err := json.Unmarshal(body, &candidate); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	claims, err := auth.ValidateToken(candidate.Token)
	if err != nil {
		http.Error(w, "Unauthorized: invalid session token", http.StatusUnauthorized)
		return
	}

	log.Printf("ICE candidate for session %s", claims.SessionID)

	if err := h.peers.AddICECandidate(claims.SessionID, pion.ICECandidateInit{
		Candidate:     candidate.Candidate,
		SDPMLineIndex: candidate.SDPMLineIndex,
		SDPMid:        candidate.SDPMid,
	}); err != nil {
		http.Error(w, "Failed to add candidate", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *PeerSignalingHandler) enableCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
