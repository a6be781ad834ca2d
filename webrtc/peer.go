package webrtc

import (
	"log"
	"os"
	"strings"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/vmihailenco/msgpack/v5"

	"snake-server/game"
	"snake-server/models"
)

// PeerFeed is one session's datachannel snapshot feed: an alternative to
// the WebSocket stream carrying msgpack-encoded snapshots.
type PeerFeed struct {
	SessionID      string
	PeerConnection *webrtc.PeerConnection

	cancel func()
}

type Manager struct {
	engine *game.Engine
	peers  map[string]*PeerFeed
	mutex  sync.RWMutex
}

func NewManager(engine *game.Engine) *Manager {
	return &Manager{
		engine: engine,
		peers:  make(map[string]*PeerFeed),
	}
}

// Answer takes a remote offer for a session, wires a snapshot feed onto
// the peer's datachannel, and returns the local answer. The session must
// already exist; the caller authenticates it.
func (m *Manager) Answer(sessionID string, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	snapshots, cancel, err := m.engine.Subscribe(sessionID)
	if err != nil {
		return nil, err
	}

	peerConnection, err := webrtc.NewPeerConnection(m.getICEConfiguration())
	if err != nil {
		cancel()
		return nil, err
	}

	feed := &PeerFeed{
		SessionID:      sessionID,
		PeerConnection: peerConnection,
		cancel:         cancel,
	}

	peerConnection.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		log.Printf("ICE connection state for %s: %s", sessionID, state.String())
		if state == webrtc.ICEConnectionStateDisconnected || state == webrtc.ICEConnectionStateFailed {
			m.RemovePeer(sessionID)
		}
	})

	// the client opens the datachannel; pump snapshots once it is up
	peerConnection.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnOpen(func() {
			log.Printf("DataChannel %q opened for session %s", dc.Label(), sessionID)
			go feed.pump(dc, snapshots)
		})
		dc.OnClose(func() {
			log.Printf("DataChannel closed for session %s", sessionID)
			m.RemovePeer(sessionID)
		})
	})

	if err := peerConnection.SetRemoteDescription(offer); err != nil {
		m.closeFeed(feed)
		return nil, err
	}

	answer, err := peerConnection.CreateAnswer(nil)
	if err != nil {
		m.closeFeed(feed)
		return nil, err
	}

	// block until ICE gathering completes so the answer carries all
	// candidates and no trickle round-trips are needed
	gatherComplete := webrtc.GatheringCompletePromise(peerConnection)
	if err := peerConnection.SetLocalDescription(answer); err != nil {
		m.closeFeed(feed)
		return nil, err
	}
	<-gatherComplete

	m.mutex.Lock()
	if old, exists := m.peers[sessionID]; exists {
		m.closeFeed(old)
	}
	m.peers[sessionID] = feed
	m.mutex.Unlock()

	return peerConnection.LocalDescription(), nil
}

// pump detaches the subscription on every exit so the session's queue never
// outlives the feed.
func (f *PeerFeed) pump(dc *webrtc.DataChannel, snapshots <-chan models.Snapshot) {
	defer f.cancel()
	for snap := range snapshots {
		if dc.ReadyState() != webrtc.DataChannelStateOpen {
			return
		}
		payload, err := msgpack.Marshal(&snap)
		if err != nil {
			log.Printf("snapshot msgpack error for %s: %v", f.SessionID, err)
			continue
		}
		if err := dc.Send(payload); err != nil {
			log.Printf("DataChannel send error for %s: %v", f.SessionID, err)
			return
		}
	}
	// stream ended: session reaped or engine stopped
	dc.Close()
}

func (m *Manager) GetPeer(sessionID string) (*PeerFeed, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	feed, exists := m.peers[sessionID]
	return feed, exists
}

func (m *Manager) AddICECandidate(sessionID string, candidate webrtc.ICECandidateInit) error {
	feed, exists := m.GetPeer(sessionID)
	if !exists {
		return nil
	}
	return feed.PeerConnection.AddICECandidate(candidate)
}

func (m *Manager) RemovePeer(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if feed, exists := m.peers[sessionID]; exists {
		m.closeFeed(feed)
		delete(m.peers, sessionID)
	}
}

func (m *Manager) closeFeed(feed *PeerFeed) {
	feed.cancel()
	if feed.PeerConnection != nil {
		feed.PeerConnection.Close()
	}
}

// getICEConfiguration returns the ICE server list, overridable with the
// comma-separated SNAKE_STUN_URLS environment variable.
func (m *Manager) getICEConfiguration() webrtc.Configuration {
	urls := []string{"stun:stun.l.google.com:19302"}
	if raw := os.Getenv("SNAKE_STUN_URLS"); raw != "" {
		urls = strings.Split(raw, ",")
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: urls},
		},
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
	}
}
