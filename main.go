package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snake-server/config"
	"snake-server/game"
	"snake-server/handlers"
	"snake-server/webrtc"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	engine, err := game.New(cfg)
	if err != nil {
		log.Fatalf("engine error: %v", err)
	}
	if err := engine.Start(); err != nil {
		log.Fatalf("engine start error: %v", err)
	}

	peerManager := webrtc.NewManager(engine)

	wsHandler := handlers.NewWebSocketHandler(engine)
	peerSignalingHandler := handlers.NewPeerSignalingHandler(peerManager)

	mux := http.NewServeMux()

	// WebSocket: join, input, snapshot stream
	mux.Handle("/ws", wsHandler)

	// Peer datachannel snapshot feed
	mux.HandleFunc("/webrtc/peer/offer", peerSignalingHandler.HandlePeerOffer)
	mux.HandleFunc("/webrtc/peer/ice", peerSignalingHandler.HandleICECandidate)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"tick":   engine.Tick(),
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		log.Printf("Server starting on port %s (grid %dx%d, tick %s, max sessions %d)",
			port, cfg.GridWidth, cfg.GridHeight, cfg.TickInterval, cfg.MaxSessions)
		log.Printf("WebSocket endpoint: /ws")
		log.Printf("Peer signaling endpoints: /webrtc/peer/offer, /webrtc/peer/ice")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Printf("shutdown signal received")
	case <-engine.Done():
		if err := engine.Err(); err != nil {
			log.Printf("engine failed: %v", err)
		}
	}

	engine.Stop()
	<-engine.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}
