// Package gateway exposes the service over HTTP: a health probe and the
// persistent duplex connection clients hold for the lifetime of their runs.
package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/runbox-dev/runbox/internal/config"
	"github.com/runbox-dev/runbox/internal/session"
	"github.com/runbox-dev/runbox/protocol"
)

// RunService is the session manager as the gateway sees it.
type RunService interface {
	Start(ctx context.Context, conn session.Conn, msg protocol.ClientMessage)
	Stdin(conn session.Conn, runID, data string)
	Kill(conn session.Conn, runID string)
	Cancel(runID string)
}

type Server struct {
	apiKey   string
	runs     RunService
	logger   *slog.Logger
	mux      *http.ServeMux
	upgrader websocket.Upgrader
}

func NewServer(cfg *config.Config, runs RunService, logger *slog.Logger) *Server {
	s := &Server{
		apiKey: cfg.APIKey,
		runs:   runs,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("/v1/connect", s.handleConnect)
	s.mux = mux
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleConnect authenticates and upgrades, then serves the connection until
// the client goes away. Auth happens before the upgrade so rejected clients
// get a plain 401 instead of a broken websocket.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.logger.Info("client connected", "remote", r.RemoteAddr)
	s.serve(newConn(ws, s.logger))
}

func (s *Server) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}
	key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if key == "" || key == r.Header.Get("Authorization") {
		key = r.URL.Query().Get("api_key")
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) == 1
}

// serve is the connection's read loop: one goroutine decodes and dispatches
// every inbound frame in arrival order. A malformed frame costs an error
// reply, not the connection; when the loop ends, every run the connection
// still owns is cancelled.
func (s *Server) serve(conn *Conn) {
	defer func() {
		conn.markClosed()
		conn.ws.Close()
		owned := conn.ownedRuns()
		for _, runID := range owned {
			s.runs.Cancel(runID)
		}
		s.logger.Info("client disconnected", "cancelled_runs", len(owned))
	}()

	conn.ws.SetReadLimit(protocol.MaxFrameBytes)

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.Send(protocol.Error("malformed message"))
			continue
		}

		switch msg.Type {
		case protocol.ClientRun:
			s.runs.Start(context.Background(), conn, msg)
		case protocol.ClientStdin:
			s.runs.Stdin(conn, msg.RunID, msg.Data)
		case protocol.ClientKill:
			s.runs.Kill(conn, msg.RunID)
		default:
			conn.Send(protocol.Error(fmt.Sprintf("unknown message type: %q", msg.Type)))
		}
	}
}
