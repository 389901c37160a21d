package gateway

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/runbox-dev/runbox/protocol"
)

// Conn wraps one client websocket and tracks the runs it owns. Frames from
// lifecycle and relay goroutines race with each other, so all writes go
// through a single mutex; once the connection is closed every Send becomes a
// silent drop.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
	runs   map[string]struct{}
}

func newConn(ws *websocket.Conn, logger *slog.Logger) *Conn {
	return &Conn{
		ws:     ws,
		logger: logger,
		runs:   make(map[string]struct{}),
	}
}

// Send delivers one frame to the client, best effort. A write failure marks
// the connection closed; the read loop notices and runs the teardown.
func (c *Conn) Send(msg protocol.ServerMessage) {
	if !c.IsOpen() {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(msg); err != nil {
		c.logger.Debug("write failed, closing connection", "error", err)
		c.markClosed()
	}
}

func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *Conn) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Conn) AddRun(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[runID] = struct{}{}
}

func (c *Conn) RemoveRun(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.runs, runID)
}

// ownedRuns snapshots the runs this connection still owns.
func (c *Conn) ownedRuns() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.runs))
	for runID := range c.runs {
		out = append(out, runID)
	}
	return out
}
