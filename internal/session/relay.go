package session

import (
	"io"

	"github.com/runbox-dev/runbox/protocol"
)

// relayBufSize is the chunk size for guest output. Chunk boundaries are not
// meaningful to clients; per-stream ordering is.
const relayBufSize = 4096

// relay pumps one guest output stream to the owning connection as typed
// frames. One goroutine per stream keeps each stream's chunks in order; the
// connection serializes writes across streams.
func (m *Manager) relay(s *Session, r io.Reader, typ protocol.ServerType) {
	defer s.relayWG.Done()

	buf := make([]byte, relayBufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 && s.Conn.IsOpen() {
			switch typ {
			case protocol.ServerStdout:
				s.Conn.Send(protocol.Stdout(s.RunID, string(buf[:n])))
			case protocol.ServerStderr:
				s.Conn.Send(protocol.Stderr(s.RunID, string(buf[:n])))
			}
		}
		if err != nil {
			return
		}
	}
}
