package session

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/runbox-dev/runbox/internal/launcher"
	"github.com/runbox-dev/runbox/protocol"
)

type MockLauncher struct {
	mock.Mock
}

func (m *MockLauncher) Launch(ctx context.Context, spec launcher.Spec) (Process, error) {
	args := m.Called(ctx, spec)
	if p := args.Get(0); p != nil {
		return p.(Process), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) RemoveByName(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

type MockWorkspace struct {
	mock.Mock
}

func (m *MockWorkspace) Resolve(user string) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func (m *MockWorkspace) EntryExists(dir, entry string) (bool, error) {
	args := m.Called(dir, entry)
	return args.Bool(0), args.Error(1)
}

// fakeConn records every frame the manager sends and mimics the gateway's
// drop-after-close behavior.
type fakeConn struct {
	mu   sync.Mutex
	open bool
	msgs []protocol.ServerMessage
	runs map[string]struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{open: true, runs: make(map[string]struct{})}
}

func (c *fakeConn) Send(msg protocol.ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return
	}
	c.msgs = append(c.msgs, msg)
}

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
}

func (c *fakeConn) AddRun(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[runID] = struct{}{}
}

func (c *fakeConn) RemoveRun(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.runs, runID)
}

func (c *fakeConn) runCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.runs)
}

func (c *fakeConn) messages() []protocol.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.ServerMessage(nil), c.msgs...)
}

func (c *fakeConn) byType(typ protocol.ServerType) []protocol.ServerMessage {
	var out []protocol.ServerMessage
	for _, msg := range c.messages() {
		if msg.Type == typ {
			out = append(out, msg)
		}
	}
	return out
}

type waitResult struct {
	code    int
	hasCode bool
}

// fakeProcess behaves like a spawned engine subprocess: the test drives its
// output pipes and decides when and how it dies.
type fakeProcess struct {
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	mu    sync.Mutex
	stdin bytes.Buffer

	waitCh   chan waitResult
	exitOnce sync.Once
}

func newFakeProcess() *fakeProcess {
	p := &fakeProcess{waitCh: make(chan waitResult, 1)}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *fakeProcess) Stdout() io.Reader { return p.stdoutR }
func (p *fakeProcess) Stderr() io.Reader { return p.stderrR }

func (p *fakeProcess) WriteStdin(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stdin.Write(data)
}

func (p *fakeProcess) CloseStdin() error { return nil }

func (p *fakeProcess) Wait() (int, bool) {
	res := <-p.waitCh
	return res.code, res.hasCode
}

// Kill dies on a signal: no exit code, pipes close.
func (p *fakeProcess) Kill() error {
	p.exit(0, false)
	return nil
}

func (p *fakeProcess) exit(code int, hasCode bool) {
	p.exitOnce.Do(func() {
		p.stdoutW.Close()
		p.stderrW.Close()
		p.waitCh <- waitResult{code: code, hasCode: hasCode}
	})
}

func (p *fakeProcess) stdinBytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.stdin.Bytes()...)
}
