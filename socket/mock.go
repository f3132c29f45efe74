package socket

import (
	"fmt"
	"sync"
)

// MockSocket is an in-memory Socket used by tests and by platforms without
// a native raw-socket backend. Frames sent via Send are appended to Sent;
// frames queued via Enqueue are returned one at a time by
// Receive, mimicking a subscriber that would otherwise be delivered by the
// kernel.
type MockSocket struct {
	mu       sync.Mutex
	open     bool
	iface    string
	mac      string
	Sent     [][]byte
	inbound  [][]byte
	FailNext bool
}

// NewMockSocket returns a MockSocket that reports mac as its own address.
func NewMockSocket(mac string) *MockSocket {
	return &MockSocket{mac: mac}
}

func (m *MockSocket) Open(interfaceName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.iface = interfaceName
	m.open = true
	return nil
}

func (m *MockSocket) Send(frame []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return 0, fmt.Errorf("socket: send on unopened mock socket")
	}
	if m.FailNext {
		m.FailNext = false
		return 0, fmt.Errorf("socket: injected send failure")
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	m.Sent = append(m.Sent, cp)
	return len(frame), nil
}

// Enqueue makes frame available to the next Receive call.
func (m *MockSocket) Enqueue(frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbound = append(m.inbound, frame)
}

func (m *MockSocket) Receive() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inbound) == 0 {
		return nil, nil
	}
	frame := m.inbound[0]
	m.inbound = m.inbound[1:]
	return frame, nil
}

func (m *MockSocket) MACAddress() string { return m.mac }

func (m *MockSocket) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}
