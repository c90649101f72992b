package adapter

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	uuid "github.com/satori/go.uuid"
)

// WriteRecord captures one WriteCharacteristic call, for assertions in
// tests that exercise the session's command builders and heartbeat.
type WriteRecord struct {
	Characteristic uuid.UUID
	Data           []byte
}

// mockHandle is the concrete Handle type MockAdapter hands back from
// Connect; it carries nothing beyond identity.
type mockHandle struct{ id int }

// MockAdapter is an in-memory simulated peripheral used by the core's own
// tests (§8 scenario 8). Reads are served by per-characteristic callbacks
// so a test can model the machine's stateful behavior (e.g. the
// statistics-command poll-for-ready sequence); writes are recorded for
// later assertion.
type MockAdapter struct {
	mu sync.Mutex

	// ScanName/ScanAddress are returned by every Scan call.
	ScanName    string
	ScanAddress string

	// ManData is returned by ManufacturerData once Connect succeeds.
	ManData []byte

	// Reads maps a characteristic to a callback invoked on each
	// ReadCharacteristic call, so responses can vary across calls.
	Reads map[uuid.UUID]func() []byte

	writes       []WriteRecord
	onDisconnect DisconnectFunc
	connected    bool
	nextHandle   int
}

// NewMockAdapter returns an empty mock ready for test configuration.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{Reads: map[uuid.UUID]func() []byte{}}
}

func (m *MockAdapter) Scan(ctx context.Context, namePattern *regexp.Regexp) (string, string, error) {
	if m.ScanName == "" {
		return "", "", fmt.Errorf("mock: no scan result configured")
	}
	if namePattern != nil && !namePattern.MatchString(m.ScanName) {
		return "", "", fmt.Errorf("mock: scan name %q does not match pattern", m.ScanName)
	}
	return m.ScanName, m.ScanAddress, nil
}

func (m *MockAdapter) Connect(ctx context.Context, address string, onDisconnect DisconnectFunc) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHandle++
	m.connected = true
	m.onDisconnect = onDisconnect
	return mockHandle{id: m.nextHandle}, nil
}

func (m *MockAdapter) ReadCharacteristic(handle Handle, id uuid.UUID) ([]byte, error) {
	m.mu.Lock()
	fn := m.Reads[id]
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(), nil
}

func (m *MockAdapter) WriteCharacteristic(handle Handle, id uuid.UUID, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.writes = append(m.writes, WriteRecord{Characteristic: id, Data: cp})
	m.mu.Unlock()
	return nil
}

func (m *MockAdapter) Subscribe(handle Handle, id uuid.UUID, onNotify NotifyFunc) error {
	return nil
}

func (m *MockAdapter) ManufacturerData(handle Handle) []byte {
	return m.ManData
}

func (m *MockAdapter) Disconnect(handle Handle) {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
}

// Writes returns a snapshot of every WriteCharacteristic call observed so
// far, in order.
func (m *MockAdapter) Writes() []WriteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WriteRecord, len(m.writes))
	copy(out, m.writes)
	return out
}

// SimulateDisconnect invokes the registered disconnect callback as if the
// peripheral had dropped the connection on its own.
func (m *MockAdapter) SimulateDisconnect() {
	m.mu.Lock()
	cb := m.onDisconnect
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}
