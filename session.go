package bluefrog

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/Jutta-Proto/bluefrog-ble/adapter"
	"github.com/Jutta-Proto/bluefrog-ble/catalog"
	uuid "github.com/satori/go.uuid"
)

// SessionState is one of the four states the session protocol moves
// through (§3, §4.5). The zero value is StateDisconnected.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnecting:
		return "DISCONNECTING"
	default:
		return "UNKNOWN"
	}
}

// Session owns one BLE connection to a single machine: the state machine,
// the heartbeat task, and the statistics request flow (§4.5-§4.7). It is
// the long-lived, single-owner struct the driver constructs once per
// connection attempt, matching the teacher's own long-lived
// struct-plus-goroutine shape for its agent/daemon processes.
type Session struct {
	adapter  adapter.Adapter
	machines map[uint64]catalog.MachineEntry
	catalog  string
	timings  Timings
	events   *eventBus

	mu         sync.Mutex
	state      SessionState
	key        byte
	handle     adapter.Handle
	joe        *catalog.Joe
	lastAlerts []int

	heartbeatDone chan struct{}
	heartbeatWG   sync.WaitGroup
}

// NewSession builds a Session over adapter using machines (from
// catalog.LoadMachines) to resolve an article number into a Machine
// Description stored as XML files under catalogDir.
func NewSession(a adapter.Adapter, machines map[uint64]catalog.MachineEntry, catalogDir string, timings Timings) *Session {
	return &Session{
		adapter:  a,
		machines: machines,
		catalog:  catalogDir,
		timings:  timings,
		events:   newEventBus(),
	}
}

// Events returns the channel session events are published on.
func (s *Session) Events() <-chan Event {
	return s.events.Events()
}

func (s *Session) setState(next SessionState) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next {
		s.events.emit(Event{Kind: EventStateChanged, State: next})
	}
}

func (s *Session) getState() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) getKey() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

func (s *Session) getJoe() *catalog.Joe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joe
}

// Joe returns the currently resolved Machine Description, or nil before one
// has been loaded. The returned pointer is shared with the session, which
// updates its counter fields in place when a PRODUCT_COUNTERS statistics
// response arrives; callers must not mutate it.
func (s *Session) Joe() *catalog.Joe {
	return s.getJoe()
}

// write applies encodeWrite under the session's current key and performs
// the characteristic write, logging (not surfacing) transport failures per
// §7's "transport transient" rule.
func (s *Session) write(w write) {
	payload := encodeWrite(w, s.getKey())
	if err := s.adapter.WriteCharacteristic(s.handle, w.Characteristic, payload); err != nil {
		log.Warningf("write %s failed: %s", w.Characteristic, err)
	}
}

// Connect scans for a peripheral whose advertised name matches
// namePattern, connects, derives the session key from the manufacturer
// advertisement, resolves and emits the Machine Description, and starts
// the heartbeat task (§4.5).
func (s *Session) Connect(ctx context.Context, namePattern *regexp.Regexp) error {
	s.setState(StateConnecting)

	_, address, err := s.adapter.Scan(ctx, namePattern)
	if err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("%w: %s", ErrNoMatch, err)
	}

	handle, err := s.adapter.Connect(ctx, address, s.onPeerDisconnect)
	if err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("bluefrog: connect to %s: %w", address, err)
	}
	s.handle = handle

	manData := s.adapter.ManufacturerData(handle)
	if len(manData) == 0 {
		s.teardown()
		return fmt.Errorf("%w: empty manufacturer data", ErrSessionInvalid)
	}

	record, err := ParseManufacturerRecord(manData)
	if err != nil {
		s.teardown()
		return err
	}

	s.mu.Lock()
	s.key = record.Key
	s.mu.Unlock()
	s.events.emit(Event{Kind: EventManufacturerData, ManData: record})

	joe, err := s.resolveJoe(uint64(record.ArticleNumber))
	if err != nil {
		log.Errorf("resolving machine description: %s", err)
		s.teardown()
		return err
	}
	s.mu.Lock()
	s.joe = joe
	s.mu.Unlock()
	s.events.emit(Event{Kind: EventJoeChanged, Joe: joe})

	if err := s.adapter.Subscribe(handle, MachineStatus, s.onMachineStatus); err != nil {
		log.Warningf("subscribing to machine status: %s", err)
	}

	s.write(heartbeatWrite())

	if about, err := s.adapter.ReadCharacteristic(handle, About); err == nil {
		record := ParseAboutRecord(about)
		s.events.emit(Event{Kind: EventAbout, About: record})
	} else {
		log.Warningf("reading about characteristic: %s", err)
	}

	s.startHeartbeat()
	s.setState(StateConnected)
	return nil
}

func (s *Session) resolveJoe(articleNumber uint64) (*catalog.Joe, error) {
	entry, ok := s.machines[articleNumber]
	if !ok {
		return nil, fmt.Errorf("%w: article number %d", ErrCatalogMissing, articleNumber)
	}
	return catalog.LoadJoe(entry, s.catalog)
}

// onMachineStatus is the adapter.NotifyFunc registered for the
// Machine-Status characteristic; it decodes the alert bitfield and emits a
// change event only when the asserted set differs from before (§4.3).
func (s *Session) onMachineStatus(_ uuid.UUID, data []byte) {
	key := s.getKey()
	joe := s.getJoe()
	if joe == nil {
		// I4: no key/description yet published, nothing to decode against.
		return
	}
	bits, ok := DecodeAlerts(data, key)
	if !ok {
		log.Warningf("machine status frame failed key-echo check, dropping")
		return
	}

	s.mu.Lock()
	changed := !equalAlertSets(s.lastAlerts, bits)
	s.lastAlerts = bits
	s.mu.Unlock()
	if !changed {
		return
	}
	s.events.emit(Event{Kind: EventAlertsChanged, Alerts: bits})
}

func equalAlertSets(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Session) onPeerDisconnect() {
	state := s.getState()
	if state == StateConnecting || state == StateConnected {
		s.disconnectLocked()
	}
}

// Disconnect moves the session through DISCONNECTING to DISCONNECTED,
// writing the disconnect-hint command and joining the heartbeat task
// before publishing the terminal state (§4.5).
func (s *Session) Disconnect() {
	state := s.getState()
	if state != StateConnecting && state != StateConnected {
		return
	}
	s.disconnectLocked()
}

func (s *Session) disconnectLocked() {
	s.setState(StateDisconnecting)
	s.write(disconnectHintWrite())
	s.teardown()
}

func (s *Session) teardown() {
	s.stopHeartbeat()
	if s.handle != nil {
		s.adapter.Disconnect(s.handle)
	}
	s.setState(StateDisconnected)
}

// startHeartbeat launches the dedicated heartbeat task (§4.7): a ticker on
// its own goroutine, distinct from the caller-thread statistics poll.
func (s *Session) startHeartbeat() {
	s.heartbeatDone = make(chan struct{})
	s.heartbeatWG.Add(1)
	go recoverToLog(func() {
		defer s.heartbeatWG.Done()
		ticker := time.NewTicker(s.timings.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-s.heartbeatDone:
				return
			case <-ticker.C:
				state := s.getState()
				if state != StateConnected && state != StateConnecting {
					return
				}
				s.write(heartbeatWrite())
				if _, err := s.adapter.ReadCharacteristic(s.handle, MachineStatus); err != nil {
					log.Warningf("heartbeat machine-status read failed: %s", err)
				}
			}
		}
	})
}

func (s *Session) stopHeartbeat() {
	if s.heartbeatDone == nil {
		return
	}
	close(s.heartbeatDone)
	s.heartbeatWG.Wait()
	s.heartbeatDone = nil
}

// RequestStatistics drives the statistics request flow (§4.6): write the
// command, poll the Statistics-Command characteristic for the data-ready
// prefix up to timings.StatisticsPollCap times, then read and decode
// Statistics-Data, firing the matching per-category event.
func (s *Session) RequestStatistics(mode StatisticsMode) error {
	key := s.getKey()
	s.write(statisticsRequestWrite(mode))

	ready := false
	for attempt := 0; attempt < s.timings.StatisticsPollCap; attempt++ {
		time.Sleep(s.timings.StatisticsPoll)
		raw, err := s.adapter.ReadCharacteristic(s.handle, StatisticsCommand)
		if err != nil {
			log.Warningf("statistics command poll failed: %s", err)
			continue
		}
		if StatisticsReady(EncDec(raw, key)) {
			ready = true
			break
		}
	}
	if !ready {
		return ErrStatisticsTimeout
	}

	raw, err := s.adapter.ReadCharacteristic(s.handle, StatisticsData)
	if err != nil {
		return fmt.Errorf("bluefrog: reading statistics data: %w", err)
	}
	decoded := EncDec(raw, key)

	switch mode {
	case ProductCounters:
		total, byCode := DecodeProductCounters(decoded)
		s.applyProductCounters(total, byCode)
		s.events.emit(Event{Kind: EventProductCounters, Total: total, ByCode: byCode})
	case MaintenanceCounter:
		counters := DecodeMaintenanceCounters(decoded)
		s.events.emit(Event{Kind: EventMaintenanceCounters, Counters: counters})
	case MaintenancePercent:
		percents := DecodeMaintenancePercents(decoded)
		s.events.emit(Event{Kind: EventMaintenancePercents, Counters: percents})
	}
	return nil
}

// applyProductCounters folds a decoded PRODUCT_COUNTERS response into the
// session's current Joe: the total counter, the raw by-code map, and each
// Product's own Counter field (matched by its Code interpreted as a
// big-endian integer, per DecodeProductCounters' slot convention).
func (s *Session) applyProductCounters(total uint32, byCode map[uint32]uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.joe == nil {
		return
	}
	s.joe.TotalProducts = total
	s.joe.ProductCounters = make(map[string]uint32, len(byCode))
	for i := range s.joe.Products {
		p := &s.joe.Products[i]
		code, err := FromHex(p.Code)
		if err != nil {
			continue
		}
		var key uint32
		for _, b := range code {
			key = (key << 8) | uint32(b)
		}
		p.Counter = byCode[key]
		s.joe.ProductCounters[p.Code] = p.Counter
	}
}

// ProductChoice selects the item names (or raw values) for a product's
// optional enumerated settings and, where present, numeric amounts for its
// ranged settings. A nil *int for WaterAmount/MilkFoam leaves that option
// untouched on the machine.
type ProductChoice struct {
	Strength    string
	Temperature string
	WaterAmount *int
	MilkFoam    *int
}

// RequestProduct issues a parametrised Start-Product command for product,
// rendering choice's selections into the command buffer per §3/§4.4.
func (s *Session) RequestProduct(product catalog.Product, choice ProductChoice) error {
	optionHex, err := renderProductOptions(product, choice.Strength, choice.Temperature, choice.WaterAmount, choice.MilkFoam)
	if err != nil {
		return err
	}
	w, err := productWrite(product.Code, optionHex)
	if err != nil {
		return err
	}
	s.write(w)
	return nil
}

// RequestDefaultCoffee issues the unparameterised coffee request.
func (s *Session) RequestDefaultCoffee() error {
	w, err := defaultCoffeeWrite()
	if err != nil {
		return err
	}
	s.write(w)
	return nil
}

// LockUI and UnlockUI drive the Barista-Mode UI lock commands.
func (s *Session) LockUI() {
	s.write(lockUIWrite())
}

func (s *Session) UnlockUI() {
	s.write(unlockUIWrite())
}

// Shutdown issues the graceful power-down P-Mode command.
func (s *Session) Shutdown() {
	s.write(shutdownWrite())
}

// RequestProgress reads and decodes the Product-Progress characteristic,
// emitting the decoded bytes as an EventProductProgress. The decoded
// payload has no further structure in the wire format beyond the codec
// itself, so it is surfaced as-is.
func (s *Session) RequestProgress() error {
	raw, err := s.adapter.ReadCharacteristic(s.handle, ProductProgress)
	if err != nil {
		return fmt.Errorf("bluefrog: reading product progress: %w", err)
	}
	s.events.emit(Event{Kind: EventProductProgress, Raw: EncDec(raw, s.getKey())})
	return nil
}

// ReadRx reads and decodes the UART Rx characteristic.
func (s *Session) ReadRx() error {
	raw, err := s.adapter.ReadCharacteristic(s.handle, UARTRx)
	if err != nil {
		return fmt.Errorf("bluefrog: reading uart rx: %w", err)
	}
	s.events.emit(Event{Kind: EventRx, Raw: EncDec(raw, s.getKey())})
	return nil
}

// WriteTx writes raw bytes to the UART Tx characteristic, unencoded: the
// UART bridge is a debug pass-through, not a protocol command.
func (s *Session) WriteTx(data []byte) {
	s.write(write{Characteristic: UARTTx, Payload: data, Encode: false})
}
