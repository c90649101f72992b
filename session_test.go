package bluefrog

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/Jutta-Proto/bluefrog-ble/adapter"
	"github.com/Jutta-Proto/bluefrog-ble/catalog"
	uuid "github.com/satori/go.uuid"
)

const testJoeXML = `<JOE dated="2024-01-01">
  <PRODUCTS>
    <PRODUCT Name="Espresso" Code="01"/>
  </PRODUCTS>
  <ALERTS>
    <ALERT Bit="0" Name="Empty Water Tank" Type="Error"/>
  </ALERTS>
  <STATISTIC>
    <MAINTENANCEPAGE/>
  </STATISTIC>
</JOE>`

func writeTestCatalog(t *testing.T) (dir string, machines map[uint64]catalog.MachineEntry) {
	t.Helper()
	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "model_a.xml"), []byte(testJoeXML), 0o644); err != nil {
		t.Fatal(err)
	}
	entry := catalog.MachineEntry{ArticleNumber: 0x0010, Name: "Model A", FileStem: "model_a", Version: 1}
	return dir, map[uint64]catalog.MachineEntry{entry.ArticleNumber: entry}
}

func manufacturerData(key byte, articleNumber uint16) []byte {
	data := make([]byte, 16)
	data[0] = key
	data[4] = byte(articleNumber)
	data[5] = byte(articleNumber >> 8)
	return data
}

func fastTimings() Timings {
	return Timings{
		Heartbeat:         10 * time.Millisecond,
		StatisticsPoll:    5 * time.Millisecond,
		StatisticsPollCap: 5,
		ScanPoll:          5 * time.Millisecond,
	}
}

// TestSessionHappyPath exercises scenario 8: connect reaches CONNECTED with
// at least one heartbeat observed, a statistics request round-trips
// through the poll-for-ready sequence, and disconnect reaches DISCONNECTED.
func TestSessionHappyPath(t *testing.T) {
	dir, machines := writeTestCatalog(t)
	key := byte(0x10)

	mock := adapter.NewMockAdapter()
	mock.ScanName = "BlueFrog-1234"
	mock.ScanAddress = "AA:BB:CC:DD:EE:FF"
	mock.ManData = manufacturerData(key, 0x0010)
	mock.Reads = map[uuid.UUID]func() []byte{
		About: func() []byte { return make([]byte, 51) },
	}

	pollCount := 0
	mock.Reads[StatisticsCommand] = func() []byte {
		pollCount++
		decoded := []byte{0x01}
		if pollCount >= 2 {
			decoded = []byte{0x0E}
		}
		return EncDec(decoded, key)
	}
	mock.Reads[StatisticsData] = func() []byte {
		decoded := []byte{0x00, 0x00, 0x07}
		return EncDec(decoded, key)
	}

	session := NewSession(mock, machines, dir, fastTimings())

	var sawConnected bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range session.Events() {
			if ev.Kind == EventStateChanged && ev.State == StateConnected {
				sawConnected = true
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := session.Connect(ctx, regexp.MustCompile("^BlueFrog-")); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if session.getState() != StateConnected {
		t.Fatalf("state = %v, want CONNECTED", session.getState())
	}

	time.Sleep(30 * time.Millisecond) // let the heartbeat tick at least once

	if err := session.RequestStatistics(ProductCounters); err != nil {
		t.Fatalf("RequestStatistics: %v", err)
	}

	session.Disconnect()
	if session.getState() != StateDisconnected {
		t.Fatalf("state = %v, want DISCONNECTED", session.getState())
	}

	writes := mock.Writes()
	if len(writes) == 0 {
		t.Fatal("expected at least one characteristic write (heartbeat/command)")
	}
	if !sawConnected {
		t.Fatal("never observed a CONNECTED state-change event")
	}
}

// TestSessionRequestStatisticsUpdatesJoeCounters verifies that a
// ProductCounters response is folded back into the session's Joe, not just
// emitted as an event: the total and the matching product's own Counter
// field must both reflect the decoded buffer.
func TestSessionRequestStatisticsUpdatesJoeCounters(t *testing.T) {
	dir, machines := writeTestCatalog(t)
	key := byte(0x30)

	mock := adapter.NewMockAdapter()
	mock.ScanName = "BlueFrog-5555"
	mock.ScanAddress = "22:33:44:55:66:77"
	mock.ManData = manufacturerData(key, 0x0010)
	mock.Reads = map[uuid.UUID]func() []byte{
		About:             func() []byte { return make([]byte, 51) },
		StatisticsCommand: func() []byte { return EncDec([]byte{0x0E}, key) },
		StatisticsData: func() []byte {
			// slot 0 = total (42), slot 1 = product code 0x01's counter (7).
			return EncDec([]byte{0x00, 0x00, 42, 0x00, 0x00, 7}, key)
		},
	}

	session := NewSession(mock, machines, dir, fastTimings())
	go func() {
		for range session.Events() {
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := session.Connect(ctx, regexp.MustCompile("^BlueFrog-")); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := session.RequestStatistics(ProductCounters); err != nil {
		t.Fatalf("RequestStatistics: %v", err)
	}
	session.Disconnect()

	joe := session.getJoe()
	if joe == nil {
		t.Fatal("joe is nil after statistics response")
	}
	if joe.TotalProducts != 42 {
		t.Fatalf("TotalProducts = %d, want 42", joe.TotalProducts)
	}
	if len(joe.Products) != 1 || joe.Products[0].Counter != 7 {
		t.Fatalf("Products[0].Counter = %+v, want 7", joe.Products)
	}
	if joe.ProductCounters["01"] != 7 {
		t.Fatalf("ProductCounters[\"01\"] = %d, want 7", joe.ProductCounters["01"])
	}
}

// TestSessionRequestProgressAndRx exercises the Product-Progress and
// UART-Rx read paths: both decode with the session key and surface as
// their own event kind carrying the decoded bytes.
func TestSessionRequestProgressAndRx(t *testing.T) {
	dir, machines := writeTestCatalog(t)
	key := byte(0x40)

	mock := adapter.NewMockAdapter()
	mock.ScanName = "BlueFrog-7777"
	mock.ScanAddress = "33:44:55:66:77:88"
	mock.ManData = manufacturerData(key, 0x0010)
	mock.Reads = map[uuid.UUID]func() []byte{
		About:           func() []byte { return make([]byte, 51) },
		ProductProgress: func() []byte { return EncDec([]byte{0x01, 0x02}, key) },
		UARTRx:          func() []byte { return EncDec([]byte{0x03, 0x04}, key) },
	}

	session := NewSession(mock, machines, dir, fastTimings())
	events := make(chan Event, 8)
	go func() {
		for ev := range session.Events() {
			events <- ev
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := session.Connect(ctx, regexp.MustCompile("^BlueFrog-")); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := session.RequestProgress(); err != nil {
		t.Fatalf("RequestProgress: %v", err)
	}
	if err := session.ReadRx(); err != nil {
		t.Fatalf("ReadRx: %v", err)
	}

	var sawProgress, sawRx bool
	deadline := time.After(time.Second)
	for !sawProgress || !sawRx {
		select {
		case ev := <-events:
			switch ev.Kind {
			case EventProductProgress:
				if string(ev.Raw) != string([]byte{0x01, 0x02}) {
					t.Fatalf("progress Raw = %v, want [1 2]", ev.Raw)
				}
				sawProgress = true
			case EventRx:
				if string(ev.Raw) != string([]byte{0x03, 0x04}) {
					t.Fatalf("rx Raw = %v, want [3 4]", ev.Raw)
				}
				sawRx = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for progress/rx events")
		}
	}
	session.Disconnect()
}

func TestSessionConnectNoMatch(t *testing.T) {
	_, machines := writeTestCatalog(t)
	mock := adapter.NewMockAdapter() // no ScanName configured
	session := NewSession(mock, machines, "", fastTimings())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := session.Connect(ctx, regexp.MustCompile(".*")); err == nil {
		t.Fatal("expected error when scan has no match")
	}
	if session.getState() != StateDisconnected {
		t.Fatalf("state = %v, want DISCONNECTED after failed connect", session.getState())
	}
}

func TestSessionConnectEmptyManufacturerData(t *testing.T) {
	_, machines := writeTestCatalog(t)
	mock := adapter.NewMockAdapter()
	mock.ScanName = "BlueFrog-0000"
	mock.ScanAddress = "00:00:00:00:00:00"
	// ManData left nil.

	session := NewSession(mock, machines, "", fastTimings())
	go func() {
		for range session.Events() {
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := session.Connect(ctx, regexp.MustCompile("^BlueFrog-")); err == nil {
		t.Fatal("expected error for empty manufacturer data")
	}
}

func TestSessionStatisticsTimeout(t *testing.T) {
	dir, machines := writeTestCatalog(t)
	key := byte(0x20)

	mock := adapter.NewMockAdapter()
	mock.ScanName = "BlueFrog-9999"
	mock.ScanAddress = "11:22:33:44:55:66"
	mock.ManData = manufacturerData(key, 0x0010)
	mock.Reads = map[uuid.UUID]func() []byte{
		About:             func() []byte { return make([]byte, 51) },
		StatisticsCommand: func() []byte { return EncDec([]byte{0x01}, key) }, // never ready
	}

	session := NewSession(mock, machines, dir, fastTimings())
	go func() {
		for range session.Events() {
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := session.Connect(ctx, regexp.MustCompile("^BlueFrog-")); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := session.RequestStatistics(MaintenanceCounter); err != ErrStatisticsTimeout {
		t.Fatalf("RequestStatistics error = %v, want ErrStatisticsTimeout", err)
	}
	session.Disconnect()
}
