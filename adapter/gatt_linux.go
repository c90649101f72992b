//go:build linux

package adapter

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/op/go-logging"
	"github.com/paypal/gatt"
	uuid "github.com/satori/go.uuid"
)

var log = logging.MustGetLogger("adapter")

// DefaultGattOptions mirrors the teacher's pinned paypal/gatt stack: a
// plain Linux HCI device with no special advertising parameters, since
// this adapter only ever acts as a central (it never advertises).
var DefaultGattOptions = []gatt.Option{
	gatt.LnxDeviceID(-1, true),
}

type scanHit struct {
	peripheral gatt.Peripheral
	adv        *gatt.Advertisement
}

type connectResult struct {
	peripheral gatt.Peripheral
	err        error
}

// GattAdapter implements adapter.Adapter on top of github.com/paypal/gatt,
// the teacher's own pinned BLE central library (src/go.mod). Grounded on
// the per-OS BluetoothDriver split in krd/bluetooth_linux.go and
// agent/bluetooth_darwin.go: one concrete type per platform behind a
// narrow interface, built once and reused for the process lifetime.
type GattAdapter struct {
	device gatt.Device

	mu            sync.Mutex
	scanPattern   *regexp.Regexp
	scanResults   chan scanHit
	discovered    map[string]gatt.Peripheral
	connected     map[string]gatt.Peripheral
	chars         map[string]map[uuid.UUID]*gatt.Characteristic
	onDisconnect  map[string]DisconnectFunc
	connectWaiter chan connectResult
	manData       map[string][]byte
}

// NewGattAdapter opens the local Bluetooth HCI device and returns an
// Adapter backed by it. The device is shared across all Scan/Connect
// calls made through the returned adapter.
func NewGattAdapter() (*GattAdapter, error) {
	device, err := gatt.NewDevice(DefaultGattOptions...)
	if err != nil {
		return nil, fmt.Errorf("adapter: opening BLE device: %w", err)
	}

	a := &GattAdapter{
		device:        device,
		scanResults:   make(chan scanHit, 8),
		discovered:    map[string]gatt.Peripheral{},
		connected:     map[string]gatt.Peripheral{},
		chars:         map[string]map[uuid.UUID]*gatt.Characteristic{},
		onDisconnect:  map[string]DisconnectFunc{},
		connectWaiter: make(chan connectResult, 1),
		manData:       map[string][]byte{},
	}

	device.Handle(
		gatt.PeripheralDiscovered(a.onDiscovered),
		gatt.PeripheralConnected(a.onConnected),
		gatt.PeripheralDisconnected(a.onDisconnected),
	)

	if err := device.Init(a.onStateChanged); err != nil {
		return nil, fmt.Errorf("adapter: initializing BLE device: %w", err)
	}
	return a, nil
}

func (a *GattAdapter) onStateChanged(d gatt.Device, s gatt.State) {
	if s != gatt.StatePoweredOn {
		log.Warningf("adapter: BLE device state %s, scanning unavailable", s)
		return
	}
}

func (a *GattAdapter) onDiscovered(p gatt.Peripheral, adv *gatt.Advertisement, rssi int) {
	a.mu.Lock()
	pattern := a.scanPattern
	a.mu.Unlock()
	a.mu.Lock()
	a.manData[p.ID()] = adv.ManufacturerData
	a.discovered[p.ID()] = p
	a.mu.Unlock()
	if pattern == nil || !pattern.MatchString(adv.LocalName) {
		return
	}
	select {
	case a.scanResults <- scanHit{peripheral: p, adv: adv}:
	default:
	}
}

func (a *GattAdapter) onConnected(p gatt.Peripheral, err error) {
	select {
	case a.connectWaiter <- connectResult{peripheral: p, err: err}:
	default:
	}
}

func (a *GattAdapter) onDisconnected(p gatt.Peripheral, err error) {
	a.mu.Lock()
	cb := a.onDisconnect[p.ID()]
	delete(a.connected, p.ID())
	delete(a.chars, p.ID())
	delete(a.onDisconnect, p.ID())
	a.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Scan implements adapter.Adapter.
func (a *GattAdapter) Scan(ctx context.Context, namePattern *regexp.Regexp) (string, string, error) {
	a.mu.Lock()
	a.scanPattern = namePattern
	a.mu.Unlock()
	a.device.Scan(nil, false)
	defer a.device.StopScanning()

	select {
	case hit := <-a.scanResults:
		return hit.adv.LocalName, hit.peripheral.ID(), nil
	case <-ctx.Done():
		return "", "", ErrScanCancelled
	}
}

// Connect implements adapter.Adapter. It connects to the peripheral last
// seen advertising address (as returned by Scan), discovers the
// characteristics of every discovered service, and registers onDisconnect for later
// unsolicited-disconnect delivery.
func (a *GattAdapter) Connect(ctx context.Context, address string, onDisconnect DisconnectFunc) (Handle, error) {
	a.mu.Lock()
	target := a.discovered[address]
	a.mu.Unlock()
	if target == nil {
		return nil, fmt.Errorf("adapter: %s not discovered via Scan first", address)
	}

	a.device.Connect(target)
	select {
	case res := <-a.connectWaiter:
		if res.err != nil {
			return nil, fmt.Errorf("adapter: connect to %s: %w", address, res.err)
		}
		services, err := res.peripheral.DiscoverServices(nil)
		if err != nil {
			return nil, fmt.Errorf("adapter: discovering services on %s: %w", address, err)
		}
		if len(services) == 0 {
			return nil, fmt.Errorf("adapter: no services discovered on %s", address)
		}
		charMap := map[uuid.UUID]*gatt.Characteristic{}
		for _, svc := range services {
			chars, err := res.peripheral.DiscoverCharacteristics(nil, svc)
			if err != nil {
				continue
			}
			for _, c := range chars {
				id, parseErr := uuid.FromString(c.UUID().String())
				if parseErr == nil {
					charMap[id] = c
				}
			}
		}

		a.mu.Lock()
		a.connected[address] = res.peripheral
		a.chars[address] = charMap
		a.onDisconnect[address] = onDisconnect
		a.mu.Unlock()
		return address, nil
	case <-ctx.Done():
		return nil, ErrScanCancelled
	}
}

func (a *GattAdapter) lookup(handle Handle, id uuid.UUID) (gatt.Peripheral, *gatt.Characteristic, error) {
	address, ok := handle.(string)
	if !ok {
		return nil, nil, fmt.Errorf("adapter: invalid handle %v", handle)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.connected[address]
	if !ok {
		return nil, nil, ErrNotConnected
	}
	c, ok := a.chars[address][id]
	if !ok {
		return nil, nil, fmt.Errorf("adapter: characteristic %s not discovered on %s", id, address)
	}
	return p, c, nil
}

// ReadCharacteristic implements adapter.Adapter.
func (a *GattAdapter) ReadCharacteristic(handle Handle, id uuid.UUID) ([]byte, error) {
	p, c, err := a.lookup(handle, id)
	if err != nil {
		return nil, err
	}
	return p.ReadCharacteristic(c)
}

// WriteCharacteristic implements adapter.Adapter.
func (a *GattAdapter) WriteCharacteristic(handle Handle, id uuid.UUID, data []byte) error {
	p, c, err := a.lookup(handle, id)
	if err != nil {
		return err
	}
	return p.WriteCharacteristic(c, data, true)
}

// Subscribe implements adapter.Adapter.
func (a *GattAdapter) Subscribe(handle Handle, id uuid.UUID, onNotify NotifyFunc) error {
	p, c, err := a.lookup(handle, id)
	if err != nil {
		return err
	}
	return p.SetNotifyValue(c, func(_ *gatt.Characteristic, data []byte, err error) {
		if err != nil {
			log.Warningf("adapter: notification error on %s: %s", id, err)
			return
		}
		onNotify(id, data)
	})
}

// ManufacturerData implements adapter.Adapter.
func (a *GattAdapter) ManufacturerData(handle Handle) []byte {
	address, ok := handle.(string)
	if !ok {
		return nil
	}
	// paypal/gatt surfaces manufacturer data on the advertisement seen at
	// discovery time, not on the connected Peripheral, so onDiscovered
	// caches it per peripheral ID for retrieval here after Connect.
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.manData[address]
}

// Disconnect implements adapter.Adapter.
func (a *GattAdapter) Disconnect(handle Handle) {
	address, ok := handle.(string)
	if !ok {
		return
	}
	a.mu.Lock()
	p := a.connected[address]
	a.mu.Unlock()
	if p != nil {
		a.device.CancelConnection(p)
	}
}
