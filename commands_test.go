package bluefrog

import (
	"bytes"
	"testing"

	"github.com/Jutta-Proto/bluefrog-ble/catalog"
)

func TestEncodeWriteSetsFirstByteToKey(t *testing.T) {
	w := heartbeatWrite()
	key := byte(0x5A)
	out := encodeWrite(w, key)

	decoded := EncDec(out, key)
	if decoded[0] != key {
		t.Fatalf("decoded[0] = %#02x, want key %#02x", decoded[0], key)
	}
	if !bytes.Equal(decoded[1:], []byte{0x7F, 0x80}) {
		t.Fatalf("decoded payload = %x, want 7F80", decoded[1:])
	}
}

func TestEncodeWriteOverridesLastByte(t *testing.T) {
	key := byte(0x11)
	w := statisticsRequestWrite(ProductCounters)
	out := encodeWrite(w, key)
	decoded := EncDec(out, key)
	if decoded[0] != key {
		t.Fatalf("decoded[0] = %#02x, want key", decoded[0])
	}
	if decoded[len(decoded)-1] != key {
		t.Fatalf("decoded last byte = %#02x, want key (override-key set)", decoded[len(decoded)-1])
	}
}

func TestEncodeWriteNoEncodePassesThrough(t *testing.T) {
	w := write{Payload: []byte{0xDE, 0xAD}, Encode: false}
	out := encodeWrite(w, 0x99)
	if !bytes.Equal(out, []byte{0xDE, 0xAD}) {
		t.Fatalf("expected raw passthrough, got %x", out)
	}
}

func TestStatisticsRequestWriteSelectsAllForProductCounters(t *testing.T) {
	w := statisticsRequestWrite(ProductCounters)
	if w.Payload[3] != 0xFF || w.Payload[4] != 0xFF {
		t.Fatalf("PRODUCT_COUNTERS request payload = %x, want x,y = FF,FF", w.Payload)
	}
}

func TestStatisticsRequestWriteOtherModes(t *testing.T) {
	w := statisticsRequestWrite(MaintenanceCounter)
	if w.Payload[3] != 0x01 || w.Payload[4] != 0x00 {
		t.Fatalf("MAINTENANCE_COUNTER request payload = %x, want x,y = 01,00", w.Payload)
	}
}

func TestDefaultCoffeeWriteDecodesTo16Bytes(t *testing.T) {
	w, err := defaultCoffeeWrite()
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Payload) != 16 {
		t.Fatalf("default coffee payload length = %d, want 16", len(w.Payload))
	}
}

func TestProductWriteSlotLayout(t *testing.T) {
	w, err := productWrite("2A", map[int]string{3: "FF"})
	if err != nil {
		t.Fatal(err)
	}
	// prepended 00 + 17 slots = 18 bytes
	if len(w.Payload) != 18 {
		t.Fatalf("product write payload length = %d, want 18", len(w.Payload))
	}
	if w.Payload[1] != 0x2A {
		t.Fatalf("slot 0 (product code) = %#02x, want 0x2A", w.Payload[1])
	}
	if w.Payload[3] != 0xFF {
		t.Fatalf("slot 2 (argument F3) = %#02x, want 0xFF", w.Payload[3])
	}
	if !w.OverrideKey {
		t.Fatal("product write must set OverrideKey per §4.4")
	}
}

func TestRenderProductOptionsItemsAndMinMax(t *testing.T) {
	product := catalog.Product{
		Code: "2A",
		Strength: &catalog.ItemsOption{
			Argument: "F2",
			Default:  "Normal",
			Items: []catalog.Item{
				{Name: "Mild", Value: "01"},
				{Name: "Normal", Value: "02"},
				{Name: "Strong", Value: "03"},
			},
		},
		WaterAmount: &catalog.MinMaxOption{Argument: "F5", Value: 100, Min: 50, Max: 200, Step: 10},
	}
	amount := 120
	slots, err := renderProductOptions(product, "Strong", "", &amount, nil)
	if err != nil {
		t.Fatal(err)
	}
	if slots[2] != "03" {
		t.Fatalf("slots[2] (strength) = %q, want %q", slots[2], "03")
	}
	if slots[5] != "0C" { // 120/10 = 12 = 0x0C
		t.Fatalf("slots[5] (water amount) = %q, want %q", slots[5], "0C")
	}
}

func TestRenderProductOptionsOutOfRange(t *testing.T) {
	product := catalog.Product{
		WaterAmount: &catalog.MinMaxOption{Argument: "F5", Min: 50, Max: 200, Step: 10},
	}
	amount := 500
	if _, err := renderProductOptions(product, "", "", &amount, nil); err == nil {
		t.Fatal("expected out-of-range error")
	}
}
