package bluefrog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Jutta-Proto/bluefrog-ble/catalog"
	uuid "github.com/satori/go.uuid"
)

// defaultCoffeeHex is the Start-Product payload for an unparameterised
// coffee request. Two byte variants exist in the original source; this is
// the one actually executed by the live request path (§9 open question).
const defaultCoffeeHex = "00030004280000020001000000000000"

// write describes one outbound characteristic write, built by the command
// constructors below and applied by encodeWrite.
type write struct {
	Characteristic uuid.UUID
	Payload        []byte
	Encode         bool
	OverrideKey    bool
}

// encodeWrite is the "write" primitive (§4.4): when Encode, payload[0] is
// set to key before obfuscation; when OverrideKey, payload's last byte is
// also set to key. The returned bytes are what the caller writes to
// w.Characteristic.
func encodeWrite(w write, key byte) []byte {
	if !w.Encode {
		return w.Payload
	}
	payload := make([]byte, len(w.Payload))
	copy(payload, w.Payload)
	payload[0] = key
	if w.OverrideKey && len(payload) > 0 {
		payload[len(payload)-1] = key
	}
	return EncDec(payload, key)
}

// heartbeatWrite builds the "stay in BLE" P-Mode command.
func heartbeatWrite() write {
	return write{Characteristic: PMode, Payload: []byte{0x00, 0x7F, 0x80}, Encode: true}
}

// shutdownWrite builds the graceful-shutdown P-Mode command.
func shutdownWrite() write {
	return write{Characteristic: PMode, Payload: []byte{0x00, 0x46, 0x02}, Encode: true}
}

// disconnectHintWrite builds the session disconnect-hint P-Mode command.
func disconnectHintWrite() write {
	return write{Characteristic: PMode, Payload: []byte{0x00, 0x7F, 0x81}, Encode: true}
}

// lockUIWrite builds the Barista-Mode "lock UI" command.
func lockUIWrite() write {
	return write{Characteristic: BaristaMode, Payload: []byte{0x00, 0x01}, Encode: true}
}

// unlockUIWrite builds the Barista-Mode "unlock UI" command.
func unlockUIWrite() write {
	return write{Characteristic: BaristaMode, Payload: []byte{0x00, 0x00}, Encode: true}
}

// defaultCoffeeWrite builds the unparameterised Start-Product command.
func defaultCoffeeWrite() (write, error) {
	payload, err := FromHex(defaultCoffeeHex)
	if err != nil {
		return write{}, err
	}
	return write{Characteristic: StartProduct, Payload: payload, Encode: true}, nil
}

// productWrite builds the parametrised Start-Product command for a single
// product pick (§3, §4.4): a 17-slot buffer of "00" bytes, slot 0 set to
// the product's code, then each present option rendered at slot (n-1)
// where n is the 1-based byte index named by its "F<n>" argument.
func productWrite(code string, optionHex map[int]string) (write, error) {
	slots := make([]string, 17)
	for i := range slots {
		slots[i] = "00"
	}
	if code != "" {
		slots[0] = code
	}
	for n, hex := range optionHex {
		if n < 1 || n > len(slots) {
			continue
		}
		slots[n-1] = hex
	}

	joined := "00"
	for _, s := range slots {
		joined += s
	}
	payload, err := FromHex(joined)
	if err != nil {
		return write{}, err
	}
	return write{Characteristic: StartProduct, Payload: payload, Encode: true, OverrideKey: true}, nil
}

// argumentSlot parses an "F<n>" option argument into its 1-based slot
// index n (§3). A malformed argument is reported, not guessed at.
func argumentSlot(argument string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(argument, "F"))
	if err != nil {
		return 0, fmt.Errorf("bluefrog: malformed option argument %q: %w", argument, err)
	}
	return n, nil
}

// renderProductOptions builds the slot->hex map productWrite expects from a
// catalog product's selected items/values. A nil selection for an optional
// field falls back to the option's Default (for ItemsOption) or is skipped
// entirely (for MinMaxOption, where the machine already has a resting
// value).
func renderProductOptions(p catalog.Product, strengthItem, temperatureItem string, waterAmount, milkFoam *int) (map[int]string, error) {
	slots := map[int]string{}

	addItems := func(opt *catalog.ItemsOption, chosen string) error {
		if opt == nil {
			return nil
		}
		n, err := argumentSlot(opt.Argument)
		if err != nil {
			return err
		}
		value := chosen
		if value == "" {
			value = opt.Default
		}
		for _, item := range opt.Items {
			if item.Name == value || item.Value == value {
				slots[n] = item.Value
				return nil
			}
		}
		return fmt.Errorf("bluefrog: %q is not a valid item for option %s", value, opt.Argument)
	}

	addMinMax := func(opt *catalog.MinMaxOption, chosen *int) error {
		if opt == nil || chosen == nil {
			return nil
		}
		n, err := argumentSlot(opt.Argument)
		if err != nil {
			return err
		}
		v := *chosen
		if v < opt.Min || v > opt.Max {
			return fmt.Errorf("bluefrog: value %d out of range [%d,%d] for option %s", v, opt.Min, opt.Max, opt.Argument)
		}
		step := opt.Step
		if step == 0 {
			step = 1
		}
		slots[n] = ToHex([]byte{byte(v / step)})
		return nil
	}

	if err := addItems(p.Strength, strengthItem); err != nil {
		return nil, err
	}
	if err := addItems(p.Temperature, temperatureItem); err != nil {
		return nil, err
	}
	if err := addMinMax(p.WaterAmount, waterAmount); err != nil {
		return nil, err
	}
	if err := addMinMax(p.MilkFoam, milkFoam); err != nil {
		return nil, err
	}
	return slots, nil
}

// statisticsRequestWrite builds the Statistics-Command request payload for
// mode. PRODUCT_COUNTERS selects all counters (x,y = 0xFF,0xFF); the other
// modes use (0x01, 0x00) per §4.4.
func statisticsRequestWrite(mode StatisticsMode) write {
	x, y := byte(0x01), byte(0x00)
	if mode == ProductCounters {
		x, y = 0xFF, 0xFF
	}
	return write{
		Characteristic: StatisticsCommand,
		Payload:        []byte{0x00, byte(mode >> 8), byte(mode), x, y},
		Encode:         true,
		OverrideKey:    true,
	}
}
