package bluefrog

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ToHex renders data as an uppercase hex string, matching the wire format
// used for product command codes and the default-coffee payload constant.
func ToHex(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// FromHex decodes a hex string, case-insensitively, into raw bytes.
func FromHex(s string) ([]byte, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bluefrog: invalid hex string %q: %w", s, err)
	}
	return data, nil
}
