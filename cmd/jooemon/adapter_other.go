//go:build !linux

package main

import (
	"fmt"

	"github.com/Jutta-Proto/bluefrog-ble/adapter"
)

func newPlatformAdapter() (adapter.Adapter, error) {
	return nil, fmt.Errorf("jooemon: no BLE adapter implementation for this platform")
}
