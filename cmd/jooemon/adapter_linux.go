//go:build linux

package main

import "github.com/Jutta-Proto/bluefrog-ble/adapter"

func newPlatformAdapter() (adapter.Adapter, error) {
	return adapter.NewGattAdapter()
}
