package adapter

import "fmt"

// ErrScanCancelled is returned by Scan/Connect when the caller's context is
// cancelled before a peripheral matched.
var ErrScanCancelled = fmt.Errorf("adapter: scan cancelled")

// ErrNotConnected is returned by characteristic operations against a handle
// that is no longer connected (disconnected locally or by the peer).
var ErrNotConnected = fmt.Errorf("adapter: not connected")
