package bluefrog

import "fmt"

// Sentinel errors surfaced to callers. Transport-transient and frame errors
// are swallowed with logging (§7); these are the ones that cross the
// session boundary.
var (
	ErrSessionInvalid  = fmt.Errorf("bluefrog: session invalid")
	ErrNoMatch         = fmt.Errorf("bluefrog: no matching machine found")
	ErrNotConnected    = fmt.Errorf("bluefrog: not connected")
	ErrStatisticsTimeout = fmt.Errorf("bluefrog: statistics request timed out waiting for data-ready")
	ErrCatalogMissing  = fmt.Errorf("bluefrog: catalog missing or corrupt")
)
