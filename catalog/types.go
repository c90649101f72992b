// Package catalog loads the static machine/product/alert descriptions the
// core protocol looks up by article number — the preloaded XML and
// delimited-text catalogs described as out-of-scope collaborators in the
// spec, made concrete here as plain readers over local files.
package catalog

// MachineEntry is one row of the JOE_MACHINES.TXT catalog: an article
// number, a display name, the XML file stem describing its products and
// alerts, and a version byte.
type MachineEntry struct {
	ArticleNumber uint64
	Name          string
	FileStem      string
	Version       uint8
}

// Joe is the per-model machine description ("Joe"), loaded once an article
// number resolves against the catalog and replaced wholesale on reconnect.
type Joe struct {
	Dated   string
	Machine *MachineEntry

	Products []Product
	Alerts   []Alert

	MaintenanceCounterLabels []string
	MaintenancePercentLabels []string

	// TotalProducts and ProductCounters are populated by the session from
	// statistics responses, not by the loader.
	TotalProducts  uint32
	ProductCounters map[string]uint32
}

// Product is one entry under PRODUCTS/PRODUCT in a machine's XML file.
type Product struct {
	Name string
	// Code is the hex string command code; interpreted as a big-endian
	// integer it is the index into the product-counters statistics buffer.
	Code string

	Strength    *ItemsOption
	Temperature *ItemsOption
	WaterAmount *MinMaxOption
	MilkFoam    *MinMaxOption

	Counter uint32
}

// ItemsOption is an enumerated product option (strength, temperature).
// Argument has the form "F<n>": a 1-based byte index into the product
// command buffer that the chosen item's Value occupies.
type ItemsOption struct {
	Argument string
	Default  string
	Items    []Item
}

// Item is one enumerated choice of an ItemsOption.
type Item struct {
	Name  string
	Value string
}

// MinMaxOption is a ranged product option (water amount, milk foam amount),
// encoded as a single byte = Value/Step at the command slot Argument names.
type MinMaxOption struct {
	Argument string
	Value    int
	Min      int
	Max      int
	Step     int
}

// Alert is a named bit position in the decoded machine-status buffer.
type Alert struct {
	Bit  int
	Name string
	Type string
}
