package bluefrog

import (
	uuid "github.com/satori/go.uuid"
)

// Characteristic and service identifiers, fixed for the lifetime of the
// process. Built once at package init from the textual identifiers in the
// wire format (§6); a lazy initialiser is acceptable per the design notes,
// but a package-level var block keeps them available without a first-call
// cost, matching the teacher's own package-level ble.MustParse pattern.
var (
	DefaultService = mustUUID("5a401523-ab2e-2548-c435-08c300000710")

	About              = mustUUID("5a401531-ab2e-2548-c435-08c300000710")
	MachineStatus      = mustUUID("5a401524-ab2e-2548-c435-08c300000710")
	BaristaMode        = mustUUID("5a401530-ab2e-2548-c435-08c300000710")
	ProductProgress    = mustUUID("5a401527-ab2e-2548-c435-08c300000710")
	PMode              = mustUUID("5a401529-ab2e-2548-c435-08c300000710")
	PModeRead          = mustUUID("5a401538-ab2e-2548-c435-08c300000710")
	StartProduct       = mustUUID("5a401525-ab2e-2548-c435-08c300000710")
	StatisticsCommand  = mustUUID("5a401533-ab2e-2548-c435-08c300000710")
	StatisticsData     = mustUUID("5a401534-ab2e-2548-c435-08c300000710")
	UpdateProduct      = mustUUID("5a401528-ab2e-2548-c435-08c300000710")

	UARTService = mustUUID("5a401623-ab2e-2548-c435-08c300000710")
	UARTTx      = mustUUID("5a401625-ab2e-2548-c435-08c300000710")
	UARTRx      = mustUUID("5a401624-ab2e-2548-c435-08c300000710")
)

func mustUUID(s string) uuid.UUID {
	u, err := uuid.FromString(s)
	if err != nil {
		// These are fixed, compile-time constants lifted straight from the
		// protocol's wire format; a parse failure here means the table
		// itself is broken, not bad input.
		panic("bluefrog: invalid characteristic uuid " + s + ": " + err.Error())
	}
	return u
}
