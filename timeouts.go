package bluefrog

import (
	"time"
)

// Timings collects the tunable cadences the session protocol depends on:
// the heartbeat interval, and the statistics poll interval/cap. Defaults
// match the protocol contract in §4.6/§4.7 exactly; implementers may
// parameterize but must default to these.
type Timings struct {
	Heartbeat          time.Duration
	StatisticsPoll     time.Duration
	StatisticsPollCap  int
	ScanPoll           time.Duration
}

// DefaultTimings returns the protocol's default cadences.
func DefaultTimings() Timings {
	return Timings{
		Heartbeat:         1 * time.Second,
		StatisticsPoll:    500 * time.Millisecond,
		StatisticsPollCap: 20,
		ScanPoll:          500 * time.Millisecond,
	}
}
