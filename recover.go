package bluefrog

import (
	"fmt"
	"runtime/debug"
)

// recoverToLog runs f, logging and swallowing any panic instead of letting
// it take down the heartbeat goroutine (§5: the session's background task
// must not bring the process down on an unexpected failure).
func recoverToLog(f func()) {
	defer func() {
		if x := recover(); x != nil {
			log.Error(fmt.Sprintf("run time panic: %v", x))
			log.Error(string(debug.Stack()))
		}
	}()
	f()
}
