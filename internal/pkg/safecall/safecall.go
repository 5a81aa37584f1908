// Package safecall runs host-supplied callbacks without letting them crash the caller.
package safecall

import (
	"fmt"

	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
)

// Do runs fn and recovers any panic, logging it under name. It reports
// whether fn completed normally. A nil fn is a no-op.
func Do(log *logger.Logger, name string, fn func()) (ok bool) {
	if fn == nil {
		return true
	}

	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			log.WithFields(map[string]interface{}{
				"callback": name,
				"panic":    fmt.Sprint(rec),
			}).Warn("Callback failed")
		}
	}()

	fn()
	return true
}
