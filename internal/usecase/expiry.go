package usecase

import (
	"fmt"
	"time"
)

// ExpiryTimer is the advisory countdown shown next to the reset form.
// Nothing in the flow reads it to allow or deny a transition.
type ExpiryTimer struct {
	ExpiresAt time.Time
}

func (t ExpiryTimer) Remaining(now time.Time) time.Duration {
	d := t.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Format renders the remaining time as mm:ss, rounding partial seconds up
func (t ExpiryTimer) Format(now time.Time) string {
	d := t.Remaining(now)
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
