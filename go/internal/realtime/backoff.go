package realtime

import "time"

// Backoff computes reconnect delays: Base doubled once per consecutive
// failure, capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before the reconnect that follows attempts
// earlier consecutive failures.
func (b Backoff) Delay(attempts int) time.Duration {
	d := b.Base
	for i := 0; i < attempts && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		return b.Max
	}
	return d
}
