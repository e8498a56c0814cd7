//go:build !linux

package platform

import "time"

type systemClock struct {
	start time.Time
}

func newSystemClock() Clock {
	return systemClock{start: time.Now()}
}

func (c systemClock) NowMicros() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}
