package realtime

import "time"

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)
