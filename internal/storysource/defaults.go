package storysource

import "time"

const (
	defaultTimeout      = 30 * time.Second
	defaultRetryWait    = 1 * time.Second
	defaultRetryMaxWait = 5 * time.Second
)
