package ratelimit

import "time"

// WindowLength is the fixed admission window.
const WindowLength = 60 * time.Second

const windowSeconds = int64(WindowLength / time.Second)

// WindowIndex returns floor(unix seconds / window length) for t.
func WindowIndex(t time.Time) int64 {
	sec := t.Unix()
	if sec < 0 {
		return (sec - windowSeconds + 1) / windowSeconds
	}
	return sec / windowSeconds
}
