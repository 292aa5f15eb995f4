package timing

import "time"

// Clock supplies wall and process CPU time.
type Clock interface {
	// Wall returns the current wall clock time.
	Wall() time.Time
	// CPU returns the CPU time consumed by the process so far.
	CPU() time.Duration
}

// SystemClock reads the real wall clock and the process CPU usage.
type SystemClock struct{}

// Wall returns time.Now, which carries a monotonic reading.
func (SystemClock) Wall() time.Time {
	return time.Now()
}

// CPU returns user plus system time of the process.
func (SystemClock) CPU() time.Duration {
	return processCPU()
}
