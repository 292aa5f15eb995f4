//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package timing

import "time"

// processCPU is unavailable on this platform; CPU statistics read as zero.
func processCPU() time.Duration {
	return 0
}
