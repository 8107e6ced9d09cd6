//go:build !linux && !darwin && !windows

package logger

// isTerminal reports false on platforms without a termios probe, so output
// stays uncoloured.
func isTerminal(fd uintptr) bool {
	return false
}
