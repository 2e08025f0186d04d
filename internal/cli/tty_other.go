//go:build !linux

package cli

// isTerminal reports false off Linux; the repl then reads plain lines.
func isTerminal(uintptr) bool {
	return false
}
