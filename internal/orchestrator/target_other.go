//go:build !linux

package orchestrator

// linuxLibc is unreachable outside linux builds; HostTarget only calls
// it from its "linux" case.
func linuxLibc() string {
	return "gnu"
}
