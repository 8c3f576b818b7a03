package orchestrator

import (
	"runtime"
)

// HostTarget derives this host's target triple deterministically from
// OS and architecture, detecting musl vs glibc on Linux from dynamic
// loader presence rather than trusting any environment hint.
func HostTarget() string {
	arch := goArchToTriple(runtime.GOARCH)

	switch runtime.GOOS {
	case "linux":
		return arch + "-unknown-linux-" + linuxLibc()
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		return arch + "-pc-windows-msvc"
	default:
		return arch + "-unknown-" + runtime.GOOS
	}
}

func goArchToTriple(arch string) string {
	switch arch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	case "arm":
		return "armv7"
	default:
		return arch
	}
}
