// Package version carries build metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/sdkforge/sdkforge-cli/internal/version.Version=1.2.0"
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// UserAgent identifies the tool in outbound HTTP requests.
func UserAgent() string {
	return "SdkForge-CLI/" + Version
}

// Info renders the full multi-line version report.
func Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SdkForge CLI %s\n", Version)
	fmt.Fprintf(&b, "Commit: %s\n", Commit)
	fmt.Fprintf(&b, "Built: %s\n", BuildDate)
	fmt.Fprintf(&b, "Go: %s\n", runtime.Version())
	fmt.Fprintf(&b, "OS/Arch: %s/%s", runtime.GOOS, runtime.GOARCH)
	return b.String()
}
