package host

import (
	"context"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/sdkforge/sdkforge-cli/pkg/runner"
)

// HostInfo describes the machine the installer runs on. It is computed once
// per invocation and threaded through planning so every decision that depends
// on the host (download artifacts, emulator ABI defaults, virtualization
// warnings) reads from the same snapshot.
type HostInfo struct {
	OS             string `json:"os"`   // linux, darwin or windows
	Arch           string `json:"arch"` // x86_64 or arm64
	ABI            string `json:"abi"`  // emulator image ABI native to this host
	Virtualization bool   `json:"virtualization"`
	JavaVersion    string `json:"java_version,omitempty"`
}

// Detector probes the host environment
type Detector struct {
	runner  runner.Runner
	goos    string
	goarch  string
	kvmPath string
}

// NewDetector creates a detector for the current platform
func NewDetector(r runner.Runner) *Detector {
	return &Detector{
		runner:  r,
		goos:    runtime.GOOS,
		goarch:  runtime.GOARCH,
		kvmPath: "/dev/kvm",
	}
}

// Detect gathers host facts. Detection never fails: facts that cannot be
// determined are reported as absent (empty JavaVersion, Virtualization false)
// and it is the caller's job to decide whether that matters.
func (d *Detector) Detect(ctx context.Context) *HostInfo {
	info := &HostInfo{
		OS:   d.goos,
		Arch: normalizeArch(d.goarch),
	}
	info.ABI = NativeABI(info.Arch)
	info.Virtualization = d.virtualizationAvailable()
	info.JavaVersion = d.javaVersion(ctx)
	return info
}

// NativeABI maps a host architecture to the emulator image ABI that runs
// without translation on it.
func NativeABI(arch string) string {
	switch arch {
	case "x86_64":
		return "x86_64"
	case "arm64":
		return "arm64-v8a"
	case "x86":
		return "x86"
	default:
		return ""
	}
}

func normalizeArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "arm64"
	case "386":
		return "x86"
	default:
		return goarch
	}
}

// virtualizationAvailable reports whether hardware acceleration for the
// emulator is usable. Linux needs /dev/kvm, macOS ships the Hypervisor
// framework on every supported version, and on Windows detecting WHPX
// reliably requires querying the hypervisor so we stay conservative.
func (d *Detector) virtualizationAvailable() bool {
	switch d.goos {
	case "linux":
		_, err := os.Stat(d.kvmPath)
		return err == nil
	case "darwin":
		return true
	default:
		return false
	}
}

// javaVersion runs `java -version` and extracts the version token. The JVM
// prints its banner to stderr. A missing or broken java yields an empty
// string rather than an error; sdkmanager is the component that actually
// needs it and reports its own failure.
func (d *Detector) javaVersion(ctx context.Context) string {
	if d.runner == nil {
		return ""
	}

	res, err := d.runner.Run(ctx, runner.Command{
		Name:    "java",
		Args:    []string{"-version"},
		Timeout: 15 * time.Second,
	})
	if err != nil || res.ExitCode != 0 {
		return ""
	}

	return parseJavaVersion(res.Combined())
}

// parseJavaVersion pulls the quoted version out of a JVM banner line such as
// `openjdk version "17.0.9" 2023-10-17`. When no quoted token exists the
// trimmed first line is returned as-is.
func parseJavaVersion(banner string) string {
	lines := strings.Split(strings.TrimSpace(banner), "\n")
	if len(lines) == 0 {
		return ""
	}
	first := strings.TrimSpace(lines[0])

	if start := strings.Index(first, `"`); start >= 0 {
		rest := first[start+1:]
		if end := strings.Index(rest, `"`); end >= 0 {
			return rest[:end]
		}
	}
	return first
}
