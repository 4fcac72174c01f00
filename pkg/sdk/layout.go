package sdk

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Package identifiers understood by sdkmanager. These strings are a wire
// format shared with the external tool and must not drift.
const (
	PackagePlatformTools = "platform-tools"
	PackageEmulator      = "emulator"
	PackageCmdlineTools  = "cmdline-tools;latest"
)

// PlatformPackage returns the sdkmanager identifier for an API platform
func PlatformPackage(api int) string {
	return fmt.Sprintf("platforms;android-%d", api)
}

// BuildToolsPackage returns the sdkmanager identifier for a build-tools release
func BuildToolsPackage(version string) string {
	return fmt.Sprintf("build-tools;%s", version)
}

// SystemImagePackage returns the compound sdkmanager identifier for a system
// image, combining API level, variant tag and ABI.
func SystemImagePackage(api int, variant, abi string) string {
	return fmt.Sprintf("system-images;android-%d;%s;%s", api, variant, abi)
}

// NDKPackage returns the sdkmanager identifier for an NDK release, keyed by
// its canonical dotted version.
func NDKPackage(canonical string) string {
	return fmt.Sprintf("ndk;%s", canonical)
}

// Layout maps the conventional relative paths inside an SDK root. The
// relative paths are a wire format between this engine and the Android
// tools; they are fixed and never configurable.
type Layout struct {
	Root string

	windows bool
}

// NewLayout creates a layout rooted at root for the current platform
func NewLayout(root string) *Layout {
	return &Layout{Root: root, windows: runtime.GOOS == "windows"}
}

func (l *Layout) executable(name string) string {
	if l.windows {
		return name + ".exe"
	}
	return name
}

func (l *Layout) script(name string) string {
	if l.windows {
		return name + ".bat"
	}
	return name
}

// SdkManagerPath returns the path to the sdkmanager launcher
func (l *Layout) SdkManagerPath() string {
	return filepath.Join(l.Root, "cmdline-tools", "latest", "bin", l.script("sdkmanager"))
}

// AvdManagerPath returns the path to the avdmanager launcher
func (l *Layout) AvdManagerPath() string {
	return filepath.Join(l.Root, "cmdline-tools", "latest", "bin", l.script("avdmanager"))
}

// CmdlineToolsDir returns the installed command-line tools directory
func (l *Layout) CmdlineToolsDir() string {
	return filepath.Join(l.Root, "cmdline-tools", "latest")
}

// AdbPath returns the path to adb
func (l *Layout) AdbPath() string {
	return filepath.Join(l.Root, "platform-tools", l.executable("adb"))
}

// EmulatorPath returns the path to the emulator launcher
func (l *Layout) EmulatorPath() string {
	return filepath.Join(l.Root, "emulator", l.executable("emulator"))
}

// PlatformDir returns the directory of an installed API platform
func (l *Layout) PlatformDir(api int) string {
	return filepath.Join(l.Root, "platforms", fmt.Sprintf("android-%d", api))
}

// PlatformJar returns the android.jar of an API platform, its presence marker
func (l *Layout) PlatformJar(api int) string {
	return filepath.Join(l.PlatformDir(api), "android.jar")
}

// BuildToolsDir returns the directory of a build-tools release
func (l *Layout) BuildToolsDir(version string) string {
	return filepath.Join(l.Root, "build-tools", version)
}

// SystemImageDir returns the directory of a system image
func (l *Layout) SystemImageDir(api int, variant, abi string) string {
	return filepath.Join(l.Root, "system-images", fmt.Sprintf("android-%d", api), variant, abi)
}

// SystemImageFile returns the system.img of a system image, its presence marker
func (l *Layout) SystemImageFile(api int, variant, abi string) string {
	return filepath.Join(l.SystemImageDir(api, variant, abi), "system.img")
}

// NDKRoot returns the directory holding NDK versions
func (l *Layout) NDKRoot() string {
	return filepath.Join(l.Root, "ndk")
}

// NDKDir returns the directory of one NDK version (canonical or legacy label)
func (l *Layout) NDKDir(version string) string {
	return filepath.Join(l.NDKRoot(), version)
}

// LicensesDir returns the directory sdkmanager records accepted licenses in
func (l *Layout) LicensesDir() string {
	return filepath.Join(l.Root, "licenses")
}

// DownloadsDir returns the engine-owned scratch directory for downloaded
// archives; removed by the cleanup operation.
func (l *Layout) DownloadsDir() string {
	return filepath.Join(l.Root, ".downloads")
}

// TmpDir returns the engine-owned scratch directory for extractions in
// flight; removed by the cleanup operation.
func (l *Layout) TmpDir() string {
	return filepath.Join(l.Root, ".tmp")
}

// Presence predicates. Each component is judged present by one marker path;
// the filesystem itself is the state arena, there is no separate manifest.

// HasCmdlineTools reports whether the command-line tools are installed
func (l *Layout) HasCmdlineTools() bool {
	return fileExists(l.SdkManagerPath())
}

// HasPlatformTools reports whether platform-tools are installed
func (l *Layout) HasPlatformTools() bool {
	return fileExists(l.AdbPath())
}

// HasPlatform reports whether an API platform is installed
func (l *Layout) HasPlatform(api int) bool {
	return fileExists(l.PlatformJar(api))
}

// HasBuildTools reports whether a build-tools release is installed
func (l *Layout) HasBuildTools(version string) bool {
	return dirExists(l.BuildToolsDir(version))
}

// HasSystemImage reports whether a system image is installed
func (l *Layout) HasSystemImage(api int, variant, abi string) bool {
	return fileExists(l.SystemImageFile(api, variant, abi))
}

// HasEmulator reports whether the emulator is installed
func (l *Layout) HasEmulator() bool {
	return fileExists(l.EmulatorPath())
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func dirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}
