package sdk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/pkg/fetch"
	"github.com/sdkforge/sdkforge-cli/pkg/runner"
	"github.com/sdkforge/sdkforge-cli/pkg/utils"
)

// cmdlineToolsBuild is the build number in the command-line tools bootstrap
// archive name. Only used when sdkmanager itself is absent; every other
// component is installed through sdkmanager.
const cmdlineToolsBuild = "11076708"

// maxLicensePrompts bounds how many affirmative answers are piped into
// `sdkmanager --licenses`.
const maxLicensePrompts = 64

// Logger is the logging capability the manager consumes
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// Manager performs idempotent "ensure present" operations for SDK
// components, one sdkmanager invocation per logical component. Every ensure
// follows the same pattern: presence check, tool invocation, re-check.
type Manager struct {
	layout     *Layout
	runner     runner.Runner
	logger     Logger
	downloader *fetch.Downloader

	hostOS         string
	baseURL        string
	installTimeout time.Duration
	commandTimeout time.Duration
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithBaseURL overrides the repository URL, for mirrors and tests
func WithBaseURL(url string) ManagerOption {
	return func(m *Manager) { m.baseURL = strings.TrimRight(url, "/") }
}

// WithTimeouts sets the install (large download) and command (metadata)
// timeout tiers.
func WithTimeouts(install, command time.Duration) ManagerOption {
	return func(m *Manager) {
		if install > 0 {
			m.installTimeout = install
		}
		if command > 0 {
			m.commandTimeout = command
		}
	}
}

// WithHostOS overrides the detected host OS token, for tests
func WithHostOS(goos string) ManagerOption {
	return func(m *Manager) { m.hostOS = goos }
}

// WithDownloader replaces the bootstrap downloader, for tests
func WithDownloader(d *fetch.Downloader) ManagerOption {
	return func(m *Manager) { m.downloader = d }
}

// NewManager creates a component manager over the given layout. A nil logger
// disables logging.
func NewManager(layout *Layout, r runner.Runner, logger Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	m := &Manager{
		layout:         layout,
		runner:         r,
		logger:         logger,
		hostOS:         "linux",
		baseURL:        "https://dl.google.com/android/repository",
		installTimeout: 30 * time.Minute,
		commandTimeout: 90 * time.Second,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.downloader == nil {
		m.downloader = fetch.NewDownloader(logger)
	}
	return m
}

// Layout exposes the layout the manager operates on
func (m *Manager) Layout() *Layout {
	return m.layout
}

// EnsurePlatformTools installs platform-tools (adb) if absent
func (m *Manager) EnsurePlatformTools(ctx context.Context) error {
	return m.ensureComponent(ctx, "platform-tools", PackagePlatformTools, m.layout.HasPlatformTools)
}

// EnsurePlatform installs the android-<api> platform if absent
func (m *Manager) EnsurePlatform(ctx context.Context, api int) error {
	return m.ensureComponent(ctx, fmt.Sprintf("platform android-%d", api), PlatformPackage(api),
		func() bool { return m.layout.HasPlatform(api) })
}

// EnsureBuildTools installs a build-tools release if absent
func (m *Manager) EnsureBuildTools(ctx context.Context, version string) error {
	return m.ensureComponent(ctx, fmt.Sprintf("build-tools %s", version), BuildToolsPackage(version),
		func() bool { return m.layout.HasBuildTools(version) })
}

// EnsureSystemImage installs a system image if absent
func (m *Manager) EnsureSystemImage(ctx context.Context, api int, variant, abi string) error {
	return m.ensureComponent(ctx, fmt.Sprintf("system image android-%d/%s/%s", api, variant, abi),
		SystemImagePackage(api, variant, abi),
		func() bool { return m.layout.HasSystemImage(api, variant, abi) })
}

// EnsureEmulator installs the emulator if absent
func (m *Manager) EnsureEmulator(ctx context.Context) error {
	return m.ensureComponent(ctx, "emulator", PackageEmulator, m.layout.HasEmulator)
}

// ensureComponent is the idempotent pattern every component install follows:
// presence check, sdkmanager invocation with the component's package
// identifier, presence re-check. The re-check distinguishes "tool reported
// success but produced nothing" from "tool failed".
func (m *Manager) ensureComponent(ctx context.Context, displayName, pkg string, present func() bool) error {
	if present() {
		m.logger.Debug("%s already installed, skipping", displayName)
		return nil
	}

	m.logger.Info("Installing %s (%s)", displayName, pkg)

	if err := m.InstallPackage(ctx, pkg); err != nil {
		return err
	}

	if !present() {
		return sdkerrors.NewComponentNotFoundError("COMPONENT_MISSING_AFTER_INSTALL",
			fmt.Sprintf("sdkmanager reported success for %s but the component is not on disk", pkg)).
			WithDetail("package", pkg).
			WithDetail("sdk_root", m.layout.Root)
	}
	return nil
}

// InstallPackage invokes sdkmanager for one package identifier. A non-zero
// exit is fatal unless the captured error stream matches the benign-warning
// predicate.
func (m *Manager) InstallPackage(ctx context.Context, pkg string) error {
	if !m.layout.HasCmdlineTools() {
		return sdkerrors.NewDependencyError("SDKMANAGER_MISSING",
			"sdkmanager is not installed; the command-line tools component must be ensured first").
			WithDetail("expected_path", m.layout.SdkManagerPath())
	}

	res, err := m.runner.Run(ctx, runner.Command{
		Name:    m.layout.SdkManagerPath(),
		Args:    []string{"--sdk_root=" + m.layout.Root, pkg},
		Timeout: m.installTimeout,
	})
	if err != nil {
		return err
	}

	if res.ExitCode != 0 {
		if isBenignSdkManagerFailure(res.Stderr) {
			m.logger.Warn("sdkmanager exited %d with warnings only, tolerating: %s",
				res.ExitCode, strings.TrimSpace(res.Stderr))
			return nil
		}
		return sdkerrors.NewExternalToolError("SDKMANAGER_FAILED",
			fmt.Sprintf("sdkmanager exited %d installing %s", res.ExitCode, pkg)).
			WithDetail("package", pkg).
			WithDetail("exit_code", fmt.Sprintf("%d", res.ExitCode)).
			WithDetail("stderr", truncateOutput(res.Stderr))
	}
	return nil
}

// isBenignSdkManagerFailure reports whether a non-zero sdkmanager exit can be
// tolerated. sdkmanager exposes no structured status; the only signal is its
// error stream, and releases regularly exit non-zero after printing nothing
// but warnings. The predicate is deliberately narrow: every non-blank stderr
// line must carry the Warning: prefix.
func isBenignSdkManagerFailure(stderr string) bool {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return false
	}
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "Warning:") {
			return false
		}
	}
	return true
}

// AcceptLicenses pipes a bounded number of affirmative answers into
// sdkmanager's interactive license prompt. Failures are tolerated with a
// warning: the licenses may already be accepted, and a hard failure here
// would block installs that might succeed anyway.
func (m *Manager) AcceptLicenses(ctx context.Context) error {
	if !m.layout.HasCmdlineTools() {
		m.logger.Warn("Cannot accept licenses, sdkmanager is not installed")
		return nil
	}

	m.logger.Info("Accepting SDK licenses")

	res, err := m.runner.Run(ctx, runner.Command{
		Name:    m.layout.SdkManagerPath(),
		Args:    []string{"--sdk_root=" + m.layout.Root, "--licenses"},
		Stdin:   strings.Repeat("y\n", maxLicensePrompts),
		Timeout: m.commandTimeout,
	})
	if err != nil {
		m.logger.Warn("License acceptance failed, continuing: %v", err)
		return nil
	}
	if res.ExitCode != 0 {
		m.logger.Warn("License acceptance exited %d, assuming licenses are already accepted", res.ExitCode)
	}
	return nil
}

// EnsureCmdlineTools makes the command-line tools (and with them sdkmanager)
// available. This is the one component that cannot be installed through
// sdkmanager on an empty root, so it bootstraps by direct download.
func (m *Manager) EnsureCmdlineTools(ctx context.Context) error {
	if m.layout.HasCmdlineTools() {
		m.logger.Debug("command-line tools already installed, skipping")
		return nil
	}

	m.logger.Info("Bootstrapping command-line tools")

	archive := filepath.Join(m.layout.DownloadsDir(), m.cmdlineToolsArchiveName())
	if _, err := m.downloader.Download(ctx, fetch.Request{
		URL:         m.baseURL + "/" + m.cmdlineToolsArchiveName(),
		Dest:        archive,
		Timeout:     m.installTimeout,
		Description: "cmdline-tools",
	}); err != nil {
		return err
	}

	staging := filepath.Join(m.layout.TmpDir(), "cmdline-tools-latest")
	if err := os.RemoveAll(staging); err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypeState, "STAGING_NOT_CLEARABLE",
			"cannot clear extraction staging directory").WithDetail("path", staging)
	}
	if err := fetch.ExtractArchive(archive, staging); err != nil {
		return err
	}

	target := m.layout.CmdlineToolsDir()
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypePermission, "ROOT_NOT_WRITABLE",
			"cannot create cmdline-tools directory").WithDetail("path", filepath.Dir(target))
	}
	if err := os.RemoveAll(target); err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypeState, "TARGET_NOT_CLEARABLE",
			"cannot replace existing cmdline-tools installation").WithDetail("path", target)
	}
	if err := os.Rename(staging, target); err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypeUnpack, "CMDLINE_TOOLS_PLACE",
			"cannot move command-line tools into place").WithDetail("path", target)
	}

	if !m.layout.HasCmdlineTools() {
		return sdkerrors.NewComponentNotFoundError("CMDLINE_TOOLS_INCOMPLETE",
			"command-line tools archive did not contain the sdkmanager launcher").
			WithDetail("expected_path", m.layout.SdkManagerPath())
	}
	return nil
}

// cmdlineToolsArchiveName returns the bootstrap archive filename for the
// host. The repository uses mac/win tokens here, unlike the NDK artifacts.
func (m *Manager) cmdlineToolsArchiveName() string {
	token := "linux"
	switch m.hostOS {
	case "darwin":
		token = "mac"
	case "windows":
		token = "win"
	}
	return fmt.Sprintf("commandlinetools-%s-%s_latest.zip", token, cmdlineToolsBuild)
}

// Component is a read-only record of one installed SDK component
type Component struct {
	Name      string `json:"name"`
	Package   string `json:"package"`
	Version   string `json:"version,omitempty"`
	Path      string `json:"path,omitempty"`
	Installed bool   `json:"installed"`
}

// ListInstalled parses `sdkmanager --list_installed` into component records.
// The tabular format is tolerated loosely: rows with fewer columns than the
// header promises still yield a record.
func (m *Manager) ListInstalled(ctx context.Context) ([]Component, error) {
	if !m.layout.HasCmdlineTools() {
		return nil, sdkerrors.NewDependencyError("SDKMANAGER_MISSING",
			"sdkmanager is not installed; run 'sdkforge ensure' first").
			WithDetail("expected_path", m.layout.SdkManagerPath())
	}

	res, err := m.runner.Run(ctx, runner.Command{
		Name:    m.layout.SdkManagerPath(),
		Args:    []string{"--sdk_root=" + m.layout.Root, "--list_installed"},
		Timeout: m.commandTimeout,
	})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 && !isBenignSdkManagerFailure(res.Stderr) {
		return nil, sdkerrors.NewExternalToolError("SDKMANAGER_FAILED",
			fmt.Sprintf("sdkmanager exited %d listing installed packages", res.ExitCode)).
			WithDetail("stderr", truncateOutput(res.Stderr))
	}

	return parseInstalledList(res.Stdout), nil
}

// parseInstalledList extracts component rows from sdkmanager's table:
//
//	Installed packages:
//	  Path                 | Version | Description                    | Location
//	  -------              | ------- | -------                        | -------
//	  build-tools;34.0.0   | 34.0.0  | Android SDK Build-Tools 34     | build-tools/34.0.0
func parseInstalledList(output string) []Component {
	var components []Component

	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "|") {
			continue
		}

		fields := strings.Split(line, "|")
		pkg := strings.TrimSpace(fields[0])
		if pkg == "" || pkg == "Path" || strings.HasPrefix(pkg, "---") {
			continue
		}

		component := Component{Package: pkg, Installed: true}
		if len(fields) > 1 {
			component.Version = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			component.Name = strings.TrimSpace(fields[2])
		}
		if len(fields) > 3 {
			component.Path = strings.TrimSpace(fields[3])
		}
		if component.Name == "" {
			component.Name = pkg
		}

		components = append(components, component)
	}

	return components
}

// truncateOutput bounds captured tool output stored in error details
func truncateOutput(s string) string {
	const limit = 2000
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "... (truncated)"
}
