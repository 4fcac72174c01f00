package ndk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/pkg/fetch"
	"github.com/sdkforge/sdkforge-cli/pkg/runner"
	"github.com/sdkforge/sdkforge-cli/pkg/sdk"
)

const defaultDownloadTimeout = 45 * time.Minute

// Logger is the slice of logging the resolver needs
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

// PackageInstaller installs one package through the SDK package manager.
// sdk.Manager satisfies it.
type PackageInstaller interface {
	InstallPackage(ctx context.Context, pkg string) error
}

// Resolver locates NDK installations and installs missing ones, first
// through sdkmanager and then by direct archive download.
type Resolver struct {
	layout          *sdk.Layout
	installer       PackageInstaller
	downloader      *fetch.Downloader
	runner          runner.Runner
	logger          Logger
	hostOS          string
	baseURL         string
	downloadTimeout time.Duration
}

// ResolverOption tweaks resolver construction
type ResolverOption func(*Resolver)

// WithBaseURL points downloads at a different repository mirror
func WithBaseURL(url string) ResolverOption {
	return func(r *Resolver) {
		r.baseURL = url
	}
}

// WithHostOS overrides host detection, mostly for tests
func WithHostOS(goos string) ResolverOption {
	return func(r *Resolver) {
		r.hostOS = goos
	}
}

// WithDownloader replaces the default downloader
func WithDownloader(d *fetch.Downloader) ResolverOption {
	return func(r *Resolver) {
		r.downloader = d
	}
}

// WithDownloadTimeout bounds a single archive download
func WithDownloadTimeout(timeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		if timeout > 0 {
			r.downloadTimeout = timeout
		}
	}
}

// NewResolver wires a resolver. installer may be nil when no package manager
// is available; the resolver then goes straight to direct download.
func NewResolver(layout *sdk.Layout, installer PackageInstaller, run runner.Runner, logger Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		layout:          layout,
		installer:       installer,
		runner:          run,
		logger:          logger,
		hostOS:          "linux",
		baseURL:         "https://dl.google.com/android/repository",
		downloadTimeout: defaultDownloadTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.downloader == nil {
		r.downloader = fetch.NewDownloader(logger)
	}
	return r
}

// ResolvePath locates an installed NDK for spec without installing anything.
// An explicit path is verified as-is. An alias is looked up under the SDK
// root: the canonical-version directory is preferred, the legacy alias-named
// directory is accepted second. The first structurally valid candidate wins.
func (r *Resolver) ResolvePath(spec Spec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	if spec.Path != "" {
		info, err := os.Stat(spec.Path)
		if err != nil {
			return "", sdkerrors.NewComponentNotFoundError("NDK_PATH_NOT_FOUND",
				fmt.Sprintf("NDK path does not exist: %s", spec.Path)).
				WithDetail("path", spec.Path)
		}
		if !info.IsDir() {
			return "", sdkerrors.NewInvalidArgumentError("NDK_PATH_NOT_DIR",
				fmt.Sprintf("NDK path is not a directory: %s", spec.Path)).
				WithDetail("path", spec.Path)
		}
		if !r.isValidNDK(spec.Path) {
			return "", sdkerrors.NewComponentNotFoundError("NDK_PATH_INVALID",
				fmt.Sprintf("directory exists but does not look like an NDK installation: %s", spec.Path)).
				WithDetail("path", spec.Path).
				WithSuggestion("Expected at least two of: ndk-build, source.properties, toolchains/, prebuilt/")
		}
		return spec.Path, nil
	}

	v, err := FromAlias(spec.Alias)
	if err != nil {
		return "", err
	}

	candidates := []string{
		r.layout.NDKDir(v.Canonical),
		r.layout.NDKDir(v.Alias),
	}
	for _, candidate := range candidates {
		if r.isValidNDK(candidate) {
			return candidate, nil
		}
	}

	return "", sdkerrors.NewComponentNotFoundError("NDK_NOT_INSTALLED",
		fmt.Sprintf("NDK %s (%s) is not installed", v.Alias, v.Canonical)).
		WithDetail("alias", v.Alias).
		WithDetail("canonical", v.Canonical)
}

// Ensure makes the NDK selected by spec present and returns its path. A spec
// that already resolves is returned untouched. An alias spec that does not
// resolve is installed, first through sdkmanager and, if that fails in any
// way, through exactly one direct archive download. An explicit-path spec is
// never installed; a missing path is the caller's error to fix.
func (r *Resolver) Ensure(ctx context.Context, spec Spec) (string, error) {
	path, err := r.ResolvePath(spec)
	if err == nil {
		r.logger.Debug("NDK already present at %s", path)
		return path, nil
	}
	if !sdkerrors.IsType(err, sdkerrors.ErrorTypeComponentNotFound) {
		return "", err
	}
	if spec.Path != "" {
		return "", err
	}

	v, verr := FromAlias(spec.Alias)
	if verr != nil {
		return "", verr
	}

	if r.installer != nil {
		r.logger.Info("Installing NDK %s (%s) via sdkmanager", v.Alias, v.Canonical)
		if installErr := r.installer.InstallPackage(ctx, sdk.NDKPackage(v.Canonical)); installErr != nil {
			r.logger.Warn("sdkmanager could not install the NDK, falling back to direct download: %v", installErr)
		} else if path, err := r.ResolvePath(spec); err == nil {
			return path, nil
		} else {
			r.logger.Warn("sdkmanager finished but no usable NDK appeared, falling back to direct download")
		}
	}

	if err := r.downloadAndInstall(ctx, v); err != nil {
		return "", err
	}

	path, err = r.ResolvePath(spec)
	if err != nil {
		return "", sdkerrors.WrapError(err, sdkerrors.ErrorTypeState, "NDK_INSTALL_INCOMPLETE",
			fmt.Sprintf("NDK %s was unpacked but the result is not a valid installation", v.Alias))
	}
	return path, nil
}

// downloadAndInstall fetches the release archive for the host OS, unpacks it
// into a staging directory and renames it to the canonical target.
func (r *Resolver) downloadAndInstall(ctx context.Context, v *Version) error {
	archiveName := ndkArchiveName(v.Alias, r.hostOS)
	archivePath := filepath.Join(r.layout.DownloadsDir(), archiveName)
	url := r.baseURL + "/" + archiveName

	r.logger.Info("Downloading NDK %s from %s", v.Alias, url)
	if _, err := r.downloader.Download(ctx, fetch.Request{
		URL:         url,
		Dest:        archivePath,
		Timeout:     r.downloadTimeout,
		MinSize:     1 << 20,
		Description: "NDK " + v.Alias,
	}); err != nil {
		return err
	}

	staging := filepath.Join(r.layout.TmpDir(), "ndk-"+v.Alias)
	if err := os.RemoveAll(staging); err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypePermission, "STAGING_NOT_CLEARABLE",
			fmt.Sprintf("cannot clear staging directory %s", staging))
	}

	if filepath.Ext(archiveName) == ".dmg" {
		if err := r.extractDMG(ctx, archivePath, staging); err != nil {
			return err
		}
	} else {
		if err := fetch.ExtractArchive(archivePath, staging); err != nil {
			return err
		}
	}

	target := r.layout.NDKDir(v.Canonical)
	if err := os.MkdirAll(r.layout.NDKRoot(), 0o755); err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypePermission, "NDK_ROOT_NOT_CREATABLE",
			fmt.Sprintf("cannot create %s", r.layout.NDKRoot()))
	}
	if err := os.RemoveAll(target); err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypePermission, "NDK_TARGET_NOT_CLEARABLE",
			fmt.Sprintf("cannot clear %s", target))
	}
	if err := os.Rename(staging, target); err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypeState, "NDK_INSTALL_MOVE_FAILED",
			fmt.Sprintf("cannot move unpacked NDK into %s", target))
	}

	r.logger.Info("NDK %s installed at %s", v.Alias, target)
	return nil
}

// Installed describes one NDK found under the SDK root
type Installed struct {
	Version string `json:"version"`
	Path    string `json:"path"`
}

// ListInstalled enumerates valid NDK installations under <root>/ndk. The
// directory name is reported as the version label whether it is canonical or
// a legacy alias. A missing ndk directory is an empty list, not an error.
func (r *Resolver) ListInstalled() ([]Installed, error) {
	entries, err := os.ReadDir(r.layout.NDKRoot())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sdkerrors.WrapError(err, sdkerrors.ErrorTypeState, "NDK_ROOT_UNREADABLE",
			fmt.Sprintf("cannot read %s", r.layout.NDKRoot()))
	}

	var out []Installed
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := r.layout.NDKDir(entry.Name())
		if !r.isValidNDK(path) {
			continue
		}
		out = append(out, Installed{Version: entry.Name(), Path: path})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// isValidNDK accepts a directory carrying at least two of the four structural
// markers every NDK release ships. Requiring two tolerates layout drift
// between releases while still rejecting half-unpacked directories.
func (r *Resolver) isValidNDK(dir string) bool {
	buildScript := "ndk-build"
	if r.hostOS == "windows" {
		buildScript = "ndk-build.cmd"
	}

	markers := 0
	if fileExists(filepath.Join(dir, buildScript)) {
		markers++
	}
	if fileExists(filepath.Join(dir, "source.properties")) {
		markers++
	}
	if dirExists(filepath.Join(dir, "toolchains")) {
		markers++
	}
	if dirExists(filepath.Join(dir, "prebuilt")) {
		markers++
	}
	return markers >= 2
}

// ndkArchiveName builds the official release artifact name. Linux and
// Windows releases ship as zip, macOS ships as a dmg.
func ndkArchiveName(alias, hostOS string) string {
	switch hostOS {
	case "windows":
		return fmt.Sprintf("android-ndk-%s-windows.zip", alias)
	case "darwin":
		return fmt.Sprintf("android-ndk-%s-darwin.dmg", alias)
	default:
		return fmt.Sprintf("android-ndk-%s-linux.zip", alias)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
