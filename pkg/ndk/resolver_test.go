package ndk

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/pkg/fetch"
	"github.com/sdkforge/sdkforge-cli/pkg/runner"
	"github.com/sdkforge/sdkforge-cli/pkg/sdk"
	"github.com/sdkforge/sdkforge-cli/pkg/utils"
)

type fakeInstaller struct {
	calls     []string
	err       error
	onInstall func(pkg string)
}

func (f *fakeInstaller) InstallPackage(_ context.Context, pkg string) error {
	f.calls = append(f.calls, pkg)
	if f.onInstall != nil {
		f.onInstall(pkg)
	}
	return f.err
}

// makeNDK lays down the named structural markers inside dir
func makeNDK(t *testing.T, dir string, markers ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, marker := range markers {
		switch marker {
		case "toolchains", "prebuilt":
			require.NoError(t, os.MkdirAll(filepath.Join(dir, marker), 0o755))
		default:
			require.NoError(t, os.WriteFile(filepath.Join(dir, marker), []byte("x"), 0o755))
		}
	}
}

// ndkZip builds a release-shaped archive: everything under one top-level
// directory, padded past the downloader's minimum-size gate with a stored
// blob.
func ndkZip(t *testing.T, topDir string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := map[string]string{
		topDir + "/source.properties":            "Pkg.Desc = Android NDK\nPkg.Revision = 26.3.11579264\n",
		topDir + "/ndk-build":                    "#!/bin/sh\n",
		topDir + "/toolchains/llvm/README":       "llvm\n",
		topDir + "/prebuilt/linux-x86_64/README": "prebuilt\n",
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   topDir + "/prebuilt/linux-x86_64/blob.bin",
		Method: zip.Store,
	})
	require.NoError(t, err)
	_, err = w.Write(make([]byte, (1<<20)+4096))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestResolver(t *testing.T, installer PackageInstaller, baseURL string) (*Resolver, *sdk.Layout) {
	t.Helper()
	layout := sdk.NewLayout(t.TempDir())
	d := fetch.NewDownloader(utils.NewNopLogger(), fetch.WithRetries(0), fetch.WithRetryDelay(time.Millisecond))
	r := NewResolver(layout, installer, nil, utils.NewNopLogger(),
		WithHostOS("linux"),
		WithBaseURL(baseURL),
		WithDownloader(d))
	return r, layout
}

func TestResolvePathExplicit(t *testing.T) {
	r, _ := newTestResolver(t, nil, "http://127.0.0.1:1")

	dir := filepath.Join(t.TempDir(), "my-ndk")
	makeNDK(t, dir, "source.properties", "toolchains")

	path, err := r.ResolvePath(SpecFromPath(dir))
	require.NoError(t, err)
	assert.Equal(t, dir, path)
}

func TestResolvePathExplicitMissing(t *testing.T) {
	r, _ := newTestResolver(t, nil, "http://127.0.0.1:1")

	_, err := r.ResolvePath(SpecFromPath(filepath.Join(t.TempDir(), "nope")))
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeComponentNotFound))
}

func TestResolvePathExplicitIncomplete(t *testing.T) {
	r, _ := newTestResolver(t, nil, "http://127.0.0.1:1")

	dir := filepath.Join(t.TempDir(), "half-ndk")
	makeNDK(t, dir, "source.properties")

	_, err := r.ResolvePath(SpecFromPath(dir))
	require.Error(t, err)
	fe, ok := sdkerrors.AsSdkForgeError(err)
	require.True(t, ok)
	assert.Equal(t, sdkerrors.ErrorTypeComponentNotFound, fe.Type)
	assert.Equal(t, "NDK_PATH_INVALID", fe.Code)
}

func TestResolvePathExplicitNotDir(t *testing.T) {
	r, _ := newTestResolver(t, nil, "http://127.0.0.1:1")

	file := filepath.Join(t.TempDir(), "ndk.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := r.ResolvePath(SpecFromPath(file))
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeInvalidArgument))
}

func TestResolvePathAliasFindsCanonicalDir(t *testing.T) {
	r, layout := newTestResolver(t, nil, "http://127.0.0.1:1")
	makeNDK(t, layout.NDKDir("26.3.11579264"), "source.properties", "toolchains")

	path, err := r.ResolvePath(SpecFromAlias("r26d"))
	require.NoError(t, err)
	assert.Equal(t, layout.NDKDir("26.3.11579264"), path)
}

func TestResolvePathAliasFindsLegacyAliasDir(t *testing.T) {
	r, layout := newTestResolver(t, nil, "http://127.0.0.1:1")
	makeNDK(t, layout.NDKDir("r26d"), "ndk-build", "prebuilt")

	path, err := r.ResolvePath(SpecFromAlias("r26d"))
	require.NoError(t, err)
	assert.Equal(t, layout.NDKDir("r26d"), path)
}

func TestResolvePathPrefersCanonicalOverLegacy(t *testing.T) {
	r, layout := newTestResolver(t, nil, "http://127.0.0.1:1")
	makeNDK(t, layout.NDKDir("26.3.11579264"), "source.properties", "toolchains")
	makeNDK(t, layout.NDKDir("r26d"), "source.properties", "toolchains")

	path, err := r.ResolvePath(SpecFromAlias("r26d"))
	require.NoError(t, err)
	assert.Equal(t, layout.NDKDir("26.3.11579264"), path)
}

func TestResolvePathAliasNotInstalled(t *testing.T) {
	r, _ := newTestResolver(t, nil, "http://127.0.0.1:1")

	_, err := r.ResolvePath(SpecFromAlias("r26d"))
	require.Error(t, err)
	fe, ok := sdkerrors.AsSdkForgeError(err)
	require.True(t, ok)
	assert.Equal(t, "NDK_NOT_INSTALLED", fe.Code)
}

func TestResolvePathUnknownAlias(t *testing.T) {
	r, _ := newTestResolver(t, nil, "http://127.0.0.1:1")

	_, err := r.ResolvePath(SpecFromAlias("r99z"))
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeInvalidArgument))
}

func TestResolvePathRejectsSingleMarker(t *testing.T) {
	r, layout := newTestResolver(t, nil, "http://127.0.0.1:1")
	makeNDK(t, layout.NDKDir("26.3.11579264"), "toolchains")

	_, err := r.ResolvePath(SpecFromAlias("r26d"))
	require.Error(t, err)
}

func TestEnsureShortCircuitsWhenPresent(t *testing.T) {
	installer := &fakeInstaller{}
	// Unreachable base URL: any install or download attempt would fail loudly.
	r, layout := newTestResolver(t, installer, "http://127.0.0.1:1")
	makeNDK(t, layout.NDKDir("26.3.11579264"), "source.properties", "toolchains", "prebuilt")

	path, err := r.Ensure(context.Background(), SpecFromAlias("r26d"))
	require.NoError(t, err)
	assert.Equal(t, layout.NDKDir("26.3.11579264"), path)
	assert.Empty(t, installer.calls)
}

func TestEnsureInstallsViaPackageManager(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		http.NotFound(w, req)
	}))
	defer srv.Close()

	installer := &fakeInstaller{}
	r, layout := newTestResolver(t, installer, srv.URL)
	installer.onInstall = func(pkg string) {
		makeNDK(t, layout.NDKDir("26.3.11579264"), "source.properties", "toolchains", "prebuilt", "ndk-build")
	}

	path, err := r.Ensure(context.Background(), SpecFromAlias("r26d"))
	require.NoError(t, err)
	assert.Equal(t, layout.NDKDir("26.3.11579264"), path)
	assert.Equal(t, []string{"ndk;26.3.11579264"}, installer.calls)
	assert.Equal(t, int32(0), hits.Load(), "direct download must not run when sdkmanager succeeds")
}

func TestEnsureFallsBackToDirectDownload(t *testing.T) {
	var hits atomic.Int32
	var requestedPath atomic.Value
	archive := ndkZip(t, "android-ndk-r26d")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		requestedPath.Store(req.URL.Path)
		w.Write(archive)
	}))
	defer srv.Close()

	installer := &fakeInstaller{err: sdkerrors.NewDependencyError("TOOL_NOT_FOUND", "sdkmanager is not installed")}
	r, layout := newTestResolver(t, installer, srv.URL)

	path, err := r.Ensure(context.Background(), SpecFromAlias("r26d"))
	require.NoError(t, err)
	assert.Equal(t, layout.NDKDir("26.3.11579264"), path)

	assert.Equal(t, int32(1), hits.Load(), "fallback makes exactly one download attempt")
	assert.Equal(t, "/android-ndk-r26d-linux.zip", requestedPath.Load())

	// Top-level archive directory was stripped and the result renamed to the
	// canonical version.
	assert.FileExists(t, filepath.Join(path, "source.properties"))
	assert.FileExists(t, filepath.Join(path, "ndk-build"))
	assert.DirExists(t, filepath.Join(path, "toolchains"))
	assert.NoDirExists(t, filepath.Join(path, "android-ndk-r26d"))

	// The archive stays in the downloads cache until cleanup.
	assert.FileExists(t, filepath.Join(layout.DownloadsDir(), "android-ndk-r26d-linux.zip"))
}

func TestEnsureFallbackAfterSilentPackageManager(t *testing.T) {
	// sdkmanager "succeeds" but produces nothing; the resolver must still
	// fall through to the direct download.
	archive := ndkZip(t, "android-ndk-r26d")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	installer := &fakeInstaller{}
	r, layout := newTestResolver(t, installer, srv.URL)

	path, err := r.Ensure(context.Background(), SpecFromAlias("r26d"))
	require.NoError(t, err)
	assert.Equal(t, layout.NDKDir("26.3.11579264"), path)
	assert.Len(t, installer.calls, 1)
}

func TestEnsureBothTiersFail(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		http.NotFound(w, req)
	}))
	defer srv.Close()

	installer := &fakeInstaller{err: sdkerrors.NewExternalToolError("SDKMANAGER_FAILED", "boom")}
	r, _ := newTestResolver(t, installer, srv.URL)

	_, err := r.Ensure(context.Background(), SpecFromAlias("r26d"))
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeDownload))
	assert.Equal(t, int32(1), hits.Load(), "a 404 is final, no retries")
}

func TestEnsureNeverInstallsForExplicitPath(t *testing.T) {
	installer := &fakeInstaller{}
	r, _ := newTestResolver(t, installer, "http://127.0.0.1:1")

	_, err := r.Ensure(context.Background(), SpecFromPath(filepath.Join(t.TempDir(), "absent")))
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeComponentNotFound))
	assert.Empty(t, installer.calls)
}

func TestListInstalled(t *testing.T) {
	r, layout := newTestResolver(t, nil, "http://127.0.0.1:1")

	makeNDK(t, layout.NDKDir("26.3.11579264"), "source.properties", "toolchains")
	makeNDK(t, layout.NDKDir("r25c"), "ndk-build", "prebuilt")
	// Junk that must not be listed: too few markers, and a stray file.
	makeNDK(t, layout.NDKDir("19.2.5345600"), "source.properties")
	require.NoError(t, os.WriteFile(filepath.Join(layout.NDKRoot(), "notes.txt"), []byte("x"), 0o644))

	installed, err := r.ListInstalled()
	require.NoError(t, err)
	require.Len(t, installed, 2)
	assert.Equal(t, "26.3.11579264", installed[0].Version)
	assert.Equal(t, "r25c", installed[1].Version)
}

func TestListInstalledEmptyRoot(t *testing.T) {
	r, _ := newTestResolver(t, nil, "http://127.0.0.1:1")

	installed, err := r.ListInstalled()
	require.NoError(t, err)
	assert.Empty(t, installed)
}

func TestWindowsMarkerUsesCmdScript(t *testing.T) {
	layout := sdk.NewLayout(t.TempDir())
	r := NewResolver(layout, nil, nil, utils.NewNopLogger(), WithHostOS("windows"))

	dir := filepath.Join(t.TempDir(), "ndk")
	makeNDK(t, dir, "ndk-build.cmd", "source.properties")

	path, err := r.ResolvePath(SpecFromPath(dir))
	require.NoError(t, err)
	assert.Equal(t, dir, path)
}

func TestNdkArchiveName(t *testing.T) {
	assert.Equal(t, "android-ndk-r26d-linux.zip", ndkArchiveName("r26d", "linux"))
	assert.Equal(t, "android-ndk-r26d-windows.zip", ndkArchiveName("r26d", "windows"))
	assert.Equal(t, "android-ndk-r26d-darwin.dmg", ndkArchiveName("r26d", "darwin"))
}

func TestFindNDKPayload(t *testing.T) {
	mount := t.TempDir()
	ndkDir := filepath.Join(mount, "android-ndk-r26d")
	require.NoError(t, os.MkdirAll(ndkDir, 0o755))

	payload, err := findNDKPayload(mount)
	require.NoError(t, err)
	assert.Equal(t, ndkDir, payload)
}

func TestFindNDKPayloadAppBundle(t *testing.T) {
	mount := t.TempDir()
	bundle := filepath.Join(mount, "AndroidNDK11579264.app", "Contents", "NDK")
	require.NoError(t, os.MkdirAll(bundle, 0o755))

	payload, err := findNDKPayload(mount)
	require.NoError(t, err)
	assert.Equal(t, bundle, payload)
}

func TestFindNDKPayloadMissing(t *testing.T) {
	_, err := findNDKPayload(t.TempDir())
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeUnpack))
}

func TestExtractDMGCommandFlow(t *testing.T) {
	layout := sdk.NewLayout(t.TempDir())
	fake := &runner.Fake{
		Queue: []runner.Response{
			{OnRun: func(cmd runner.Command) {
				// hdiutil attach: simulate the mounted image appearing at
				// the requested mount point.
				mountPoint := cmd.Args[3]
				_ = os.MkdirAll(filepath.Join(mountPoint, "android-ndk-r26d"), 0o755)
			}},
		},
	}

	r := NewResolver(layout, nil, fake, utils.NewNopLogger(), WithHostOS("darwin"))

	dest := filepath.Join(t.TempDir(), "staging")
	err := r.extractDMG(context.Background(), "/tmp/android-ndk-r26d-darwin.dmg", dest)
	require.NoError(t, err)

	require.Len(t, fake.Calls, 3)
	assert.Equal(t, "hdiutil", fake.Calls[0].Name)
	assert.Equal(t, "attach", fake.Calls[0].Args[0])
	assert.Equal(t, "cp", fake.Calls[1].Name)
	assert.Equal(t, "-R", fake.Calls[1].Args[0])
	assert.Equal(t, dest, fake.Calls[1].Args[2])
	assert.Equal(t, "hdiutil", fake.Calls[2].Name)
	assert.Equal(t, "detach", fake.Calls[2].Args[0])
}
