package sdk

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/pkg/fetch"
	"github.com/sdkforge/sdkforge-cli/pkg/runner"
)

func newTestManager(t *testing.T, fake *runner.Fake, opts ...ManagerOption) (*Manager, *Layout) {
	t.Helper()
	layout := NewLayout(t.TempDir())
	touch(t, layout.SdkManagerPath())
	return NewManager(layout, fake, nil, opts...), layout
}

func TestEnsureSkipsWhenPresent(t *testing.T) {
	fake := &runner.Fake{}
	m, layout := newTestManager(t, fake)
	touch(t, layout.AdbPath())

	require.NoError(t, m.EnsurePlatformTools(context.Background()))
	assert.Empty(t, fake.Calls, "present component must not invoke sdkmanager")
}

func TestEnsureInstallsWhenAbsent(t *testing.T) {
	var layout *Layout
	fake := &runner.Fake{
		Default: &runner.Response{OnRun: func(cmd runner.Command) {
			touch(t, layout.AdbPath())
		}},
	}
	m, l := newTestManager(t, fake)
	layout = l

	require.NoError(t, m.EnsurePlatformTools(context.Background()))

	calls := fake.CallsTo("sdkmanager")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"--sdk_root=" + layout.Root, "platform-tools"}, calls[0].Args)
}

func TestEnsureFailsWhenToolProducesNothing(t *testing.T) {
	fake := &runner.Fake{Default: &runner.Response{}}
	m, _ := newTestManager(t, fake)

	err := m.EnsurePlatform(context.Background(), 30)
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeComponentNotFound))

	fe, ok := sdkerrors.AsSdkForgeError(err)
	require.True(t, ok)
	assert.Equal(t, "platforms;android-30", fe.Details["package"])
}

func TestEnsureToleratesWarningOnlyFailure(t *testing.T) {
	var layout *Layout
	fake := &runner.Fake{
		Default: &runner.Response{
			ExitCode: 1,
			Stderr:   "Warning: File /root/.android/repositories.cfg could not be loaded.\nWarning: unable to fetch remote list\n",
			OnRun: func(cmd runner.Command) {
				touch(t, layout.EmulatorPath())
			},
		},
	}
	m, l := newTestManager(t, fake)
	layout = l

	require.NoError(t, m.EnsureEmulator(context.Background()))
}

func TestEnsureSurfacesRealFailure(t *testing.T) {
	fake := &runner.Fake{
		Default: &runner.Response{
			ExitCode: 1,
			Stderr:   "Warning: something minor\nError: Failed to find package 'platforms;android-30'\n",
		},
	}
	m, _ := newTestManager(t, fake)

	err := m.EnsurePlatform(context.Background(), 30)
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeExternalTool))
}

func TestInstallPackageRequiresSdkManager(t *testing.T) {
	fake := &runner.Fake{}
	m := NewManager(NewLayout(t.TempDir()), fake, nil)

	err := m.InstallPackage(context.Background(), "platform-tools")
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeDependency))
	assert.Empty(t, fake.Calls)
}

func TestIsBenignSdkManagerFailure(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   bool
	}{
		{"empty", "", false},
		{"single warning", "Warning: File could not be loaded.\n", true},
		{"warnings with blank lines", "Warning: a\n\nWarning: b\n", true},
		{"error line", "Error: failed\n", false},
		{"warning then error", "Warning: a\nError: b\n", false},
		{"unprefixed noise", "something exploded\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isBenignSdkManagerFailure(tt.stderr))
		})
	}
}

func TestAcceptLicensesSendsAffirmatives(t *testing.T) {
	fake := &runner.Fake{Default: &runner.Response{Stdout: "All SDK package licenses accepted"}}
	m, layout := newTestManager(t, fake)

	require.NoError(t, m.AcceptLicenses(context.Background()))

	calls := fake.CallsTo("sdkmanager")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Args, "--licenses")
	assert.Contains(t, calls[0].Args, "--sdk_root="+layout.Root)
	assert.True(t, strings.HasPrefix(calls[0].Stdin, "y\ny\n"))
}

func TestAcceptLicensesToleratesFailure(t *testing.T) {
	fake := &runner.Fake{Default: &runner.Response{ExitCode: 1, Stderr: "Error: no browser"}}
	m, _ := newTestManager(t, fake)

	assert.NoError(t, m.AcceptLicenses(context.Background()))
}

func TestAcceptLicensesWithoutSdkManager(t *testing.T) {
	fake := &runner.Fake{}
	m := NewManager(NewLayout(t.TempDir()), fake, nil)

	assert.NoError(t, m.AcceptLicenses(context.Background()))
	assert.Empty(t, fake.Calls)
}

const installedListing = `Loading package information...
Installed packages:
  Path                 | Version      | Description                      | Location
  -------              | -------      | -------                          | -------
  build-tools;34.0.0   | 34.0.0       | Android SDK Build-Tools 34       | build-tools/34.0.0
  emulator             | 34.1.19      | Android Emulator                 | emulator
  platform-tools       | 35.0.1       | Android SDK Platform-Tools       | platform-tools
  platforms;android-30 | 3            | Android SDK Platform 30          | platforms/android-30
  incomplete-row
`

func TestParseInstalledList(t *testing.T) {
	components := parseInstalledList(installedListing)
	require.Len(t, components, 4)

	assert.Equal(t, Component{
		Package:   "build-tools;34.0.0",
		Version:   "34.0.0",
		Name:      "Android SDK Build-Tools 34",
		Path:      "build-tools/34.0.0",
		Installed: true,
	}, components[0])

	assert.Equal(t, "platforms;android-30", components[3].Package)
	assert.Equal(t, "Android SDK Platform 30", components[3].Name)
}

func TestParseInstalledListMissingColumns(t *testing.T) {
	components := parseInstalledList("  ndk;26.3.11579264 | 26.3.11579264\n")
	require.Len(t, components, 1)
	assert.Equal(t, "ndk;26.3.11579264", components[0].Package)
	assert.Equal(t, "26.3.11579264", components[0].Version)
	assert.Equal(t, "ndk;26.3.11579264", components[0].Name, "name falls back to the package id")
}

func TestListInstalled(t *testing.T) {
	fake := &runner.Fake{Default: &runner.Response{Stdout: installedListing}}
	m, _ := newTestManager(t, fake)

	components, err := m.ListInstalled(context.Background())
	require.NoError(t, err)
	assert.Len(t, components, 4)

	calls := fake.CallsTo("sdkmanager")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Args, "--list_installed")
}

func cmdlineToolsZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for name, content := range map[string]string{
		"cmdline-tools/bin/sdkmanager": "#!/bin/sh\n",
		"cmdline-tools/bin/avdmanager": "#!/bin/sh\n",
		"cmdline-tools/source.properties": "Pkg.Revision=16.0\n",
	} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestEnsureCmdlineToolsBootstraps(t *testing.T) {
	payload := cmdlineToolsZip(t)

	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Write(payload)
	}))
	defer srv.Close()

	layout := NewLayout(t.TempDir())
	fake := &runner.Fake{}
	m := NewManager(layout, fake, nil,
		WithBaseURL(srv.URL),
		WithHostOS("linux"),
		WithDownloader(fetch.NewDownloader(nil, fetch.WithRetries(0))),
	)

	require.NoError(t, m.EnsureCmdlineTools(context.Background()))

	assert.Equal(t, "/commandlinetools-linux-11076708_latest.zip", requested)
	assert.True(t, layout.HasCmdlineTools())
	assert.FileExists(t, filepath.Join(layout.CmdlineToolsDir(), "bin", "sdkmanager"))
	assert.Empty(t, fake.Calls, "bootstrap must not shell out")

	// The downloaded archive stays in the scratch directory for cleanup.
	entries, err := os.ReadDir(layout.DownloadsDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEnsureCmdlineToolsIdempotent(t *testing.T) {
	layout := NewLayout(t.TempDir())
	touch(t, layout.SdkManagerPath())

	// The unreachable base URL proves the presence check short-circuits
	// before any download.
	m := NewManager(layout, &runner.Fake{}, nil, WithBaseURL("http://127.0.0.1:0"))
	require.NoError(t, m.EnsureCmdlineTools(context.Background()))
}

func TestCmdlineToolsArchiveName(t *testing.T) {
	layout := NewLayout(t.TempDir())

	assert.Equal(t, "commandlinetools-linux-11076708_latest.zip",
		NewManager(layout, &runner.Fake{}, nil, WithHostOS("linux")).cmdlineToolsArchiveName())
	assert.Equal(t, "commandlinetools-mac-11076708_latest.zip",
		NewManager(layout, &runner.Fake{}, nil, WithHostOS("darwin")).cmdlineToolsArchiveName())
	assert.Equal(t, "commandlinetools-win-11076708_latest.zip",
		NewManager(layout, &runner.Fake{}, nil, WithHostOS("windows")).cmdlineToolsArchiveName())
}

func TestEnsureArchiveBadServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	layout := NewLayout(t.TempDir())
	m := NewManager(layout, &runner.Fake{}, nil,
		WithBaseURL(srv.URL),
		WithDownloader(fetch.NewDownloader(nil, fetch.WithRetries(0))),
	)

	err := m.EnsureCmdlineTools(context.Background())
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypeDownload))
	assert.False(t, layout.HasCmdlineTools())
}
