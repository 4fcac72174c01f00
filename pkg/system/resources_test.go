package system

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
)

func TestCheckDiskSpaceExistingPath(t *testing.T) {
	rc := NewResourceChecker(nil)

	info, err := rc.CheckDiskSpace(t.TempDir())
	require.NoError(t, err)

	assert.Greater(t, info.Total, uint64(0))
	assert.LessOrEqual(t, info.Available, info.Total)
	assert.GreaterOrEqual(t, info.UsedPct, 0.0)
	assert.LessOrEqual(t, info.UsedPct, 100.0)
}

func TestCheckDiskSpaceMissingPathUsesAncestor(t *testing.T) {
	rc := NewResourceChecker(nil)

	// The SDK root usually does not exist yet on a fresh machine; the
	// check must fall back to the nearest existing ancestor.
	missing := filepath.Join(t.TempDir(), "does", "not", "exist")

	info, err := rc.CheckDiskSpace(missing)
	require.NoError(t, err)
	assert.Greater(t, info.Total, uint64(0))
}

func TestEnsureWritableCreatesDirectory(t *testing.T) {
	rc := NewResourceChecker(nil)
	dir := filepath.Join(t.TempDir(), "sdk")

	require.NoError(t, rc.EnsureWritable(dir))

	st, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, st.IsDir())

	// Probe files must not be left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnsureWritableReadOnlyDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}

	rc := NewResourceChecker(nil)
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	err := rc.EnsureWritable(dir)
	require.Error(t, err)
	assert.True(t, sdkerrors.IsType(err, sdkerrors.ErrorTypePermission))
}

func TestFormatDiskInfo(t *testing.T) {
	out := FormatDiskInfo(&DiskSpaceInfo{
		Path:      "/data",
		Total:     100 * 1024 * 1024 * 1024,
		Free:      40 * 1024 * 1024 * 1024,
		Available: 38 * 1024 * 1024 * 1024,
		Used:      60 * 1024 * 1024 * 1024,
		UsedPct:   60.0,
	})

	assert.Contains(t, out, "/data")
	assert.Contains(t, out, "38.00 GB available of 100.00 GB")
	assert.Contains(t, out, "60.0% used")
}

func TestDependencyManagerUnknownTool(t *testing.T) {
	dm := NewDependencyManager(t.TempDir())

	status := dm.CheckDependency("frobnicator")
	assert.False(t, status.Available)
	assert.Equal(t, "Unknown dependency", status.Error)
}

func TestDependencyManagerFindsSDKLocalTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub is unix-only")
	}

	sdkRoot := t.TempDir()
	binDir := filepath.Join(sdkRoot, "platform-tools")
	require.NoError(t, os.MkdirAll(binDir, 0o755))

	stub := filepath.Join(binDir, "adb")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\necho 'Android Debug Bridge version 1.0.41'\n"), 0o755))

	dm := NewDependencyManager(sdkRoot)
	status := dm.CheckDependency("adb")

	assert.True(t, status.Available)
	assert.Equal(t, stub, status.Path)
	assert.Contains(t, status.Version, "Android Debug Bridge")
}

func TestDependencyManagerCache(t *testing.T) {
	sdkRoot := t.TempDir()
	dm := NewDependencyManager(sdkRoot)

	first := dm.CheckDependency("adb")
	second := dm.CheckDependency("adb")
	assert.Equal(t, first.LastChecked, second.LastChecked)

	dm.ClearCache()
	third := dm.CheckDependency("adb")
	assert.False(t, third.LastChecked.Before(first.LastChecked))
}
