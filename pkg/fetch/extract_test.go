package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func writeTarGz(t *testing.T, path string, entries []tarEntry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Mode:     0o755,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
		}
		if e.typeflag == tar.TypeReg {
			hdr.Size = int64(len(e.content))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

type tarEntry struct {
	name     string
	typeflag byte
	content  string
	linkname string
}

func TestExtractZipStripsSingleTopLevelDir(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "ndk.zip")
	writeZip(t, archive, map[string]string{
		"android-ndk-r26d/source.properties":    "Pkg.Revision = 26.3.11579264\n",
		"android-ndk-r26d/ndk-build":            "#!/bin/sh\n",
		"android-ndk-r26d/toolchains/llvm/keep": "",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, ExtractArchive(archive, dest))

	assert.FileExists(t, filepath.Join(dest, "source.properties"))
	assert.FileExists(t, filepath.Join(dest, "ndk-build"))
	assert.FileExists(t, filepath.Join(dest, "toolchains", "llvm", "keep"))
	assert.NoDirExists(t, filepath.Join(dest, "android-ndk-r26d"))
}

func TestExtractZipKeepsMultipleTopLevelDirs(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "multi.zip")
	writeZip(t, archive, map[string]string{
		"one/a.txt": "a",
		"two/b.txt": "b",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, ExtractArchive(archive, dest))

	assert.FileExists(t, filepath.Join(dest, "one", "a.txt"))
	assert.FileExists(t, filepath.Join(dest, "two", "b.txt"))
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{
		"good/a.txt":  "fine",
		"../evil.txt": "escape",
	})

	dest := filepath.Join(dir, "out")
	err := ExtractArchive(archive, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes destination")
	assert.NoFileExists(t, filepath.Join(dir, "evil.txt"))
}

func TestExtractZipPreservesExecutableBit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no unix permissions on windows")
	}

	dir := t.TempDir()
	archive := filepath.Join(dir, "tool.zip")

	f, err := os.Create(archive)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	hdr := &zip.FileHeader{Name: "tool/bin/run"}
	hdr.SetMode(0o755)
	entry, err := w.CreateHeader(hdr)
	require.NoError(t, err)
	_, err = entry.Write([]byte("#!/bin/sh\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(dir, "out")
	require.NoError(t, ExtractArchive(archive, dest))

	st, err := os.Stat(filepath.Join(dest, "bin", "run"))
	require.NoError(t, err)
	assert.NotZero(t, st.Mode()&0o100, "owner execute bit must survive extraction")
}

func TestExtractTarGzWithSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	dir := t.TempDir()
	archive := filepath.Join(dir, "ndk.tar.gz")
	writeTarGz(t, archive, []tarEntry{
		{name: "ndk/", typeflag: tar.TypeDir},
		{name: "ndk/bin/", typeflag: tar.TypeDir},
		{name: "ndk/bin/clang-18", typeflag: tar.TypeReg, content: "elf"},
		{name: "ndk/bin/clang", typeflag: tar.TypeSymlink, linkname: "clang-18"},
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, ExtractArchive(archive, dest))

	link, err := os.Readlink(filepath.Join(dest, "bin", "clang"))
	require.NoError(t, err)
	assert.Equal(t, "clang-18", link)
}

func TestExtractTarGzIdempotentOverExisting(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	dir := t.TempDir()
	archive := filepath.Join(dir, "tool.tar.gz")
	writeTarGz(t, archive, []tarEntry{
		{name: "tool/", typeflag: tar.TypeDir},
		{name: "tool/data", typeflag: tar.TypeReg, content: "v1"},
		{name: "tool/link", typeflag: tar.TypeSymlink, linkname: "data"},
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, ExtractArchive(archive, dest))
	require.NoError(t, ExtractArchive(archive, dest), "second extraction over the same tree must succeed")
}

func TestExtractUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "tool.rar")
	require.NoError(t, os.WriteFile(archive, []byte("junk"), 0o644))

	err := ExtractArchive(archive, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported archive format")
}

func TestSingleTopLevelDir(t *testing.T) {
	assert.Equal(t, "ndk/", singleTopLevelDir([]string{"ndk/", "ndk/a", "ndk/b/c"}))
	assert.Equal(t, "", singleTopLevelDir([]string{"a/x", "b/y"}))
	assert.Equal(t, "", singleTopLevelDir([]string{"rootfile"}))
	assert.Equal(t, "", singleTopLevelDir([]string{"../x/y"}))
	assert.Equal(t, "", singleTopLevelDir(nil))
}
