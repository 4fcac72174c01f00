package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
)

// ExtractArchive extracts src into dest, detecting the format from the file
// name. Archives whose entries all live under one top-level directory (the
// layout of NDK and command-line tools releases) have that directory
// stripped, so dest itself becomes the tool root.
func ExtractArchive(src, dest string) error {
	lower := strings.ToLower(src)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(src, dest)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return extractTarGz(src, dest)
	default:
		return sdkerrors.NewUnpackError("UNPACK_UNSUPPORTED",
			fmt.Sprintf("unsupported archive format: %s", filepath.Ext(src))).
			WithDetail("archive", src)
	}
}

// unpackError wraps an extraction failure with the archive it came from
func unpackError(src string, err error) *sdkerrors.SdkForgeError {
	return sdkerrors.WrapError(err, sdkerrors.ErrorTypeUnpack, "UNPACK_FAILED",
		fmt.Sprintf("failed to extract %s", filepath.Base(src))).
		WithDetail("archive", src)
}

// unsafePathError flags an archive entry that would land outside dest
func unsafePathError(src, entry string) *sdkerrors.SdkForgeError {
	return sdkerrors.NewUnpackError("UNPACK_UNSAFE_PATH",
		fmt.Sprintf("archive entry escapes destination: %s", entry)).
		WithDetail("archive", src)
}

func extractZip(src, dest string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return unpackError(src, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(dest, 0755); err != nil {
		return unpackError(src, err)
	}

	stripPrefix := singleTopLevelDirZip(reader.File)

	for _, file := range reader.File {
		relativePath := file.Name
		if stripPrefix != "" {
			if !strings.HasPrefix(file.Name, stripPrefix) {
				continue
			}
			relativePath = strings.TrimPrefix(file.Name, stripPrefix)
			if relativePath == "" {
				continue
			}
		}

		targetPath := filepath.Join(dest, relativePath)

		// Reject entries that would escape dest.
		if !strings.HasPrefix(targetPath, filepath.Clean(dest)+string(os.PathSeparator)) {
			return unsafePathError(src, file.Name)
		}

		mode := file.FileInfo().Mode()
		switch {
		case file.FileInfo().IsDir():
			if err := os.MkdirAll(targetPath, mode.Perm()); err != nil {
				return unpackError(src, err)
			}
		case mode&os.ModeSymlink != 0:
			// NDK archives carry symlinks inside the LLVM toolchain. The
			// link target is stored as the entry body.
			linkname, err := readZipEntry(file)
			if err != nil {
				return unpackError(src, err)
			}
			if err := placeSymlink(string(linkname), targetPath); err != nil {
				return unpackError(src, err)
			}
		default:
			if err := extractZipEntry(file, targetPath); err != nil {
				return unpackError(src, err)
			}
		}
	}

	return nil
}

func readZipEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func extractZipEntry(file *zip.File, targetPath string) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return err
	}

	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := file.FileInfo().Mode()
	if mode&0200 == 0 {
		mode |= 0200
	}

	target, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer target.Close()

	_, err = io.Copy(target, rc)
	return err
}

func extractTarGz(src, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return unpackError(src, err)
	}

	// First pass collects headers so single-top-dir stripping can be decided
	// before anything is written.
	headers, err := readTarHeaders(src)
	if err != nil {
		return err
	}
	stripPrefix := singleTopLevelDirTar(headers)

	file, err := os.Open(src)
	if err != nil {
		return unpackError(src, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return unpackError(src, err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return unpackError(src, err)
		}

		relativePath := header.Name
		if stripPrefix != "" {
			if !strings.HasPrefix(header.Name, stripPrefix) {
				continue
			}
			relativePath = strings.TrimPrefix(header.Name, stripPrefix)
			if relativePath == "" {
				continue
			}
		}

		targetPath := filepath.Join(dest, relativePath)
		if !strings.HasPrefix(targetPath, filepath.Clean(dest)+string(os.PathSeparator)) {
			return unsafePathError(src, header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, os.FileMode(header.Mode).Perm()); err != nil {
				return unpackError(src, err)
			}
		case tar.TypeReg:
			if err := extractTarEntry(tarReader, targetPath, os.FileMode(header.Mode)); err != nil {
				return unpackError(src, err)
			}
		case tar.TypeSymlink:
			if err := placeSymlink(header.Linkname, targetPath); err != nil {
				return unpackError(src, err)
			}
		default:
			// Device nodes and the like have no business in a toolchain
			// archive; skip them.
		}
	}

	return nil
}

func readTarHeaders(src string) ([]*tar.Header, error) {
	file, err := os.Open(src)
	if err != nil {
		return nil, unpackError(src, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, unpackError(src, err)
	}
	defer gzReader.Close()

	var headers []*tar.Header
	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, unpackError(src, err)
		}
		headers = append(headers, header)
	}
	return headers, nil
}

func extractTarEntry(tarReader *tar.Reader, targetPath string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return err
	}

	if mode&0200 == 0 {
		mode |= 0200
	}

	file, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, tarReader)
	return err
}

// placeSymlink creates a symlink, replacing whatever already occupies the
// target path. Re-extraction over a previous attempt must not fail on links
// that already exist.
func placeSymlink(linkname, targetPath string) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return err
	}
	if _, err := os.Lstat(targetPath); err == nil {
		if existing, err := os.Readlink(targetPath); err == nil && existing == linkname {
			return nil
		}
		if err := os.RemoveAll(targetPath); err != nil {
			return err
		}
	}
	return os.Symlink(linkname, targetPath)
}

// singleTopLevelDirZip returns the shared top-level directory prefix of all
// zip entries, or "" when entries do not share one.
func singleTopLevelDirZip(files []*zip.File) string {
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	return singleTopLevelDir(names)
}

// singleTopLevelDirTar is singleTopLevelDirZip for tar headers
func singleTopLevelDirTar(headers []*tar.Header) string {
	var names []string
	for _, h := range headers {
		names = append(names, h.Name)
	}
	return singleTopLevelDir(names)
}

func singleTopLevelDir(names []string) string {
	var topLevelDir string
	for _, name := range names {
		if name == "" {
			continue
		}

		parts := strings.Split(name, "/")
		if len(parts) < 2 {
			// A bare file at the root means there is nothing to strip.
			return ""
		}

		first := parts[0]
		if first == "" || first == ".." {
			return ""
		}

		if topLevelDir == "" {
			topLevelDir = first
		} else if topLevelDir != first {
			return ""
		}
	}

	if topLevelDir == "" {
		return ""
	}
	return topLevelDir + "/"
}
