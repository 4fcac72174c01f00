//go:build !windows

package system

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// statDisk reads filesystem statistics for a path that is known to exist.
// Field widths differ between platforms, so everything is widened to uint64
// before multiplying.
func statDisk(path string) (*DiskUsage, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return nil, fmt.Errorf("statfs %q: %w", path, err)
	}

	bsize := uint64(fs.Bsize)
	total := uint64(fs.Blocks) * bsize
	free := uint64(fs.Bfree) * bsize

	return &DiskUsage{
		Total:     total,
		Used:      total - free,
		Free:      free,
		Available: uint64(fs.Bavail) * bsize,
	}, nil
}
