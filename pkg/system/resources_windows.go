//go:build windows

package system

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// statDisk reads volume statistics for a path that is known to exist.
// Available differs from Free when quotas cap the calling user.
func statDisk(path string) (*DiskUsage, error) {
	dir, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("encode path %q: %w", path, err)
	}

	var available, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(dir, &available, &total, &free); err != nil {
		return nil, fmt.Errorf("query volume stats for %q: %w", path, err)
	}

	return &DiskUsage{
		Total:     total,
		Used:      total - free,
		Free:      free,
		Available: available,
	}, nil
}
