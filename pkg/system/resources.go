package system

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
)

// ResourceChecker provides disk-space and permission checking capabilities
type ResourceChecker struct {
	logger Logger
}

// Logger interface for system checkers
type Logger interface {
	Debug(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NewResourceChecker creates a new resource checker
func NewResourceChecker(logger Logger) *ResourceChecker {
	return &ResourceChecker{
		logger: logger,
	}
}

// DiskUsage holds raw filesystem statistics for one mount
type DiskUsage struct {
	Total     uint64
	Used      uint64
	Free      uint64
	Available uint64
}

// DiskSpaceInfo contains disk space information for display
type DiskSpaceInfo struct {
	Path      string  `json:"path"`
	Total     uint64  `json:"total"`     // Total space in bytes
	Free      uint64  `json:"free"`      // Free space in bytes
	Available uint64  `json:"available"` // Available space in bytes
	Used      uint64  `json:"used"`      // Used space in bytes
	UsedPct   float64 `json:"used_pct"`  // Used percentage
}

// CheckDiskSpace checks disk space for a given path. The nearest existing
// ancestor is measured when the path itself does not exist yet.
func (rc *ResourceChecker) CheckDiskSpace(path string) (*DiskSpaceInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	probe := absPath
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}

	usage, err := statDisk(probe)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk statistics: %w", err)
	}

	var usedPct float64
	if usage.Total > 0 {
		usedPct = float64(usage.Used) / float64(usage.Total) * 100
	}

	info := &DiskSpaceInfo{
		Path:      absPath,
		Total:     usage.Total,
		Free:      usage.Free,
		Available: usage.Available,
		Used:      usage.Used,
		UsedPct:   usedPct,
	}

	if rc.logger != nil {
		rc.logger.Debug("Disk space for %s: %.2f%% used (%.2f GB / %.2f GB)",
			absPath, usedPct, float64(usage.Used)/(1024*1024*1024), float64(usage.Total)/(1024*1024*1024))
	}

	return info, nil
}

// EnsureWritable verifies write permission on a directory by creating it if
// absent and then creating and removing a probe file inside it.
func (rc *ResourceChecker) EnsureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypePermission, "ROOT_NOT_CREATABLE",
			fmt.Sprintf("cannot create directory %s", dir)).
			WithDetail("path", dir)
	}

	probe := filepath.Join(dir, fmt.Sprintf(".sdkforge_write_test_%d", time.Now().UnixNano()))
	file, err := os.Create(probe)
	if err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypePermission, "ROOT_NOT_WRITABLE",
			fmt.Sprintf("directory %s is not writable", dir)).
			WithDetail("path", dir)
	}
	file.Close()
	os.Remove(probe)

	if rc.logger != nil {
		rc.logger.Debug("Write permission confirmed for %s", dir)
	}
	return nil
}

// FormatDiskInfo formats disk space information for display
func FormatDiskInfo(info *DiskSpaceInfo) string {
	if info == nil {
		return "no disk information available"
	}
	return fmt.Sprintf("%s: %.2f GB available of %.2f GB (%.1f%% used)",
		info.Path,
		float64(info.Available)/(1024*1024*1024),
		float64(info.Total)/(1024*1024*1024),
		info.UsedPct)
}
