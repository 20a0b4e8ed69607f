package preflight

import (
	"fmt"
	"syscall"
)

// MinDiskSpaceBytes is the free space required in the data directory.
const MinDiskSpaceBytes = 100 * 1024 * 1024

// MinFileDescriptors is the lowest acceptable open file limit.
const MinFileDescriptors = 1024

// CheckDiskSpace checks the free space of the data directory's filesystem.
// Run it after CheckWritePermissions, which creates the directory.
func (c *Checker) CheckDiskSpace() CheckResult {
	result := CheckResult{Name: "disk_space", Required: true}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(c.cfg.Data.Dir, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free (minimum: %s)", formatBytes(available), formatBytes(MinDiskSpaceBytes))
	if available < MinDiskSpaceBytes {
		result.Status = StatusFail
		return result
	}
	result.Status = StatusPass
	return result
}

// CheckFileDescriptors checks the open file limit. Ingestion workers and
// the index files each hold descriptors.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors"}

	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to read limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", limit.Cur, MinFileDescriptors)
	if limit.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "run 'ulimit -n 10240' to raise the limit"
		return result
	}
	result.Status = StatusPass
	return result
}

// formatBytes formats bytes as a human-readable size.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.0f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
