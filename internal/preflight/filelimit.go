package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the descriptor limit below which watching a large
// journal may fail: fsnotify holds one descriptor per directory.
const MinFileDescriptors = 1024

// CheckFileDescriptors checks the soft RLIMIT_NOFILE. A low limit is a
// warning because polling still works.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors", Required: false}

	var rl syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rl); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", rl.Cur, MinFileDescriptors)
	if rl.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "run 'ulimit -n 10240' before 'amanjournal watch' on large journals"
		return result
	}
	result.Status = StatusPass
	return result
}
