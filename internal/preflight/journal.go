package preflight

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/amanjournal/internal/document"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/snapshot"
)

// CheckJournalDir checks that the journal directory exists and counts its
// entries. An empty journal is a warning.
func (c *Checker) CheckJournalDir(dir string) CheckResult {
	result := CheckResult{Name: "journal_dir", Required: true}

	info, err := os.Stat(dir)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot access journal: %v", err)
		return result
	}
	if !info.IsDir() {
		result.Status = StatusFail
		result.Message = "not a directory"
		return result
	}

	entries, unreadable := 0, 0
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			unreadable++
			return nil
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), document.Ext) {
			entries++
		}
		return nil
	})
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read journal: %v", err)
		return result
	}

	switch {
	case entries == 0:
		result.Status = StatusWarn
		result.Message = "no entries found"
		result.Details = "entries are " + document.Ext + " files anywhere under the journal directory"
	case unreadable > 0:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d entries, %d paths unreadable", entries, unreadable)
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%d entries", entries)
	}
	return result
}

// CheckWritePermissions checks that snapshots can be written to dir.
func (c *Checker) CheckWritePermissions(dir string) CheckResult {
	result := CheckResult{Name: "write_permissions", Required: true}

	f, err := os.CreateTemp(dir, ".amanjournal-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot write snapshots: %v", err)
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = "OK"
	return result
}

// CheckJournalLock checks that no other process owns the journal. The lock
// is taken and released immediately.
func (c *Checker) CheckJournalLock(dir string) CheckResult {
	result := CheckResult{Name: "journal_lock", Required: false}

	lock, err := snapshot.AcquireOwner(dir)
	if err != nil {
		result.Status = StatusWarn
		if jerrors.GetCode(err) == jerrors.ErrCodeJournalLocked {
			result.Message = "in use by another amanjournal process"
			result.Details = "commands that load the journal will fail until it exits"
			return result
		}
		result.Message = fmt.Sprintf("cannot check lock: %v", err)
		return result
	}
	_ = lock.Release()

	result.Status = StatusPass
	result.Message = "free"
	return result
}
