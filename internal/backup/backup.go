// Package backup copies files into a timestamped holding area before a
// destructive operation removes them. Backup directories are never
// auto-pruned.
package backup

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperr "github.com/pagecap/pagecap/internal/errors"
)

const (
	dirPrefix  = "backup_duplicates_"
	timeLayout = "20060102_150405"
)

// Set records one holding directory and the originals copied into it.
type Set struct {
	Dir       string
	CreatedAt time.Time
	Originals []string
}

// FailedDeletion reports a single file that could not be removed.
type FailedDeletion struct {
	Path string
	Err  error
}

// Result enumerates which files were and were not removed by Apply.
// In dry-run mode Deleted lists the files that would have been removed.
type Result struct {
	DryRun    bool
	BackupDir string
	Deleted   []string
	Failed    []FailedDeletion
}

// PartialFailure returns a PARTIAL_DELETION error when some deletions failed.
func (r *Result) PartialFailure() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return apperr.Newf(apperr.CodePartialDeletion, "%d of %d deletions failed",
		len(r.Failed), len(r.Failed)+len(r.Deleted))
}

// Options control how Apply treats a deletion batch.
type Options struct {
	DisableBackup bool
	DryRun        bool
}

// Manager creates backup sets under a fixed root directory.
type Manager struct {
	root string
	now  func() time.Time
}

// NewManager returns a manager that creates holding directories inside root.
func NewManager(root string) *Manager {
	return &Manager{root: root, now: time.Now}
}

// Backup copies every path into a fresh holding directory. If any single
// copy fails, the whole operation fails with BACKUP_INCOMPLETE and no
// deletion may proceed for the batch.
func (m *Manager) Backup(paths []string) (*Set, error) {
	created := m.now()
	dir, err := m.createDir(created)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeBackupIncomplete, "create backup directory")
	}

	set := &Set{Dir: dir, CreatedAt: created}
	for _, p := range paths {
		if err := copyFile(p, filepath.Join(dir, filepath.Base(p))); err != nil {
			return nil, apperr.Wrapf(err, apperr.CodeBackupIncomplete, "backup %s", p)
		}
		set.Originals = append(set.Originals, p)
	}
	return set, nil
}

// Apply deletes the given files, backing them up first unless disabled.
// A failure deleting one file is reported but does not block the rest of
// the batch. Dry-run reports the same decisions with zero mutation.
func (m *Manager) Apply(paths []string, opts Options) (*Result, error) {
	res := &Result{DryRun: opts.DryRun}

	if opts.DryRun {
		if !opts.DisableBackup && len(paths) > 0 {
			res.BackupDir = filepath.Join(m.root, dirPrefix+m.now().Format(timeLayout))
		}
		res.Deleted = append([]string(nil), paths...)
		return res, nil
	}

	if len(paths) == 0 {
		return res, nil
	}

	if !opts.DisableBackup {
		set, err := m.Backup(paths)
		if err != nil {
			return nil, err
		}
		res.BackupDir = set.Dir
	}

	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			slog.Warn("failed to delete file", "path", p, "error", err)
			res.Failed = append(res.Failed, FailedDeletion{Path: p, Err: err})
			continue
		}
		res.Deleted = append(res.Deleted, p)
	}
	return res, nil
}

// createDir makes a uniquely named holding directory, appending a numeric
// suffix when the timestamped name already exists.
func (m *Manager) createDir(ts time.Time) (string, error) {
	base := filepath.Join(m.root, dirPrefix+ts.Format(timeLayout))
	dir := base
	for i := 1; ; i++ {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
		dir = fmt.Sprintf("%s_%d", base, i)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
