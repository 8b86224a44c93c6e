package cleanup

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/filekit/dupescan/dupescan/scan"

	"github.com/google/uuid"
)

// FailedDelete records one file that could not be moved to the backup
// directory, with the reason.
type FailedDelete struct {
	Path   string
	Reason string
}

// DeleteResult summarizes one delete operation.
type DeleteResult struct {
	DeletedFiles []string
	FailedFiles  []FailedDelete
	SpaceSaved   int64
	BackupDir    string
}

// ProgressFunc receives per-file progress while files are being moved.
type ProgressFunc func(path string, current, total int)

// Deleter "deletes" files by moving them into a timestamped backup
// directory, so a cleanup is reversible until the backup is emptied.
// Per-file failures are collected in the result, never raised.
type Deleter struct {
	backupBaseDir string
}

// NewDeleter creates a deleter that places backup directories under
// backupBaseDir (the current directory when empty).
func NewDeleter(backupBaseDir string) *Deleter {
	if backupBaseDir == "" {
		backupBaseDir = "."
	}
	return &Deleter{backupBaseDir: backupBaseDir}
}

// DeleteFiles moves the given files into a fresh backup directory and
// reports what was moved, what failed, and how much space the caller got
// back. The progress callback is optional.
func (d *Deleter) DeleteFiles(files []*scan.FileRecord, progress ProgressFunc) (*DeleteResult, error) {
	result := &DeleteResult{}
	if len(files) == 0 {
		return result, nil
	}

	backupDir, err := d.createBackupDirectory()
	if err != nil {
		return nil, err
	}
	result.BackupDir = backupDir

	for i, file := range files {
		destPath := uniqueDestination(backupDir, file.Path)
		if err := moveFile(file.Path, destPath); err != nil {
			result.FailedFiles = append(result.FailedFiles, FailedDelete{
				Path:   file.Path,
				Reason: err.Error(),
			})
			slog.Warn("Failed to move file to backup",
				"path", file.Path,
				"backup", destPath,
				"error", err)
		} else {
			result.DeletedFiles = append(result.DeletedFiles, file.Path)
			result.SpaceSaved += file.Size
		}

		if progress != nil {
			progress(file.Path, i+1, len(files))
		}
	}

	slog.Info("Cleanup completed",
		"deleted", len(result.DeletedFiles),
		"failed", len(result.FailedFiles),
		"space_saved", result.SpaceSaved,
		"backup_dir", result.BackupDir)

	return result, nil
}

// createBackupDirectory creates a timestamped backup directory. A short
// uuid suffix keeps two cleanups in the same second from colliding.
func (d *Deleter) createBackupDirectory() (string, error) {
	name := fmt.Sprintf("deleted_files_%s_%s",
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:8])
	backupDir := filepath.Join(d.backupBaseDir, name)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory %s: %w", backupDir, err)
	}
	return backupDir, nil
}

// uniqueDestination picks a destination name inside the backup directory,
// appending a counter when two deleted files share a base name.
func uniqueDestination(backupDir, originalPath string) string {
	base := filepath.Base(originalPath)
	destPath := filepath.Join(backupDir, base)
	if _, err := os.Lstat(destPath); err != nil {
		return destPath
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for counter := 1; ; counter++ {
		destPath = filepath.Join(backupDir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
		if _, err := os.Lstat(destPath); err != nil {
			return destPath
		}
	}
}

// moveFile renames src to dst, falling back to copy+remove for cross-device
// moves.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
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

// FormatSize renders a byte count as a human-readable string.
func FormatSize(sizeBytes int64) string {
	switch {
	case sizeBytes >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(sizeBytes)/float64(1<<30))
	case sizeBytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(sizeBytes)/float64(1<<20))
	case sizeBytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(sizeBytes)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", sizeBytes)
	}
}
