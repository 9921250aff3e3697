// Package outputarchive packs the images written by a compression run into a
// single zip, tar.gz or tar.zst file that sits next to the output directory.
package outputarchive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/plog"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/util"
)

const ioBufferSize = 256 * 1024

// Plan holds the archive options of a run.
type Plan struct {
	Enabled bool
	Format  Format
	Level   Level
}

// PathFor returns the archive path for outputDir, e.g. "/x/out" -> "/x/out.zip".
func PathFor(outputDir string, format Format) string {
	return filepath.Clean(outputDir) + format.Ext()
}

// entry is a regular file queued for the archive.
type entry struct {
	absPath string
	name    string
	info    os.FileInfo
}

// Create packs the regular files directly inside srcDir into archivePath.
// The archive is written to a temp file in the same directory and renamed into
// place, so an interrupted run never leaves a truncated archive behind.
// It returns the size of the archive in bytes.
func Create(ctx context.Context, srcDir, archivePath string, format Format, level Level) (size int64, retErr error) {
	if _, ok := formatToString[format]; !ok {
		return 0, fmt.Errorf("invalid archive format: %q", string(format))
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	entries, err := collectEntries(srcDir)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(archivePath), "."+filepath.Base(archivePath)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp archive: %w", err)
	}
	tempPath := tmp.Name()

	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tempPath)
		}
	}()

	cw := &countingWriter{w: tmp}
	bufWriter := bufio.NewWriterSize(cw, ioBufferSize)

	switch format {
	case Zip:
		err = writeZip(ctx, bufWriter, entries, level)
	default:
		err = writeTar(ctx, bufWriter, entries, format, level)
	}
	if err != nil {
		return 0, err
	}
	if err := bufWriter.Flush(); err != nil {
		return 0, fmt.Errorf("buffer flush failed: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp archive: %w", err)
	}
	if err := os.Chmod(tempPath, util.UserWritableFilePerms); err != nil {
		return 0, fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err := os.Rename(tempPath, archivePath); err != nil {
		return 0, fmt.Errorf("failed to rename temp archive to final path: %w", err)
	}

	plog.Info("Archive created", "path", archivePath, "entries", len(entries), "size", util.FormatBytes(cw.n))
	return cw.n, nil
}

func collectEntries(srcDir string) ([]entry, error) {
	dirEntries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", srcDir, err)
	}

	var entries []entry
	for _, d := range dirEntries {
		if !d.Type().IsRegular() {
			continue
		}
		info, err := d.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to get file info for %s: %w", d.Name(), err)
		}
		absPath := filepath.Join(srcDir, d.Name())
		relPath, err := filepath.Rel(srcDir, absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to get relative path for %s: %w", absPath, err)
		}
		entries = append(entries, entry{
			absPath: absPath,
			// Archive entry names always use forward slashes.
			name: util.NormalizePath(relPath),
			info: info,
		})
	}
	return entries, nil
}

// copyEntry streams the file of e into w.
func copyEntry(w io.Writer, e entry) error {
	f, err := os.Open(e.absPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", e.absPath, err)
	}
	defer f.Close()

	// The header was built from the earlier stat; a file that grew or shrank
	// since then would corrupt a tar stream.
	n, err := io.Copy(w, io.LimitReader(f, e.info.Size()))
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", e.name, err)
	}
	if n != e.info.Size() {
		return fmt.Errorf("file size changed while archiving: %s", e.absPath)
	}
	plog.Notice("ADD", "file", e.name)
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// Archiver creates output archives. It exists so callers can swap the
// archive step in tests.
type Archiver struct{}

// NewArchiver returns an Archiver.
func NewArchiver() *Archiver {
	return &Archiver{}
}

// Create packs srcDir into archivePath, see the package-level Create.
func (a *Archiver) Create(ctx context.Context, srcDir, archivePath string, format Format, level Level) (int64, error) {
	return Create(ctx, srcDir, archivePath, format, level)
}
