package imagecompress

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/imagetype"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/plog"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/util"
)

// compressImage re-encodes the file at absSrcPath into outputDir. Errors are
// logged and returned inside the FileResult, never to the caller.
func (c *Compressor) compressImage(absSrcPath, outputDir string) FileResult {
	name := filepath.Base(absSrcPath)
	res := FileResult{
		Name:       name,
		OutputPath: filepath.Join(outputDir, imagetype.OutputName(name)),
	}

	if err := c.writeJPEG(absSrcPath, &res); err != nil {
		res.Status = StatusFailed
		res.Err = err
		plog.Warn("Failed to compress image, skipping", "file", name)
		plog.Debug("Compression error", "file", name, "error", err)
		return res
	}

	res.Status = StatusCompressed
	plog.Notice("COMPRESSED", "file", name, "output", res.OutputPath,
		"from", util.FormatBytes(res.BytesRead), "to", util.FormatBytes(res.BytesWritten))
	return res
}

func (c *Compressor) writeJPEG(absSrcPath string, res *FileResult) error {
	data, err := os.ReadFile(absSrcPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", absSrcPath, err)
	}
	res.BytesRead = int64(len(data))

	out, err := c.encoder.ToJPEG(data)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(res.OutputPath, out); err != nil {
		return err
	}
	res.BytesWritten = int64(len(out))
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into
// place, so path is either the previous content or the complete new one.
func writeFileAtomic(path string, data []byte) (retErr error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	// CreateTemp uses 0600.
	if err := os.Chmod(tmpPath, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
