package outputarchive

import (
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

func writeZip(ctx context.Context, w io.Writer, entries []entry, level Level) (retErr error) {
	zw := zip.NewWriter(w)
	lvl := level.flateLevel()
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, lvl)
	})

	defer func() {
		if err := zw.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("zip writer close failed: %w", err)
		}
	}()

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		header, err := zip.FileInfoHeader(e.info)
		if err != nil {
			return fmt.Errorf("failed to create zip header for %s: %w", e.name, err)
		}
		header.Name = e.name
		header.Method = zip.Deflate

		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create zip entry for %s: %w", e.name, err)
		}
		if err := copyEntry(fw, e); err != nil {
			return err
		}
	}
	return nil
}
