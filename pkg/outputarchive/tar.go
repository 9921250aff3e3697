package outputarchive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

func newCompressedWriter(w io.Writer, format Format, level Level) (io.WriteCloser, error) {
	if format == TarZst {
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(level.zstdLevel()))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zw, nil
	}
	gw, err := pgzip.NewWriterLevel(w, level.flateLevel())
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	return gw, nil
}

func writeTar(ctx context.Context, w io.Writer, entries []entry, format Format, level Level) (retErr error) {
	compressedWriter, err := newCompressedWriter(w, format, level)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(compressedWriter)

	defer func() {
		if err := tw.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("tar writer close failed: %w", err)
		}
		if err := compressedWriter.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("compressed writer close failed: %w", err)
		}
	}()

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		header, err := tar.FileInfoHeader(e.info, "")
		if err != nil {
			return fmt.Errorf("failed to create tar header for %s: %w", e.name, err)
		}
		header.Name = e.name
		// Host-specific owner names are left out.
		header.Uname, header.Gname = "", ""

		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header for %s: %w", e.name, err)
		}
		if err := copyEntry(tw, e); err != nil {
			return err
		}
	}
	return nil
}
