// Package engine sequences a compress run: the per-file pass followed by the
// optional archive step.
package engine

import (
	"context"
	"fmt"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/imagecompress"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/outputarchive"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/planner"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/plog"
)

type compressor interface {
	Compress(ctx context.Context, input imagecompress.CompressInput) (*imagecompress.Summary, error)
}

type archiver interface {
	Create(ctx context.Context, srcDir, archivePath string, format outputarchive.Format, level outputarchive.Level) (int64, error)
}

// Runner executes compress plans with its leaf workers.
type Runner struct {
	compressor compressor
	archiver   archiver
}

// NewRunner creates a Runner from its leaf workers.
func NewRunner(c compressor, a archiver) *Runner {
	return &Runner{compressor: c, archiver: a}
}

// ExecuteCompress compresses the images of absInputPath into absOutputPath and,
// when the plan asks for it, packs the output directory afterwards.
// Per-file failures are reported in the Summary; only fatal errors are returned.
func (r *Runner) ExecuteCompress(ctx context.Context, absInputPath, absOutputPath string, p *planner.CompressPlan) (*imagecompress.Summary, error) {
	// Check for cancellation at the very beginning.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	plog.Info("Starting compression", "input", absInputPath, "output", absOutputPath)

	summary, err := r.compressor.Compress(ctx, imagecompress.CompressInput{
		InputPath:  absInputPath,
		OutputPath: absOutputPath,
	})
	if err != nil {
		return summary, err
	}

	plog.Info("Compression pass finished",
		"matched", summary.Matched,
		"compressed", summary.Compressed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)

	if !p.Archive.Enabled {
		return summary, nil
	}

	archivePath := outputarchive.PathFor(absOutputPath, p.Archive.Format)
	plog.Info("Creating output archive", "path", archivePath, "format", p.Archive.Format, "level", p.Archive.Level)
	if _, err := r.archiver.Create(ctx, absOutputPath, archivePath, p.Archive.Format, p.Archive.Level); err != nil {
		return summary, fmt.Errorf("failed to create output archive: %w", err)
	}
	return summary, nil
}
