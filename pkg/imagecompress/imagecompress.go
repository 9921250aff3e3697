// Package imagecompress implements the per-directory compression pass: it lists
// the input directory, keeps the entries that look like images and re-encodes
// each of them as a JPEG in the output directory.
//
// A failure on a single file is logged and recorded in the run's Summary but
// never aborts the pass. Only an inaccessible input directory, an output
// directory that cannot be prepared, or a cancelled context are returned as
// errors.
package imagecompress

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/compressmetrics"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/imagetype"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/plog"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/preflight"
)

// CompressInput names the directories of a single run. Both paths must be absolute.
type CompressInput struct {
	InputPath  string
	OutputPath string
}

func (in CompressInput) validate() error {
	if in.InputPath == "" || in.OutputPath == "" {
		return errors.New("input and output paths must not be empty")
	}
	if !filepath.IsAbs(in.InputPath) || !filepath.IsAbs(in.OutputPath) {
		return fmt.Errorf("input and output paths must be absolute, got %q and %q", in.InputPath, in.OutputPath)
	}
	return nil
}

// Encoder converts the raw bytes of an image into JPEG bytes.
type Encoder interface {
	ToJPEG(data []byte) ([]byte, error)
}

// Plan holds the run options that do not change between files.
type Plan struct {
	// DryRun classifies and logs entries without writing anything.
	DryRun bool
	// Metrics enables the end-of-run counters summary.
	Metrics bool
}

// Compressor runs compression passes with a fixed encoder and plan.
type Compressor struct {
	encoder Encoder
	plan    Plan
}

// NewCompressor creates a Compressor that re-encodes images with enc.
func NewCompressor(enc Encoder, p Plan) *Compressor {
	return &Compressor{encoder: enc, plan: p}
}

// Compress processes every image directly inside input.InputPath, one file at
// a time. The returned Summary is non-nil whenever the pass started, including
// when it was cut short by ctx.
func (c *Compressor) Compress(ctx context.Context, input CompressInput) (*Summary, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	if err := preflight.CheckInputAccessible(input.InputPath); err != nil {
		return nil, err
	}

	if c.plan.DryRun {
		plog.Notice("[DRY RUN] Would write output to", "path", input.OutputPath)
	} else if err := preflight.EnsureOutputDir(input.OutputPath); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(input.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list %s: %v", preflight.ErrInputInaccessible, input.InputPath, err)
	}

	var m compressmetrics.Metrics
	if c.plan.Metrics {
		m = &compressmetrics.CompressionMetrics{}
	} else {
		// Use the No-op implementation if metrics are disabled.
		m = &compressmetrics.NoopMetrics{}
	}

	summary := &Summary{}
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		name := entry.Name()
		if !entry.Type().IsRegular() {
			plog.Debug("Skipping non-regular entry", "name", name)
			summary.Skipped++
			m.AddFilesSkipped(1)
			continue
		}
		if !imagetype.IsImage(name) {
			plog.Debug("Skipping non-image file", "name", name)
			summary.Skipped++
			m.AddFilesSkipped(1)
			continue
		}

		summary.Matched++
		if c.plan.DryRun {
			plog.Notice("[DRY RUN] COMPRESS", "file", name, "output", imagetype.OutputName(name))
			continue
		}

		res := c.compressImage(filepath.Join(input.InputPath, name), input.OutputPath)
		summary.add(res)
		switch res.Status {
		case StatusCompressed:
			m.AddFilesCompressed(1)
			m.AddBytesRead(res.BytesRead)
			m.AddBytesWritten(res.BytesWritten)
		case StatusFailed:
			m.AddFilesFailed(1)
		}
	}

	if summary.Failed > 0 {
		plog.Warn("Some images could not be compressed", "failed", summary.Failed, "matched", summary.Matched)
	}
	m.LogSummary("Compression finished")
	return summary, nil
}
