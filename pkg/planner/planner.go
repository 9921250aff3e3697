// Package planner turns a validated configuration into the immutable plan
// the engine executes.
package planner

import (
	"github.com/paulschiretz/pgl-imagecompressor/pkg/codec"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/config"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/imagecompress"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/outputarchive"
)

// CompressPlan holds everything the engine needs for one compress run.
type CompressPlan struct {
	Codec    codec.Options
	Compress imagecompress.Plan
	Archive  outputarchive.Plan
}

// GenerateCompressPlan builds the plan for a compress run from cfg.
func GenerateCompressPlan(cfg config.Config) (*CompressPlan, error) {
	dryRun := cfg.Runtime.DryRun
	metrics := cfg.Metrics

	format, err := outputarchive.ParseFormat(string(cfg.Archive.Format))
	if err != nil {
		return nil, err
	}
	level, err := outputarchive.ParseLevel(string(cfg.Archive.Level))
	if err != nil {
		return nil, err
	}

	return &CompressPlan{
		Codec: codec.Options{
			Quality:      cfg.Compression.Quality,
			MaxDimension: cfg.Compression.MaxDimension,
		},
		Compress: imagecompress.Plan{
			DryRun:  dryRun,
			Metrics: metrics,
		},
		Archive: outputarchive.Plan{
			// Nothing is written in a dry run, so there is nothing to pack.
			Enabled: cfg.Archive.Enabled && !dryRun,
			Format:  format,
			Level:   level,
		},
	}, nil
}
