package compressmetrics

import (
	"fmt"
	"sync/atomic"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/plog"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/util"
)

// Metrics defines the interface for collecting and reporting image compression statistics.
type Metrics interface {
	AddFilesCompressed(n int64)
	AddFilesFailed(n int64)
	AddFilesSkipped(n int64)
	AddBytesRead(n int64)
	AddBytesWritten(n int64)
	LogSummary(msg string)
}

// CompressionMetrics holds the atomic counters for a compression run.
// It is the concrete implementation of the Metrics interface.
type CompressionMetrics struct {
	FilesCompressed atomic.Int64
	FilesFailed     atomic.Int64
	FilesSkipped    atomic.Int64
	BytesRead       atomic.Int64
	BytesWritten    atomic.Int64
}

func (m *CompressionMetrics) AddFilesCompressed(n int64) { m.FilesCompressed.Add(n) }
func (m *CompressionMetrics) AddFilesFailed(n int64)     { m.FilesFailed.Add(n) }
func (m *CompressionMetrics) AddFilesSkipped(n int64)    { m.FilesSkipped.Add(n) }
func (m *CompressionMetrics) AddBytesRead(n int64)       { m.BytesRead.Add(n) }
func (m *CompressionMetrics) AddBytesWritten(n int64)    { m.BytesWritten.Add(n) }

// LogSummary logs the current state of the metrics.
func (m *CompressionMetrics) LogSummary(msg string) {
	read := m.BytesRead.Load()
	written := m.BytesWritten.Load()

	// Ratio only covers successfully compressed files, so a failure does not skew it.
	var ratio float64
	if read > 0 {
		ratio = float64(written) / float64(read) * 100.0
	}

	plog.Info(msg,
		"files_compressed", m.FilesCompressed.Load(),
		"files_failed", m.FilesFailed.Load(),
		"files_skipped", m.FilesSkipped.Load(),
		"bytes_read", fmt.Sprintf("%d", read),
		"bytes_written", fmt.Sprintf("%d", written),
		"saved", util.FormatBytes(max(read-written, 0)),
		"ratio_pct", fmt.Sprintf("%.2f%%", ratio),
	)
}

// NoopMetrics is an implementation of the Metrics interface that performs no operations.
// It can be used to disable metrics collection without changing the calling code.
type NoopMetrics struct{}

func (m *NoopMetrics) AddFilesCompressed(n int64) {}
func (m *NoopMetrics) AddFilesFailed(n int64)     {}
func (m *NoopMetrics) AddFilesSkipped(n int64)    {}
func (m *NoopMetrics) AddBytesRead(n int64)       {}
func (m *NoopMetrics) AddBytesWritten(n int64)    {}
func (m *NoopMetrics) LogSummary(msg string)      {}

// Statically assert that our types implement the interface.
var _ Metrics = (*CompressionMetrics)(nil)
var _ Metrics = (*NoopMetrics)(nil)
