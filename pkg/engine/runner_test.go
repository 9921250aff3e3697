package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/imagecompress"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/outputarchive"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/planner"
)

type mockCompressor struct {
	called  bool
	input   imagecompress.CompressInput
	summary *imagecompress.Summary
	err     error
}

func (m *mockCompressor) Compress(ctx context.Context, input imagecompress.CompressInput) (*imagecompress.Summary, error) {
	m.called = true
	m.input = input
	if m.summary == nil {
		m.summary = &imagecompress.Summary{}
	}
	return m.summary, m.err
}

type mockArchiver struct {
	called      bool
	srcDir      string
	archivePath string
	format      outputarchive.Format
	err         error
}

func (m *mockArchiver) Create(ctx context.Context, srcDir, archivePath string, format outputarchive.Format, level outputarchive.Level) (int64, error) {
	m.called = true
	m.srcDir = srcDir
	m.archivePath = archivePath
	m.format = format
	return 0, m.err
}

func newPlan(archive bool) *planner.CompressPlan {
	return &planner.CompressPlan{
		Archive: outputarchive.Plan{Enabled: archive, Format: outputarchive.TarZst, Level: outputarchive.Default},
	}
}

func TestExecuteCompress(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in")
	out := filepath.Join(t.TempDir(), "out")

	t.Run("Compress only", func(t *testing.T) {
		c := &mockCompressor{summary: &imagecompress.Summary{Matched: 2, Compressed: 1, Failed: 1}}
		a := &mockArchiver{}

		summary, err := NewRunner(c, a).ExecuteCompress(context.Background(), in, out, newPlan(false))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !c.called || c.input.InputPath != in || c.input.OutputPath != out {
			t.Errorf("expected compressor to be called with %s -> %s, got %+v", in, out, c.input)
		}
		if a.called {
			t.Error("expected archiver not to be called when archive is disabled")
		}
		if summary.Failed != 1 {
			t.Errorf("expected the compressor summary to be returned, got %+v", summary)
		}
	})

	t.Run("Compress and archive", func(t *testing.T) {
		c := &mockCompressor{}
		a := &mockArchiver{}

		if _, err := NewRunner(c, a).ExecuteCompress(context.Background(), in, out, newPlan(true)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !a.called {
			t.Fatal("expected archiver to be called")
		}
		if a.srcDir != out || a.archivePath != out+".tar.zst" || a.format != outputarchive.TarZst {
			t.Errorf("unexpected archiver call: %+v", a)
		}
	})

	t.Run("Fatal compress error skips archive", func(t *testing.T) {
		wantErr := errors.New("input gone")
		c := &mockCompressor{err: wantErr}
		a := &mockArchiver{}

		_, err := NewRunner(c, a).ExecuteCompress(context.Background(), in, out, newPlan(true))
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected %v, got %v", wantErr, err)
		}
		if a.called {
			t.Error("expected archiver not to run after a fatal error")
		}
	})

	t.Run("Archive error is fatal", func(t *testing.T) {
		wantErr := errors.New("disk full")
		c := &mockCompressor{}
		a := &mockArchiver{err: wantErr}

		summary, err := NewRunner(c, a).ExecuteCompress(context.Background(), in, out, newPlan(true))
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected %v, got %v", wantErr, err)
		}
		if summary == nil {
			t.Error("expected the summary to be returned alongside the archive error")
		}
	})

	t.Run("Cancelled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := &mockCompressor{}

		if _, err := NewRunner(c, &mockArchiver{}).ExecuteCompress(ctx, in, out, newPlan(false)); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if c.called {
			t.Error("expected compressor not to be called")
		}
	})
}
