// Package download saves relayed media to local files.
// Output paths are validated against directory traversal, and a failed
// transfer never leaves a partial file behind.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mediarelay/internal/extract"
	"mediarelay/internal/httputil"
	"mediarelay/internal/media"
)

// Streamer relays one media variant into a sink.
type Streamer interface {
	Stream(ctx context.Context, req media.StreamRequest, sink extract.Sink) (*extract.StreamResult, error)
}

// writerSink adapts a plain writer. Commit only records the metadata.
type writerSink struct {
	w           io.Writer
	contentType string
	filename    string
}

func (s *writerSink) Commit(contentType, filename string) error {
	s.contentType = contentType
	s.filename = filename
	return nil
}

func (s *writerSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// Save streams req into outputDir and returns the final file path. Data is
// written to a hidden temp file and renamed into place only on success.
func Save(ctx context.Context, s Streamer, req media.StreamRequest, outputDir string) (string, *extract.StreamResult, error) {
	absDir, err := filepath.Abs(outputDir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return "", nil, fmt.Errorf("creating output directory: %w", err)
	}

	filename := httputil.AttachmentFilename(req.Title, req.Kind.Extension())
	outputPath, err := httputil.SafeDownloadPath(absDir, filename)
	if err != nil {
		return "", nil, fmt.Errorf("invalid output path: %w", err)
	}

	tmp, err := os.CreateTemp(absDir, ".mediarelay-*.part")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	res, err := s.Stream(ctx, req, &writerSink{w: tmp})
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", res, err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", res, fmt.Errorf("syncing download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", res, fmt.Errorf("closing download: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return "", res, fmt.Errorf("moving download into place: %w", err)
	}

	return outputPath, res, nil
}

// WriteTo streams req into w, for piping media to another program.
func WriteTo(ctx context.Context, s Streamer, req media.StreamRequest, w io.Writer) (*extract.StreamResult, error) {
	return s.Stream(ctx, req, &writerSink{w: w})
}
