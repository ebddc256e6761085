// Package extract orchestrates the external media extractor: it probes URLs
// for metadata and relays the selected variant's bytes to a writer. The
// extractor always runs with an explicit argument vector, never through a
// shell, and one child process is owned by exactly one request.
package extract

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mediarelay/internal/media"
)

// stderrTailBytes is how much extractor stderr is kept for classification.
const stderrTailBytes = 16 * 1024

// Options tunes extractor invocations.
type Options struct {
	ProbeTimeout     time.Duration // 0 disables the bound
	StreamTimeout    time.Duration // 0 disables the bound
	SocketTimeout    int           // seconds, passed to the extractor
	MaxMetadataBytes int64
}

func (o Options) withDefaults() Options {
	if o.MaxMetadataBytes <= 0 {
		o.MaxMetadataBytes = 16 * 1024 * 1024
	}
	return o
}

// Extractor is the pair of operations the relay exposes.
type Extractor interface {
	Probe(ctx context.Context, rawURL string) (*media.Descriptor, error)
	Stream(ctx context.Context, req media.StreamRequest, sink Sink) (*StreamResult, error)
}

// Relay bundles a Prober and a Streamer sharing one runner and classifier.
type Relay struct {
	prober   *Prober
	streamer *Streamer
}

// New builds a Relay over runner.
func New(runner Runner, classifier *Classifier, opts Options, log zerolog.Logger) *Relay {
	return &Relay{
		prober:   NewProber(runner, classifier, opts, log),
		streamer: NewStreamer(runner, classifier, opts, log),
	}
}

// SetEnricher installs an enricher on the probe path.
func (r *Relay) SetEnricher(e Enricher) {
	r.prober.SetEnricher(e)
}

// Probe resolves rawURL into a descriptor.
func (r *Relay) Probe(ctx context.Context, rawURL string) (*media.Descriptor, error) {
	return r.prober.Probe(ctx, rawURL)
}

// Stream relays the requested variant into sink.
func (r *Relay) Stream(ctx context.Context, req media.StreamRequest, sink Sink) (*StreamResult, error) {
	return r.streamer.Stream(ctx, req, sink)
}
