package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mediarelay/internal/httputil"
	"mediarelay/internal/media"
)

// StreamResult describes what a stream call delivered.
type StreamResult struct {
	Filename    string
	ContentType string
	Bytes       int64
	Committed   bool // Headers were sent; the response can no longer change status
	Aborted     bool // The client went away before the extractor finished
	Duration    time.Duration
}

// Streamer pipes extractor output into a Sink.
type Streamer struct {
	runner     Runner
	classifier *Classifier
	log        zerolog.Logger
	opts       Options
}

// NewStreamer creates a streamer over runner.
func NewStreamer(runner Runner, classifier *Classifier, opts Options, log zerolog.Logger) *Streamer {
	return &Streamer{
		runner:     runner,
		classifier: classifier,
		log:        log.With().Str("component", "streamer").Logger(),
		opts:       opts.withDefaults(),
	}
}

// Stream runs the extractor in stream mode and copies its stdout into sink
// as it arrives. Memory use is independent of media size: the copy uses a
// fixed buffer and a slow sink blocks the child on its output pipe.
//
// A failure before the first byte is returned with res.Committed == false and
// the caller may still report an error status. After the first byte the
// caller can only end the response.
func (s *Streamer) Stream(ctx context.Context, req media.StreamRequest, sink Sink) (*StreamResult, error) {
	rawURL, err := CheckURL(req.OriginalURL)
	if err != nil {
		return nil, err
	}

	res := &StreamResult{
		Filename:    httputil.AttachmentFilename(req.Title, req.Kind.Extension()),
		ContentType: req.Kind.ContentType(),
	}

	parent := ctx
	if s.opts.StreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.StreamTimeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := zerolog.Ctx(parent)
	if log.GetLevel() == zerolog.Disabled {
		log = &s.log
	}

	out := &relayWriter{
		sink:        sink,
		contentType: res.ContentType,
		filename:    res.Filename,
		onError:     cancel,
	}
	tail := newTailBuffer(stderrTailBytes)
	stderr := newStderrLogger(*log, tail)
	args := StreamArgs(rawURL, req.Kind, s.opts.SocketTimeout)

	log.Debug().Strs("args", args).Str("kind", req.Kind.String()).Msg("starting stream")

	start := time.Now()
	runErr := s.runner.Run(ctx, args, out, stderr)
	stderr.Flush()
	n, committed, writeErr := out.seal()
	res.Bytes = n
	res.Committed = committed
	res.Duration = time.Since(start)

	event := log.Info()
	if runErr != nil {
		event = log.Warn()
	}
	event.
		Str("url", rawURL).
		Str("kind", req.Kind.String()).
		Int64("bytes", n).
		Bool("committed", committed).
		Dur("elapsed", res.Duration).
		AnErr("run_error", runErr).
		Msg("stream finished")

	switch {
	case runErr == nil && committed:
		return res, nil
	case runErr == nil:
		return res, streamError(errors.New("extractor produced no output"))
	case writeErr != nil:
		res.Aborted = true
		return res, streamError(fmt.Errorf("writing to client: %w", writeErr))
	case parent.Err() != nil:
		res.Aborted = true
		return res, streamError(parent.Err())
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return res, streamError(fmt.Errorf("stream exceeded %s: %w", s.opts.StreamTimeout, ctx.Err()))
	}

	var exitErr *ExitError
	if !committed && errors.As(runErr, &exitErr) && s.classifier.Protected(tail.String()) {
		return res, protectedError(runErr)
	}
	log.Error().Err(runErr).Str("stderr_tail", tail.String()).Msg("extractor stream failed")
	return res, streamError(runErr)
}
