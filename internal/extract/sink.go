package extract

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"mediarelay/internal/httputil"
)

// Sink receives relayed media. Commit is called exactly once, before the
// first byte is written; after it the response metadata is fixed.
type Sink interface {
	io.Writer
	Commit(contentType, filename string) error
}

// HTTPSink writes relayed media into an HTTP response, flushing after every
// chunk so the client sees bytes as they arrive.
type HTTPSink struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewHTTPSink wraps w.
func NewHTTPSink(w http.ResponseWriter) *HTTPSink {
	return &HTTPSink{w: w, rc: http.NewResponseController(w)}
}

// Commit sets the attachment headers and sends the status line. No
// Content-Length is sent: merged or transcoded output has no size until
// the extractor finishes.
func (s *HTTPSink) Commit(contentType, filename string) error {
	h := s.w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", httputil.ContentDisposition(filename))
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	h.Del("Content-Length")
	s.w.WriteHeader(http.StatusOK)
	return s.flush()
}

func (s *HTTPSink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		return n, err
	}
	return n, s.flush()
}

// Abort drops the connection so the client observes a truncated transfer
// instead of a cleanly terminated body.
func (s *HTTPSink) Abort() (err error) {
	// gin's writer asserts http.Hijacker on the wrapped writer unchecked.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("connection cannot be hijacked: %v", r)
		}
	}()
	conn, _, err := s.rc.Hijack()
	if err != nil {
		return err
	}
	return conn.Close()
}

func (s *HTTPSink) flush() error {
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

var errSinkSealed = errors.New("sink closed")

// relayWriter commits the sink lazily on the first byte, counts bytes and
// cancels the extractor as soon as the sink stops accepting data.
type relayWriter struct {
	mu          sync.Mutex
	sink        Sink
	contentType string
	filename    string
	onError     func()

	committed bool
	sealed    bool
	n         int64
	err       error
}

func (w *relayWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sealed {
		return 0, errSinkSealed
	}
	if w.err != nil {
		return 0, w.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	if !w.committed {
		if err := w.sink.Commit(w.contentType, w.filename); err != nil {
			w.fail(err)
			return 0, err
		}
		w.committed = true
	}

	n, err := w.sink.Write(p)
	w.n += int64(n)
	if err != nil {
		w.fail(err)
		return n, err
	}
	return n, nil
}

func (w *relayWriter) fail(err error) {
	w.err = err
	if w.onError != nil {
		w.onError()
	}
}

// seal stops further writes and reports what reached the sink.
func (w *relayWriter) seal() (n int64, committed bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sealed = true
	return w.n, w.committed, w.err
}
