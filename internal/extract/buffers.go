package extract

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// errMetadataTooLarge is returned once probe output exceeds its cap.
var errMetadataTooLarge = errors.New("extractor metadata exceeds size limit")

// cappedBuffer collects probe stdout up to max bytes. On overflow it calls
// onOverflow (which cancels the extractor) and rejects further writes.
type cappedBuffer struct {
	buf        bytes.Buffer
	max        int64
	onOverflow func()
	overflowed bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.overflowed {
		return 0, errMetadataTooLarge
	}
	if int64(b.buf.Len()+len(p)) > b.max {
		b.overflowed = true
		if b.onOverflow != nil {
			b.onOverflow()
		}
		return 0, errMetadataTooLarge
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) Bytes() []byte { return b.buf.Bytes() }

// tailBuffer keeps only the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if n >= t.max {
		t.buf = append(t.buf[:0], p[n-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + n - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

var progressPattern = regexp.MustCompile(`^\[download\]\s+(\d+(\.\d+)?%|Destination:|Resuming)|^\s*(frame|size)=\s*\S+|\bETA\b|^\[download\]\s+Got fragment|\(frag \d+/\d+\)`)

// IsProgressLine reports whether an extractor stderr line is progress chatter.
func IsProgressLine(line string) bool {
	return progressPattern.MatchString(line)
}

// maxLineLength bounds a single buffered stderr line.
const maxLineLength = 4096

// stderrLogger splits extractor stderr into lines, logs the diagnostic ones
// and mirrors everything into a tail buffer for later classification.
type stderrLogger struct {
	mu      sync.Mutex
	log     zerolog.Logger
	tail    *tailBuffer
	pending []byte
}

func newStderrLogger(log zerolog.Logger, tail *tailBuffer) *stderrLogger {
	return &stderrLogger{log: log, tail: tail}
}

func (s *stderrLogger) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tail.Write(p)
	s.pending = append(s.pending, p...)
	for {
		// yt-dlp redraws progress with \r when not in --newline mode
		i := bytes.IndexAny(s.pending, "\r\n")
		if i < 0 {
			break
		}
		s.emit(string(s.pending[:i]))
		s.pending = s.pending[i+1:]
	}
	if len(s.pending) > maxLineLength {
		s.emit(string(s.pending))
		s.pending = s.pending[:0]
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (s *stderrLogger) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) > 0 {
		s.emit(string(s.pending))
		s.pending = nil
	}
}

func (s *stderrLogger) emit(line string) {
	line = strings.TrimSpace(line)
	if line == "" || IsProgressLine(line) {
		return
	}
	if strings.HasPrefix(line, "ERROR") {
		s.log.Warn().Str("stderr", line).Msg("extractor error output")
		return
	}
	s.log.Debug().Str("stderr", line).Msg("extractor output")
}
