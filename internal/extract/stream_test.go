package extract

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mediarelay/internal/media"
)

func newTestStreamer(r Runner) *Streamer {
	return NewStreamer(r, NewClassifier(), Options{}, zerolog.Nop())
}

// recordingSink captures the order of Commit and Write calls.
type recordingSink struct {
	mu       sync.Mutex
	events   []string
	buf      bytes.Buffer
	ctype    string
	filename string
	writeErr error
}

func (s *recordingSink) Commit(contentType, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "commit")
	s.ctype = contentType
	s.filename = filename
	return nil
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "write")
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	return s.buf.Write(p)
}

func TestStreamAudio(t *testing.T) {
	payload := []byte("ID3\x04\x00fake-mp3-bytes")
	r := &fakeRunner{stdout: payload}
	rec := httptest.NewRecorder()

	res, err := newTestStreamer(r).Stream(context.Background(), media.StreamRequest{
		OriginalURL: "https://example.com/song",
		Title:       "Song",
		Kind:        media.Audio,
	}, NewHTTPSink(rec))
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}

	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type = %q, want audio/mpeg", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="Song.mp3"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec.Header().Get("Content-Length") != "" {
		t.Errorf("Content-Length must not be set, got %q", rec.Header().Get("Content-Length"))
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Errorf("body = %q, want %q", rec.Body.Bytes(), payload)
	}
	if res.Bytes != int64(len(payload)) || !res.Committed || res.Aborted {
		t.Errorf("result = %+v", res)
	}

	args := r.lastArgs()
	for _, want := range []string{AudioSelector, "-x", "mp3", "-o", "-"} {
		if !containsArg(args, want) {
			t.Errorf("audio args %v missing %q", args, want)
		}
	}
}

func TestStreamVideo(t *testing.T) {
	r := &fakeRunner{stdout: []byte("\x00\x00\x00\x18ftypmp42")}
	rec := httptest.NewRecorder()

	_, err := newTestStreamer(r).Stream(context.Background(), media.StreamRequest{
		OriginalURL: "https://example.com/clip",
		Title:       "My Video! #1 (2024).mp4",
		Kind:        media.Video,
	}, NewHTTPSink(rec))
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}

	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", got)
	}
	want := `attachment; filename="My_Video___1__2024__mp4.mp4"`
	if got := rec.Header().Get("Content-Disposition"); got != want {
		t.Errorf("Content-Disposition = %q, want %q", got, want)
	}

	args := r.lastArgs()
	if !containsArg(args, VideoSelector) || !strings.Contains(VideoSelector, "height<=720") {
		t.Errorf("video args %v should cap height at 720", args)
	}
	if !containsArg(args, "mp4") {
		t.Errorf("video args %v should merge into mp4", args)
	}
	if args[len(args)-2] != "--" || args[len(args)-1] != "https://example.com/clip" {
		t.Errorf("URL must follow --, got %v", args)
	}
}

func TestStreamEmptyTitle(t *testing.T) {
	sink := &recordingSink{}
	_, err := newTestStreamer(&fakeRunner{stdout: []byte("x")}).Stream(context.Background(), media.StreamRequest{
		OriginalURL: "https://example.com/clip",
		Kind:        media.Video,
	}, sink)
	if err != nil {
		t.Fatal(err)
	}
	if sink.filename != "media.mp4" {
		t.Errorf("filename = %q, want media.mp4", sink.filename)
	}
}

func TestStreamCommitsBeforeFirstWrite(t *testing.T) {
	sink := &recordingSink{}
	_, err := newTestStreamer(&fakeRunner{stdout: []byte("chunk")}).Stream(context.Background(), media.StreamRequest{
		OriginalURL: "https://example.com/clip",
		Kind:        media.Audio,
	}, sink)
	if err != nil {
		t.Fatal(err)
	}
	if len(sink.events) != 2 || sink.events[0] != "commit" || sink.events[1] != "write" {
		t.Errorf("events = %v, want [commit write]", sink.events)
	}
}

func TestStreamValidation(t *testing.T) {
	for _, in := range []string{"", "  ", "javascript:alert(1)", "-o/etc/passwd"} {
		r := &fakeRunner{stdout: []byte("x")}
		sink := &recordingSink{}
		_, err := newTestStreamer(r).Stream(context.Background(), media.StreamRequest{OriginalURL: in}, sink)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("Stream(%q) error = %v, want validation error", in, err)
		}
		if r.spawnCount() != 0 {
			t.Errorf("Stream(%q) spawned %d processes", in, r.spawnCount())
		}
		if len(sink.events) != 0 {
			t.Errorf("Stream(%q) touched the sink: %v", in, sink.events)
		}
	}
}

func TestStreamFailureBeforeFirstByte(t *testing.T) {
	r := &fakeRunner{stderr: "ERROR: Requested format is not available\n", err: &ExitError{Code: 1}}
	rec := httptest.NewRecorder()

	res, err := newTestStreamer(r).Stream(context.Background(), media.StreamRequest{
		OriginalURL: "https://example.com/clip",
		Kind:        media.Video,
	}, NewHTTPSink(rec))
	if !errors.Is(err, ErrStream) {
		t.Fatalf("error = %v, want stream failure", err)
	}
	if res == nil || res.Committed {
		t.Fatalf("result = %+v, want uncommitted", res)
	}
	if rec.Header().Get("Content-Disposition") != "" || rec.Body.Len() != 0 {
		t.Error("response must be untouched when nothing was relayed")
	}
}

func TestStreamProtectedBeforeFirstByte(t *testing.T) {
	r := &fakeRunner{
		stderr: "ERROR: [instagram] C0abc: Requested content is not available, rate-limit reached or login required\n",
		err:    &ExitError{Code: 1},
	}
	res, err := newTestStreamer(r).Stream(context.Background(), media.StreamRequest{
		OriginalURL: "https://www.instagram.com/p/C0abc/",
		Kind:        media.Video,
	}, &recordingSink{})
	if !errors.Is(err, ErrProtected) {
		t.Fatalf("error = %v, want protected content", err)
	}
	if res.Committed {
		t.Error("protected failure should not be committed")
	}
}

func TestStreamFailureAfterFirstByte(t *testing.T) {
	r := &fakeRunner{stdout: []byte("partial"), err: &ExitError{Code: 1}}
	sink := &recordingSink{}

	res, err := newTestStreamer(r).Stream(context.Background(), media.StreamRequest{
		OriginalURL: "https://example.com/clip",
		Kind:        media.Video,
	}, sink)
	if !errors.Is(err, ErrStream) {
		t.Fatalf("error = %v, want stream failure", err)
	}
	if !res.Committed || res.Bytes != int64(len("partial")) {
		t.Errorf("result = %+v, want committed with 7 bytes", res)
	}
}

func TestStreamNoOutput(t *testing.T) {
	res, err := newTestStreamer(&fakeRunner{}).Stream(context.Background(), media.StreamRequest{
		OriginalURL: "https://example.com/clip",
		Kind:        media.Audio,
	}, &recordingSink{})
	if !errors.Is(err, ErrStream) {
		t.Fatalf("error = %v, want stream failure", err)
	}
	if res.Committed {
		t.Error("empty output must not commit")
	}
}

func TestStreamClientDisconnect(t *testing.T) {
	r := &fakeRunner{stdout: []byte("first chunk"), block: true}
	ctx, cancel := context.WithCancel(context.Background())

	type outcome struct {
		res *StreamResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := newTestStreamer(r).Stream(ctx, media.StreamRequest{
			OriginalURL: "https://example.com/clip",
			Kind:        media.Video,
		}, &recordingSink{})
		done <- outcome{res, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case o := <-done:
		if !errors.Is(o.err, ErrStream) {
			t.Errorf("error = %v, want stream failure", o.err)
		}
		if !o.res.Aborted || !o.res.Committed {
			t.Errorf("result = %+v, want aborted after commit", o.res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stream did not return after cancellation")
	}
}

func TestStreamSinkWriteErrorCancelsRun(t *testing.T) {
	r := &fakeRunner{stdout: []byte("chunk"), block: true}
	sink := &recordingSink{writeErr: errors.New("broken pipe")}

	done := make(chan error, 1)
	go func() {
		res, err := newTestStreamer(r).Stream(context.Background(), media.StreamRequest{
			OriginalURL: "https://example.com/clip",
			Kind:        media.Video,
		}, sink)
		if err == nil && !res.Aborted {
			err = errors.New("expected aborted result")
		}
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrStream) {
			t.Errorf("error = %v, want stream failure", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("a failing sink did not cancel the extractor")
	}
}

func TestStreamTimeout(t *testing.T) {
	r := &fakeRunner{block: true}
	s := NewStreamer(r, NewClassifier(), Options{StreamTimeout: 30 * time.Millisecond}, zerolog.Nop())

	res, err := s.Stream(context.Background(), media.StreamRequest{
		OriginalURL: "https://example.com/clip",
		Kind:        media.Video,
	}, &recordingSink{})
	if !errors.Is(err, ErrStream) {
		t.Fatalf("error = %v, want stream failure", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, should wrap deadline exceeded", err)
	}
	if res.Aborted {
		t.Error("timeout is not a client abort")
	}
}

func TestRelayWriterSealed(t *testing.T) {
	w := &relayWriter{sink: &recordingSink{}, contentType: "video/mp4", filename: "a.mp4"}
	if _, err := w.Write([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	n, committed, err := w.seal()
	if n != 3 || !committed || err != nil {
		t.Errorf("seal() = %d, %v, %v", n, committed, err)
	}
	if _, err := w.Write([]byte("late")); !errors.Is(err, errSinkSealed) {
		t.Errorf("write after seal error = %v, want errSinkSealed", err)
	}
}
