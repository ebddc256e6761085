package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mediarelay/internal/extract"
	"mediarelay/internal/media"
	"mediarelay/internal/metrics"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleReady(c *gin.Context) {
	path, err := s.locate()
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("extractor unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "extractor not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "extractor": path})
}

func (s *Server) handleProbe(c *gin.Context) {
	var req media.ProbeRequest
	// An empty body is treated as a missing URL.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(err)
		writeError(c, http.StatusBadRequest, extract.KindValidation.String(), "Invalid request body")
		return
	}

	start := time.Now()
	desc, err := s.relay.Probe(c.Request.Context(), req.URL)
	elapsed := time.Since(start)

	entry := media.Activity{Action: "probe", URL: req.URL, Duration: elapsed}
	if err != nil {
		entry.Status = extract.StatusOf(err, false)
		metrics.RecordProbe(string(entry.Status), elapsed.Seconds())
		s.record(c, entry)
		handleError(c, probeStatus(err), err)
		return
	}

	entry.Status = media.StatusOK
	entry.Title = desc.Title
	metrics.RecordProbe(string(entry.Status), elapsed.Seconds())
	s.record(c, entry)
	c.JSON(http.StatusOK, desc)
}

func (s *Server) handleStream(c *gin.Context) {
	rawURL := c.Query("originalUrl")
	if rawURL == "" {
		rawURL = c.Query("url")
	}
	kind, err := media.ParseKind(c.Query("kind"))
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadRequest, extract.KindValidation.String(), "Invalid kind")
		return
	}
	req := media.StreamRequest{
		OriginalURL: rawURL,
		Title:       c.Query("title"),
		Kind:        kind,
	}
	entry := media.Activity{Action: "stream", URL: rawURL, Title: req.Title, Kind: kind.String()}

	// A bad URL is rejected before it can take a stream slot.
	if _, err := extract.CheckURL(rawURL); err != nil {
		entry.Status = extract.StatusOf(err, false)
		metrics.RecordStream(kind.String(), string(entry.Status), 0, 0)
		s.record(c, entry)
		handleError(c, http.StatusBadRequest, err)
		return
	}

	if s.slots != nil {
		select {
		case s.slots <- struct{}{}:
			defer func() { <-s.slots }()
		default:
			writeError(c, http.StatusTooManyRequests, codeBusy, "Too many concurrent streams")
			return
		}
	}

	log := zerolog.Ctx(c.Request.Context())
	sink := extract.NewHTTPSink(c.Writer)
	res, err := s.relay.Stream(c.Request.Context(), req, sink)

	if res != nil {
		entry.Bytes = res.Bytes
		entry.Duration = res.Duration
	}
	aborted := res != nil && res.Aborted
	committed := res != nil && res.Committed

	entry.Status = extract.StatusOf(err, aborted)
	metrics.RecordStream(kind.String(), string(entry.Status), entry.Bytes, entry.Duration.Seconds())
	s.record(c, entry)

	switch {
	case err == nil:
		return
	case !committed:
		handleError(c, streamStatus(err), err)
	case aborted:
		// The client is gone; there is nobody left to tell.
		_ = c.Error(err)
	default:
		// Headers are out, so the status cannot change. Drop the connection
		// so the client sees a truncated transfer rather than a complete file.
		_ = c.Error(err)
		if abortErr := sink.Abort(); abortErr != nil {
			log.Warn().Err(abortErr).Msg("could not drop connection after stream failure")
		}
		c.Abort()
	}
}

func (s *Server) record(c *gin.Context, a media.Activity) {
	if s.journal == nil || !s.cfg.History {
		return
	}
	// The request context may already be cancelled by a departing client.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
	defer cancel()
	if err := s.journal.Record(ctx, a); err != nil {
		zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("could not record activity")
	}
}
