// Package media defines shared types for the mediarelay application.
package media

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects which variant of a media item is streamed.
type Kind int

const (
	Video Kind = iota
	Audio
)

func (k Kind) String() string {
	switch k {
	case Video:
		return "video"
	case Audio:
		return "audio"
	default:
		return "unknown"
	}
}

// Extension returns the file extension of the container produced for this kind.
func (k Kind) Extension() string {
	if k == Audio {
		return "mp3"
	}
	return "mp4"
}

// ContentType returns the MIME type of the container produced for this kind.
func (k Kind) ContentType() string {
	if k == Audio {
		return "audio/mpeg"
	}
	return "video/mp4"
}

// ParseKind maps a client-supplied kind to a Kind. Empty input means video.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "video", "mp4":
		return Video, nil
	case "audio", "mp3":
		return Audio, nil
	default:
		return Video, fmt.Errorf("unsupported kind %q (valid: video, audio)", s)
	}
}

// ProbeRequest asks the relay to resolve a URL into a Descriptor.
type ProbeRequest struct {
	URL string `json:"url"`
}

// Descriptor is the normalized result of probing a media URL.
type Descriptor struct {
	Title           string   `json:"title"`
	ThumbnailURL    *string  `json:"thumbnailUrl"`
	DurationSeconds *float64 `json:"durationSeconds"`
	OriginalURL     string   `json:"originalUrl"` // Echo of the probed URL
	Formats         []Format `json:"formats"`
}

// Format describes one downloadable variant reported by the extractor.
type Format struct {
	FormatID        string `json:"formatId"`
	Extension       string `json:"extension"`
	ResolutionLabel string `json:"resolutionLabel"` // Display only, e.g. "720p" or "audio only"
	ApproxSizeLabel string `json:"approxSizeLabel"` // e.g. "12.34 MB" or "N/A"
	VideoOnly       bool   `json:"isVideoOnly"`
	AudioOnly       bool   `json:"isAudioOnly"`
}

// StreamRequest asks the relay to deliver the bytes of a probed URL.
type StreamRequest struct {
	OriginalURL string
	Title       string
	Kind        Kind
}

// Status is the outcome recorded for a relay operation.
type Status string

const (
	StatusOK        Status = "ok"
	StatusInvalid   Status = "invalid"
	StatusProtected Status = "protected"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// Activity is a single entry in the relay's activity journal.
type Activity struct {
	ID        int64
	Action    string // "probe" or "stream"
	URL       string
	Title     string
	Kind      string // Empty for probes
	Status    Status
	Bytes     int64
	Duration  time.Duration
	CreatedAt time.Time
}
