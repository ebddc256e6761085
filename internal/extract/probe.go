package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediarelay/internal/media"
)

// maxFormats caps the normalized format list.
const maxFormats = 20

// fallbackTitle is used when neither the extractor nor enrichment yields one.
const fallbackTitle = "Untitled"

// Enricher fills descriptor fields the extractor left empty.
type Enricher interface {
	Enrich(ctx context.Context, d *media.Descriptor)
}

// Prober resolves URLs into descriptors without downloading media.
type Prober struct {
	runner     Runner
	classifier *Classifier
	enricher   Enricher
	log        zerolog.Logger
	opts       Options
}

// NewProber creates a prober over runner.
func NewProber(runner Runner, classifier *Classifier, opts Options, log zerolog.Logger) *Prober {
	return &Prober{
		runner:     runner,
		classifier: classifier,
		log:        log.With().Str("component", "prober").Logger(),
		opts:       opts.withDefaults(),
	}
}

// SetEnricher installs an optional enricher.
func (p *Prober) SetEnricher(e Enricher) {
	p.enricher = e
}

// Probe runs the extractor in metadata mode and normalizes its first record.
// Unsupported or protected content is reported as a classified *Error.
func (p *Prober) Probe(ctx context.Context, input string) (*media.Descriptor, error) {
	rawURL, err := CheckURL(input)
	if err != nil {
		return nil, err
	}

	if p.opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.ProbeTimeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stdout := &cappedBuffer{max: p.opts.MaxMetadataBytes, onOverflow: cancel}
	stderr := newTailBuffer(stderrTailBytes)
	args := ProbeArgs(rawURL, p.opts.SocketTimeout)

	log := zerolog.Ctx(ctx)
	if log.GetLevel() == zerolog.Disabled {
		log = &p.log
	}
	log.Debug().Strs("args", args).Msg("probing")

	start := time.Now()
	err = p.runner.Run(ctx, args, stdout, stderr)
	if err != nil {
		diag := stderr.String()
		if stdout.overflowed {
			err = errMetadataTooLarge
		}
		log.Error().
			Err(err).
			Str("url", rawURL).
			Str("stderr_tail", diag).
			Dur("elapsed", time.Since(start)).
			Msg("probe failed")

		var exitErr *ExitError
		if errors.As(err, &exitErr) && p.classifier.Protected(diag) {
			return nil, protectedError(err)
		}
		return nil, extractionError(err)
	}

	desc, err := ParseDescriptor(stdout.Bytes(), input)
	if err != nil {
		log.Error().Err(err).Str("url", rawURL).Msg("unparsable extractor metadata")
		return nil, extractionError(err)
	}

	if p.enricher != nil && (desc.Title == "" || desc.ThumbnailURL == nil) {
		p.enricher.Enrich(ctx, desc)
	}
	if desc.Title == "" {
		desc.Title = fallbackTitle
	}

	log.Info().
		Str("url", rawURL).
		Int("formats", len(desc.Formats)).
		Dur("elapsed", time.Since(start)).
		Msg("probe complete")
	return desc, nil
}

// rawInfo mirrors the subset of the extractor's JSON record the relay reads.
type rawInfo struct {
	Title          string      `json:"title"`
	Thumbnail      string      `json:"thumbnail"`
	Thumbnails     []rawThumb  `json:"thumbnails"`
	Duration       *float64    `json:"duration"`
	Ext            string      `json:"ext"`
	FormatID       string      `json:"format_id"`
	Formats        []rawFormat `json:"formats"`
	Filesize       *float64    `json:"filesize"`
	FilesizeApprox *float64    `json:"filesize_approx"`
}

type rawThumb struct {
	URL string `json:"url"`
}

type rawFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Resolution     string   `json:"resolution"`
	Height         *float64 `json:"height"`
	VCodec         *string  `json:"vcodec"`
	ACodec         *string  `json:"acodec"`
	Filesize       *float64 `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
}

// ParseDescriptor decodes the first JSON object in out and normalizes it.
// Collections emit one record per line; only the first is honored.
func ParseDescriptor(out []byte, originalURL string) (*media.Descriptor, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("extractor produced no metadata")
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("extractor metadata is not a JSON object")
	}

	var info rawInfo
	if err := json.NewDecoder(bytes.NewReader(trimmed)).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding extractor metadata: %w", err)
	}

	desc := &media.Descriptor{
		Title:       strings.TrimSpace(info.Title),
		OriginalURL: originalURL,
		Formats:     NormalizeFormats(info.Formats),
	}

	if thumb := pickThumbnail(info); thumb != "" {
		desc.ThumbnailURL = &thumb
	}
	if info.Duration != nil && *info.Duration > 0 {
		d := *info.Duration
		desc.DurationSeconds = &d
	}

	// Single-item sources often expose no per-format detail.
	if len(desc.Formats) == 0 && len(info.Formats) == 0 {
		ext := info.Ext
		if ext == "" {
			ext = "mp4"
		}
		desc.Formats = []media.Format{{
			FormatID:        "best",
			Extension:       ext,
			ResolutionLabel: "best available",
			ApproxSizeLabel: sizeLabel(knownSize(info.Filesize, info.FilesizeApprox)),
		}}
	}

	return desc, nil
}

func pickThumbnail(info rawInfo) string {
	if t := strings.TrimSpace(info.Thumbnail); t != "" {
		return t
	}
	for i := len(info.Thumbnails) - 1; i >= 0; i-- {
		if t := strings.TrimSpace(info.Thumbnails[i].URL); t != "" {
			return t
		}
	}
	return ""
}

// NormalizeFormats drops container-only entries, orders the rest by
// descending known size (unknown sizes last, extractor order as tie-break)
// and caps the list.
func NormalizeFormats(raw []rawFormat) []media.Format {
	type sized struct {
		f    media.Format
		size float64 // < 0 when unknown
	}

	var kept []sized
	for _, f := range raw {
		hasVideo := codecPresent(f.VCodec)
		hasAudio := codecPresent(f.ACodec)
		if !hasVideo && !hasAudio {
			continue
		}
		size := knownSize(f.Filesize, f.FilesizeApprox)
		kept = append(kept, sized{
			f: media.Format{
				FormatID:        f.FormatID,
				Extension:       f.Ext,
				ResolutionLabel: resolutionLabel(f, hasVideo),
				ApproxSizeLabel: sizeLabel(size),
				VideoOnly:       hasVideo && !hasAudio,
				AudioOnly:       hasAudio && !hasVideo,
			},
			size: size,
		})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].size > kept[j].size
	})

	if len(kept) > maxFormats {
		kept = kept[:maxFormats]
	}

	formats := make([]media.Format, len(kept))
	for i, k := range kept {
		formats[i] = k.f
	}
	return formats
}

func codecPresent(c *string) bool {
	if c == nil {
		return false
	}
	v := strings.TrimSpace(*c)
	return v != "" && v != "none"
}

func knownSize(exact, approx *float64) float64 {
	if exact != nil && *exact > 0 {
		return *exact
	}
	if approx != nil && *approx > 0 {
		return *approx
	}
	return -1
}

func resolutionLabel(f rawFormat, hasVideo bool) string {
	res := strings.TrimSpace(f.Resolution)
	if res != "" && !(hasVideo && res == "audio only") {
		return res
	}
	if f.Height != nil && *f.Height > 0 {
		return fmt.Sprintf("%dp", int(*f.Height))
	}
	return "audio only"
}

// sizeLabel formats a byte count for display, or "N/A" when unknown.
func sizeLabel(size float64) string {
	if size <= 0 {
		return "N/A"
	}
	const k = 1024.0
	switch {
	case size >= k*k*k:
		return fmt.Sprintf("%.2f GB", size/(k*k*k))
	case size >= k*k:
		return fmt.Sprintf("%.2f MB", size/(k*k))
	case size >= k:
		return fmt.Sprintf("%.2f KB", size/k)
	default:
		return fmt.Sprintf("%.0f Bytes", size)
	}
}
