// Package enrich fills in descriptor fields the extractor left empty by
// reading the source page's OpenGraph metadata.
package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"mediarelay/internal/httputil"
	"mediarelay/internal/media"
)

// maxPageBytes bounds how much of a page is parsed.
const maxPageBytes = 2 << 20

var youtubeID = regexp.MustCompile(`(?i)^https?://(?:www\.|m\.|music\.)?(?:youtube\.com/(?:watch\?(?:[^#]*&)?v=|shorts/|embed/|live/)|youtu\.be/)([A-Za-z0-9_-]{11})`)

// PageMeta is what a page advertises about itself.
type PageMeta struct {
	Title string
	Image string
}

// Enricher looks up page metadata over HTTP.
type Enricher struct {
	client *http.Client
	log    zerolog.Logger
}

// New creates an Enricher using client.
func New(client *http.Client, log zerolog.Logger) *Enricher {
	return &Enricher{
		client: client,
		log:    log.With().Str("component", "enrich").Logger(),
	}
}

// YouTubeThumbnail derives the standard thumbnail URL for a YouTube link.
func YouTubeThumbnail(rawURL string) (string, bool) {
	m := youtubeID.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return "https://i.ytimg.com/vi/" + m[1] + "/hqdefault.jpg", true
}

// Enrich sets a missing title or thumbnail on d. Failures are logged and
// otherwise ignored; enrichment never fails a probe.
func (e *Enricher) Enrich(ctx context.Context, d *media.Descriptor) {
	if d.ThumbnailURL == nil {
		if thumb, ok := YouTubeThumbnail(d.OriginalURL); ok {
			d.ThumbnailURL = &thumb
		}
	}
	if d.Title != "" && d.ThumbnailURL != nil {
		return
	}

	meta, err := e.Fetch(ctx, d.OriginalURL)
	if err != nil {
		e.log.Debug().Err(err).Str("url", d.OriginalURL).Msg("page metadata unavailable")
		return
	}
	if d.Title == "" && meta.Title != "" {
		d.Title = meta.Title
	}
	if d.ThumbnailURL == nil && meta.Image != "" {
		img := meta.Image
		d.ThumbnailURL = &img
	}
}

// Fetch downloads pageURL and extracts its metadata.
func (e *Enricher) Fetch(ctx context.Context, pageURL string) (PageMeta, error) {
	resp, err := httputil.Get(ctx, e.client, pageURL)
	if err != nil {
		return PageMeta{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PageMeta{}, fmt.Errorf("page returned status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return PageMeta{}, fmt.Errorf("page is %s, not HTML", ct)
	}

	return ParsePage(io.LimitReader(resp.Body, maxPageBytes), resp.Request.URL)
}

// ParsePage reads OpenGraph and Twitter card tags, falling back to <title>.
// Relative image URLs are resolved against base.
func ParsePage(r io.Reader, base *url.URL) (PageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return PageMeta{}, fmt.Errorf("parsing page: %w", err)
	}

	var meta PageMeta
	meta.Title = firstContent(doc,
		`meta[property="og:title"]`,
		`meta[name="twitter:title"]`,
	)
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("head title").First().Text())
	}

	img := firstContent(doc,
		`meta[property="og:image:secure_url"]`,
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
	)
	if img != "" {
		meta.Image = resolveImage(base, img)
	}
	return meta, nil
}

func firstContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		content, exists := doc.Find(sel).First().Attr("content")
		if exists {
			if v := strings.TrimSpace(content); v != "" {
				return v
			}
		}
	}
	return ""
}

func resolveImage(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if httputil.ValidateURL(u.String()) != nil {
		return ""
	}
	return u.String()
}
