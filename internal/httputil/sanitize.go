package httputil

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// maxURLLength bounds the size of a URL accepted from a client.
const maxURLLength = 8192

// maxFilenameStem bounds the sanitized part of an attachment filename.
const maxFilenameStem = 100

// ValidateURL checks that a URL is well-formed, uses HTTP(S) and names a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	if len(rawURL) > maxURLLength {
		return fmt.Errorf("URL too long: %d characters", len(rawURL))
	}
	if strings.ContainsAny(rawURL, "\x00\r\n") {
		return fmt.Errorf("URL contains control characters")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("only HTTP(S) URLs are allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// SanitizeFilename reduces a client-supplied title to a filesystem-safe stem.
// Every character outside [A-Za-z0-9] becomes an underscore.
func SanitizeFilename(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range name {
		if n >= maxFilenameStem {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}

	out := b.String()
	if strings.Trim(out, "_") == "" {
		return "media"
	}
	return out
}

// AttachmentFilename returns the sanitized download name for a title and extension.
func AttachmentFilename(title, ext string) string {
	return SanitizeFilename(title) + "." + ext
}

// ContentDisposition builds an attachment Content-Disposition header value.
// The filename must already be sanitized; quotes and backslashes are dropped.
func ContentDisposition(filename string) string {
	filename = strings.NewReplacer(`"`, "", `\`, "").Replace(filename)
	return fmt.Sprintf(`attachment; filename="%s"`, filename)
}

// SafeDownloadPath resolves and validates a download path ensuring it stays within the target directory.
func SafeDownloadPath(dir, filename string) (string, error) {
	sanitized := filepath.Base(filename)
	if sanitized == "." || sanitized == ".." || sanitized == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	full := filepath.Join(absDir, sanitized)

	resolved, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	if !strings.HasPrefix(resolved, absDir+string(filepath.Separator)) && resolved != absDir {
		return "", fmt.Errorf("path traversal detected: %q escapes %q", resolved, absDir)
	}

	return resolved, nil
}
