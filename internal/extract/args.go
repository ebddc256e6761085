package extract

import (
	"regexp"
	"strconv"
	"strings"

	"mediarelay/internal/httputil"
	"mediarelay/internal/media"
)

// MaxVideoHeight is the resolution ceiling for video streams. It bounds
// relay bandwidth and is deliberately not a request parameter.
const MaxVideoHeight = 720

// Format selector expressions passed to the extractor.
var (
	VideoSelector = "bestvideo[height<=" + strconv.Itoa(MaxVideoHeight) + "]+bestaudio/best[height<=" + strconv.Itoa(MaxVideoHeight) + "]"
	AudioSelector = "bestaudio/best"
)

// singleItemSource matches short-form social URLs for which the flat-playlist
// probe is known to fail; they are probed in plain single-URL mode instead.
var singleItemSource = regexp.MustCompile(`(?i)^https?://(www\.|m\.)?(instagram\.com/(reel|reels|p|tv)/|tiktok\.com/@[^/]+/video/)`)

// IsSingleItemSource reports whether rawURL takes the single-URL probe path.
func IsSingleItemSource(rawURL string) bool {
	return singleItemSource.MatchString(rawURL)
}

// CheckURL trims rawURL and checks that it can be handed to the extractor.
// Failures are validation errors carrying the client-facing message.
func CheckURL(rawURL string) (string, error) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return "", validationError(msgURLRequired, nil)
	}
	if err := httputil.ValidateURL(u); err != nil {
		return "", validationError(msgInvalidURL, err)
	}
	return u, nil
}

// singleItem limits collection URLs to their first entry. --no-playlist
// only applies to URLs naming both a video and a playlist.
var singleItem = []string{"--no-playlist", "--playlist-items", "1"}

// ProbeArgs builds the metadata-dump invocation. Playlist expansion is
// disabled so the URL resolves to exactly one item. The URL always follows
// "--" so it can never be parsed as an option.
func ProbeArgs(rawURL string, socketTimeout int) []string {
	args := append([]string{"--dump-json"}, singleItem...)
	if !IsSingleItemSource(rawURL) {
		args = append(args, "--flat-playlist")
	}
	args = append(args, "--no-warnings", "--no-progress")
	args = appendSocketTimeout(args, socketTimeout)
	return append(args, "--", rawURL)
}

// StreamArgs builds the invocation that writes the selected variant to stdout.
func StreamArgs(rawURL string, kind media.Kind, socketTimeout int) []string {
	var args []string
	switch kind {
	case media.Audio:
		args = []string{
			"-f", AudioSelector,
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", "0",
		}
	default:
		args = []string{
			"-f", VideoSelector,
			"--merge-output-format", "mp4",
		}
	}
	args = append(args, singleItem...)
	args = append(args, "--no-part", "--newline")
	args = appendSocketTimeout(args, socketTimeout)
	return append(args, "-o", "-", "--", rawURL)
}

func appendSocketTimeout(args []string, seconds int) []string {
	if seconds <= 0 {
		return args
	}
	return append(args, "--socket-timeout", strconv.Itoa(seconds))
}
