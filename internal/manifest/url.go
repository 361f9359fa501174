package manifest

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// rangeRoute is the routing suffix under which range-addressed content is served.
const rangeRoute = "/range/avf/"

// manifestSuffixDepth is the number of trailing path components that belong
// to the manifest itself (e.g. playlist/av/primary/playlist.json).
const manifestSuffixDepth = 4

// ErrMalformedURL is returned when a manifest source URL or segment reference
// cannot be turned into a fetchable URL.
var ErrMalformedURL = errors.New("malformed url")

// TransformURL combines the manifest source URL with a manifest-relative
// segment reference into an absolute content URL. It is purely syntactic.
func TransformURL(manifestURL, ref string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(manifestURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: missing scheme or host", ErrMalformedURL)
	}
	cleaned := stripRange(strings.TrimLeft(ref, "/"))
	if cleaned == "" {
		return "", fmt.Errorf("%w: empty segment reference", ErrMalformedURL)
	}

	origin := parsed.Scheme + "://" + parsed.Host
	return origin + contentBasePath(parsed.EscapedPath()) + rangeRoute + cleaned, nil
}

// contentBasePath drops the manifest's own path suffix. "/a/b".split("/")
// yields ["", "a", "b"], so anything of depth <= manifestSuffixDepth
// collapses to the origin root.
func contentBasePath(escapedPath string) string {
	parts := strings.Split(escapedPath, "/")
	if len(parts) <= manifestSuffixDepth {
		return ""
	}
	return strings.Join(parts[:len(parts)-manifestSuffixDepth], "/")
}

// stripRange removes a trailing range query fragment from a segment reference.
func stripRange(ref string) string {
	for _, marker := range []string{"&range=", "?range="} {
		if i := strings.Index(ref, marker); i >= 0 {
			ref = ref[:i]
		}
	}
	return ref
}
