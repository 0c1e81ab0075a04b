package sources

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrMalformedTitleURL = errors.New("malformed title url")

// ParseTitleURL extracts the title id from a URL of the form
// <scheme>://<host>/title/<id>/<slug>. The slug is optional.
func ParseTitleURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedTitleURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q has no scheme or host", ErrMalformedTitleURL, raw)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] != "title" || segments[1] == "" {
		return "", fmt.Errorf("%w: %q does not contain /title/<id>", ErrMalformedTitleURL, raw)
	}
	return segments[1], nil
}
