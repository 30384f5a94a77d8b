package playlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// ErrSourceUnavailable wraps network and file errors while fetching a
// playlist source. One unavailable source never aborts the others.
var ErrSourceUnavailable = errors.New("playlist source unavailable")

// FetchSource loads playlist content from an http(s) URL, a file:// URL,
// or a local path. The caller's client controls the per-source timeout.
func FetchSource(ctx context.Context, client *http.Client, source, userAgent string) (string, error) {
	if path, ok := localPath(source); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, source, err)
		}
		return string(data), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, source, err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: HTTP %d", ErrSourceUnavailable, source, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, source, err)
	}
	return string(body), nil
}

func localPath(source string) (string, bool) {
	if strings.HasPrefix(source, "file://") {
		return strings.TrimPrefix(source, "file://"), true
	}
	if _, err := os.Stat(source); err == nil {
		return source, true
	}
	return "", false
}
