package download

import (
	"fmt"
	"net/url"
	"strings"

	"clipsight/internal/services"
)

// contentMarkers are path segments that identify a direct content link.
// Profile, search, and listing URLs lack all of them.
var contentMarkers = []string{
	"/video/",
	"/note/",
	"/watch",
	"/shorts/",
	"/clip/",
}

// ValidateURL accepts only direct content links. It returns a validation
// error for anything else so the pipeline can reject the job before any
// network traffic happens.
func ValidateURL(rawURL string) error {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return services.Wrap(services.ErrValidation, "downloading", "validate-url", "url must not be empty", nil)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return services.Wrap(services.ErrValidation, "downloading", "validate-url", fmt.Sprintf("malformed url %q", trimmed), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return services.Wrap(services.ErrValidation, "downloading", "validate-url", fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return services.Wrap(services.ErrValidation, "downloading", "validate-url", "url has no host", nil)
	}

	// youtu.be short links carry the video id as the whole path.
	if strings.EqualFold(parsed.Hostname(), "youtu.be") && len(strings.Trim(parsed.Path, "/")) > 0 {
		return nil
	}

	for _, marker := range contentMarkers {
		if strings.Contains(parsed.Path, marker) {
			return nil
		}
	}
	return services.Wrap(services.ErrValidation, "downloading", "validate-url",
		fmt.Sprintf("url %q is not a direct content link", trimmed), nil)
}

// IsYouTubeURL reports whether the URL belongs to YouTube and can use the
// in-process client instead of the yt-dlp fallback.
func IsYouTubeURL(rawURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com" || host == "youtu.be"
}
