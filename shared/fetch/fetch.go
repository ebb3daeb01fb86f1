// Package fetch resolves ad source URLs to local media files. Some source
// platforms support automated download; the ad-library platforms protect
// their media and can only be fetched by a human following instructions.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Platform identifies the source of an ad URL.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformVimeo     Platform = "vimeo"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformMeta      Platform = "meta"
	PlatformGoogleAds Platform = "google_ads"
	PlatformDirect    Platform = "direct"
	PlatformUnknown   Platform = "unknown"
)

// Automated reports whether media can be fetched from the platform without
// human help.
func (p Platform) Automated() bool {
	switch p {
	case PlatformYouTube, PlatformVimeo, PlatformDirect:
		return true
	}
	return false
}

// DetectPlatform matches a URL against the known host patterns.
func DetectPlatform(url string) Platform {
	lower := strings.ToLower(url)

	switch {
	case strings.Contains(lower, "linkedin.com/ad-library"):
		return PlatformLinkedIn
	case strings.Contains(lower, "facebook.com/ads/library"), strings.Contains(lower, "instagram.com"):
		return PlatformMeta
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return PlatformYouTube
	case strings.Contains(lower, "vimeo.com"):
		return PlatformVimeo
	case strings.Contains(lower, "adstransparency.google.com"):
		return PlatformGoogleAds
	case hasMediaExtension(lower):
		return PlatformDirect
	default:
		return PlatformUnknown
	}
}

func hasMediaExtension(url string) bool {
	for _, ext := range []string{".mp4", ".mov", ".avi", ".webm", ".png", ".jpg", ".jpeg", ".webp", ".gif"} {
		if strings.HasSuffix(url, ext) {
			return true
		}
	}
	return false
}

// ManualDownloadError signals that automated fetch is impossible for this
// source platform. It is a branch instruction for the caller, not a
// failure: present Instructions() to the user.
type ManualDownloadError struct {
	Platform Platform
	URL      string
}

func (e *ManualDownloadError) Error() string {
	return fmt.Sprintf("%s requires manual download: %s", e.Platform, e.URL)
}

// Instructions returns the human-guided extraction steps for the platform.
func (e *ManualDownloadError) Instructions() string {
	switch e.Platform {
	case PlatformLinkedIn:
		return fmt.Sprintf(`LinkedIn Ad Library requires manual download:
1. Visit: %s
2. Right-click on the video and choose 'Save Video As...'
3. Re-submit the saved file as a direct path`, e.URL)
	case PlatformMeta:
		return fmt.Sprintf(`Meta Ad Library requires manual download:
1. Visit: %s
2. Open browser Developer Tools (F12)
3. Go to the Network tab, filter by 'mp4'
4. Play the video and look for the video URL
5. Right-click the mp4 request and copy its URL
6. Re-submit that URL as a direct link`, e.URL)
	case PlatformGoogleAds:
		return fmt.Sprintf(`Google Ads Transparency requires manual download:
1. Visit: %s
2. Inspect the page to find the creative's video URL
3. Re-submit that URL as a direct link`, e.URL)
	default:
		return fmt.Sprintf("Platform %s is not supported for automated download: %s", e.Platform, e.URL)
	}
}

// Fetcher downloads ad media to local paths.
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{httpClient: http.DefaultClient}
}

// Download fetches the media behind url into dest. Manual-only platforms
// return a *ManualDownloadError; every other failure means the attempt is
// terminal for this row.
func (f *Fetcher) Download(ctx context.Context, url, dest string) error {
	platform := DetectPlatform(url)

	switch platform {
	case PlatformYouTube, PlatformVimeo:
		return f.downloadWithYtDlp(ctx, url, dest)
	case PlatformDirect:
		return f.downloadDirect(ctx, url, dest)
	case PlatformLinkedIn, PlatformMeta, PlatformGoogleAds:
		return &ManualDownloadError{Platform: platform, URL: url}
	default:
		return fmt.Errorf("unknown platform for URL %s", url)
	}
}

// downloadWithYtDlp shells out to yt-dlp, the same tool the original
// pipeline relies on.
func (f *Fetcher) downloadWithYtDlp(ctx context.Context, url, dest string) error {
	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-f", "best[ext=mp4]/best",
		"--no-playlist",
		"-o", dest,
		url,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("yt-dlp failed: %w: %s", err, truncate(string(output), 300))
	}
	return checkDownloaded(dest)
}

func (f *Fetcher) downloadDirect(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("invalid URL %s: %w", url, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d from %s", resp.StatusCode, url)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(dest)
		return fmt.Errorf("download interrupted: %w", err)
	}
	return checkDownloaded(dest)
}

// checkDownloaded guards against tools that exit zero without producing
// output.
func checkDownloaded(dest string) error {
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("download produced no output file: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("download produced an empty file: %s", dest)
	}
	return nil
}

// MediaFilename picks the canonical media filename inside an ad directory
// for a source URL.
func MediaFilename(url string) string {
	ext := strings.ToLower(filepath.Ext(strings.SplitN(url, "?", 2)[0]))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return "image" + ext
	case ".mov", ".avi", ".webm":
		return "video" + ext
	default:
		return "video.mp4"
	}
}

// IsImage reports whether a media path is a static image rather than video.
func IsImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
