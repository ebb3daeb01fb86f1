// Package youtube looks up video metadata through the YouTube Data API.
// Used to fill in missing catalog provenance and to skip over-long videos
// before spending a download on them.
package youtube

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Info is the subset of video metadata the pipeline cares about.
type Info struct {
	ID              string
	Title           string
	ChannelTitle    string
	DurationSeconds int
}

type Client struct {
	service *youtube.Service
}

// NewClient builds a Data API client. Public video metadata needs only an
// API key, no user credential.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &Client{service: service}, nil
}

// VideoInfo resolves a watch URL to its title and duration.
func (c *Client) VideoInfo(ctx context.Context, url string) (*Info, error) {
	id, err := VideoID(url)
	if err != nil {
		return nil, err
	}

	call := c.service.Videos.List([]string{"snippet", "contentDetails"}).
		Id(id).
		Context(ctx)

	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to look up video %s: %w", id, err)
	}
	if len(response.Items) == 0 {
		return nil, fmt.Errorf("video %s not found", id)
	}

	item := response.Items[0]
	info := &Info{ID: id}
	if item.Snippet != nil {
		info.Title = item.Snippet.Title
		info.ChannelTitle = item.Snippet.ChannelTitle
	}
	if item.ContentDetails != nil {
		info.DurationSeconds = parseDurationSeconds(item.ContentDetails.Duration)
	}
	return info, nil
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`),
}

// VideoID extracts the 11-character video id from the usual URL forms.
func VideoID(url string) (string, error) {
	for _, pattern := range videoIDPatterns {
		if matches := pattern.FindStringSubmatch(url); len(matches) == 2 {
			return matches[1], nil
		}
	}
	return "", fmt.Errorf("no video id found in URL %s", url)
}

var durationPattern = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// parseDurationSeconds converts the API's ISO 8601 durations (PT1M30S,
// PT2H15M30S) to seconds.
func parseDurationSeconds(duration string) int {
	matches := durationPattern.FindStringSubmatch(duration)
	if len(matches) == 0 {
		return 0
	}

	var totalSeconds int
	if matches[1] != "" {
		if hours, err := strconv.Atoi(matches[1]); err == nil {
			totalSeconds += hours * 3600
		}
	}
	if matches[2] != "" {
		if minutes, err := strconv.Atoi(matches[2]); err == nil {
			totalSeconds += minutes * 60
		}
	}
	if matches[3] != "" {
		if seconds, err := strconv.Atoi(matches[3]); err == nil {
			totalSeconds += seconds
		}
	}
	return totalSeconds
}
