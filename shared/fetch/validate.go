package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// VideoMetadata is what ffprobe reports about a downloaded video.
type VideoMetadata struct {
	DurationSeconds float64
	SizeMB          float64
	Width           int
	Height          int
	FPS             float64
	Codec           string
}

// ValidationError means the media IS present but violates the configured
// constraints, as opposed to a download failure where nothing usable
// arrived.
type ValidationError struct {
	Reason   string
	Metadata *VideoMetadata
}

func (e *ValidationError) Error() string { return e.Reason }

// ProbeVideo extracts duration and stream details with ffprobe.
func ProbeVideo(ctx context.Context, path string) (*VideoMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("media file not found: %w", err)
	}

	meta := &VideoMetadata{
		SizeMB: float64(info.Size()) / (1024 * 1024),
		Codec:  "unknown",
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		// ffprobe missing or unreadable media: return what we know and let
		// validation reject the zero duration.
		return meta, nil
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			Width      int    `json:"width"`
			Height     int    `json:"height"`
			RFrameRate string `json:"r_frame_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return meta, nil
	}

	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		meta.DurationSeconds = d
	}
	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}
		meta.Width = stream.Width
		meta.Height = stream.Height
		meta.Codec = stream.CodecName
		meta.FPS = parseFrameRate(stream.RFrameRate)
		break
	}
	return meta, nil
}

// parseFrameRate handles ffprobe's "30/1" rational notation.
func parseFrameRate(rate string) float64 {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// ValidateVideo checks a fetched video against the size and duration
// limits. Violations come back as *ValidationError so callers can
// distinguish unusable-but-present media from failed downloads.
func ValidateVideo(ctx context.Context, path string, maxSizeMB, maxDurationSeconds int) (*VideoMetadata, error) {
	meta, err := ProbeVideo(ctx, path)
	if err != nil {
		return nil, err
	}

	if meta.SizeMB > float64(maxSizeMB) {
		return meta, &ValidationError{
			Reason:   fmt.Sprintf("file too large: %.1fMB (max %dMB)", meta.SizeMB, maxSizeMB),
			Metadata: meta,
		}
	}
	if meta.DurationSeconds > float64(maxDurationSeconds) {
		return meta, &ValidationError{
			Reason:   fmt.Sprintf("video too long: %s (max %s)", FormatDuration(meta.DurationSeconds), FormatDuration(float64(maxDurationSeconds))),
			Metadata: meta,
		}
	}
	if meta.DurationSeconds == 0 {
		return meta, &ValidationError{
			Reason:   "could not determine video duration (file may be corrupted)",
			Metadata: meta,
		}
	}
	return meta, nil
}

// FormatDuration renders seconds as M:SS for logs and reports.
func FormatDuration(seconds float64) string {
	mins := int(seconds) / 60
	secs := int(seconds) % 60
	return fmt.Sprintf("%d:%02d", mins, secs)
}
