package ai

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adindex/internal/models"
	"adindex/shared/config"

	"google.golang.org/genai"
)

// filePollInterval is how often an uploaded video's processing state is
// re-checked.
const filePollInterval = 2 * time.Second

// Analyzer sends advertisements to Gemini for assessment and decodes the
// responses. It is the only component that talks to the model.
type Analyzer struct {
	client           *genai.Client
	model            string
	temperature      float32
	maxOutputTokens  int32
	fileAPIThreshold int64
	timeout          time.Duration
	language         config.LanguageConfig
}

func NewAnalyzer(cfg *config.Config) (*Analyzer, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.AI.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Analyzer{
		client:           client,
		model:            cfg.AI.Model,
		temperature:      cfg.AI.Temperature,
		maxOutputTokens:  cfg.AI.MaxOutputTokens,
		fileAPIThreshold: int64(cfg.AI.FileAPIThresholdMB) * 1024 * 1024,
		timeout:          time.Duration(cfg.AI.TimeoutMinutes) * time.Minute,
		language:         cfg.Language,
	}, nil
}

// AnalyzeImage assesses a static ad. The image is always sent inline.
func (a *Analyzer) AnalyzeImage(ctx context.Context, imageData []byte, mimeType, adCopy string) (*models.ModelResponse, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("image data is required")
	}

	lang := DetectLanguage(adCopy, &a.language)
	prompt := BuildImagePrompt(adCopy, lang, false)

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(imageData, mimeType),
	}

	return a.generate(ctx, parts)
}

// AnalyzeVideo assesses a video ad stored on disk. Small files are inlined
// in the request; larger ones go through the File API with an upload,
// processing poll, and cleanup afterwards.
func (a *Analyzer) AnalyzeVideo(ctx context.Context, videoPath, adCopy string) (*models.ModelResponse, error) {
	info, err := os.Stat(videoPath)
	if err != nil {
		return nil, fmt.Errorf("video file not found: %w", err)
	}

	lang := DetectLanguage(adCopy, &a.language)
	prompt := BuildVideoPrompt(adCopy, lang)
	mimeType := VideoMIMEType(videoPath)

	if info.Size() <= a.fileAPIThreshold {
		data, err := os.ReadFile(videoPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read video file: %w", err)
		}
		parts := []*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(data, mimeType),
		}
		return a.generate(ctx, parts)
	}

	log.Printf("Uploading %s (%.1f MB) via File API", filepath.Base(videoPath), float64(info.Size())/(1024*1024))

	file, err := a.client.Files.UploadFromPath(ctx, videoPath, &genai.UploadFileConfig{
		MIMEType: mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}
	defer func() {
		if _, err := a.client.Files.Delete(context.Background(), file.Name, nil); err != nil {
			log.Printf("Warning: failed to delete uploaded file %s: %v", file.Name, err)
		}
	}()

	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(filePollInterval):
		}
		file, err = a.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to poll uploaded file: %w", err)
		}
	}
	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("video processing failed for %s", filepath.Base(videoPath))
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromURI(file.URI, mimeType),
	}
	return a.generate(ctx, parts)
}

// generate performs one model call under the configured timeout and parses
// the reply. Retries, if any, belong to the caller.
func (a *Analyzer) generate(ctx context.Context, parts []*genai.Part) (*models.ModelResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := a.client.Models.GenerateContent(ctx, a.model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(a.temperature),
		MaxOutputTokens: a.maxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	responseText := result.Text()
	if responseText == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	return Parse(responseText)
}

// VideoMIMEType maps a video filename to its MIME type, defaulting to mp4.
func VideoMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".webm":
		return "video/webm"
	default:
		return "video/mp4"
	}
}

// ImageMIMEType maps an image filename to its MIME type, defaulting to png.
func ImageMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}
