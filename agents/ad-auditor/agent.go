// Package adauditor orchestrates the ad analysis pipeline: download,
// validate, score with the model, persist. Single ads and catalog batches
// share the same per-ad flow.
package adauditor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"adindex/agents/ad-auditor/catalog"
	"adindex/agents/ad-auditor/youtube"
	"adindex/internal/models"
	"adindex/shared/ai"
	"adindex/shared/config"
	"adindex/shared/email"
	"adindex/shared/fetch"
	"adindex/shared/scheduler"
	"adindex/shared/scoring"
	"adindex/shared/storage"
)

// overallDriftTolerance is how far the model's self-reported overall may
// sit from the recomputed weighted sum before it is preserved separately.
const overallDriftTolerance = 0.5

// Scorer is the multimodal scoring collaborator. One call per attempt, no
// retries at this level.
type Scorer interface {
	AnalyzeImage(ctx context.Context, imageData []byte, mimeType, adCopy string) (*models.ModelResponse, error)
	AnalyzeVideo(ctx context.Context, videoPath, adCopy string) (*models.ModelResponse, error)
}

// Downloader fetches ad media to a local path.
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// MetadataLookup resolves a video URL to its remote metadata.
type MetadataLookup interface {
	VideoInfo(ctx context.Context, url string) (*youtube.Info, error)
}

// Auditor implements the scheduler.Agent interface around the pipeline.
type Auditor struct {
	config   *config.Config
	store    *storage.Store
	fetcher  Downloader
	analyzer Scorer
	weights  scoring.Weights
	youtube  MetadataLookup
	sender   *email.Sender

	// validateVideo is swappable so tests don't need ffprobe.
	validateVideo func(ctx context.Context, path string) error
}

func NewAuditor(cfg *config.Config) *Auditor {
	return &Auditor{config: cfg}
}

func (a *Auditor) Name() string {
	return "Ad Auditor"
}

func (a *Auditor) Initialize() error {
	log.Printf("Initializing %s...", a.Name())

	if a.store == nil {
		store, err := storage.NewStore(a.config.Storage.Dir)
		if err != nil {
			return fmt.Errorf("failed to create analysis store: %w", err)
		}
		a.store = store
		log.Printf("Analysis store initialized at %s", store.Root())
	}

	if a.weights == nil {
		weights, err := scoring.NewWeights(&a.config.Scoring)
		if err != nil {
			return fmt.Errorf("invalid scoring weights: %w", err)
		}
		a.weights = weights
	}

	if a.fetcher == nil {
		a.fetcher = fetch.NewFetcher()
	}

	if a.analyzer == nil {
		analyzer, err := ai.NewAnalyzer(a.config)
		if err != nil {
			return fmt.Errorf("failed to create AI analyzer: %w", err)
		}
		a.analyzer = analyzer
		log.Println("AI analyzer initialized")
	}

	if a.validateVideo == nil {
		a.validateVideo = func(ctx context.Context, path string) error {
			_, err := fetch.ValidateVideo(ctx, path, a.config.Video.MaxFileSizeMB, a.config.Video.MaxDurationSeconds)
			return err
		}
	}

	if a.youtube == nil && a.config.YouTube.APIKey != "" {
		client, err := youtube.NewClient(context.Background(), a.config.YouTube.APIKey)
		if err != nil {
			log.Printf("Warning: YouTube metadata lookup disabled: %v", err)
		} else {
			a.youtube = client
			log.Println("YouTube metadata client initialized")
		}
	}

	if a.sender == nil && a.config.Email.Enabled() {
		a.sender = email.NewSender(&a.config.Email)
		log.Println("Email sender initialized")
	}

	return nil
}

// ProcessURL runs the full pipeline for one ad. An already-analyzed record
// is a skip-with-success unless force is set; a record with downloaded
// media but no analysis resumes at the analysis stage without re-fetching.
func (a *Auditor) ProcessURL(ctx context.Context, url, brand, campaign string, force bool) (*models.AdRecord, error) {
	id := storage.AdID(url)

	record, _ := a.store.Load(id)
	if record != nil && record.Status == models.StatusAnalyzed && !force {
		log.Printf("Skipping %s: already analyzed (%s)", id, record.URL)
		return record, nil
	}

	platform := fetch.DetectPlatform(url)
	if !platform.Automated() && platform != fetch.PlatformUnknown {
		return nil, &fetch.ManualDownloadError{Platform: platform, URL: url}
	}

	if platform == fetch.PlatformYouTube && a.youtube != nil {
		var err error
		brand, campaign, err = a.enrichFromYouTube(ctx, url, brand, campaign)
		if err != nil {
			return nil, err
		}
	}
	if brand == "" {
		brand = "Unknown"
	}

	mediaName := fetch.MediaFilename(url)
	mediaPath := a.store.MediaPath(id, mediaName)

	if record == nil {
		record = &models.AdRecord{
			ID:       id,
			URL:      url,
			Brand:    brand,
			Campaign: campaign,
		}
	}

	if record.DownloadedAt == "" || record.MediaFile == "" || !fileExists(mediaPath) {
		log.Printf("📥 Downloading %s (%s)", url, id)
		record.Status = models.StatusPending
		if err := a.store.Write(record); err != nil {
			return nil, err
		}

		if err := a.fetcher.Download(ctx, url, mediaPath); err != nil {
			var manual *fetch.ManualDownloadError
			if errors.As(err, &manual) {
				return nil, err
			}
			_ = a.store.MarkFailed(id, models.StatusDownloadFailed, err.Error())
			return nil, fmt.Errorf("download failed for %s: %w", url, err)
		}

		// Persist the download before analysis so a crash mid-analysis
		// still leaves a resumable record.
		record.Status = models.StatusDownloaded
		record.MediaFile = mediaName
		record.DownloadedAt = time.Now().Format(time.RFC3339)
		record.Error = ""
		if err := a.store.Write(record); err != nil {
			return nil, err
		}
	} else {
		log.Printf("Reusing downloaded media for %s", id)
	}

	if !fetch.IsImage(mediaPath) {
		if err := a.validateVideo(ctx, mediaPath); err != nil {
			var invalid *fetch.ValidationError
			if errors.As(err, &invalid) {
				record.Error = invalid.Reason
				_ = a.store.Write(record)
			}
			return nil, fmt.Errorf("validation failed for %s: %w", id, err)
		}
	}

	analysis, err := a.analyze(ctx, record, mediaPath)
	if err != nil {
		_ = a.store.MarkFailed(id, models.StatusAnalysisFailed, err.Error())
		return nil, fmt.Errorf("analysis failed for %s: %w", id, err)
	}

	if err := a.store.UpdateAnalysis(id, analysis); err != nil {
		return nil, err
	}

	log.Printf("✅ %s scored %.1f/100 (%s)", record.Brand, analysis.OverallScore, scoring.Grade(analysis.OverallScore))
	return a.store.Load(id)
}

// enrichFromYouTube fills missing provenance from the video's title and
// rejects over-long videos before spending a download. One metadata call
// serves both checks.
func (a *Auditor) enrichFromYouTube(ctx context.Context, url, brand, campaign string) (string, string, error) {
	info, err := a.youtube.VideoInfo(ctx, url)
	if err != nil {
		// best effort, the post-download probe still applies
		log.Printf("Warning: YouTube metadata lookup failed for %s: %v", url, err)
		return brand, campaign, nil
	}

	if info.DurationSeconds > a.config.Video.MaxDurationSeconds {
		return brand, campaign, &fetch.ValidationError{
			Reason: fmt.Sprintf("video too long: %s (max %s)",
				fetch.FormatDuration(float64(info.DurationSeconds)),
				fetch.FormatDuration(float64(a.config.Video.MaxDurationSeconds))),
		}
	}

	derivedBrand, derivedCampaign := catalog.DeriveBrandCampaign(info.Title)
	if brand == "" {
		brand = derivedBrand
	}
	if campaign == "" {
		campaign = derivedCampaign
	}
	return brand, campaign, nil
}

// analyze runs one model attempt and turns the response into a validated,
// aggregated AnalysisResult. No partial scores are ever fabricated.
func (a *Auditor) analyze(ctx context.Context, record *models.AdRecord, mediaPath string) (*models.AnalysisResult, error) {
	adCopy := fmt.Sprintf("Brand: %s\nCampaign: %s", record.Brand, record.Campaign)

	var response *models.ModelResponse
	var err error
	if fetch.IsImage(mediaPath) {
		data, readErr := os.ReadFile(mediaPath)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read media: %w", readErr)
		}
		response, err = a.analyzer.AnalyzeImage(ctx, data, ai.ImageMIMEType(mediaPath), adCopy)
	} else {
		response, err = a.analyzer.AnalyzeVideo(ctx, mediaPath, adCopy)
	}
	if err != nil {
		return nil, err
	}

	scores, err := dimensionScores(response)
	if err != nil {
		return nil, err
	}

	overall, err := a.weights.Overall(scores)
	if err != nil {
		return nil, err
	}

	analysis := &models.AnalysisResult{
		AnalyzedAt:       time.Now().Format(time.RFC3339),
		DetectedLanguage: response.Language(),
		OverallScore:     overall,
		ClimateScore:     scores[models.DimClimate],
		SocialScore:      scores[models.DimSocial],
		CulturalScore:    scores[models.DimCultural],
		EthicalScore:     scores[models.DimEthical],
		Dimensions:       response.Dimensions,
		Summary:          response.Summary,
		Transcript:       response.Transcript,
		Duration:         response.DurationAnalyzed,
		Scenes:           response.Scenes,
		Temporal:         response.Temporal,
	}
	// The stored overall is always the recomputed weighted sum; keep the
	// model's own number when it disagrees.
	if math.Abs(response.OverallScore-overall) > overallDriftTolerance {
		analysis.ModelReportedScore = response.OverallScore
	}
	return analysis, nil
}

// dimensionScores validates that the response carries exactly the four
// fixed dimensions and extracts their scores.
func dimensionScores(response *models.ModelResponse) (map[string]float64, error) {
	if len(response.Dimensions) == 0 {
		return nil, ai.ErrMalformedResult
	}
	scores := make(map[string]float64, len(models.DimensionNames()))
	for _, name := range models.DimensionNames() {
		dim, ok := response.Dimensions[name]
		if !ok {
			return nil, fmt.Errorf("%w: no %q dimension", ai.ErrMalformedResult, name)
		}
		scores[name] = dim.Score
	}
	if len(response.Dimensions) != len(models.DimensionNames()) {
		return nil, fmt.Errorf("%w: unexpected extra dimensions", ai.ErrMalformedResult)
	}
	return scores, nil
}

// ProcessCatalog runs the per-ad flow over an ordered catalog slice. One
// row's failure never aborts the batch; the summary artifact is rewritten
// atomically after every row.
func (a *Auditor) ProcessCatalog(ctx context.Context, path string, start, count int) (*models.BatchSummary, error) {
	rows, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	rows = catalog.Slice(rows, start, count)

	summary := &models.BatchSummary{
		StartedAt: time.Now(),
		Catalog:   path,
	}
	log.Printf("📊 Processing %d ads (starting from index %d)", len(rows), start)

	for i, row := range rows {
		if ctx.Err() != nil {
			log.Printf("Batch interrupted after %d rows", i)
			break
		}

		brand, campaign := row.Brand, row.Campaign
		if brand == "" && campaign == "" && row.Title != "" {
			brand, campaign = catalog.DeriveBrandCampaign(row.Title)
		}

		log.Printf("[%d/%d] Processing %s", i+1, len(rows), row.URL)
		record, err := a.ProcessURL(ctx, row.URL, brand, campaign, a.config.Batch.ForceReanalyze)
		summary.Entries = append(summary.Entries, a.batchEntry(start+i, row.URL, brand, campaign, record, err))

		if _, err := a.store.SaveBatchSummary(summary); err != nil {
			log.Printf("Warning: failed to save batch summary: %v", err)
		}

		if i < len(rows)-1 {
			a.delay(ctx)
		}
	}

	log.Printf("✅ Batch complete: %d/%d successful", summary.Succeeded(), len(summary.Entries))

	if a.sender != nil {
		if err := a.sender.SendBatchReport(summary); err != nil {
			log.Printf("Warning: failed to email batch report: %v", err)
		}
	}
	return summary, nil
}

// batchEntry classifies one row's outcome for the audit summary.
func (a *Auditor) batchEntry(index int, url, brand, campaign string, record *models.AdRecord, err error) models.BatchEntry {
	entry := models.BatchEntry{
		Index:    index,
		URL:      url,
		Brand:    brand,
		Campaign: campaign,
	}

	if err == nil {
		entry.Status = "success"
		entry.ID = record.ID
		if record.Analysis != nil {
			entry.DetectedLanguage = record.Analysis.DetectedLanguage
			entry.OverallScore = record.Analysis.OverallScore
			entry.ClimateScore = record.Analysis.ClimateScore
			entry.SocialScore = record.Analysis.SocialScore
			entry.CulturalScore = record.Analysis.CulturalScore
			entry.EthicalScore = record.Analysis.EthicalScore
			entry.AnalyzedAt = record.Analysis.AnalyzedAt
		}
		return entry
	}

	entry.Error = err.Error()
	var manual *fetch.ManualDownloadError
	var invalid *fetch.ValidationError
	switch {
	case errors.As(err, &manual):
		entry.Status = "manual_download_required"
		log.Printf("⚠️  %s", manual.Instructions())
	case errors.As(err, &invalid):
		entry.Status = "validation_failed"
		entry.ID = storage.AdID(url)
	case errors.Is(err, ai.ErrMalformedResult), isParseError(err):
		entry.Status = models.StatusAnalysisFailed
		entry.ID = storage.AdID(url)
	default:
		// Anything else is stage-tagged on the record itself.
		entry.ID = storage.AdID(url)
		if record, loadErr := a.store.Load(entry.ID); loadErr == nil {
			entry.Status = record.Status
		} else {
			entry.Status = models.StatusDownloadFailed
		}
	}
	return entry
}

func isParseError(err error) bool {
	var parseErr *ai.ParseError
	return errors.As(err, &parseErr)
}

// delay is the courtesy pause between model calls, interruptible by ctx.
func (a *Auditor) delay(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(a.config.Batch.DelaySeconds) * time.Second):
	}
}

// Export writes every analyzed record to a CSV file and returns its path.
func (a *Auditor) Export() (string, int, error) {
	return a.store.ExportCSV()
}

// AuditMetrics summarizes one batch run for the scheduler's monitor.
type AuditMetrics struct {
	Rows     int
	Analyzed int
	Failed   int
}

func (m AuditMetrics) GetSummary() string {
	return fmt.Sprintf("processed %d ads, analyzed %d, failed %d", m.Rows, m.Analyzed, m.Failed)
}

// RunOnce processes the configured catalog, for scheduled (watch mode)
// runs.
func (a *Auditor) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()

	if a.config.Batch.Catalog == "" {
		return fmt.Errorf("batch.catalog must be configured for scheduled runs")
	}

	summary, err := a.ProcessCatalog(ctx, a.config.Batch.Catalog, 0, 0)
	if err != nil {
		return err
	}

	metrics := AuditMetrics{
		Rows:     len(summary.Entries),
		Analyzed: summary.Succeeded(),
	}
	metrics.Failed = metrics.Rows - metrics.Analyzed

	duration := time.Since(startTime)
	if events != nil {
		if metrics.Failed > 0 {
			events.OnPartialFailure(fmt.Errorf("%d of %d rows failed", metrics.Failed, metrics.Rows), duration)
		}
		events.OnSuccess(metrics, duration)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
