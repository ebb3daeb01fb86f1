package adauditor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"adindex/agents/ad-auditor/youtube"
	"adindex/internal/models"
	"adindex/shared/ai"
	"adindex/shared/config"
	"adindex/shared/fetch"
	"adindex/shared/storage"
)

// fakeDownloader writes a small media file, or fails for URLs containing a
// configured marker.
type fakeDownloader struct {
	calls   int
	failFor string
	err     error
}

func (f *fakeDownloader) Download(ctx context.Context, url, dest string) error {
	f.calls++
	if f.failFor != "" && strings.Contains(url, f.failFor) {
		if f.err != nil {
			return f.err
		}
		return fmt.Errorf("download failed: HTTP 404 from %s", url)
	}
	return os.WriteFile(dest, []byte("media bytes"), 0644)
}

// fakeScorer returns a canned model response for every attempt.
type fakeScorer struct {
	calls        int
	imageCalls   int
	videoCalls   int
	lastMIMEType string
	response     *models.ModelResponse
	err          error
}

func (f *fakeScorer) AnalyzeImage(ctx context.Context, imageData []byte, mimeType, adCopy string) (*models.ModelResponse, error) {
	f.calls++
	f.imageCalls++
	f.lastMIMEType = mimeType
	return f.response, f.err
}

func (f *fakeScorer) AnalyzeVideo(ctx context.Context, videoPath, adCopy string) (*models.ModelResponse, error) {
	f.calls++
	f.videoCalls++
	return f.response, f.err
}

// fakeLookup stands in for the YouTube metadata client.
type fakeLookup struct {
	calls int
	info  *youtube.Info
	err   error
}

func (f *fakeLookup) VideoInfo(ctx context.Context, url string) (*youtube.Info, error) {
	f.calls++
	return f.info, f.err
}

func goodResponse() *models.ModelResponse {
	return &models.ModelResponse{
		OverallScore:     89.5,
		DetectedLanguage: "en",
		Dimensions: map[string]models.DimensionResult{
			models.DimClimate:  {Score: 90, Findings: []string{"repair program"}},
			models.DimSocial:   {Score: 85, Findings: []string{"diverse cast"}},
			models.DimCultural: {Score: 95, Findings: []string{"local framing"}},
			models.DimEthical:  {Score: 88, Findings: []string{"claims verifiable"}},
		},
		Summary: models.Summary{
			Strengths:       []string{"repair guarantee"},
			Concerns:        []string{"no emissions data"},
			Recommendations: []string{"publish supply data"},
		},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Storage.Dir = t.TempDir()
	cfg.Scoring = config.ScoringConfig{ClimateWeight: 0.25, SocialWeight: 0.25, CulturalWeight: 0.25, EthicalWeight: 0.25}
	cfg.Video = config.VideoConfig{MaxFileSizeMB: 200, MaxDurationSeconds: 180}
	cfg.Batch.DelaySeconds = 0
	return cfg
}

func newTestAuditor(t *testing.T, downloader *fakeDownloader, scorer *fakeScorer) *Auditor {
	t.Helper()
	a := NewAuditor(testConfig(t))
	a.fetcher = downloader
	a.analyzer = scorer
	a.validateVideo = func(ctx context.Context, path string) error { return nil }
	if err := a.Initialize(); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	return a
}

func writeBatchCatalog(t *testing.T, urls ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("title,url\n")
	for i, url := range urls {
		fmt.Fprintf(&b, "Brand%d // Campaign%d,%s\n", i, i, url)
	}
	path := filepath.Join(t.TempDir(), "catalog.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("writing catalog failed: %v", err)
	}
	return path
}

func TestProcessURLHappyPath(t *testing.T) {
	downloader := &fakeDownloader{}
	scorer := &fakeScorer{response: goodResponse()}
	a := newTestAuditor(t, downloader, scorer)

	url := "https://cdn.example.com/spot.mp4"
	record, err := a.ProcessURL(context.Background(), url, "Acme", "Spring Launch", false)
	if err != nil {
		t.Fatalf("ProcessURL() failed: %v", err)
	}

	if record.Status != models.StatusAnalyzed {
		t.Errorf("Status = %s, want %s", record.Status, models.StatusAnalyzed)
	}
	if record.Analysis == nil {
		t.Fatal("record has no analysis")
	}
	if record.Analysis.OverallScore != 89.5 {
		t.Errorf("OverallScore = %v, want 89.5", record.Analysis.OverallScore)
	}
	if record.Analysis.ModelReportedScore != 0 {
		t.Errorf("ModelReportedScore = %v, want unset when model agrees", record.Analysis.ModelReportedScore)
	}
	if record.DownloadedAt == "" || record.MediaFile != "video.mp4" {
		t.Errorf("download provenance missing: %+v", record)
	}
	if downloader.calls != 1 || scorer.calls != 1 {
		t.Errorf("calls = %d downloads, %d analyses, want 1 and 1", downloader.calls, scorer.calls)
	}
}

func TestProcessURLImageAd(t *testing.T) {
	downloader := &fakeDownloader{}
	scorer := &fakeScorer{response: goodResponse()}
	a := newTestAuditor(t, downloader, scorer)
	a.validateVideo = func(ctx context.Context, path string) error {
		t.Error("video validation ran for an image ad")
		return nil
	}

	record, err := a.ProcessURL(context.Background(), "https://cdn.example.com/banner.png", "Acme", "Display", false)
	if err != nil {
		t.Fatalf("ProcessURL() failed: %v", err)
	}

	if record.Status != models.StatusAnalyzed {
		t.Errorf("Status = %s, want %s", record.Status, models.StatusAnalyzed)
	}
	if record.MediaFile != "image.png" {
		t.Errorf("MediaFile = %s, want image.png", record.MediaFile)
	}
	if scorer.imageCalls != 1 || scorer.videoCalls != 0 {
		t.Errorf("calls = %d image, %d video, want the image path only", scorer.imageCalls, scorer.videoCalls)
	}
	if scorer.lastMIMEType != "image/png" {
		t.Errorf("mime type = %s, want image/png", scorer.lastMIMEType)
	}
}

func TestProcessURLYouTubeSingleLookup(t *testing.T) {
	downloader := &fakeDownloader{}
	lookup := &fakeLookup{info: &youtube.Info{Title: "Acme // Launch", DurationSeconds: 60}}
	a := newTestAuditor(t, downloader, &fakeScorer{response: goodResponse()})
	a.youtube = lookup

	record, err := a.ProcessURL(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "", "", false)
	if err != nil {
		t.Fatalf("ProcessURL() failed: %v", err)
	}

	if lookup.calls != 1 {
		t.Errorf("metadata lookups = %d, want 1 (enrichment and duration share one call)", lookup.calls)
	}
	if record.Brand != "Acme" || record.Campaign != "Launch" {
		t.Errorf("title-derived identity = (%s, %s), want (Acme, Launch)", record.Brand, record.Campaign)
	}
}

func TestProcessURLYouTubeRejectsOverlongBeforeDownload(t *testing.T) {
	downloader := &fakeDownloader{}
	lookup := &fakeLookup{info: &youtube.Info{Title: "Acme // Launch", DurationSeconds: 600}}
	a := newTestAuditor(t, downloader, &fakeScorer{response: goodResponse()})
	a.youtube = lookup

	_, err := a.ProcessURL(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "", "", false)
	var invalid *fetch.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if !strings.Contains(invalid.Reason, "10:00 (max 3:00)") {
		t.Errorf("Reason = %q, want formatted durations", invalid.Reason)
	}
	if downloader.calls != 0 {
		t.Errorf("downloads = %d, want 0 (rejected before fetching)", downloader.calls)
	}
}

func TestProcessURLRecomputesDriftingOverall(t *testing.T) {
	response := goodResponse()
	response.OverallScore = 95 // drifts from the weighted sum of 89.5
	a := newTestAuditor(t, &fakeDownloader{}, &fakeScorer{response: response})

	record, err := a.ProcessURL(context.Background(), "https://cdn.example.com/spot.mp4", "Acme", "", false)
	if err != nil {
		t.Fatalf("ProcessURL() failed: %v", err)
	}
	if record.Analysis.OverallScore != 89.5 {
		t.Errorf("OverallScore = %v, want recomputed 89.5", record.Analysis.OverallScore)
	}
	if record.Analysis.ModelReportedScore != 95 {
		t.Errorf("ModelReportedScore = %v, want preserved 95", record.Analysis.ModelReportedScore)
	}
}

func TestProcessURLSkipsAnalyzed(t *testing.T) {
	downloader := &fakeDownloader{}
	scorer := &fakeScorer{response: goodResponse()}
	a := newTestAuditor(t, downloader, scorer)

	url := "https://cdn.example.com/spot.mp4"
	if _, err := a.ProcessURL(context.Background(), url, "Acme", "", false); err != nil {
		t.Fatalf("first ProcessURL() failed: %v", err)
	}
	if _, err := a.ProcessURL(context.Background(), url, "Acme", "", false); err != nil {
		t.Fatalf("second ProcessURL() failed: %v", err)
	}

	if downloader.calls != 1 {
		t.Errorf("downloads = %d, want 1 (second submission skipped)", downloader.calls)
	}
	if scorer.calls != 1 {
		t.Errorf("analyses = %d, want 1 (second submission skipped)", scorer.calls)
	}

	if _, err := a.ProcessURL(context.Background(), url, "Acme", "", true); err != nil {
		t.Fatalf("forced ProcessURL() failed: %v", err)
	}
	if scorer.calls != 2 {
		t.Errorf("analyses = %d, want 2 after force", scorer.calls)
	}
}

func TestProcessURLResumesAfterInterruptedAnalysis(t *testing.T) {
	downloader := &fakeDownloader{}
	scorer := &fakeScorer{err: errors.New("model unavailable")}
	a := newTestAuditor(t, downloader, scorer)

	url := "https://cdn.example.com/spot.mp4"
	id := storage.AdID(url)

	// First attempt downloads fine but dies at analysis.
	if _, err := a.ProcessURL(context.Background(), url, "Acme", "", false); err == nil {
		t.Fatal("ProcessURL() succeeded, want analysis error")
	}

	interrupted, err := a.store.Load(id)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if interrupted.Status != models.StatusAnalysisFailed {
		t.Errorf("Status = %s, want %s", interrupted.Status, models.StatusAnalysisFailed)
	}
	if interrupted.DownloadedAt == "" {
		t.Error("interrupted record lost its download provenance")
	}

	// Second attempt must reuse the media and only redo the analysis.
	scorer.err = nil
	scorer.response = goodResponse()
	record, err := a.ProcessURL(context.Background(), url, "Acme", "", false)
	if err != nil {
		t.Fatalf("resumed ProcessURL() failed: %v", err)
	}
	if record.Status != models.StatusAnalyzed {
		t.Errorf("Status = %s, want %s", record.Status, models.StatusAnalyzed)
	}
	if downloader.calls != 1 {
		t.Errorf("downloads = %d, want 1 (resume must not re-fetch)", downloader.calls)
	}

	// Exactly one ad directory for the URL.
	entries, err := os.ReadDir(a.store.Root())
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	dirs := 0
	for _, entry := range entries {
		if entry.IsDir() {
			dirs++
		}
	}
	if dirs != 1 {
		t.Errorf("ad directories = %d, want 1", dirs)
	}
}

func TestProcessURLManualPlatform(t *testing.T) {
	a := newTestAuditor(t, &fakeDownloader{}, &fakeScorer{response: goodResponse()})

	_, err := a.ProcessURL(context.Background(), "https://www.linkedin.com/ad-library/detail/1", "Acme", "", false)
	var manual *fetch.ManualDownloadError
	if !errors.As(err, &manual) {
		t.Fatalf("error = %v, want *ManualDownloadError", err)
	}

	// No record should exist for a URL we never attempted to fetch.
	if _, err := a.store.Load(storage.AdID("https://www.linkedin.com/ad-library/detail/1")); !os.IsNotExist(err) {
		t.Errorf("Load() error = %v, want os.IsNotExist", err)
	}
}

func TestProcessURLValidationFailureKeepsDownload(t *testing.T) {
	a := newTestAuditor(t, &fakeDownloader{}, &fakeScorer{response: goodResponse()})
	a.validateVideo = func(ctx context.Context, path string) error {
		return &fetch.ValidationError{Reason: "video too long: 600s (max 180s)"}
	}

	url := "https://cdn.example.com/spot.mp4"
	_, err := a.ProcessURL(context.Background(), url, "Acme", "", false)
	if err == nil {
		t.Fatal("ProcessURL() succeeded, want validation error")
	}

	record, loadErr := a.store.Load(storage.AdID(url))
	if loadErr != nil {
		t.Fatalf("Load() failed: %v", loadErr)
	}
	if record.Status != models.StatusDownloaded {
		t.Errorf("Status = %s, want %s (media is usable for retry with raised limits)", record.Status, models.StatusDownloaded)
	}
	if !strings.Contains(record.Error, "too long") {
		t.Errorf("Error = %q, want validation reason", record.Error)
	}
}

func TestProcessURLMalformedModelResponse(t *testing.T) {
	response := goodResponse()
	delete(response.Dimensions, models.DimEthical)
	a := newTestAuditor(t, &fakeDownloader{}, &fakeScorer{response: response})

	url := "https://cdn.example.com/spot.mp4"
	_, err := a.ProcessURL(context.Background(), url, "Acme", "", false)
	if !errors.Is(err, ai.ErrMalformedResult) {
		t.Fatalf("error = %v, want ErrMalformedResult", err)
	}

	record, loadErr := a.store.Load(storage.AdID(url))
	if loadErr != nil {
		t.Fatalf("Load() failed: %v", loadErr)
	}
	if record.Status != models.StatusAnalysisFailed {
		t.Errorf("Status = %s, want %s", record.Status, models.StatusAnalysisFailed)
	}
	if record.Analysis != nil {
		t.Error("partial analysis was persisted, want none")
	}
}

func TestProcessCatalogIsolatesRowFailure(t *testing.T) {
	downloader := &fakeDownloader{failFor: "broken"}
	a := newTestAuditor(t, downloader, &fakeScorer{response: goodResponse()})

	path := writeBatchCatalog(t,
		"https://cdn.example.com/one.mp4",
		"https://cdn.example.com/broken.mp4",
		"https://cdn.example.com/three.mp4",
	)

	summary, err := a.ProcessCatalog(context.Background(), path, 0, 0)
	if err != nil {
		t.Fatalf("ProcessCatalog() failed: %v", err)
	}

	if len(summary.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(summary.Entries))
	}
	wantStatuses := []string{"success", models.StatusDownloadFailed, "success"}
	for i, want := range wantStatuses {
		if got := summary.Entries[i].Status; got != want {
			t.Errorf("Entries[%d].Status = %s, want %s", i, got, want)
		}
	}
	if summary.Entries[1].Error == "" {
		t.Error("failed entry carries no error message")
	}
	if got := summary.Succeeded(); got != 2 {
		t.Errorf("Succeeded() = %d, want 2", got)
	}

	// The summary artifact must exist on disk.
	entries, err := os.ReadDir(a.store.Root())
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	found := false
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "batch_summary_") {
			found = true
		}
	}
	if !found {
		t.Error("no batch summary file written")
	}
}

func TestProcessCatalogFlattensScores(t *testing.T) {
	a := newTestAuditor(t, &fakeDownloader{}, &fakeScorer{response: goodResponse()})

	path := writeBatchCatalog(t, "https://cdn.example.com/one.mp4")
	summary, err := a.ProcessCatalog(context.Background(), path, 0, 0)
	if err != nil {
		t.Fatalf("ProcessCatalog() failed: %v", err)
	}

	entry := summary.Entries[0]
	if entry.Brand != "Brand0" || entry.Campaign != "Campaign0" {
		t.Errorf("title-derived identity = (%s, %s)", entry.Brand, entry.Campaign)
	}
	if entry.OverallScore != 89.5 || entry.ClimateScore != 90 || entry.EthicalScore != 88 {
		t.Errorf("flattened scores = %+v", entry)
	}
	if entry.DetectedLanguage != "en" {
		t.Errorf("DetectedLanguage = %s, want en", entry.DetectedLanguage)
	}
}

func TestProcessCatalogHonorsContext(t *testing.T) {
	a := newTestAuditor(t, &fakeDownloader{}, &fakeScorer{response: goodResponse()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeBatchCatalog(t, "https://cdn.example.com/one.mp4", "https://cdn.example.com/two.mp4")
	summary, err := a.ProcessCatalog(ctx, path, 0, 0)
	if err != nil {
		t.Fatalf("ProcessCatalog() failed: %v", err)
	}
	if len(summary.Entries) != 0 {
		t.Errorf("len(Entries) = %d, want 0 after pre-cancelled context", len(summary.Entries))
	}
}

func TestRunOnceRequiresCatalog(t *testing.T) {
	a := newTestAuditor(t, &fakeDownloader{}, &fakeScorer{response: goodResponse()})
	if err := a.RunOnce(context.Background(), nil); err == nil {
		t.Error("RunOnce() without a configured catalog succeeded, want error")
	}
}

func TestAuditMetricsSummary(t *testing.T) {
	m := AuditMetrics{Rows: 10, Analyzed: 8, Failed: 2}
	want := "processed 10 ads, analyzed 8, failed 2"
	if got := m.GetSummary(); got != want {
		t.Errorf("GetSummary() = %q, want %q", got, want)
	}
}
