package models

import "time"

// Record lifecycle statuses. Progression is forward-only; the failure
// statuses are terminal for that attempt.
const (
	StatusPending        = "pending"
	StatusDownloaded     = "downloaded"
	StatusAnalyzed       = "analyzed"
	StatusDownloadFailed = "download_failed"
	StatusAnalysisFailed = "analysis_failed"
)

// The four fixed assessment dimensions. Every analysis carries exactly
// this set, never a subset or superset.
const (
	DimClimate  = "Climate Responsibility"
	DimSocial   = "Social Responsibility"
	DimCultural = "Cultural Sensitivity"
	DimEthical  = "Ethical Communication"
)

// DimensionNames returns the fixed dimension set in framework order.
func DimensionNames() []string {
	return []string{DimClimate, DimSocial, DimCultural, DimEthical}
}

// AdRecord is the durable unit of state for one submitted advertisement,
// keyed by a content-derived id and stored as metadata.json in its own
// directory.
type AdRecord struct {
	ID           string          `json:"id"`
	URL          string          `json:"url"`
	Brand        string          `json:"brand"`
	Campaign     string          `json:"campaign"`
	MediaFile    string          `json:"media_file,omitempty"`
	Status       string          `json:"status"`
	Error        string          `json:"error,omitempty"`
	DownloadedAt string          `json:"downloaded_at,omitempty"`
	Analysis     *AnalysisResult `json:"analysis,omitempty"`
}

// AnalysisResult is the structured outcome of one model assessment.
type AnalysisResult struct {
	AnalyzedAt       string  `json:"analyzed_at"`
	DetectedLanguage string  `json:"detected_language"`
	OverallScore     float64 `json:"overall_score"`
	// ModelReportedScore preserves the model's own overall when it drifts
	// from the locally recomputed weighted sum.
	ModelReportedScore float64                    `json:"model_reported_score,omitempty"`
	ClimateScore       float64                    `json:"climate_score"`
	SocialScore        float64                    `json:"social_score"`
	CulturalScore      float64                    `json:"cultural_score"`
	EthicalScore       float64                    `json:"ethical_score"`
	Dimensions         map[string]DimensionResult `json:"dimensions"`
	Summary            Summary                    `json:"summary"`
	Transcript         string                     `json:"transcript,omitempty"`
	Duration           string                     `json:"duration,omitempty"`
	Scenes             []Scene                    `json:"scenes,omitempty"`
	Temporal           *TemporalAnalysis          `json:"temporal_analysis,omitempty"`
}

// DimensionResult holds one dimension's score and findings. The _hu
// variants are present only for bilingual analyses.
type DimensionResult struct {
	Score      float64  `json:"score"`
	Findings   []string `json:"findings"`
	FindingsHU []string `json:"findings_hu,omitempty"`
}

type Summary struct {
	Strengths         []string `json:"strengths"`
	StrengthsHU       []string `json:"strengths_hu,omitempty"`
	Concerns          []string `json:"concerns"`
	ConcernsHU        []string `json:"concerns_hu,omitempty"`
	Recommendations   []string `json:"recommendations"`
	RecommendationsHU []string `json:"recommendations_hu,omitempty"`
}

// Scene is one segment of a video ad with per-scene sub-scores.
type Scene struct {
	Timestamp      string   `json:"timestamp"`
	Description    string   `json:"description"`
	VisualElements []string `json:"visual_elements,omitempty"`
	AudioContent   string   `json:"audio_content,omitempty"`
	ClimateScore   float64  `json:"climate_score"`
	SocialScore    float64  `json:"social_score"`
	CulturalScore  float64  `json:"cultural_score"`
	EthicalScore   float64  `json:"ethical_score"`
	OverallScore   float64  `json:"overall_scene_score"`
}

type TemporalAnalysis struct {
	MessagingEvolution   string      `json:"messaging_evolution,omitempty"`
	KeyMoments           []KeyMoment `json:"key_moments,omitempty"`
	AudioVisualAlignment string      `json:"audio_visual_alignment,omitempty"`
	PacingNotes          string      `json:"pacing_notes,omitempty"`
}

type KeyMoment struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
}

// ModelResponse is the raw structured document extracted from the model's
// free-form reply, before any local validation or score aggregation.
type ModelResponse struct {
	OverallScore     float64                    `json:"overall_score"`
	AdLanguage       string                     `json:"ad_language"`
	DetectedLanguage string                     `json:"detected_language"`
	DurationAnalyzed string                     `json:"duration_analyzed"`
	Transcript       string                     `json:"transcript"`
	Dimensions       map[string]DimensionResult `json:"dimensions"`
	Scenes           []Scene                    `json:"scenes"`
	Summary          Summary                    `json:"summary"`
	Temporal         *TemporalAnalysis          `json:"temporal_analysis"`
}

// Language returns whichever language field the model populated. The image
// schema uses ad_language, the video schema detected_language.
func (r *ModelResponse) Language() string {
	if r.DetectedLanguage != "" {
		return r.DetectedLanguage
	}
	if r.AdLanguage != "" {
		return r.AdLanguage
	}
	return "unknown"
}

// BatchEntry is one row of a batch run's audit summary, distinct from the
// per-ad metadata.
type BatchEntry struct {
	Index            int     `json:"index"`
	ID               string  `json:"id,omitempty"`
	URL              string  `json:"url"`
	Brand            string  `json:"brand,omitempty"`
	Campaign         string  `json:"campaign,omitempty"`
	Status           string  `json:"status"`
	Error            string  `json:"error,omitempty"`
	DetectedLanguage string  `json:"detected_language,omitempty"`
	// Score fields stay in the JSON even at zero: a 0 is a legitimate
	// dimension score on a success row, not an absence.
	OverallScore  float64 `json:"overall_score"`
	ClimateScore  float64 `json:"climate_score"`
	SocialScore   float64 `json:"social_score"`
	CulturalScore float64 `json:"cultural_score"`
	EthicalScore  float64 `json:"ethical_score"`
	AnalyzedAt    string  `json:"analyzed_at,omitempty"`
}

// BatchSummary is the audit artifact for one catalog-driven run, keyed by
// the batch's start time.
type BatchSummary struct {
	StartedAt time.Time    `json:"started_at"`
	Catalog   string       `json:"catalog,omitempty"`
	Entries   []BatchEntry `json:"entries"`
}

// Succeeded counts entries that completed analysis.
func (b *BatchSummary) Succeeded() int {
	n := 0
	for _, e := range b.Entries {
		if e.Status == "success" {
			n++
		}
	}
	return n
}
