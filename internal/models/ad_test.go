package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBatchEntryKeepsZeroScores(t *testing.T) {
	entry := BatchEntry{
		Index:         0,
		ID:            "abc123def456",
		URL:           "https://example.com/ad.mp4",
		Status:        "success",
		OverallScore:  45.75,
		ClimateScore:  0, // a real score, not a missing one
		SocialScore:   61,
		CulturalScore: 55,
		EthicalScore:  67,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	for _, field := range []string{`"climate_score":0`, `"overall_score":45.75`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("serialized entry missing %s:\n%s", field, data)
		}
	}
}

func TestModelResponseLanguage(t *testing.T) {
	tests := []struct {
		name     string
		response ModelResponse
		expected string
	}{
		{"Video schema", ModelResponse{DetectedLanguage: "hu"}, "hu"},
		{"Image schema", ModelResponse{AdLanguage: "en"}, "en"},
		{"Both set prefers detected", ModelResponse{DetectedLanguage: "hu", AdLanguage: "en"}, "hu"},
		{"Neither", ModelResponse{}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.response.Language(); got != tt.expected {
				t.Errorf("Language() = %s, want %s", got, tt.expected)
			}
		})
	}
}
