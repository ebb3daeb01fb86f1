package email

import (
	"strings"
	"testing"
	"time"

	"adindex/internal/models"
	"adindex/shared/config"
)

func testSummary() *models.BatchSummary {
	return &models.BatchSummary{
		StartedAt: time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC),
		Catalog:   "catalog.csv",
		Entries: []models.BatchEntry{
			{
				Index: 0, Brand: "Acme", Status: "success",
				OverallScore: 89.5, ClimateScore: 90, SocialScore: 85, CulturalScore: 95, EthicalScore: 88,
			},
			{
				Index: 1, URL: "https://example.com/broken.mp4", Status: "download_failed",
				Error: "HTTP 404",
			},
		},
	}
}

func TestGenerateEmailBody(t *testing.T) {
	s := NewSender(&config.EmailConfig{})
	body, err := s.generateEmailBody(testSummary())
	if err != nil {
		t.Fatalf("generateEmailBody() failed: %v", err)
	}

	for _, want := range []string{"Acme", "success", "89.5", "download_failed", "catalog.csv", "2026-08-28 06:00"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	// Entries without a brand fall back to the URL.
	if !strings.Contains(body, "https://example.com/broken.mp4") {
		t.Error("body missing URL fallback for brandless entry")
	}
}

func TestSendBatchReportNilAndEmpty(t *testing.T) {
	s := NewSender(&config.EmailConfig{})

	if err := s.SendBatchReport(nil); err == nil {
		t.Error("SendBatchReport(nil) succeeded, want error")
	}
	// An empty batch is a no-op, not a send attempt.
	if err := s.SendBatchReport(&models.BatchSummary{StartedAt: time.Now()}); err != nil {
		t.Errorf("SendBatchReport(empty) = %v, want nil", err)
	}
}
