package config

import (
	"fmt"
	"math"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	AI         AIConfig         `yaml:"ai"`
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Video      VideoConfig      `yaml:"video"`
	Language   LanguageConfig   `yaml:"language"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Batch      BatchConfig      `yaml:"batch"`
	Email      EmailConfig      `yaml:"email"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Schedule   string           `yaml:"schedule"`
}

type StorageConfig struct {
	// Root directory holding one subdirectory per ad plus batch artifacts.
	Dir string `yaml:"dir"`
}

type AIConfig struct {
	GeminiAPIKey    string  `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model           string  `yaml:"model"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
	// Videos larger than this are uploaded through the File API instead of
	// being inlined in the request.
	FileAPIThresholdMB int `yaml:"file_api_threshold_mb"`
	TimeoutMinutes     int `yaml:"timeout_minutes"`
}

type YouTubeConfig struct {
	// Optional Data API key for metadata enrichment. Lookup is skipped
	// entirely when unset.
	APIKey string `yaml:"api_key" env:"YOUTUBE_API_KEY"`
}

type VideoConfig struct {
	MaxFileSizeMB      int `yaml:"max_file_size_mb"`
	MaxDurationSeconds int `yaml:"max_duration_seconds"`
}

// LanguageConfig holds the thresholds of the coarse en/hu detection
// heuristic. They are configuration, not authoritative locale detection.
type LanguageConfig struct {
	DiacriticThreshold int `yaml:"diacritic_threshold"`
	StopwordThreshold  int `yaml:"stopword_threshold"`
}

type ScoringConfig struct {
	ClimateWeight  float64 `yaml:"climate_weight"`
	SocialWeight   float64 `yaml:"social_weight"`
	CulturalWeight float64 `yaml:"cultural_weight"`
	EthicalWeight  float64 `yaml:"ethical_weight"`
}

type BatchConfig struct {
	// Catalog file used by scheduled (watch mode) runs.
	Catalog        string `yaml:"catalog"`
	DelaySeconds   int    `yaml:"delay_seconds"`
	ForceReanalyze bool   `yaml:"force_reanalyze"`
}

type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

// Enabled reports whether batch reports should be emailed at all.
func (e *EmailConfig) Enabled() bool {
	return e.SMTPServer != "" && e.ToEmail != ""
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(configFile)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	if cfg.AI.GeminiAPIKey == "" {
		cfg.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.AI.GeminiAPIKey == "" {
		cfg.AI.GeminiAPIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.YouTube.APIKey == "" {
		cfg.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if cfg.Email.Username == "" {
		cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if cfg.Email.Password == "" {
		cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Dir == "" {
		c.Storage.Dir = "analysis_storage"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = 0.4
	}
	if c.AI.MaxOutputTokens == 0 {
		c.AI.MaxOutputTokens = 8000
	}
	if c.AI.FileAPIThresholdMB == 0 {
		c.AI.FileAPIThresholdMB = 20
	}
	if c.AI.TimeoutMinutes == 0 {
		c.AI.TimeoutMinutes = 10
	}
	if c.Video.MaxFileSizeMB == 0 {
		c.Video.MaxFileSizeMB = 200
	}
	if c.Video.MaxDurationSeconds == 0 {
		c.Video.MaxDurationSeconds = 180
	}
	if c.Language.DiacriticThreshold == 0 {
		c.Language.DiacriticThreshold = 5
	}
	if c.Language.StopwordThreshold == 0 {
		c.Language.StopwordThreshold = 2
	}
	if c.Scoring.ClimateWeight == 0 && c.Scoring.SocialWeight == 0 &&
		c.Scoring.CulturalWeight == 0 && c.Scoring.EthicalWeight == 0 {
		c.Scoring.ClimateWeight = 0.25
		c.Scoring.SocialWeight = 0.25
		c.Scoring.CulturalWeight = 0.25
		c.Scoring.EthicalWeight = 0.25
	}
	if c.Batch.DelaySeconds == 0 {
		c.Batch.DelaySeconds = 2
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Schedule == "" {
		c.Schedule = "0 0 6 * * *" // Daily at 6 AM
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
}

func (c *Config) validate() error {
	if c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	sum := c.Scoring.ClimateWeight + c.Scoring.SocialWeight +
		c.Scoring.CulturalWeight + c.Scoring.EthicalWeight
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}
	if c.Email.Enabled() && c.Email.FromEmail == "" {
		return fmt.Errorf("email.from_email is required when email reporting is enabled")
	}
	return nil
}
