// Package scoring turns the four dimension scores into the overall score
// and the categorical labels the dashboards and exports consume. Every
// function here is a pure function of its inputs.
package scoring

import (
	"fmt"
	"math"

	"adindex/internal/models"
	"adindex/shared/config"
)

// weightEpsilon is the tolerance when checking that weights sum to 1.0.
const weightEpsilon = 1e-6

// Weights maps each of the four fixed dimensions to its share of the
// overall score.
type Weights map[string]float64

// DefaultWeights returns the standard equal weighting.
func DefaultWeights() Weights {
	return Weights{
		models.DimClimate:  0.25,
		models.DimSocial:   0.25,
		models.DimCultural: 0.25,
		models.DimEthical:  0.25,
	}
}

// NewWeights builds a weight set from config, rejecting any set that does
// not cover exactly the four fixed dimensions with weights summing to 1.0.
func NewWeights(cfg *config.ScoringConfig) (Weights, error) {
	w := Weights{
		models.DimClimate:  cfg.ClimateWeight,
		models.DimSocial:   cfg.SocialWeight,
		models.DimCultural: cfg.CulturalWeight,
		models.DimEthical:  cfg.EthicalWeight,
	}
	if err := w.validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w Weights) validate() error {
	if len(w) != len(models.DimensionNames()) {
		return fmt.Errorf("expected %d weights, got %d", len(models.DimensionNames()), len(w))
	}
	sum := 0.0
	for _, name := range models.DimensionNames() {
		weight, ok := w[name]
		if !ok {
			return fmt.Errorf("missing weight for dimension %q", name)
		}
		if weight < 0 {
			return fmt.Errorf("negative weight for dimension %q", name)
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// Overall computes the weighted overall score from the per-dimension
// scores. The score set must cover exactly the four fixed dimensions.
func (w Weights) Overall(scores map[string]float64) (float64, error) {
	if len(scores) != len(models.DimensionNames()) {
		return 0, fmt.Errorf("expected %d dimension scores, got %d", len(models.DimensionNames()), len(scores))
	}
	overall := 0.0
	for _, name := range models.DimensionNames() {
		score, ok := scores[name]
		if !ok {
			return 0, fmt.Errorf("missing score for dimension %q", name)
		}
		overall += w[name] * score
	}
	return overall, nil
}

// Grade maps an overall score to a letter grade. Boundaries are
// closed-above: exactly 90 is an A, 89.999 an A-.
func Grade(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 85:
		return "A-"
	case score >= 80:
		return "B+"
	case score >= 75:
		return "B"
	case score >= 70:
		return "B-"
	case score >= 65:
		return "C+"
	case score >= 60:
		return "C"
	case score >= 55:
		return "C-"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

// Stars maps an overall score to the 2-5 star rating used in exports.
func Stars(score float64) int {
	switch {
	case score >= 90:
		return 5
	case score >= 75:
		return 4
	case score >= 60:
		return 3
	default:
		return 2
	}
}

// Band maps an overall score to the qualitative band used for UI coloring.
func Band(score float64) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	default:
		return "Needs Improvement"
	}
}
