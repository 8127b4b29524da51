package aidetect

import (
	"errors"
	"fmt"
	"math"
)

// Config holds the weights and thresholds of the scoring rules. The values
// are illustrative and not derived from any model.
type Config struct {
	ReadabilityThreshold    float64
	ReadabilityWeight       int
	SentenceLengthThreshold float64
	SentenceLengthWeight    int
	WordCountThreshold      int
	WordCountWeight         int
	PerturbationRange       int
	AILabelThreshold        int
	MinScore                int
	MaxScore                int
	// ReadabilityFallback stands in for the readability score when the
	// formula is undefined (text without any words).
	ReadabilityFallback float64
}

// Scores are always reported on this scale.
const (
	scoreFloor   = 0
	scoreCeiling = 100
)

func DefaultConfig() Config {
	return Config{
		ReadabilityThreshold:    60,
		ReadabilityWeight:       30,
		SentenceLengthThreshold: 20,
		SentenceLengthWeight:    40,
		WordCountThreshold:      100,
		WordCountWeight:         20,
		PerturbationRange:       10,
		AILabelThreshold:        60,
		MinScore:                0,
		MaxScore:                100,
		ReadabilityFallback:     206.835,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.MinScore < scoreFloor || c.MaxScore > scoreCeiling || c.MinScore > c.MaxScore {
		errs = append(errs, fmt.Errorf("score bounds must satisfy %d <= min <= max <= %d, got min=%d max=%d",
			scoreFloor, scoreCeiling, c.MinScore, c.MaxScore))
	}
	if c.PerturbationRange < 0 || c.PerturbationRange > scoreCeiling-scoreFloor {
		errs = append(errs, fmt.Errorf("perturbation range must be within [0, %d], got %d",
			scoreCeiling-scoreFloor, c.PerturbationRange))
	}
	if math.IsNaN(c.ReadabilityFallback) || math.IsInf(c.ReadabilityFallback, 0) {
		errs = append(errs, errors.New("readability fallback must be finite"))
	}
	return errors.Join(errs...)
}
