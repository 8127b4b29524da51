package aidetect

import (
	"fmt"
	"strings"
	"time"

	"detectai/internal/textstat"
)

type Label string

const (
	LabelAI    Label = "Likely AI-Generated"
	LabelHuman Label = "Likely Human-Written"
)

const (
	reasonHighReadability     = "High readability, often found in AI-generated text."
	reasonModerateReadability = "Moderate readability, more typical of human writing."
	reasonUniformSentences    = "Short, consistent sentence length, common in AI writing."
	reasonVariedSentences     = "Varied sentence length, typical of human writing."
	reasonLongForm            = "Long-form content detected, can be either human or AI."
	reasonShortContent        = "Short content."
)

// Outcome is either Empty or Result.
type Outcome interface {
	isOutcome()
}

// Empty is returned when the input holds nothing but whitespace.
type Empty struct{}

type Signals struct {
	Readability      float64 `json:"readability"`
	AvgSentenceWords float64 `json:"avg_sentence_words"`
	WordCount        int     `json:"word_count"`
	Perturbation     int     `json:"perturbation"`
}

type Result struct {
	Score       int      `json:"score"`
	Label       Label    `json:"label"`
	Explanation []string `json:"explanation"`
	Signals     Signals  `json:"signals"`
}

func (Empty) isOutcome()  {}
func (Result) isOutcome() {}

type Logger interface {
	Log(level, stage, message, detail string)
}

type Scorer struct {
	cfg    Config
	rnd    RandomSource
	logger Logger
}

// NewScorer builds a scorer. A nil rnd disables the perturbation term and a
// nil logger disables run logging.
func NewScorer(cfg Config, rnd RandomSource, logger Logger) *Scorer {
	return &Scorer{cfg: cfg, rnd: rnd, logger: logger}
}

func (s *Scorer) Analyze(text string) Outcome {
	if strings.TrimSpace(text) == "" {
		return Empty{}
	}
	start := time.Now()
	cfg := s.cfg

	readability, ok := textstat.FleschReadingEase(text)
	if !ok {
		readability = cfg.ReadabilityFallback
	}
	avgLen := textstat.AverageSentenceWords(text)
	words := textstat.WordCount(text)

	score := 0
	explanation := make([]string, 0, 3)

	if readability > cfg.ReadabilityThreshold {
		score += cfg.ReadabilityWeight
		explanation = append(explanation, reasonHighReadability)
	} else {
		explanation = append(explanation, reasonModerateReadability)
	}

	if avgLen < cfg.SentenceLengthThreshold {
		score += cfg.SentenceLengthWeight
		explanation = append(explanation, reasonUniformSentences)
	} else {
		explanation = append(explanation, reasonVariedSentences)
	}

	if words > cfg.WordCountThreshold {
		score += cfg.WordCountWeight
		explanation = append(explanation, reasonLongForm)
	} else {
		explanation = append(explanation, reasonShortContent)
	}

	noise := s.perturbation()
	score = clampInt(score+noise, cfg.MinScore, cfg.MaxScore)

	label := LabelHuman
	if score > cfg.AILabelThreshold {
		label = LabelAI
	}

	if s.logger != nil {
		s.logger.Log("ANALYSIS", "AI", "AI detection run completed", fmt.Sprintf("words=%d avg_sentence_words=%.2f readability=%.2f perturbation=%d score=%d label=%q duration_ms=%d",
			words, avgLen, readability, noise, score, label, time.Since(start).Milliseconds()))
	}

	return Result{
		Score:       score,
		Label:       label,
		Explanation: explanation,
		Signals: Signals{
			Readability:      readability,
			AvgSentenceWords: avgLen,
			WordCount:        words,
			Perturbation:     noise,
		},
	}
}

// perturbation draws a uniform integer in [-r, r].
func (s *Scorer) perturbation() int {
	r := s.cfg.PerturbationRange
	if s.rnd == nil || r <= 0 {
		return 0
	}
	return s.rnd.IntN(2*r+1) - r
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
