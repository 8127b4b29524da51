package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"detectai/internal/aidetect"
)

type Config struct {
	Server Server `yaml:"server"`
	UI     UI     `yaml:"ui"`
	Scorer Scorer `yaml:"scorer"`
}

type Server struct {
	Addr           string        `yaml:"addr"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type UI struct {
	// Delay is the artificial pause before an analysis is answered.
	Delay time.Duration `yaml:"delay"`
}

type Scorer struct {
	Seed                    uint64  `yaml:"seed"`
	ReadabilityThreshold    float64 `yaml:"readability_threshold"`
	ReadabilityWeight       int     `yaml:"readability_weight"`
	SentenceLengthThreshold float64 `yaml:"sentence_length_threshold"`
	SentenceLengthWeight    int     `yaml:"sentence_length_weight"`
	WordCountThreshold      int     `yaml:"word_count_threshold"`
	WordCountWeight         int     `yaml:"word_count_weight"`
	PerturbationRange       int     `yaml:"perturbation_range"`
	AILabelThreshold        int     `yaml:"ai_label_threshold"`
	MinScore                int     `yaml:"min_score"`
	MaxScore                int     `yaml:"max_score"`
	ReadabilityFallback     float64 `yaml:"readability_fallback"`
}

func Default() Config {
	d := aidetect.DefaultConfig()
	return Config{
		Server: Server{
			Addr:           "127.0.0.1:8501",
			MaxBodyBytes:   4 << 20,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		UI: UI{Delay: 1500 * time.Millisecond},
		Scorer: Scorer{
			ReadabilityThreshold:    d.ReadabilityThreshold,
			ReadabilityWeight:       d.ReadabilityWeight,
			SentenceLengthThreshold: d.SentenceLengthThreshold,
			SentenceLengthWeight:    d.SentenceLengthWeight,
			WordCountThreshold:      d.WordCountThreshold,
			WordCountWeight:         d.WordCountWeight,
			PerturbationRange:       d.PerturbationRange,
			AILabelThreshold:        d.AILabelThreshold,
			MinScore:                d.MinScore,
			MaxScore:                d.MaxScore,
			ReadabilityFallback:     d.ReadabilityFallback,
		},
	}
}

// Load reads path over the defaults and then applies DETECTAI_* environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func Write(path string, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.UI.Delay < 0 {
		errs = append(errs, errors.New("ui.delay must not be negative"))
	}
	if err := c.Detector().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) Detector() aidetect.Config {
	s := c.Scorer
	return aidetect.Config{
		ReadabilityThreshold:    s.ReadabilityThreshold,
		ReadabilityWeight:       s.ReadabilityWeight,
		SentenceLengthThreshold: s.SentenceLengthThreshold,
		SentenceLengthWeight:    s.SentenceLengthWeight,
		WordCountThreshold:      s.WordCountThreshold,
		WordCountWeight:         s.WordCountWeight,
		PerturbationRange:       s.PerturbationRange,
		AILabelThreshold:        s.AILabelThreshold,
		MinScore:                s.MinScore,
		MaxScore:                s.MaxScore,
		ReadabilityFallback:     s.ReadabilityFallback,
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DETECTAI_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if ms := getenvInt("DETECTAI_UI_DELAY_MS", -1); ms >= 0 {
		cfg.UI.Delay = time.Duration(ms) * time.Millisecond
	}
	cfg.Scorer.Seed = getenvUint("DETECTAI_SEED", cfg.Scorer.Seed)
	cfg.Scorer.PerturbationRange = getenvInt("DETECTAI_PERTURBATION", cfg.Scorer.PerturbationRange)
	cfg.Scorer.AILabelThreshold = getenvInt("DETECTAI_AI_THRESHOLD", cfg.Scorer.AILabelThreshold)
}

func getenvInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getenvUint(name string, fallback uint64) uint64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
