// Package confidence scores learned patterns.
//
// A score starts at a base value, is boosted by accepted suggestions and
// penalized by rejected ones (both weighted by their ratio to occurrences and
// capped in count), and decays linearly with time since the pattern was last
// seen. Scores gate behavior through two thresholds: suggest and auto-apply.
package confidence

import (
	"fmt"
	"math"
	"time"

	"github.com/insightpilot/insightpilot/pkg/models"
)

const dayMillis = 24 * 60 * 60 * 1000

// Level is the action a confidence score maps to
type Level string

const (
	LevelNone    Level = "none"
	LevelSuggest Level = "suggest"
	LevelAuto    Level = "auto"
)

// Config holds the tuning constants of the model
type Config struct {
	BaseConfidence     float64 `yaml:"base_confidence"`
	AcceptBoost        float64 `yaml:"accept_boost"`
	RejectPenalty      float64 `yaml:"reject_penalty"`
	TimeDecayDays      float64 `yaml:"time_decay_days"`
	DecayFactor        float64 `yaml:"decay_factor"`
	MaxAcceptImpact    int     `yaml:"max_accept_impact"`
	MaxRejectImpact    int     `yaml:"max_reject_impact"`
	SuggestThreshold   float64 `yaml:"suggest_threshold"`
	AutoApplyThreshold float64 `yaml:"auto_apply_threshold"`
}

// DefaultConfig returns the default tuning
func DefaultConfig() Config {
	return Config{
		BaseConfidence:     0.3,
		AcceptBoost:        0.15,
		RejectPenalty:      0.2,
		TimeDecayDays:      30,
		DecayFactor:        0.3,
		MaxAcceptImpact:    10,
		MaxRejectImpact:    5,
		SuggestThreshold:   0.5,
		AutoApplyThreshold: 0.8,
	}
}

// Validate checks that thresholds and weights are usable
func (c Config) Validate() error {
	if c.BaseConfidence < 0 || c.BaseConfidence > 1 {
		return fmt.Errorf("base confidence %.2f out of range [0,1]", c.BaseConfidence)
	}
	if c.SuggestThreshold < 0 || c.SuggestThreshold > 1 {
		return fmt.Errorf("suggest threshold %.2f out of range [0,1]", c.SuggestThreshold)
	}
	if c.AutoApplyThreshold < 0 || c.AutoApplyThreshold > 1 {
		return fmt.Errorf("auto-apply threshold %.2f out of range [0,1]", c.AutoApplyThreshold)
	}
	if c.SuggestThreshold > c.AutoApplyThreshold {
		return fmt.Errorf("suggest threshold %.2f above auto-apply threshold %.2f", c.SuggestThreshold, c.AutoApplyThreshold)
	}
	if c.TimeDecayDays <= 0 {
		return fmt.Errorf("time decay days must be positive, got %.2f", c.TimeDecayDays)
	}
	if c.AcceptBoost < 0 || c.RejectPenalty < 0 || c.DecayFactor < 0 {
		return fmt.Errorf("weights must be non-negative")
	}
	if c.MaxAcceptImpact < 0 || c.MaxRejectImpact < 0 {
		return fmt.Errorf("impact caps must be non-negative")
	}
	return nil
}

// Model computes confidence scores for a fixed tuning
type Model struct {
	cfg Config
}

// New creates a model. A zero Config is replaced by the defaults.
func New(cfg Config) *Model {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return &Model{cfg: cfg}
}

// Config returns the tuning the model was built with
func (m *Model) Config() Config {
	return m.cfg
}

// Score returns the confidence of p at time now, in [0,1]
func (m *Model) Score(p *models.Pattern, now time.Time) float64 {
	occurrences := float64(max(1, p.OccurrenceCount))
	acceptRatio := float64(p.AcceptCount) / occurrences
	rejectRatio := float64(p.RejectCount) / occurrences

	daysSinceLastSeen := float64(now.Sub(p.LastSeenAt).Milliseconds()) / dayMillis
	timeDecay := math.Max(0, 1-(daysSinceLastSeen/m.cfg.TimeDecayDays)*m.cfg.DecayFactor)

	effectiveAccepts := float64(min(p.AcceptCount, m.cfg.MaxAcceptImpact))
	effectiveRejects := float64(min(p.RejectCount, m.cfg.MaxRejectImpact))

	raw := m.cfg.BaseConfidence +
		acceptRatio*m.cfg.AcceptBoost*effectiveAccepts -
		rejectRatio*m.cfg.RejectPenalty*effectiveRejects

	return clamp(raw * timeDecay)
}

// AfterAccept returns the score p would have after one more accept at now
func (m *Model) AfterAccept(p *models.Pattern, now time.Time) float64 {
	next := *p
	next.AcceptCount++
	next.OccurrenceCount++
	next.LastSeenAt = now
	return m.Score(&next, now)
}

// AfterReject returns the score p would have after one more reject at now
func (m *Model) AfterReject(p *models.Pattern, now time.Time) float64 {
	next := *p
	next.RejectCount++
	next.OccurrenceCount++
	next.LastSeenAt = now
	return m.Score(&next, now)
}

// Level maps a score onto none, suggest or auto
func (m *Model) Level(c float64) Level {
	if c >= m.cfg.AutoApplyThreshold {
		return LevelAuto
	}
	if c >= m.cfg.SuggestThreshold {
		return LevelSuggest
	}
	return LevelNone
}

func (m *Model) ShouldAutoApply(c float64) bool {
	return c >= m.cfg.AutoApplyThreshold
}

func (m *Model) ShouldSuggest(c float64) bool {
	return c >= m.cfg.SuggestThreshold && c < m.cfg.AutoApplyThreshold
}

func (m *Model) ShouldIgnore(c float64) bool {
	return c < m.cfg.SuggestThreshold
}

// FormatPercent renders a score as a whole percentage, e.g. "87%"
func FormatPercent(c float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(c*100)))
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
