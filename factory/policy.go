/*
Package factory converts economy policy documents into mission.Policy.

PURPOSE:
  Every tunable number of the economy (difficulty rewards, per-minute
  rate, streak step, bonuses, odds bounds) can be overridden from a JSON
  or YAML file without code changes. Fields left out keep the defaults
  from mission.DefaultPolicy.

DOCUMENT SCHEMA (JSON shown, YAML uses the same keys):
  {
    "base_rewards": {"Easy": "0.05", "Medium": "0.15", "Hard": "0.25", "Savage": "0.50"},
    "per_minute_rate": "0.002",
    "streak_step": "0.005",
    "neutral_alignment": 3,
    "alignment_scale": 5,
    "streak_lookback_days": 3650,
    "daily_grind_bonus": "1",
    "objective_completion_reward": "25",
    "objective_change_cost": "10",
    "funding_bonus": "5",
    "default_daily_goal": "1",
    "odds": {"min": "1.5", "max": "5", "fallback": "2"}
  }

  Amounts are strings so no precision is lost on the way to decimal.

USAGE:
  factory := NewPolicyFactory()
  policy, err := factory.LoadPolicyFile("economy.yaml")

SEE ALSO:
  - mission/policy.go: Policy type and defaults
  - config/config.go: Where the policy file path comes from
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/mission"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT SCHEMA TYPES
// =============================================================================

// PolicyDocument is the file representation of a policy.
type PolicyDocument struct {
	BaseRewards               map[string]string `json:"base_rewards,omitempty" yaml:"base_rewards,omitempty"`
	PerMinuteRate             string            `json:"per_minute_rate,omitempty" yaml:"per_minute_rate,omitempty"`
	StreakStep                string            `json:"streak_step,omitempty" yaml:"streak_step,omitempty"`
	NeutralAlignment          *int              `json:"neutral_alignment,omitempty" yaml:"neutral_alignment,omitempty"`
	AlignmentScale            *int              `json:"alignment_scale,omitempty" yaml:"alignment_scale,omitempty"`
	StreakLookbackDays        *int              `json:"streak_lookback_days,omitempty" yaml:"streak_lookback_days,omitempty"`
	DailyGrindBonus           string            `json:"daily_grind_bonus,omitempty" yaml:"daily_grind_bonus,omitempty"`
	ObjectiveCompletionReward string            `json:"objective_completion_reward,omitempty" yaml:"objective_completion_reward,omitempty"`
	ObjectiveChangeCost       string            `json:"objective_change_cost,omitempty" yaml:"objective_change_cost,omitempty"`
	FundingBonus              string            `json:"funding_bonus,omitempty" yaml:"funding_bonus,omitempty"`
	DefaultDailyGoal          string            `json:"default_daily_goal,omitempty" yaml:"default_daily_goal,omitempty"`
	Odds                      *OddsDocument     `json:"odds,omitempty" yaml:"odds,omitempty"`
}

// OddsDocument bounds betting multipliers.
type OddsDocument struct {
	Min      string `json:"min,omitempty" yaml:"min,omitempty"`
	Max      string `json:"max,omitempty" yaml:"max,omitempty"`
	Fallback string `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts policy documents to mission.Policy.
type PolicyFactory struct{}

func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses a JSON policy document.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (mission.Policy, error) {
	var doc PolicyDocument
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return mission.Policy{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return f.Build(doc)
}

// ParsePolicyYAML parses a YAML policy document.
func (f *PolicyFactory) ParsePolicyYAML(data []byte) (mission.Policy, error) {
	var doc PolicyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return mission.Policy{}, fmt.Errorf("invalid YAML: %w", err)
	}
	return f.Build(doc)
}

// LoadPolicyFile picks the decoder from the extension (.json, .yaml, .yml).
func (f *PolicyFactory) LoadPolicyFile(path string) (mission.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mission.Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	var p mission.Policy
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		p, err = f.ParsePolicy(string(data))
	case ".yaml", ".yml":
		p, err = f.ParsePolicyYAML(data)
	default:
		return mission.Policy{}, fmt.Errorf("policy %s: unsupported extension %q", path, filepath.Ext(path))
	}
	if err != nil {
		return mission.Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// Build overlays the document on the defaults and validates the result.
func (f *PolicyFactory) Build(doc PolicyDocument) (mission.Policy, error) {
	p := mission.DefaultPolicy()

	for name, raw := range doc.BaseRewards {
		d := mission.Difficulty(name)
		if !d.Valid() {
			return mission.Policy{}, fmt.Errorf("base_rewards: unknown difficulty %q", name)
		}
		v, err := parseAmount("base_rewards."+name, raw)
		if err != nil {
			return mission.Policy{}, err
		}
		p.BaseRewards[d] = v
	}

	fields := []struct {
		name   string
		raw    string
		target *decimal.Decimal
	}{
		{"per_minute_rate", doc.PerMinuteRate, &p.PerMinuteRate},
		{"streak_step", doc.StreakStep, &p.StreakStep},
		{"daily_grind_bonus", doc.DailyGrindBonus, &p.DailyGrindBonus},
		{"objective_completion_reward", doc.ObjectiveCompletionReward, &p.ObjectiveCompletionReward},
		{"objective_change_cost", doc.ObjectiveChangeCost, &p.ObjectiveChangeCost},
		{"funding_bonus", doc.FundingBonus, &p.FundingBonus},
		{"default_daily_goal", doc.DefaultDailyGoal, &p.DefaultDailyGoal},
	}
	for _, fld := range fields {
		if fld.raw == "" {
			continue
		}
		v, err := parseAmount(fld.name, fld.raw)
		if err != nil {
			return mission.Policy{}, err
		}
		*fld.target = v
	}

	if doc.NeutralAlignment != nil {
		p.NeutralAlignment = *doc.NeutralAlignment
	}
	if doc.AlignmentScale != nil {
		p.AlignmentScale = *doc.AlignmentScale
	}
	if doc.StreakLookbackDays != nil {
		p.StreakLookbackDays = *doc.StreakLookbackDays
	}

	if doc.Odds != nil {
		odds := []struct {
			name   string
			raw    string
			target *decimal.Decimal
		}{
			{"odds.min", doc.Odds.Min, &p.Odds.Min},
			{"odds.max", doc.Odds.Max, &p.Odds.Max},
			{"odds.fallback", doc.Odds.Fallback, &p.Odds.Fallback},
		}
		for _, fld := range odds {
			if fld.raw == "" {
				continue
			}
			v, err := parseAmount(fld.name, fld.raw)
			if err != nil {
				return mission.Policy{}, err
			}
			*fld.target = v
		}
	}

	if err := Validate(p); err != nil {
		return mission.Policy{}, err
	}
	return p, nil
}

// Validate checks cross-field constraints.
func Validate(p mission.Policy) error {
	if p.AlignmentScale < 1 {
		return fmt.Errorf("alignment_scale must be >= 1, got %d", p.AlignmentScale)
	}
	if p.NeutralAlignment < 1 || p.NeutralAlignment > p.AlignmentScale {
		return fmt.Errorf("neutral_alignment must be within 1..%d, got %d", p.AlignmentScale, p.NeutralAlignment)
	}
	if p.StreakLookbackDays < 1 {
		return fmt.Errorf("streak_lookback_days must be >= 1, got %d", p.StreakLookbackDays)
	}
	if !p.Odds.Min.IsPositive() {
		return fmt.Errorf("odds.min must be positive, got %s", p.Odds.Min)
	}
	if p.Odds.Max.LessThan(p.Odds.Min) {
		return fmt.Errorf("odds.max %s is below odds.min %s", p.Odds.Max, p.Odds.Min)
	}
	if p.Odds.Fallback.LessThan(p.Odds.Min) || p.Odds.Fallback.GreaterThan(p.Odds.Max) {
		return fmt.Errorf("odds.fallback %s is outside [%s, %s]", p.Odds.Fallback, p.Odds.Min, p.Odds.Max)
	}
	return nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a number", field, raw)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: must not be negative, got %s", field, raw)
	}
	return v, nil
}

// =============================================================================
// EXPORT
// =============================================================================

// Document converts a policy back into its file representation.
func Document(p mission.Policy) PolicyDocument {
	base := make(map[string]string, len(p.BaseRewards))
	for d, v := range p.BaseRewards {
		base[string(d)] = v.String()
	}
	neutral, scale, lookback := p.NeutralAlignment, p.AlignmentScale, p.StreakLookbackDays
	return PolicyDocument{
		BaseRewards:               base,
		PerMinuteRate:             p.PerMinuteRate.String(),
		StreakStep:                p.StreakStep.String(),
		NeutralAlignment:          &neutral,
		AlignmentScale:            &scale,
		StreakLookbackDays:        &lookback,
		DailyGrindBonus:           p.DailyGrindBonus.String(),
		ObjectiveCompletionReward: p.ObjectiveCompletionReward.String(),
		ObjectiveChangeCost:       p.ObjectiveChangeCost.String(),
		FundingBonus:              p.FundingBonus.String(),
		DefaultDailyGoal:          p.DefaultDailyGoal.String(),
		Odds: &OddsDocument{
			Min:      p.Odds.Min.String(),
			Max:      p.Odds.Max.String(),
			Fallback: p.Odds.Fallback.String(),
		},
	}
}

// ToJSON renders the policy as an indented JSON document.
func ToJSON(p mission.Policy) (string, error) {
	b, err := json.MarshalIndent(Document(p), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
