package rules

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/alerts"
)

// ruleFile is the on-disk shape of a rule pack.
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Series      string   `yaml:"series"`
	Operator    string   `yaml:"operator"`
	Threshold   float64  `yaml:"threshold"`
	Severity    string   `yaml:"severity"`
	Source      string   `yaml:"source"`
	Window      string   `yaml:"window"`
	Cooldown    string   `yaml:"cooldown"`
	Enabled     *bool    `yaml:"enabled"`
	Channels    []string `yaml:"notification_channels"`
}

// LoadPack reads a yaml rule pack and registers every rule it contains.
// A malformed rule aborts the load; a missing file is not an error so a
// fresh deployment can start with no pack.
func (e *Engine) LoadPack(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read rule pack: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse rule pack: %w", err)
	}

	loaded := 0
	for i, spec := range file.Rules {
		rule, err := spec.toRule()
		if err != nil {
			return loaded, fmt.Errorf("rule %d (%s): %w", i, spec.Name, err)
		}
		if _, err := e.Create(rule); err != nil {
			return loaded, fmt.Errorf("rule %d (%s): %w", i, spec.Name, err)
		}
		loaded++
	}

	e.logger.WithField("count", loaded).Info("Loaded rule pack")
	return loaded, nil
}

func (s ruleSpec) toRule() (Rule, error) {
	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}

	rule := Rule{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Condition: Condition{
			Series:    s.Series,
			Operator:  Operator(s.Operator),
			Threshold: s.Threshold,
		},
		Severity:             alerts.Severity(s.Severity),
		Source:               s.Source,
		Enabled:              enabled,
		NotificationChannels: s.Channels,
	}

	var err error
	if rule.Cooldown, err = parseDuration(s.Cooldown); err != nil {
		return Rule{}, err
	}
	if rule.Window, err = parseDuration(s.Window); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
