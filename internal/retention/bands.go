package retention

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Band is one thinning tier: builds whose day-age falls in
// [MinAgeDays, MaxAgeDays) keep only days whose key is divisible by Modulus.
type Band struct {
	MinAgeDays int `yaml:"min_age_days" json:"minAgeDays"`
	MaxAgeDays int `yaml:"max_age_days" json:"maxAgeDays"`
	Modulus    int `yaml:"modulus" json:"modulus"`
}

func (b Band) contains(age int) bool {
	return age >= b.MinAgeDays && age < b.MaxAgeDays
}

// Label names the band for reports and metrics, e.g. "30-90".
func (b Band) Label() string {
	return fmt.Sprintf("%d-%d", b.MinAgeDays, b.MaxAgeDays)
}

// policyFile is the YAML shape of an external retention policy file.
type policyFile struct {
	RecentWindowDays int    `yaml:"recent_window_days"`
	HardCutoffDays   int    `yaml:"hard_cutoff_days"`
	Bands            []Band `yaml:"bands"`
}

// LoadPolicyFile reads a policy table from a YAML file. Missing fields fall
// back to the defaults, so a file may override just the bands.
func LoadPolicyFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file %s: %w", path, err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return Policy{}, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	p := DefaultPolicy()
	if pf.RecentWindowDays > 0 {
		p.RecentWindowDays = pf.RecentWindowDays
	}
	if pf.HardCutoffDays > 0 {
		p.HardCutoffDays = pf.HardCutoffDays
	}
	if len(pf.Bands) > 0 {
		p.Bands = pf.Bands
	}

	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}
