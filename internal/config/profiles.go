// backend-go/internal/config/profiles.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// PolicyProfiles is the on-disk shape (YAML) for replenishment policies: a
// shared default plus per-product overrides.
type PolicyProfiles struct {
	Default  domain.PolicyParams       `yaml:"default"`
	Products map[string]PolicyOverride `yaml:"products"`
}

// PolicyOverride carries optional per-product fields. Pointers distinguish
// "not set" from a deliberate zero, since 0% safety stock is a legal choice.
type PolicyOverride struct {
	LeadTimeDays       *int     `yaml:"lead_time_days"`
	SafetyStockPercent *float64 `yaml:"safety_stock_percent"`
	ServiceLevel       *float64 `yaml:"service_level"`
}

// LoadPolicyProfiles reads and validates a policy profile file.
func LoadPolicyProfiles(path string) (*PolicyProfiles, error) {
	p, err := LoadPolicyProfilesUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadPolicyProfilesUnchecked loads the file without validating it. Useful
// for debugging/printing partial configs.
func LoadPolicyProfilesUnchecked(path string) (*PolicyProfiles, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p PolicyProfiles
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy profiles %s: %w", path, err)
	}
	return &p, nil
}

func (p *PolicyProfiles) Validate() error {
	if err := p.Default.Validate(); err != nil {
		return fmt.Errorf("default policy invalid: %w", err)
	}
	for product := range p.Products {
		if err := p.Resolve(product).Validate(); err != nil {
			return fmt.Errorf("policy for product %q invalid: %w", product, err)
		}
	}
	return nil
}

// Resolve overlays the product's override, if any, onto the default policy.
func (p *PolicyProfiles) Resolve(product string) domain.PolicyParams {
	out := p.Default
	override, ok := p.Products[product]
	if !ok {
		return out
	}
	if override.LeadTimeDays != nil {
		out.LeadTimeDays = *override.LeadTimeDays
	}
	if override.SafetyStockPercent != nil {
		out.SafetyStockPercent = *override.SafetyStockPercent
	}
	if override.ServiceLevel != nil {
		out.ServiceLevel = *override.ServiceLevel
	}
	return out
}
