// Package plan defines the subscription tiers, their limits and feature flags.
//
// The catalog is static: every tier has exactly one Definition and lookups for
// a valid tier never fail.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownTier is returned when a tier name is not one of solo, team or firm.
	ErrUnknownTier = errors.New("unknown plan tier")

	// ErrUnknownFeature is returned when a feature name is not a recognized flag.
	ErrUnknownFeature = errors.New("unknown feature")
)

// Tier is a subscription level. Tiers are ordered by capability.
type Tier string

// Tier constants
const (
	TierSolo Tier = "solo"
	TierTeam Tier = "team"
	TierFirm Tier = "firm"
)

// ParseTier converts a wire name into a Tier
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case TierSolo, TierTeam, TierFirm:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// Valid reports whether t is one of the catalog tiers
func (t Tier) Valid() bool {
	_, err := ParseTier(string(t))
	return err == nil
}

// Rank returns the position of t in capability order (solo=0).
// Invalid tiers rank -1.
func (t Tier) Rank() int {
	for i, tier := range tiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// Feature is one named capability flag. The set of features is closed.
type Feature int

// Feature constants
const (
	FeatureBrandedPortal Feature = iota + 1
	FeatureCustomDomain
	FeatureAdvancedAnalytics
	FeatureWhiteLabel
	FeatureAPIAccess
)

var featureNames = map[Feature]string{
	FeatureBrandedPortal:     "brandedPortal",
	FeatureCustomDomain:      "customDomain",
	FeatureAdvancedAnalytics: "advancedAnalytics",
	FeatureWhiteLabel:        "whiteLabel",
	FeatureAPIAccess:         "apiAccess",
}

var featureLabels = map[Feature]string{
	FeatureBrandedPortal:     "Branded client portal",
	FeatureCustomDomain:      "Custom domain",
	FeatureAdvancedAnalytics: "Advanced analytics",
	FeatureWhiteLabel:        "White-label branding",
	FeatureAPIAccess:         "API access",
}

// Features returns every feature in declaration order
func Features() []Feature {
	return []Feature{
		FeatureBrandedPortal,
		FeatureCustomDomain,
		FeatureAdvancedAnalytics,
		FeatureWhiteLabel,
		FeatureAPIAccess,
	}
}

// ParseFeature converts a wire name (e.g. "apiAccess") into a Feature
func ParseFeature(name string) (Feature, error) {
	for f, n := range featureNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
}

// Valid reports whether f is one of the recognized flags
func (f Feature) Valid() bool {
	_, ok := featureNames[f]
	return ok
}

// String returns the wire name of the feature
func (f Feature) String() string {
	if n, ok := featureNames[f]; ok {
		return n
	}
	return "Feature(" + strconv.Itoa(int(f)) + ")"
}

// Label returns the human readable name shown in upgrade prompts
func (f Feature) Label() string {
	if l, ok := featureLabels[f]; ok {
		return l
	}
	return f.String()
}

// MarshalJSON encodes the feature as its wire name
func (f Feature) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFeature, int(f))
	}
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes a wire name
func (f *Feature) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseFeature(name)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// FeatureSet holds one value for every feature flag
type FeatureSet struct {
	BrandedPortal     bool `json:"brandedPortal" yaml:"brandedPortal"`
	CustomDomain      bool `json:"customDomain" yaml:"customDomain"`
	AdvancedAnalytics bool `json:"advancedAnalytics" yaml:"advancedAnalytics"`
	WhiteLabel        bool `json:"whiteLabel" yaml:"whiteLabel"`
	APIAccess         bool `json:"apiAccess" yaml:"apiAccess"`
}

// Lookup returns the value of f, or ErrUnknownFeature if f is outside the set
func (s FeatureSet) Lookup(f Feature) (bool, error) {
	switch f {
	case FeatureBrandedPortal:
		return s.BrandedPortal, nil
	case FeatureCustomDomain:
		return s.CustomDomain, nil
	case FeatureAdvancedAnalytics:
		return s.AdvancedAnalytics, nil
	case FeatureWhiteLabel:
		return s.WhiteLabel, nil
	case FeatureAPIAccess:
		return s.APIAccess, nil
	}
	return false, fmt.Errorf("%w: %d", ErrUnknownFeature, int(f))
}

// Map returns the flags keyed by wire name
func (s FeatureSet) Map() map[string]bool {
	m := make(map[string]bool, len(featureNames))
	for _, f := range Features() {
		v, _ := s.Lookup(f)
		m[f.String()] = v
	}
	return m
}

// Limit is a resource allowance. Unlimited marks tiers without a cap.
type Limit int

// Unlimited is the marker for "no limit"
const Unlimited Limit = -1

// IsUnlimited reports whether l carries the unlimited marker
func (l Limit) IsUnlimited() bool {
	return l < 0
}

// Admits reports whether one more item fits when count are in use
func (l Limit) Admits(count int) bool {
	if l.IsUnlimited() {
		return true
	}
	return count < int(l)
}

// String renders the limit for display
func (l Limit) String() string {
	if l.IsUnlimited() {
		return "unlimited"
	}
	return strconv.Itoa(int(l))
}

// MarshalJSON encodes Unlimited as null
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.IsUnlimited() {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(l))), nil
}

// UnmarshalJSON decodes null as Unlimited
func (l *Limit) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = Unlimited
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Limit(n)
	return nil
}

// MarshalYAML encodes Unlimited as null
func (l Limit) MarshalYAML() (interface{}, error) {
	if l.IsUnlimited() {
		return nil, nil
	}
	return int(l), nil
}

// UnmarshalYAML decodes an integer limit. The decoder never hands null
// nodes to an unmarshaler, so null fields are mapped by the enclosing
// Definition.
func (l *Limit) UnmarshalYAML(node *yaml.Node) error {
	if node.ShortTag() == "!!null" {
		*l = Unlimited
		return nil
	}
	var n int
	if err := node.Decode(&n); err != nil {
		return err
	}
	*l = Limit(n)
	return nil
}

// Definition is the immutable record of one tier
type Definition struct {
	ID          Tier       `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Price       int        `json:"price" yaml:"price"` // USD per month
	ClientLimit Limit      `json:"clientLimit" yaml:"clientLimit"`
	UserLimit   Limit      `json:"userLimit" yaml:"userLimit"`
	Features    FeatureSet `json:"features" yaml:"features"`
}

// UnmarshalYAML decodes a definition, reading null limits as Unlimited
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	type plain Definition
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i+1].ShortTag() != "!!null" {
				continue
			}
			switch node.Content[i].Value {
			case "clientLimit":
				p.ClientLimit = Unlimited
			case "userLimit":
				p.UserLimit = Unlimited
			}
		}
	}
	*d = Definition(p)
	return nil
}

// Summary returns the limit lines shown on the billing page
func (d Definition) Summary() []string {
	lines := make([]string, 0, 2)
	if d.ClientLimit.IsUnlimited() {
		lines = append(lines, "Unlimited clients")
	} else {
		lines = append(lines, fmt.Sprintf("Up to %d clients", d.ClientLimit))
	}
	if d.UserLimit.IsUnlimited() {
		lines = append(lines, "Unlimited team members")
	} else {
		lines = append(lines, fmt.Sprintf("Up to %d team members", d.UserLimit))
	}
	return lines
}
