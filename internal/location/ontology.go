// internal/location/ontology.go
package location

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Unknown is the sentinel returned for any location string the ontology
// does not recognize. Downstream stock computation excludes it.
const Unknown = "UNKNOWN"

// Group classifies a canonical location for financial/ops reporting.
type Group string

const (
	GroupIndoor    Group = "IndoorWarehouse"
	GroupOutdoor   Group = "OutdoorWarehouse"
	GroupDangerous Group = "DangerousCargoWarehouse"
	GroupSite      Group = "Site"
	GroupUnknown   Group = "UNKNOWN"
)

// Mapping is one canonical location and the raw variants that resolve to
// it. Variant order matters: earlier variants win when several match.
type Mapping struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
}

// Ontology is the immutable location vocabulary for one deployment:
// the variant table used by the normalizer plus the exact-membership
// group lists. Construct it once and share it; it is never mutated.
type Ontology struct {
	Warehouses []Mapping `yaml:"warehouses"`
	Indoor     []string  `yaml:"indoor"`
	Outdoor    []string  `yaml:"outdoor"`
	Dangerous  []string  `yaml:"dangerous"`
	Sites      []string  `yaml:"sites"`
}

// DefaultOntology returns the built-in vocabulary used when no mapping
// file is configured.
func DefaultOntology() Ontology {
	return Ontology{
		Warehouses: []Mapping{
			{Canonical: "DSV Al Markaz", Variants: []string{"AL MARKAZ", "ALMARKAZ", "AL_MARKAZ", "MARKAZ", "M1"}},
			{Canonical: "DSV Indoor", Variants: []string{"HAULER INDOOR", "HAULER_INDOOR", "INDOOR", "M44"}},
			{Canonical: "DSV Outdoor", Variants: []string{"OUTDOOR", "OUT"}},
			{Canonical: "MOSB", Variants: []string{"MOSB", "M.O.S.B"}},
			{Canonical: "DSV MZP", Variants: []string{"MZP"}},
			{Canonical: "DHL WH", Variants: []string{"DHL"}},
			{Canonical: "AAA Storage", Variants: []string{"AAA"}},
			{Canonical: "AGI", Variants: []string{"AGI"}},
			{Canonical: "DAS", Variants: []string{"DAS", "D.A.S", "D A S"}},
			{Canonical: "MIR", Variants: []string{"MIR"}},
			{Canonical: "SHU", Variants: []string{"SHU"}},
		},
		Indoor:    []string{"DSV Indoor", "DSV Al Markaz", "Hauler Indoor"},
		Outdoor:   []string{"DSV Outdoor", "DSV MZP", "MOSB"},
		Dangerous: []string{"AAA Storage", "Dangerous Storage"},
		Sites:     []string{"AGI", "DAS", "MIR", "SHU"},
	}
}

// LoadOntology reads an ontology from a YAML mapping file. Lists left
// empty in the file fall back to the built-in defaults so a deployment
// can override just the variant table.
func LoadOntology(path string) (Ontology, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Ontology{}, fmt.Errorf("failed to read ontology file %s: %w", path, err)
	}

	var ont Ontology
	if err := yaml.Unmarshal(raw, &ont); err != nil {
		return Ontology{}, fmt.Errorf("failed to parse ontology file %s: %w", path, err)
	}

	def := DefaultOntology()
	if len(ont.Warehouses) == 0 {
		ont.Warehouses = def.Warehouses
	}
	if len(ont.Indoor) == 0 {
		ont.Indoor = def.Indoor
	}
	if len(ont.Outdoor) == 0 {
		ont.Outdoor = def.Outdoor
	}
	if len(ont.Dangerous) == 0 {
		ont.Dangerous = def.Dangerous
	}
	if len(ont.Sites) == 0 {
		ont.Sites = def.Sites
	}

	return ont, nil
}

// GroupOf classifies a canonical location name by exact membership in
// the ontology group lists. No substring matching here: a mis-bucketed
// site would silently corrupt warehouse balances, so anything that is
// not an exact member is Unknown.
func (o Ontology) GroupOf(name string) Group {
	if name == "" || name == Unknown {
		return GroupUnknown
	}
	if contains(o.Indoor, name) {
		return GroupIndoor
	}
	if contains(o.Outdoor, name) {
		return GroupOutdoor
	}
	if contains(o.Sites, name) {
		return GroupSite
	}
	if contains(o.Dangerous, name) {
		return GroupDangerous
	}
	return GroupUnknown
}

// IsWarehouse reports whether the canonical name belongs to one of the
// warehouse groups (indoor, outdoor or dangerous cargo).
func (o Ontology) IsWarehouse(name string) bool {
	switch o.GroupOf(name) {
	case GroupIndoor, GroupOutdoor, GroupDangerous:
		return true
	}
	return false
}

// IsSite reports whether the canonical name is a terminal delivery site.
func (o Ontology) IsSite(name string) bool {
	return o.GroupOf(name) == GroupSite
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
