// internal/location/normalizer.go
package location

import "strings"

// Normalizer canonicalizes free-text location strings against the
// ontology's variant table. It is a pure lookup: no fuzzy matching,
// unrecognized input maps to Unknown instead of being guessed.
type Normalizer struct {
	ont      Ontology
	variants []variantEntry
}

type variantEntry struct {
	pattern   string
	canonical string
}

// NewNormalizer builds a Normalizer for the given ontology. Variant
// priority follows declaration order in the ontology.
func NewNormalizer(ont Ontology) *Normalizer {
	n := &Normalizer{ont: ont}
	for _, m := range ont.Warehouses {
		for _, v := range m.Variants {
			n.variants = append(n.variants, variantEntry{
				pattern:   strings.ToUpper(strings.TrimSpace(v)),
				canonical: m.Canonical,
			})
		}
	}
	return n
}

// Normalize maps a raw location string to its canonical name, or Unknown
// when nothing in the variant table matches. First matching variant wins.
func (n *Normalizer) Normalize(raw string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	if cleaned == "" {
		return Unknown
	}

	// Exact canonical names pass through unchanged.
	for _, m := range n.ont.Warehouses {
		if strings.EqualFold(m.Canonical, cleaned) {
			return m.Canonical
		}
	}

	for _, v := range n.variants {
		if v.pattern != "" && strings.Contains(cleaned, v.pattern) {
			return v.canonical
		}
	}

	return Unknown
}

// Ontology returns the vocabulary this normalizer was built from.
func (n *Normalizer) Ontology() Ontology {
	return n.ont
}
