package location

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVariants(t *testing.T) {
	n := NewNormalizer(DefaultOntology())

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"canonical passthrough", "DSV Indoor", "DSV Indoor"},
		{"upper variant", "INDOOR", "DSV Indoor"},
		{"warehouse code", "m44", "DSV Indoor"},
		{"abbreviation with noise", "  al markaz ", "DSV Al Markaz"},
		{"markaz code", "M1", "DSV Al Markaz"},
		{"outdoor", "DSV_OUTDOOR", "DSV Outdoor"},
		{"mosb dotted", "M.O.S.B", "MOSB"},
		{"dhl", "DHL Warehouse", "DHL WH"},
		{"site spaced", "D A S", "DAS"},
		{"site lower", "agi", "AGI"},
		{"unrecognized", "Some Random Yard", Unknown},
		{"empty", "", Unknown},
		{"whitespace only", "   ", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.raw))
		})
	}
}

func TestNormalizeDeclarationOrderWins(t *testing.T) {
	ont := Ontology{
		Warehouses: []Mapping{
			{Canonical: "First WH", Variants: []string{"SHARED"}},
			{Canonical: "Second WH", Variants: []string{"SHARED", "SHARED YARD"}},
		},
	}
	n := NewNormalizer(ont)

	// Both mappings match; the earlier declaration takes priority.
	assert.Equal(t, "First WH", n.Normalize("shared yard"))
}

func TestGroupOfExactMembership(t *testing.T) {
	ont := DefaultOntology()

	assert.Equal(t, GroupIndoor, ont.GroupOf("DSV Indoor"))
	assert.Equal(t, GroupIndoor, ont.GroupOf("DSV Al Markaz"))
	assert.Equal(t, GroupOutdoor, ont.GroupOf("MOSB"))
	assert.Equal(t, GroupDangerous, ont.GroupOf("AAA Storage"))
	assert.Equal(t, GroupSite, ont.GroupOf("DAS"))
	assert.Equal(t, GroupSite, ont.GroupOf("AGI"))

	// Strict membership: near-misses never classify.
	assert.Equal(t, GroupUnknown, ont.GroupOf("dsv indoor"))
	assert.Equal(t, GroupUnknown, ont.GroupOf("DSV Indoor "))
	assert.Equal(t, GroupUnknown, ont.GroupOf("Indoor"))
	assert.Equal(t, GroupUnknown, ont.GroupOf(""))
	assert.Equal(t, GroupUnknown, ont.GroupOf(Unknown))
}

func TestIsWarehouseAndIsSite(t *testing.T) {
	ont := DefaultOntology()

	assert.True(t, ont.IsWarehouse("DSV Outdoor"))
	assert.True(t, ont.IsWarehouse("AAA Storage"))
	assert.False(t, ont.IsWarehouse("DAS"))

	assert.True(t, ont.IsSite("MIR"))
	assert.False(t, ont.IsSite("DSV MZP"))
}

func TestLoadOntologyFillsDefaults(t *testing.T) {
	path := t.TempDir() + "/ontology.yml"
	body := []byte("warehouses:\n  - canonical: Main WH\n    variants: [\"MAIN\", \"WH1\"]\nsites: [\"SITE-A\"]\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	ont, err := LoadOntology(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"SITE-A"}, ont.Sites)
	require.Len(t, ont.Warehouses, 1)
	assert.Equal(t, "Main WH", ont.Warehouses[0].Canonical)
	// Group lists not present in the file fall back to the defaults.
	assert.Equal(t, DefaultOntology().Indoor, ont.Indoor)

	n := NewNormalizer(ont)
	assert.Equal(t, "Main WH", n.Normalize("wh1"))
}

func TestLoadOntologyMissingFile(t *testing.T) {
	_, err := LoadOntology("does/not/exist.yml")
	require.Error(t, err)
}
