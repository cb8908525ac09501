package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func qty(v float64) *float64 { return &v }

func TestClassifyPriorityOrder(t *testing.T) {
	c := New(KindIn)

	tests := []struct {
		name   string
		fields Fields
		want   Kind
	}{
		{"explicit type in", Fields{TypeField: "Inbound"}, KindIn},
		{"explicit type out", Fields{TypeField: "OUTBOUND"}, KindOut},
		{"explicit type transfer", Fields{TypeField: "transfer"}, KindTransfer},
		{"transfer beats in keyword", Fields{TypeField: "TRANSFER IN"}, KindTransfer},
		{"type wins over status", Fields{TypeField: "OUT", StatusField: "ARRIVAL"}, KindOut},
		{"status receive", Fields{StatusField: "Received at WH"}, KindIn},
		{"status delivery", Fields{StatusField: "Delivery complete"}, KindOut},
		{"status arrival", Fields{StatusField: "arrival"}, KindIn},
		{"signed qty positive", Fields{SignedQty: qty(5)}, KindIn},
		{"signed qty negative", Fields{SignedQty: qty(-3)}, KindOut},
		{"signed qty zero falls through", Fields{SignedQty: qty(0)}, KindIn},
		{"nothing present defaults to in", Fields{}, KindIn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.fields))
		})
	}
}

func TestShortKeywordsMatchWholeWordsOnly(t *testing.T) {
	c := New(KindUnknown)

	tests := []struct {
		name   string
		fields Fields
		want   Kind
	}{
		{"bare in", Fields{StatusField: "in"}, KindIn},
		{"checked in", Fields{StatusField: "Checked In"}, KindIn},
		{"move out", Fields{StatusField: "Move Out"}, KindOut},
		{"slash separated", Fields{StatusField: "GATE/OUT"}, KindOut},
		{"pending is not in", Fields{StatusField: "Pending"}, KindUnknown},
		{"printing is not in", Fields{StatusField: "Printing"}, KindUnknown},
		{"routed is not out", Fields{StatusField: "Routed"}, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.fields))
		})
	}
}

func TestClassifyConfigurableDefault(t *testing.T) {
	c := New(KindUnknown)

	// No type, no status, no signed quantity: the fallback is whatever
	// policy the deployment chose, not a hard-coded IN.
	assert.Equal(t, KindUnknown, c.Classify(Fields{}))
	assert.Equal(t, KindUnknown, c.Classify(Fields{StatusField: "on hold"}))

	// Rules still win over the default.
	assert.Equal(t, KindTransfer, c.Classify(Fields{StatusField: "WH Transfer"}))
}

func TestNewEmptyDefaultsToIn(t *testing.T) {
	c := New("")
	assert.Equal(t, KindIn, c.Classify(Fields{}))
}
