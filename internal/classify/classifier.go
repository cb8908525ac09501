// internal/classify/classifier.go
package classify

import "strings"

// Kind is the coarse transaction kind assigned to a raw event before the
// flow engine refines outbound movements by destination.
type Kind string

const (
	KindIn       Kind = "IN"
	KindOut      Kind = "OUT"
	KindTransfer Kind = "TRANSFER"
	KindUnknown  Kind = "UNKNOWN"
)

// Fields carries the raw event attributes the classifier may consult.
// Absent attributes are the zero value; SignedQty is nil when no signed
// quantity column exists.
type Fields struct {
	TypeField   string
	StatusField string
	SignedQty   *float64
}

// Classifier assigns a Kind to raw events using prioritized rules:
// explicit type field, then status keywords, then quantity sign, then
// the configured default. The default is configuration because it
// materially changes reported stock levels when source data carries no
// signal at all.
type Classifier struct {
	defaultKind Kind
}

// New returns a Classifier that falls back to defaultKind when no rule
// matches. KindUnknown is a valid policy: it makes downstream components
// exclude the rows instead of counting them as arrivals.
func New(defaultKind Kind) *Classifier {
	if defaultKind == "" {
		defaultKind = KindIn
	}
	return &Classifier{defaultKind: defaultKind}
}

// Classify determines the transaction kind for one event.
func (c *Classifier) Classify(f Fields) Kind {
	if k, ok := scanKeywords(f.TypeField); ok {
		return k
	}
	if k, ok := scanKeywords(f.StatusField); ok {
		return k
	}
	if f.SignedQty != nil {
		if *f.SignedQty > 0 {
			return KindIn
		}
		if *f.SignedQty < 0 {
			return KindOut
		}
	}
	return c.defaultKind
}

// scanKeywords interprets a free-text type/status value. TRANSFER is
// checked first so that "TRANSFER IN" classifies as a transfer rather
// than an inbound.
func scanKeywords(value string) (Kind, bool) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return KindUnknown, false
	}

	if strings.Contains(v, "TRANSFER") {
		return KindTransfer, true
	}
	for _, kw := range []string{"INBOUND", "RECEIVE", "ARRIVAL"} {
		if strings.Contains(v, kw) {
			return KindIn, true
		}
	}
	for _, kw := range []string{"OUTBOUND", "SHIP", "DELIVERY"} {
		if strings.Contains(v, kw) {
			return KindOut, true
		}
	}

	// IN and OUT match as whole words only; as substrings they would
	// fire on statuses like PENDING or ROUTED.
	for _, word := range strings.FieldsFunc(v, func(r rune) bool { return r < 'A' || r > 'Z' }) {
		switch word {
		case "IN":
			return KindIn, true
		case "OUT":
			return KindOut, true
		}
	}

	return KindUnknown, false
}
