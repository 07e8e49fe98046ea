package engine

// Capability identifies an optional engine API whose availability varies
// by backend build.
type Capability int

const (
	// CapSetOpacity: the dedicated opacity setter exists. When absent,
	// writers fall back to the raw CA dictionary entry only.
	CapSetOpacity Capability = iota

	// CapRedactWithOptions: ApplyRedactions accepts the two-argument
	// form (black-box flag, image handling mode).
	CapRedactWithOptions

	// CapRedactWithFlag: ApplyRedactions accepts the one-argument form.
	CapRedactWithFlag

	// CapDictNameBool: the dictionary accepts name-typed booleans for
	// marker entries. When absent, writers use string booleans.
	CapDictNameBool

	// CapAppearanceImage: the backend can attach a raster appearance
	// stream to a stamp annotation.
	CapAppearanceImage
)

// CapSet is the set of optional capabilities a document session
// supports, probed exactly once when the document opens. The previous
// design re-probed by try/fallback chains at every call site; the table
// replaces that.
type CapSet map[Capability]bool

// Has reports whether the capability is available.
func (c CapSet) Has(cap Capability) bool { return c[cap] }

// RedactionArities returns the ApplyRedactions argument lists to try, in
// descending specificity. The first list the backend accepts wins.
func (c CapSet) RedactionArities() [][]any {
	var arities [][]any
	if c.Has(CapRedactWithOptions) {
		// black-box fill on, remove intersecting images
		arities = append(arities, []any{true, "remove"})
	}
	if c.Has(CapRedactWithFlag) {
		arities = append(arities, []any{true})
	}
	arities = append(arities, []any{})
	return arities
}
