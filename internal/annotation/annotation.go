package annotation

// MaxItems caps how many annotations a single result may carry. The prompt
// asks the model for the same bound, but the prompt is a contract with an
// external collaborator, not a guarantee, so the cap is enforced here.
const MaxItems = 10

// CoordMax is the upper bound of the normalized coordinate space.
const CoordMax = 1000

// Item is one labeled annotation: either a 2-D point in [y, x] order or a
// 4-tuple box [y_min, x_min, y_max, x_max], with all coordinates normalized
// to 0-1000.
type Item struct {
	Label string `json:"label"`
	Point []int  `json:"point,omitempty"`
	Box   []int  `json:"box_2d,omitempty"`
}

// Result is the outcome of one analysis. Items and RawText are mutually
// exclusive variants: structured results carry the validated items in model
// emission order, while descriptive answers and failed extractions carry the
// unparsed text instead. Diagnostics records non-fatal per-item drops and
// extraction failure reasons.
type Result struct {
	Items       []Item   `json:"items,omitempty"`
	RawText     string   `json:"raw_text,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Structured reports whether the result carries validated annotations
func (r *Result) Structured() bool {
	return len(r.Items) > 0
}
