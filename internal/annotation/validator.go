package annotation

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/Pr0gramm3r2022/3DSpatialAgents/internal/errors"
)

// rawItem mirrors the model's wire format. Both box keys seen in the wild are
// accepted: box_2d (what the detection prompt asks for) and box.
type rawItem struct {
	Label string        `json:"label"`
	Point []json.Number `json:"point"`
	Box2D []json.Number `json:"box_2d"`
	Box   []json.Number `json:"box"`
}

// Validate converts an extracted JSON array into validated Items.
//
// A payload that is not a JSON array at all fails with MalformedJson.
// Individual elements violating the annotation schema are dropped with a
// per-item diagnostic rather than aborting the result, and the result is
// truncated to the first MaxItems valid items.
func Validate(jsonText string) (*Result, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(jsonText), &elements); err != nil {
		return nil, apperrors.NewMalformedJSONError("extracted payload is not a JSON array", err)
	}

	var items []Item
	var diags []string

	for i, element := range elements {
		var ri rawItem
		if err := json.Unmarshal(element, &ri); err != nil {
			diags = append(diags, fmt.Sprintf("item %d: %v",
				i, apperrors.NewSchemaViolationError("malformed annotation object", err)))
			continue
		}

		item, err := ri.toItem()
		if err != nil {
			diags = append(diags, fmt.Sprintf("item %d: %v", i, err))
			continue
		}

		if len(items) >= MaxItems {
			diags = append(diags, fmt.Sprintf("item %d: dropped, result capped at %d annotations", i, MaxItems))
			continue
		}
		items = append(items, item)
	}

	return &Result{Items: items, Diagnostics: diags}, nil
}

func (ri *rawItem) toItem() (Item, error) {
	if ri.Label == "" {
		return Item{}, apperrors.NewSchemaViolationError("missing or empty label", nil)
	}

	box := ri.Box2D
	if box == nil {
		box = ri.Box
	}

	switch {
	case ri.Point != nil && box != nil:
		return Item{}, apperrors.NewSchemaViolationError("both point and box anchors present", nil)

	case ri.Point != nil:
		coords, err := toCoords(ri.Point, 2)
		if err != nil {
			return Item{}, err
		}
		return Item{Label: ri.Label, Point: coords}, nil

	case box != nil:
		coords, err := toCoords(box, 4)
		if err != nil {
			return Item{}, err
		}
		return Item{Label: ri.Label, Box: coords}, nil

	default:
		return Item{}, apperrors.NewSchemaViolationError("missing point or box anchor", nil)
	}
}

func toCoords(nums []json.Number, want int) ([]int, error) {
	if len(nums) != want {
		return nil, apperrors.NewSchemaViolationError(
			fmt.Sprintf("anchor has %d coordinates, want %d", len(nums), want), nil)
	}

	coords := make([]int, 0, want)
	for _, n := range nums {
		v, err := n.Int64()
		if err != nil {
			return nil, apperrors.NewSchemaViolationError(
				fmt.Sprintf("coordinate %q is not an integer", n.String()), err)
		}
		if v < 0 || v > CoordMax {
			return nil, apperrors.NewSchemaViolationError(
				fmt.Sprintf("coordinate %d outside the 0-%d range", v, CoordMax), nil)
		}
		coords = append(coords, int(v))
	}
	return coords, nil
}
