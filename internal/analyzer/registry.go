package analyzer

import "github.com/pkg/errors"

// NewDetector creates a detector based on the specified variant
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	default:
		return nil, errors.Errorf("unknown detector variant: %s", variant)
	}
}

// NewComparer creates a build comparer based on the specified variant.
// detector names the region detector of the contrast comparer and is
// ignored by the others.
func NewComparer(variant, detector string) (Comparer, error) {
	switch variant {
	case "diff", "":
		return NewDiffComparer(), nil
	case "contrast":
		d, err := NewDetector(detector)
		if err != nil {
			return nil, err
		}
		return NewBlockComparer(d), nil
	default:
		return nil, errors.Errorf("unknown comparer variant: %s", variant)
	}
}
