// Package analyzer looks at rasterized slides. Its main use is finding
// incremental builds: consecutive pages where the next one only adds
// content to the previous one, which a presenter shows as a stack.
package analyzer

import "image"

// Block represents a detected region of interest in an image
type Block struct {
	Rect       image.Rectangle
	Type       string  // "content", "added", "unknown"
	Confidence float64 // 0.0-1.0
}

// Detector is the interface for single image analysis strategies
type Detector interface {
	Detect(img image.Image) ([]Block, error)
}

// Build is the result of comparing two consecutive pages.
type Build struct {
	// IsBuild is true when next keeps all of prev and adds to it.
	IsBuild bool
	// Added are the regions present in next but not in prev.
	Added []Block
	// Removed is the fraction of prev's content missing from next.
	Removed float64
}

// Comparer decides whether next is an incremental build of prev.
type Comparer interface {
	Compare(prev, next image.Image) (Build, error)
}

// SuggestStacks numbers the runs of builds in a deck. A run starts at the
// page the first build adds to, so pages 2, 3 and 4 of a deck where 3
// builds on 2 and 4 on 3 share a run. Pages outside any run get 0; runs
// are numbered from 1 so that adjacent runs stay apart.
func SuggestStacks(pages []image.Image, c Comparer) ([]int, error) {
	runs := make([]int, len(pages))
	n := 0
	for i := 1; i < len(pages); i++ {
		b, err := c.Compare(pages[i-1], pages[i])
		if err != nil {
			return nil, err
		}
		if !b.IsBuild {
			continue
		}
		if runs[i-1] == 0 {
			n++
			runs[i-1] = n
		}
		runs[i] = runs[i-1]
	}
	return runs, nil
}
