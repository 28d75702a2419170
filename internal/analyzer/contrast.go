package analyzer

import (
	"image"
)

// ContrastDetector implements edge-based region detection using Sobel operator
type ContrastDetector struct {
	MinBlockArea  int     // Minimum area in pixels²
	EdgeThreshold float64 // Gradient magnitude threshold
}

// NewContrastDetector creates a new contrast-based detector with default settings
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  500,
		EdgeThreshold: 30.0,
	}
}

// Detect finds regions of interest using edge detection and morphology
func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	gray := toGrayscale(img)
	edges := sobelEdgeDetection(gray, d.EdgeThreshold)
	dilated := dilate(edges, 5, 2)

	var blocks []Block
	for _, rect := range findContours(dilated) {
		if rect.Dx()*rect.Dy() >= d.MinBlockArea {
			blocks = append(blocks, Block{Rect: rect, Type: "content", Confidence: 0.7})
		}
	}
	return blocks, nil
}

// BlockComparer compares pages by their detected blocks: next is a build of
// prev when every block of prev is covered by a block of next and next has
// more block area.
type BlockComparer struct {
	Detector Detector
	// MaxWidth is the thumbnail width pages are analyzed at.
	MaxWidth int
}

// NewBlockComparer wraps d.
func NewBlockComparer(d Detector) *BlockComparer {
	return &BlockComparer{Detector: d, MaxWidth: 400}
}

// Compare implements Comparer.
func (c *BlockComparer) Compare(prev, next image.Image) (Build, error) {
	if prev.Bounds().Size() != next.Bounds().Size() {
		return Build{Removed: 1}, nil
	}

	before, err := c.Detector.Detect(thumbnail(prev, c.MaxWidth))
	if err != nil {
		return Build{}, err
	}
	after, err := c.Detector.Detect(thumbnail(next, c.MaxWidth))
	if err != nil {
		return Build{}, err
	}

	lost := 0
	for _, b := range before {
		if !covered(b.Rect, after) {
			lost++
		}
	}

	var added []Block
	for _, a := range after {
		if !overlapsAny(a.Rect, before) {
			added = append(added, Block{Rect: a.Rect, Type: "added", Confidence: a.Confidence})
		}
	}

	build := Build{Added: added}
	if len(before) > 0 {
		build.Removed = float64(lost) / float64(len(before))
	}
	build.IsBuild = lost == 0 && len(before) > 0 && area(after) > area(before)
	return build, nil
}

func covered(r image.Rectangle, blocks []Block) bool {
	for _, b := range blocks {
		if r.In(b.Rect) {
			return true
		}
	}
	return false
}

func overlapsAny(r image.Rectangle, blocks []Block) bool {
	for _, b := range blocks {
		if r.Overlaps(b.Rect) {
			return true
		}
	}
	return false
}

func area(blocks []Block) int {
	n := 0
	for _, b := range blocks {
		n += b.Rect.Dx() * b.Rect.Dy()
	}
	return n
}
