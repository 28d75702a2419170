package analyzer

import (
	"image"
	"image/color"
)

// DiffComparer compares pages pixel by pixel. Pixels that differ between
// the pages must all lie on the background of prev: a build only draws on
// empty space.
type DiffComparer struct {
	// MaxWidth is the thumbnail width pages are compared at.
	MaxWidth int
	// Tolerance is the gray level difference still counted as equal.
	Tolerance uint8
	// MaxRemoved is the fraction of prev's content pixels that may change
	// before next stops counting as a build. Antialiasing at the edges of
	// added content touches a few of them.
	MaxRemoved float64
	// MinAdded is the number of changed pixels below which the pages are
	// considered the same.
	MinAdded int
}

// NewDiffComparer returns a comparer with settings that suit slides
// rasterized at presentation resolution.
func NewDiffComparer() *DiffComparer {
	return &DiffComparer{
		MaxWidth:   320,
		Tolerance:  24,
		MaxRemoved: 0.02,
		MinAdded:   20,
	}
}

// Compare implements Comparer.
func (c *DiffComparer) Compare(prev, next image.Image) (Build, error) {
	if prev.Bounds().Size() != next.Bounds().Size() {
		return Build{Removed: 1}, nil
	}

	a := thumbnail(prev, c.MaxWidth)
	b := thumbnail(next, c.MaxWidth)
	bg := background(a)

	bounds := a.Bounds()
	mask := image.NewGray(bounds)
	content, removed, added := 0, 0, 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pa, pb := a.GrayAt(x, y).Y, b.GrayAt(x, y).Y
			onBackground := absDiff(pa, bg) <= c.Tolerance
			if !onBackground {
				content++
			}
			if absDiff(pa, pb) <= c.Tolerance {
				continue
			}
			if onBackground {
				added++
				mask.SetGray(x, y, color.Gray{Y: 255})
			} else {
				removed++
			}
		}
	}

	var build Build
	if content > 0 {
		build.Removed = float64(removed) / float64(content)
	}
	for _, r := range findContours(dilate(mask, 3, 1)) {
		build.Added = append(build.Added, Block{Rect: r, Type: "added", Confidence: 0.9})
	}
	// A blank page followed by content is a new slide, not a build.
	build.IsBuild = content > 0 && added >= c.MinAdded && build.Removed <= c.MaxRemoved
	return build, nil
}
