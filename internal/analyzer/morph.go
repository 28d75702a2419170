package analyzer

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// thumbnail scales img down so that its width is at most maxWidth, then
// converts it to grayscale. Page comparisons run on thumbnails: rasterized
// pages are several megapixels and builds are visible at any size.
func thumbnail(img image.Image, maxWidth int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxWidth && maxWidth > 0 {
		h = int(math.Round(float64(h) * float64(maxWidth) / float64(w)))
		w = maxWidth
		if h < 1 {
			h = 1
		}
	}
	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, b, draw.Src, nil)
	return gray
}

// toGrayscale converts an image to grayscale
func toGrayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

// sobelEdgeDetection marks pixels whose gradient magnitude exceeds threshold
func sobelEdgeDetection(gray *image.Gray, threshold float64) *image.Gray {
	b := gray.Bounds()
	edges := image.NewGray(b)
	at := func(x, y int) float64 { return float64(gray.GrayAt(x, y).Y) }

	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			sumX := -at(x-1, y-1) + at(x+1, y-1) -
				2*at(x-1, y) + 2*at(x+1, y) -
				at(x-1, y+1) + at(x+1, y+1)
			sumY := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)

			if math.Hypot(sumX, sumY) > threshold {
				edges.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return edges
}

// dilate grows white regions by half a kernel per iteration
func dilate(img *image.Gray, kernelSize, iterations int) *image.Gray {
	b := img.Bounds()
	half := kernelSize / 2
	result := img

	for iter := 0; iter < iterations; iter++ {
		next := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if result.GrayAt(x, y).Y == 0 {
					continue
				}
				v := result.GrayAt(x, y)
				for ky := max(y-half, b.Min.Y); ky <= min(y+half, b.Max.Y-1); ky++ {
					for kx := max(x-half, b.Min.X); kx <= min(x+half, b.Max.X-1); kx++ {
						if next.GrayAt(kx, ky).Y < v.Y {
							next.SetGray(kx, ky, v)
						}
					}
				}
			}
		}
		result = next
	}
	return result
}

// findContours returns the bounding rectangles of connected white regions
func findContours(img *image.Gray) []image.Rectangle {
	b := img.Bounds()
	w := b.Dx()
	visited := make([]bool, w*b.Dy())
	idx := func(x, y int) int { return (y-b.Min.Y)*w + (x - b.Min.X) }

	var contours []image.Rectangle
	var stack []image.Point
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if visited[idx(x, y)] || img.GrayAt(x, y).Y <= 128 {
				continue
			}

			r := image.Rect(x, y, x+1, y+1)
			stack = append(stack[:0], image.Pt(x, y))
			visited[idx(x, y)] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

				for _, n := range [...]image.Point{image.Pt(p.X+1, p.Y), image.Pt(p.X-1, p.Y), image.Pt(p.X, p.Y+1), image.Pt(p.X, p.Y-1)} {
					if !n.In(b) || visited[idx(n.X, n.Y)] || img.GrayAt(n.X, n.Y).Y <= 128 {
						continue
					}
					visited[idx(n.X, n.Y)] = true
					stack = append(stack, n)
				}
			}
			contours = append(contours, r)
		}
	}
	return contours
}

// background returns the most common gray level of img.
func background(img *image.Gray) uint8 {
	var hist [256]int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[img.GrayAt(x, y).Y]++
		}
	}
	best := 0
	for v, n := range hist {
		if n > hist[best] {
			best = v
		}
	}
	return uint8(best)
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
