// Package importer turns the pages of a PDF or an image directory into
// slide models and a world file that presents them.
package importer

import (
	"context"
	"encoding/xml"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"

	"github.com/ivlev/simslides/internal/analyzer"
	"github.com/ivlev/simslides/internal/config"
	"github.com/ivlev/simslides/internal/director"
	"github.com/ivlev/simslides/internal/geom"
	"github.com/ivlev/simslides/internal/keyframe"
	"github.com/ivlev/simslides/internal/source"
	"github.com/ivlev/simslides/internal/system"
)

const (
	// DefaultDPI is the rasterization density of PDF pages.
	DefaultDPI = 150
	// DefaultMaxTextureWidth bounds the width of slide textures.
	DefaultMaxTextureWidth = 2048
	// SlideSpacing is the distance between two slides along X.
	SlideSpacing = 10.0
)

// DefaultSize is the box size of a slide in meters.
var DefaultSize = r3.Vector{X: 1.6, Y: 0.01, Z: 0.9}

// Options configures an import.
type Options struct {
	OutDir string
	Prefix string
	DPI    int
	// Size is the slide box size; the zero vector means DefaultSize.
	Size r3.Vector
	// MaxTextureWidth scales wider pages down. Zero keeps pages as
	// rendered.
	MaxTextureWidth int
	// DetectStacks turns runs of incremental builds into stack keyframes.
	DetectStacks bool
	// Comparer decides builds; nil means analyzer.NewComparer("", "").
	Comparer analyzer.Comparer
	Workers  int
}

// Result describes what an import wrote.
type Result struct {
	World        string
	Slides       int
	Presentation config.Presentation
	Elapsed      time.Duration
}

func (o *Options) setDefaults() error {
	if o.OutDir == "" {
		return errors.New("output directory is required")
	}
	if o.Prefix == "" {
		return errors.New("slide prefix is required")
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.Size == (r3.Vector{}) {
		o.Size = DefaultSize
	}
	if o.Size.X <= 0 || o.Size.Y <= 0 || o.Size.Z <= 0 {
		return errors.Errorf("invalid slide size %v", o.Size)
	}
	if o.Workers <= 0 {
		o.Workers = system.DefaultWorkers()
	}
	if o.DetectStacks && o.Comparer == nil {
		c, err := analyzer.NewComparer("", "")
		if err != nil {
			return err
		}
		o.Comparer = c
	}
	return nil
}

// Import renders every page of src, writes one model per page under
// opts.OutDir and a world file named after the prefix.
func Import(ctx context.Context, src source.Source, opts Options, logger *zap.SugaredLogger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()

	count := src.PageCount()
	if count == 0 {
		return nil, errors.New("source has no pages")
	}
	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", opts.OutDir)
	}

	logger.Infow("importing", "pages", count, "dpi", opts.DPI, "workers", opts.Workers, "out", opts.OutDir)

	// Textures are kept for build detection and pooled otherwise.
	var pages []image.Image
	if opts.DetectStacks {
		pages = make([]image.Image, count)
	}
	pool := system.NewImagePool()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := src.RenderPage(i, opts.DPI)
			if err != nil {
				return errors.Wrapf(err, "failed to render page %d", i)
			}
			tex, pooled := scaleTexture(img, opts.MaxTextureWidth, pool)
			if err := writeModel(opts, i, tex); err != nil {
				return err
			}
			if pages != nil {
				pages[i] = tex
			} else if pooled {
				pool.Put(tex.(*image.RGBA))
			}
			logger.Debugw("slide ready", "page", i+1, "of", count)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	runs := make([]int, count)
	if opts.DetectStacks {
		var err error
		if runs, err = analyzer.SuggestStacks(pages, opts.Comparer); err != nil {
			return nil, errors.Wrap(err, "failed to detect builds")
		}
	}

	pres := config.Presentation{
		Name:        "simslides",
		Filename:    "libsimslides.so",
		SlidePrefix: opts.Prefix,
	}
	for i := 0; i < count; i++ {
		number := fmt.Sprint(i)
		typ := keyframe.LookAt
		if runs[i] != 0 {
			typ = keyframe.Stack
			// Consecutive stack keyframes form one stack, so a run that
			// follows another directly is entered with a look-at.
			if i > 0 && runs[i-1] != 0 && runs[i-1] != runs[i] {
				pres.Keyframes = append(pres.Keyframes, keyframe.Description{Type: keyframe.LookAt.String(), Number: number})
			}
		}
		pres.Keyframes = append(pres.Keyframes, keyframe.Description{Type: typ.String(), Number: number})
	}

	world := filepath.Join(opts.OutDir, opts.Prefix+".world")
	if err := writeWorld(world, opts, pres, slidePoses(runs, opts.Size)); err != nil {
		return nil, err
	}

	res := &Result{World: world, Slides: count, Presentation: pres, Elapsed: time.Since(start)}
	logger.Infow("import done", "world", world, "slides", count, "elapsed", res.Elapsed)
	return res, nil
}

// scaleTexture fits img into maxWidth, keeping its aspect ratio. pooled
// reports whether the result came from pool.
func scaleTexture(img image.Image, maxWidth int, pool *system.ImagePool) (image.Image, bool) {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img, false
	}
	h := b.Dy() * maxWidth / b.Dx()
	dst := pool.Get(image.Rect(0, 0, maxWidth, max(h, 1)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, true
}

func writeModel(opts Options, i int, tex image.Image) error {
	name := keyframe.SlideModelName(opts.Prefix, i)
	dir := filepath.Join(opts.OutDir, name)
	textures := filepath.Join(dir, "materials", "textures")
	scripts := filepath.Join(dir, "materials", "scripts")
	for _, d := range []string{textures, scripts} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return errors.Wrapf(err, "failed to create %s", d)
		}
	}

	data := modelData{
		Name:     name,
		Material: materialName(opts.Prefix, i),
		Texture:  name + ".png",
		Size:     fmt.Sprintf("%g %g %g", opts.Size.X, opts.Size.Y, opts.Size.Z),
		Height:   opts.Size.Z / 2,
	}
	files := []struct {
		path string
		tmpl string
	}{
		{filepath.Join(dir, "model.config"), "model.config"},
		{filepath.Join(dir, "model.sdf"), "model.sdf"},
		{filepath.Join(scripts, "script.material"), "script.material"},
	}
	for _, f := range files {
		if err := render(f.path, f.tmpl, data); err != nil {
			return err
		}
	}
	return writePNG(filepath.Join(textures, data.Texture), tex)
}

func materialName(prefix string, i int) string {
	return fmt.Sprintf("Slides/%s_%d", prefix, i)
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return errors.Wrapf(enc.Encode(f, img), "failed to encode %s", path)
}

// slidePoses lays slides out along X. The pages of a build run share the
// position of its first page, each one a little further back.
func slidePoses(runs []int, size r3.Vector) []geom.Pose {
	poses := make([]geom.Pose, len(runs))
	x, depth := 0.0, 0
	for i := range runs {
		if i > 0 && runs[i] != 0 && runs[i] == runs[i-1] {
			depth++
		} else {
			x, depth = float64(i)*SlideSpacing, 0
		}
		poses[i] = geom.NewPoseRPY(x, float64(depth)*2*size.Y, 0, 0, 0, 0)
	}
	return poses
}

func writeWorld(path string, opts Options, pres config.Presentation, poses []geom.Pose) error {
	plugin, err := xml.MarshalIndent(pres, "      ", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode presentation")
	}

	data := worldData{
		Camera: cameraPose(opts.Size).String(),
		Plugin: string(plugin),
	}
	for i, p := range poses {
		data.Slides = append(data.Slides, slideInclude{
			Name: keyframe.SlideModelName(opts.Prefix, i),
			Pose: p.String(),
		})
	}
	return render(path, "world", data)
}

// cameraPose is where the presenter camera starts: in front of the first
// slide, as a lookat keyframe on it would place it.
func cameraPose(size r3.Vector) geom.Pose {
	target := geom.NewPoseRPY(0, 0, size.Z, 0, 0, 0)
	eye := geom.Compose(target, director.DefaultEyeOffset(size))
	return geom.LookAt(eye.Pos, target.Pos)
}
