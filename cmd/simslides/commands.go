package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/ivlev/simslides/internal/analyzer"
	"github.com/ivlev/simslides/internal/config"
	"github.com/ivlev/simslides/internal/controller"
	"github.com/ivlev/simslides/internal/director"
	"github.com/ivlev/simslides/internal/geom"
	"github.com/ivlev/simslides/internal/importer"
	"github.com/ivlev/simslides/internal/scene"
	"github.com/ivlev/simslides/internal/source"
	"github.com/ivlev/simslides/internal/system"
)

func importAction(c *cli.Context) error {
	logger, err := newLogger(c, "")
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	input := c.String(flagPDF)
	if input == "" {
		if input, err = system.FindLatest("input/pdf", ".pdf"); err != nil {
			return errors.Wrap(err, "no --pdf given")
		}
		logger.Infow("using latest PDF", "path", input)
	}

	size, err := geom.ParsePose(c.String(flagScale))
	if err != nil {
		return errors.Wrapf(err, "invalid --%s", flagScale)
	}

	opts := importer.Options{
		OutDir:          c.String(flagOut),
		Prefix:          c.String(flagPrefix),
		DPI:             c.Int(flagDPI),
		Size:            size.Pos,
		MaxTextureWidth: c.Int(flagMaxWidth),
		DetectStacks:    c.Bool(flagDetectStacks),
		Workers:         c.Int(flagWorkers),
	}
	if opts.DetectStacks {
		if opts.Comparer, err = analyzer.NewComparer(c.String(flagComparer), c.String(flagDetector)); err != nil {
			return err
		}
	}

	src, err := source.Open(input)
	if err != nil {
		return err
	}
	defer src.Close()

	res, err := importer.Import(c.Context, src, opts, logger.Named("importer"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %d slides to %s in %s\n", res.Slides, res.World, res.Elapsed.Round(time.Millisecond))
	return nil
}

func validateAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("no presentation file given")
	}
	logger, err := newLogger(c, "")
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pres, err := config.Load(path)
	if err != nil {
		return err
	}
	store := director.NewStore(logger.Named("store"))
	n, errs := store.Load(pres.Keyframes)
	fmt.Fprintf(c.App.Writer, "%s: %d of %d keyframes valid, slide prefix %q\n", path, n, len(pres.Keyframes), pres.SlidePrefix)
	for _, e := range multierr.Errors(errs) {
		fmt.Fprintf(c.App.Writer, "  %v\n", e)
	}

	if world := c.String(flagWorld); world != "" {
		scn := scene.New(nil, scene.Options{}, logger.Named("scene"))
		if _, err := scn.LoadWorld(world); err != nil {
			errs = multierr.Append(errs, err)
		}
		for i, k := range store.Keyframes() {
			if !k.Type.IsLookAt() {
				continue
			}
			name := k.VisualName(pres.SlidePrefix)
			if _, err := scn.VisualWorldPose(name); err != nil {
				fmt.Fprintf(c.App.Writer, "  keyframe %d: %v\n", i, err)
				errs = multierr.Append(errs, errors.Wrapf(err, "keyframe %d", i))
			}
		}
	}

	if out := c.String(flagOut); out != "" {
		if err := config.WriteYAML(pres.Normalized(store.Keyframes()), out); err != nil {
			return err
		}
	}
	if errs != nil {
		return errors.Errorf("%s has %d problems", path, len(multierr.Errors(errs)))
	}
	return nil
}

func keyAction(c *cli.Context) error {
	addr := c.String(flagAddr)
	if c.IsSet(flagIndex) {
		return errors.Wrap(sendIndex(c, addr, c.Int(flagIndex)), "failed to send index")
	}

	arg := c.Args().First()
	if arg == "" {
		return errors.New("no key given")
	}
	code, err := parseKey(arg)
	if err != nil {
		return err
	}
	return errors.Wrap(sendKey(c, addr, code), "failed to send key")
}

// parseKey accepts an action name or a raw key code.
func parseKey(s string) (int32, error) {
	if a, ok := controller.ParseAction(strings.ToLower(s)); ok {
		if code, ok := controller.KeyFor(a); ok {
			return code, nil
		}
	}
	code, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, errors.Errorf("unknown key %q", s)
	}
	return int32(code), nil
}
