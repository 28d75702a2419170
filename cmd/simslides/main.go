// Command simslides imports slide decks into simulation worlds and presents
// them by flying the camera from slide to slide.
package main

import (
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ivlev/simslides/internal/config"
	"github.com/ivlev/simslides/internal/logging"
)

const (
	flagLogLevel = "log-level"
	flagLogFile  = "log-file"

	flagPDF          = "pdf"
	flagOut          = "out"
	flagPrefix       = "prefix"
	flagDPI          = "dpi"
	flagScale        = "scale"
	flagMaxWidth     = "max-texture-width"
	flagDetectStacks = "detect-stacks"
	flagComparer     = "comparer"
	flagDetector     = "detector"
	flagWorkers      = "workers"

	flagWorld     = "world"
	flagConfig    = "config"
	flagModelPath = "model-path"
	flagListen    = "listen"
	flagStackMode = "stack-mode"
	flagTween     = "tween"
	flagTickRate  = "tick-rate"
	flagWatch     = "watch"
	flagHeadless  = "headless"

	flagAddr  = "addr"
	flagIndex = "index"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	defaults := config.DefaultOptions()

	return &cli.App{
		Name:  "simslides",
		Usage: "present slides inside a simulated world",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagLogLevel,
				Value: "info",
				Usage: "log `LEVEL`: debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "write logs to `FILE` instead of stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "turn a PDF or an image directory into slide models and a world",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagPDF,
						Usage: "PDF `FILE` or image directory (default: latest PDF in input/pdf)",
					},
					&cli.StringFlag{
						Name:  flagOut,
						Value: "slides",
						Usage: "output `DIR`",
					},
					&cli.StringFlag{
						Name:  flagPrefix,
						Value: "slide",
						Usage: "model name prefix",
					},
					&cli.IntFlag{
						Name:  flagDPI,
						Value: 150,
						Usage: "rasterization density",
					},
					&cli.StringFlag{
						Name:  flagScale,
						Value: "1.6 0.01 0.9",
						Usage: "slide box size in meters, \"X Y Z\"",
					},
					&cli.IntFlag{
						Name:  flagMaxWidth,
						Value: 2048,
						Usage: "scale textures down to this width; 0 keeps rendered size",
					},
					&cli.BoolFlag{
						Name:  flagDetectStacks,
						Usage: "turn incremental builds into stack keyframes",
					},
					&cli.StringFlag{
						Name:  flagComparer,
						Value: "diff",
						Usage: "build detector: diff or contrast",
					},
					&cli.StringFlag{
						Name:  flagDetector,
						Value: "contrast",
						Usage: "region detector of the contrast comparer",
					},
					&cli.IntFlag{
						Name:  flagWorkers,
						Usage: "parallel pages (default: physical cores)",
					},
				},
				Action: importAction,
			},
			{
				Name:      "present",
				Usage:     "present a world's slides",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagWorld,
						Usage: "world `FILE` (default: latest .world in the current directory)",
					},
					&cli.StringFlag{
						Name:  flagConfig,
						Usage: "presentation `FILE`, XML or YAML (default: the world file)",
					},
					&cli.StringSliceFlag{
						Name:  flagModelPath,
						Usage: "extra model `DIR`s",
					},
					&cli.StringFlag{
						Name:  flagListen,
						Value: defaults.ListenAddr,
						Usage: "websocket `ADDR` for remotes; empty disables",
					},
					&cli.StringFlag{
						Name:  flagStackMode,
						Value: string(defaults.StackMode),
						Usage: "inactive stack slides: hide or shrink",
					},
					&cli.DurationFlag{
						Name:  flagTween,
						Value: defaults.TweenDuration,
						Usage: "camera move duration",
					},
					&cli.DurationFlag{
						Name:  flagTickRate,
						Value: defaults.TickRate,
						Usage: "render loop period",
					},
					&cli.BoolFlag{
						Name:  flagWatch,
						Usage: "reload the presentation when its file changes",
					},
					&cli.BoolFlag{
						Name:  flagHeadless,
						Usage: "run without the terminal console",
					},
				},
				Action: presentAction,
			},
			{
				Name:      "validate",
				Usage:     "check a presentation file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagWorld,
						Usage: "also check that slides exist in world `FILE`",
					},
					&cli.StringFlag{
						Name:  flagOut,
						Usage: "write the valid keyframes, normalized, as YAML to `FILE`",
					},
				},
				Action: validateAction,
			},
			{
				Name:      "key",
				Usage:     "send a key to a running presenter",
				ArgsUsage: "next|prev|home|current|first|CODE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagAddr,
						Value: defaults.ListenAddr,
						Usage: "presenter `ADDR`",
					},
					&cli.IntFlag{
						Name:  flagIndex,
						Usage: "jump to keyframe `N` instead of sending a key; -1 is the start view",
					},
				},
				Action: keyAction,
			},
		},
	}
}

// newLogger builds the command logger from the global flags. fallback is
// used as the log file when none is given, for commands that own the
// terminal.
func newLogger(c *cli.Context, fallback string) (*zap.SugaredLogger, error) {
	level, err := logging.ParseLevel(c.String(flagLogLevel))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid --%s", flagLogLevel)
	}
	var outputs []string
	if f := c.String(flagLogFile); f != "" {
		outputs = append(outputs, f)
	} else if fallback != "" {
		outputs = append(outputs, fallback)
	}
	return logging.NewLogger("simslides", level, outputs...)
}
