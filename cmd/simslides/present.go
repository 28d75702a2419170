package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/simslides/internal/config"
	"github.com/ivlev/simslides/internal/controller"
	"github.com/ivlev/simslides/internal/director"
	"github.com/ivlev/simslides/internal/scene"
	"github.com/ivlev/simslides/internal/system"
	"github.com/ivlev/simslides/internal/transport"
	"github.com/ivlev/simslides/internal/tui"
)

const (
	consoleLogFile = "simslides.log"
	sendTimeout    = 3 * time.Second
)

func presentOptions(c *cli.Context) (config.Options, error) {
	opts := config.DefaultOptions()
	opts.ListenAddr = c.String(flagListen)
	opts.StackMode = config.StackMode(c.String(flagStackMode))
	opts.TweenDuration = c.Duration(flagTween)
	opts.TickRate = c.Duration(flagTickRate)
	opts.Watch = c.Bool(flagWatch)
	opts.Headless = c.Bool(flagHeadless)
	return opts, opts.Validate()
}

func presentAction(c *cli.Context) error {
	opts, err := presentOptions(c)
	if err != nil {
		return err
	}
	// The console owns the terminal, so its logs go to a file.
	fallback := consoleLogFile
	if opts.Headless {
		fallback = ""
	}
	logger, err := newLogger(c, fallback)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	system.InitResourceLimits(logger)

	world := c.String(flagWorld)
	if world == "" {
		if world, err = system.FindLatest(".", ".world"); err != nil {
			return errors.Wrap(err, "no --world given")
		}
	}
	presPath := c.String(flagConfig)
	if presPath == "" {
		presPath = world
	}

	scn := scene.New(nil, scene.Options{
		TweenDuration: opts.TweenDuration,
		StackMode:     opts.StackMode,
	}, logger.Named("scene"))
	n, err := scn.LoadWorld(world, c.StringSlice(flagModelPath)...)
	if err != nil {
		if n == 0 {
			return err
		}
		logger.Warnw("world loaded with errors", "error", err)
	}

	store, pres, err := loadStore(presPath, logger)
	if err != nil {
		return err
	}
	ctrl := controller.New(store, scn, pres.SlidePrefix, logger.Named("controller"))
	if near, far, ok := pres.ClipPlanes(); ok {
		ctrl.SetClipPlanes(near, far)
	}
	if err := ctrl.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if opts.ListenAddr != "" {
		srv := transport.NewServer(ctrl, logger.Named("transport"))
		ctrl.Subscribe(srv.Publish)
		g.Go(func() error { return srv.ListenAndServe(gctx, opts.ListenAddr) })
	}

	// Reloads are parsed on the watcher goroutine and applied on the
	// render loop.
	var (
		deliver func(*director.Store)
		run     func() error
	)
	if opts.Headless {
		reloads := make(chan *director.Store)
		deliver = func(s *director.Store) {
			select {
			case reloads <- s:
			case <-gctx.Done():
			}
		}
		run = func() error { return ctrl.Run(gctx, nil, opts.TickRate, scn.Step, reloads) }
	} else {
		p := tea.NewProgram(tui.New(ctrl, scn, opts.TickRate, logger.Named("tui")), tea.WithAltScreen())
		deliver = func(s *director.Store) { p.Send(tui.ReloadMsg{Store: s}) }
		g.Go(func() error {
			<-gctx.Done()
			p.Quit()
			return nil
		})
		run = func() error {
			defer stop()
			_, err := p.Run()
			return err
		}
	}

	if opts.Watch {
		g.Go(func() error {
			return config.Watch(gctx, presPath, logger.Named("watch"), func() {
				s, _, err := loadStore(presPath, logger)
				if err != nil {
					logger.Errorw("reload failed", "path", presPath, "error", err)
					return
				}
				deliver(s)
			})
		})
	}

	g.Go(run)
	return g.Wait()
}

// loadStore reads a presentation file into a new store. Keyframes that do
// not parse are skipped; a file with none left is an error.
func loadStore(path string, logger *zap.SugaredLogger) (*director.Store, *config.Presentation, error) {
	pres, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	store := director.NewStore(logger.Named("store"))
	n, err := store.Load(pres.Keyframes)
	if n == 0 {
		if err == nil {
			err = controller.ErrNoKeyframes
		}
		return nil, nil, errors.Wrapf(err, "no keyframes in %s", path)
	}
	if err != nil {
		logger.Warnw("some keyframes were skipped", "path", path, "loaded", n, "error", err)
	}
	return store, pres, nil
}

func sendKey(c *cli.Context, addr string, code int32) error {
	ctx, cancel := context.WithTimeout(c.Context, sendTimeout)
	defer cancel()
	return transport.PublishKey(ctx, addr, code)
}

func sendIndex(c *cli.Context, addr string, i int) error {
	ctx, cancel := context.WithTimeout(c.Context, sendTimeout)
	defer cancel()
	return transport.PublishIndex(ctx, addr, i)
}
