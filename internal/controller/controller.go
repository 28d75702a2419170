// Package controller turns key presses and direct jumps into cursor moves
// and applies the resulting camera plans to the scene on the render loop.
package controller

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/ivlev/simslides/internal/director"
	"github.com/ivlev/simslides/internal/keyframe"
	"github.com/ivlev/simslides/internal/sink"
)

var (
	// ErrNoKeyframes is returned by Start for an empty presentation.
	ErrNoKeyframes = errors.New("presentation has no keyframes")
	// ErrNoSlides is returned by Start when the first slide the
	// presentation looks at is not in the scene, usually because the world
	// was not imported with the same slide prefix.
	ErrNoSlides = errors.New("slides not found in scene")
)

// Status is reported to observers after every applied update.
type Status struct {
	// Index is the keyframe shown, or director.Home.
	Index int
	Total int
	Text  string
}

// Controller owns a presentation session. Key and index events may arrive
// on any goroutine; Start, Tick and Replace must run on the goroutine that
// owns the scene.
type Controller struct {
	sink        sink.Sink
	slidePrefix string
	logger      *zap.SugaredLogger

	mu  sync.RWMutex
	dir *director.Director

	clipSet   bool
	near, far float64

	active  atomic.Bool
	pending atomic.Bool

	obsMu     sync.Mutex
	observers []func(Status)
}

// New creates a controller for the keyframes of store shown in the scene
// behind s.
func New(store *director.Store, s sink.Sink, slidePrefix string, logger *zap.SugaredLogger) *Controller {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Controller{
		sink:        s,
		slidePrefix: slidePrefix,
		logger:      logger,
		dir:         director.NewDirector(store, s, slidePrefix, logger.Named("director")),
	}
}

// SetClipPlanes configures the camera clip planes applied by Start.
func (c *Controller) SetClipPlanes(near, far float64) {
	c.clipSet = true
	c.near, c.far = near, far
}

// Store returns the keyframe store of the current session.
func (c *Controller) Store() *director.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dir.Store
}

// Active reports whether a presentation is running.
func (c *Controller) Active() bool {
	return c.active.Load()
}

// Start begins presenting at the first keyframe. It fails if there is
// nothing to present or the slides are not in the scene.
func (c *Controller) Start() error {
	store := c.Store()
	if store.Count() == 0 {
		return ErrNoKeyframes
	}
	if err := c.checkSlides(store); err != nil {
		return err
	}

	if c.clipSet {
		if cs, ok := c.sink.(sink.ClipSetter); ok {
			if err := cs.SetClipPlanes(c.near, c.far); err != nil {
				c.logger.Warnw("failed to set clip planes", "near", c.near, "far", c.far, "error", err)
			}
		} else {
			c.logger.Warnw("scene does not support clip planes")
		}
	}

	store.SetCursor(0)
	c.active.Store(true)
	c.pending.Store(true)
	c.logger.Infow("presentation started", "keyframes", store.Count())
	return nil
}

// checkSlides looks up the first slide the presentation looks at.
func (c *Controller) checkSlides(store *director.Store) error {
	for _, k := range store.Keyframes() {
		if !k.Type.IsLookAt() {
			continue
		}
		name := k.VisualName(c.slidePrefix)
		pose, err := c.sink.VisualWorldPose(name)
		if err == nil && pose.HasNaN() {
			err = sink.NotFound(name)
		}
		if err != nil {
			return errors.Wrapf(ErrNoSlides, "%s: %v", name, err)
		}
		return nil
	}
	return nil
}

// Stop ends the presentation. Keys are ignored until the next Start.
func (c *Controller) Stop() {
	c.active.Store(false)
	c.pending.Store(false)
	c.logger.Infow("presentation stopped")
}

// OnControlKey handles a key press. It returns false if the key was
// ignored.
func (c *Controller) OnControlKey(code int32) bool {
	if !c.active.Load() {
		return false
	}
	action := ActionFor(code)
	if action == Ignore {
		return false
	}

	store := c.Store()
	switch action {
	case Next:
		store.Advance(director.Next)
	case Previous:
		store.Advance(director.Previous)
	case Home:
		store.Home()
	case First:
		store.SetCursor(0)
	case Current:
	}

	c.logger.Debugw("key", "code", code, "action", action.String(), "cursor", store.Cursor())
	c.pending.Store(true)
	return true
}

// OnDirectIndex jumps to keyframe i. It returns false if the cursor did
// not change.
func (c *Controller) OnDirectIndex(i int) bool {
	if !c.active.Load() {
		return false
	}
	store := c.Store()
	before := store.Cursor()
	store.SetCursor(i)
	if store.Cursor() == before {
		return false
	}
	c.logger.Debugw("direct index", "requested", i, "cursor", store.Cursor())
	c.pending.Store(true)
	return true
}

// Tick applies the pending update, if any, and reports whether it did.
// Several events between two ticks result in a single update for the
// latest cursor.
func (c *Controller) Tick() bool {
	if !c.pending.Swap(false) {
		return false
	}

	c.mu.RLock()
	dir := c.dir
	c.mu.RUnlock()

	plan, err := dir.Compute()
	if err != nil {
		c.logger.Errorw("failed to compute keyframe", "error", err)
		return false
	}
	c.apply(plan)

	c.notify(Status{Index: plan.Cursor, Total: plan.Count, Text: plan.Text})
	return true
}

func (c *Controller) apply(plan director.Plan) {
	for _, u := range plan.Updates {
		if err := c.sink.SetVisualActive(u.Name, u.Active); err != nil {
			c.logger.Warnw("failed to update stack", "visual", u.Name, "error", err)
		}
	}
	if plan.Seek != nil {
		if err := c.sink.SeekLog(*plan.Seek); err != nil {
			c.logger.Warnw("failed to seek log", "time", *plan.Seek, "error", err)
		}
	}
	if plan.MoveCamera {
		if err := c.sink.MoveCameraTo(plan.Pose); err != nil {
			c.logger.Warnw("failed to move camera", "pose", plan.Pose.String(), "error", err)
		}
	}
	c.logger.Infow("keyframe",
		"index", plan.Cursor,
		"total", plan.Count,
		"pose", plan.Pose.String(),
		"moved", plan.MoveCamera,
	)
}

// Subscribe registers fn to receive a Status after every applied update.
// fn runs on the render goroutine and must not block.
func (c *Controller) Subscribe(fn func(Status)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Controller) notify(s Status) {
	c.obsMu.Lock()
	observers := append([]func(Status){}, c.observers...)
	c.obsMu.Unlock()
	for _, fn := range observers {
		fn(s)
	}
}

// Replace swaps in a reloaded store. A running presentation restarts on it
// at the same index, clamped to the new length, so that editing the file
// during a talk keeps the current slide on screen. A store that Start would
// reject is not swapped in and the presentation keeps running.
func (c *Controller) Replace(store *director.Store) error {
	wasActive := c.active.Load()
	if wasActive {
		if store.Count() == 0 {
			return ErrNoKeyframes
		}
		if err := c.checkSlides(store); err != nil {
			return err
		}
	}
	cursor := c.Store().Cursor()
	c.Stop()

	c.mu.Lock()
	c.dir = director.NewDirector(store, c.sink, c.slidePrefix, c.logger.Named("director"))
	c.mu.Unlock()

	if !wasActive {
		return nil
	}
	if err := c.Start(); err != nil {
		return err
	}
	store.SetCursor(cursor)
	return nil
}

// Keyframe returns the keyframe under the cursor, if any.
func (c *Controller) Keyframe() (keyframe.Keyframe, bool) {
	store := c.Store()
	k, err := store.At(store.Cursor())
	return k, err == nil
}
