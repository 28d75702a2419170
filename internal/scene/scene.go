// Package scene is a small in-memory simulator host: a camera that flies
// between poses, slide visuals with world poses and sizes, and a log
// playback clock. It implements sink.Sink for the presenter.
package scene

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ivlev/simslides/internal/config"
	"github.com/ivlev/simslides/internal/geom"
	"github.com/ivlev/simslides/internal/sink"
)

// ShrinkScale is the scale of inactive stack members in shrink mode.
const ShrinkScale = 0.5

// Visual is the state of one slide visual.
type Visual struct {
	Name string
	// Pose is the world pose of the visual frame.
	Pose geom.Pose
	// Size is the box geometry size, unscaled.
	Size    r3.Vector
	Visible bool
	Scale   float64
}

// Options configure a Scene.
type Options struct {
	TweenDuration time.Duration
	StackMode     config.StackMode
	InitialCamera geom.Pose
}

// Scene implements sink.Sink and sink.ClipSetter.
type Scene struct {
	clock  clock.Clock
	opts   Options
	logger *zap.SugaredLogger

	mu      sync.Mutex
	camera  geom.Pose
	move    *cameraMove
	visuals map[string]*Visual

	near, far float64
	log       logPlayback
}

var (
	_ sink.Sink       = (*Scene)(nil)
	_ sink.ClipSetter = (*Scene)(nil)
)

// New returns an empty scene with the camera at opts.InitialCamera. A nil
// clk uses the wall clock.
func New(clk clock.Clock, opts Options, logger *zap.SugaredLogger) *Scene {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.StackMode == "" {
		opts.StackMode = config.StackHide
	}
	return &Scene{
		clock:   clk,
		opts:    opts,
		logger:  logger,
		camera:  opts.InitialCamera,
		visuals: make(map[string]*Visual),
		log:     logPlayback{paused: true},
	}
}

// AddVisual places a visual in the world, replacing any of the same name.
func (s *Scene) AddVisual(name string, pose geom.Pose, size r3.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visuals[name] = &Visual{Name: name, Pose: pose, Size: size, Visible: true, Scale: 1}
}

// Visual returns a copy of the named visual.
func (s *Scene) Visual(name string) (Visual, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visuals[name]
	if !ok {
		return Visual{}, false
	}
	return *v, true
}

// Visuals returns all visuals sorted by name.
func (s *Scene) Visuals() []Visual {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Visual, 0, len(s.visuals))
	for _, v := range s.visuals {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Step advances the camera flight and log playback to the current time.
// It returns true while the camera is moving.
func (s *Scene) Step() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.log.advance(now)

	if s.move == nil {
		return false
	}
	pose, done := s.move.poseAt(now)
	s.camera = pose
	if done {
		s.move = nil
		s.logger.Debugw("camera arrived", "pose", pose.String())
	}
	return !done
}

// Moving reports whether a camera flight is in progress.
func (s *Scene) Moving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.move != nil
}

// MoveCameraTo starts a flight from wherever the camera is now. A flight
// in progress is retargeted.
func (s *Scene) MoveCameraTo(pose geom.Pose) error {
	if pose.HasNaN() {
		return errors.Errorf("invalid camera pose %s", pose)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	from := s.cameraAt(now)
	s.camera = from
	s.move = &cameraMove{from: from, to: pose, start: now, duration: s.opts.TweenDuration}
	s.logger.Debugw("camera move", "from", from.String(), "to", pose.String())
	return nil
}

func (s *Scene) cameraAt(now time.Time) geom.Pose {
	if s.move == nil {
		return s.camera
	}
	pose, _ := s.move.poseAt(now)
	return pose
}

// CurrentCameraPose is the camera pose at this instant, mid-flight or not.
func (s *Scene) CurrentCameraPose() geom.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameraAt(s.clock.Now())
}

func (s *Scene) InitialCameraPose() geom.Pose {
	return s.opts.InitialCamera
}

// SetInitialCameraPose changes the home pose and, if the camera has not
// moved yet, puts the camera there.
func (s *Scene) SetInitialCameraPose(pose geom.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.move == nil && s.camera == s.opts.InitialCamera {
		s.camera = pose
	}
	s.opts.InitialCamera = pose
}

func (s *Scene) VisualWorldPose(name string) (geom.Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visuals[name]
	if !ok {
		return geom.NaNPose(), sink.NotFound(name)
	}
	return v.Pose, nil
}

func (s *Scene) VisualGeometrySize(name string) (r3.Vector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visuals[name]
	if !ok {
		return r3.Vector{}, sink.NotFound(name)
	}
	return v.Size, nil
}

// SetVisualActive hides inactive stack members, or shrinks them in shrink
// mode.
func (s *Scene) SetVisualActive(name string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visuals[name]
	if !ok {
		return sink.NotFound(name)
	}

	switch s.opts.StackMode {
	case config.StackShrink:
		v.Visible = true
		v.Scale = 1
		if !active {
			v.Scale = ShrinkScale
		}
	default:
		v.Visible = active
		v.Scale = 1
	}
	return nil
}

// SeekLog jumps log playback to t and resumes it.
func (s *Scene) SeekLog(t time.Duration) error {
	if t < 0 {
		return errors.Errorf("negative log time %s", t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.seek(t, s.clock.Now())
	s.logger.Debugw("log seek", "time", t)
	return nil
}

// PauseLog stops log playback at its current time.
func (s *Scene) PauseLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.advance(s.clock.Now())
	s.log.paused = true
}

// LogTime returns the playback time and whether playback is paused.
func (s *Scene) LogTime() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.advance(s.clock.Now())
	return s.log.time, s.log.paused
}

func (s *Scene) SetClipPlanes(near, far float64) error {
	if near <= 0 || far <= near {
		return errors.Errorf("invalid clip planes near %g far %g", near, far)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.near, s.far = near, far
	return nil
}

// ClipPlanes returns the camera clip distances, zero until set.
func (s *Scene) ClipPlanes() (near, far float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.near, s.far
}

// logPlayback is a log replay position that runs with the clock unless
// paused.
type logPlayback struct {
	time   time.Duration
	paused bool
	last   time.Time
}

func (l *logPlayback) seek(t time.Duration, now time.Time) {
	l.time = t
	l.paused = false
	l.last = now
}

func (l *logPlayback) advance(now time.Time) {
	if !l.paused {
		l.time += now.Sub(l.last)
	}
	l.last = now
}
