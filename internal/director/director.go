// Package director turns the current keyframe of a presentation into a
// camera pose, stack visibility changes and display text.
package director

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ivlev/simslides/internal/geom"
	"github.com/ivlev/simslides/internal/keyframe"
	"github.com/ivlev/simslides/internal/sink"
)

// SkipMoveThreshold is how close, in meters, the camera must already be to
// its target for the move to be skipped. Restarting a move to where the
// camera already is makes the view jitter.
const SkipMoveThreshold = 0.001

// VisualUpdate marks one member of a stack as shown or not.
type VisualUpdate struct {
	Name   string
	Slide  int
	Active bool
}

// Plan is everything the current keyframe asks of the scene.
type Plan struct {
	Cursor int
	Count  int

	Pose       geom.Pose
	MoveCamera bool

	// Seek is set for log seek keyframes.
	Seek *time.Duration

	Updates []VisualUpdate
	Text    string
}

// Director computes Plans from a Store. It only reads from the Sink; the
// caller applies the Plan.
type Director struct {
	Store       *Store
	Sink        sink.Sink
	SlidePrefix string

	logger *zap.SugaredLogger
}

// NewDirector creates a Director over store and the scene behind s.
func NewDirector(store *Store, s sink.Sink, slidePrefix string, logger *zap.SugaredLogger) *Director {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Director{
		Store:       store,
		Sink:        s,
		SlidePrefix: slidePrefix,
		logger:      logger,
	}
}

// Compute returns the Plan for the keyframe under the cursor. A look-at
// target missing from the scene yields an error wrapping sink.ErrNotFound
// and no Plan.
func (d *Director) Compute() (Plan, error) {
	cursor, k, ok := d.Store.current()
	plan := Plan{Cursor: cursor, Count: d.Store.Count()}

	switch {
	case !ok:
		plan.Pose = d.Sink.InitialCameraPose()

	case k.Type == keyframe.CamPose:
		plan.Pose = k.CamPose

	case k.Type == keyframe.LogSeek:
		plan.Pose = k.CamPose
		seek := k.LogSeek
		plan.Seek = &seek

	case k.Type.IsLookAt():
		pose, err := d.lookAt(k)
		if err != nil {
			return Plan{}, errors.Wrapf(err, "keyframe %d", cursor)
		}
		plan.Pose = pose
		if k.Type == keyframe.Stack {
			plan.Updates = d.stackUpdates(cursor)
		}

	default:
		return Plan{}, errors.Errorf("keyframe %d has no type", cursor)
	}

	if ok {
		plan.Text = k.Text
	}

	dist := geom.Distance(d.Sink.CurrentCameraPose(), plan.Pose)
	plan.MoveCamera = dist > SkipMoveThreshold || math.IsNaN(dist)
	return plan, nil
}

// lookAt aims the camera at the middle of the slide of k, from the
// keyframe's eye offset or from the default one.
func (d *Director) lookAt(k keyframe.Keyframe) (geom.Pose, error) {
	name := k.VisualName(d.SlidePrefix)

	origin, err := d.Sink.VisualWorldPose(name)
	if err == nil && origin.HasNaN() {
		err = sink.NotFound(name)
	}
	if err != nil {
		return geom.Pose{}, err
	}

	size, err := d.Sink.VisualGeometrySize(name)
	if err != nil {
		return geom.Pose{}, err
	}

	target := geom.NewPose(origin.Pos.Add(r3.Vector{Z: size.Z * 0.5}), origin.Orientation())

	eyeOffset := k.EyeOffset
	if eyeOffset.IsZero() {
		eyeOffset = DefaultEyeOffset(size)
	}
	eye := geom.Compose(target, eyeOffset)

	d.logger.Debugw("look at", "visual", name, "target", target.String(), "eye", eye.String())
	return geom.LookAt(eye.Pos, target.Pos), nil
}

// DefaultEyeOffset stands back from a slide of the given size by twice its
// height, facing it.
func DefaultEyeOffset(size r3.Vector) geom.Pose {
	return geom.NewPoseRPY(0, -2*size.Z, 0, 0, 0, math.Pi/2)
}

func (d *Director) stackUpdates(cursor int) []VisualUpdate {
	kfs := d.Store.Keyframes()
	run := stackRun(kfs, cursor)

	updates := make([]VisualUpdate, 0, len(run))
	for _, i := range run {
		updates = append(updates, VisualUpdate{
			Name:   kfs[i].VisualName(d.SlidePrefix),
			Slide:  kfs[i].Slide,
			Active: kfs[i].Slide == kfs[cursor].Slide,
		})
	}
	d.logger.Debugw("stack", "front", kfs[run[0]].Slide, "back", kfs[run[len(run)-1]].Slide)
	return updates
}
