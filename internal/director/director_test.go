package director

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"

	"github.com/ivlev/simslides/internal/geom"
	"github.com/ivlev/simslides/internal/keyframe"
	"github.com/ivlev/simslides/internal/sink"
)

// fakeSink is a scene with fixed visuals and a camera that never moves.
type fakeSink struct {
	camera  geom.Pose
	initial geom.Pose
	visuals map[string]geom.Pose
	sizes   map[string]r3.Vector
	// nanOnly makes missing visuals report a NaN pose without an error.
	nanOnly bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		camera:  geom.NewPoseRPY(100, 100, 100, 0, 0, 0),
		initial: geom.NewPoseRPY(-5, 0, 2, 0, 0.3, 0),
		visuals: map[string]geom.Pose{},
		sizes:   map[string]r3.Vector{},
	}
}

func (f *fakeSink) addSlide(prefix string, n int, pose geom.Pose) {
	name := keyframe.SlideVisualName(prefix, n)
	f.visuals[name] = pose
	f.sizes[name] = r3.Vector{X: 1.6, Y: 0.01, Z: 0.9}
}

func (f *fakeSink) MoveCameraTo(p geom.Pose) error { f.camera = p; return nil }
func (f *fakeSink) CurrentCameraPose() geom.Pose   { return f.camera }
func (f *fakeSink) InitialCameraPose() geom.Pose   { return f.initial }

func (f *fakeSink) VisualWorldPose(name string) (geom.Pose, error) {
	p, ok := f.visuals[name]
	if !ok {
		if f.nanOnly {
			return geom.NaNPose(), nil
		}
		return geom.NaNPose(), sink.NotFound(name)
	}
	return p, nil
}

func (f *fakeSink) VisualGeometrySize(name string) (r3.Vector, error) {
	s, ok := f.sizes[name]
	if !ok {
		return r3.Vector{}, sink.NotFound(name)
	}
	return s, nil
}

func (f *fakeSink) SetVisualActive(string, bool) error { return nil }
func (f *fakeSink) SeekLog(time.Duration) error        { return nil }

func TestDirectorHome(t *testing.T) {
	fs := newFakeSink()
	s := newStore(t, keyframe.Description{Type: "lookat", Number: "0", Text: "hi"})
	d := NewDirector(s, fs, "talk", nil)

	plan, err := d.Compute()
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if plan.Cursor != Home || plan.Count != 1 {
		t.Errorf("cursor/count = %d/%d, want %d/1", plan.Cursor, plan.Count, Home)
	}
	if !geom.AlmostEqual(plan.Pose, fs.initial, 1e-12) {
		t.Errorf("pose = %v, want initial %v", plan.Pose, fs.initial)
	}
	if len(plan.Updates) != 0 || plan.Text != "" || plan.Seek != nil {
		t.Errorf("home plan should be bare, got %+v", plan)
	}
}

func TestDirectorDefaultEyeOffset(t *testing.T) {
	fs := newFakeSink()
	fs.addSlide("talk", 0, geom.Pose{})
	s := newStore(t, lookat("0"))
	s.SetCursor(0)

	plan, err := NewDirector(s, fs, "talk", nil).Compute()
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	// Slide is 0.9 high: aim at z=0.45, stand back 1.8 along -Y, face +Y.
	want := geom.NewPoseRPY(0, -1.8, 0.45, 0, 0, math.Pi/2)
	if !geom.AlmostEqual(plan.Pose, want, 1e-9) {
		t.Errorf("pose = %v, want %v", plan.Pose, want)
	}
	if !plan.MoveCamera {
		t.Error("camera far away should move")
	}

	off := DefaultEyeOffset(r3.Vector{X: 1, Y: 2, Z: 3})
	_, _, yaw := off.RPY()
	if off.Pos != (r3.Vector{Y: -6}) || math.Abs(yaw-math.Pi/2) > 1e-12 {
		t.Errorf("DefaultEyeOffset = %v, want (0, -6, 0) yaw 90", off)
	}
}

func TestDirectorRotatedSlide(t *testing.T) {
	fs := newFakeSink()
	fs.addSlide("talk", 0, geom.NewPoseRPY(5, 0, 0, 0, 0, math.Pi/2))
	s := newStore(t, lookat("0"))
	s.SetCursor(0)

	plan, err := NewDirector(s, fs, "talk", nil).Compute()
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	// The slide's -Y is world +X, so the eye is in front of it on +X,
	// looking back along -X.
	want := geom.NewPoseRPY(6.8, 0, 0.45, 0, 0, math.Pi)
	if !geom.AlmostEqual(plan.Pose, want, 1e-9) {
		t.Errorf("pose = %v, want %v", plan.Pose, want)
	}
}

func TestDirectorExplicitEyeOffset(t *testing.T) {
	fs := newFakeSink()
	fs.addSlide("talk", 2, geom.Pose{})
	s := newStore(t, keyframe.Description{Type: "lookat", Number: "2", EyeOffset: "0 -4 1 0 0 1.5707963267948966"})
	s.SetCursor(0)

	plan, err := NewDirector(s, fs, "talk", nil).Compute()
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if want := (r3.Vector{Y: -4, Z: 1.45}); plan.Pose.Pos.Sub(want).Norm() > 1e-9 {
		t.Errorf("eye = %v, want %v", plan.Pose.Pos, want)
	}
}

func TestDirectorSkipMove(t *testing.T) {
	tests := []struct {
		offset float64
		move   bool
	}{
		{0, false},
		{0.001, false},
		{0.0011, true},
		{1, true},
	}
	for _, tt := range tests {
		fs := newFakeSink()
		s := newStore(t, keyframe.Description{Type: "cam_pose", Pose: "1 2 3 0 0 0"})
		s.SetCursor(0)
		fs.camera = geom.NewPoseRPY(1+tt.offset, 2, 3, 0, 0, 0)

		plan, err := NewDirector(s, fs, "talk", nil).Compute()
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}
		if plan.MoveCamera != tt.move {
			t.Errorf("offset %g: MoveCamera = %v, want %v", tt.offset, plan.MoveCamera, tt.move)
		}
	}
}

func TestDirectorLogSeek(t *testing.T) {
	fs := newFakeSink()
	s := newStore(t, keyframe.Description{Type: "log_seek", CamPose: "0 0 10 0 1.5 0", Time: "4 0", Text: "replay"})
	s.SetCursor(0)

	plan, err := NewDirector(s, fs, "talk", nil).Compute()
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if plan.Seek == nil || *plan.Seek != 4*time.Second {
		t.Errorf("Seek = %v, want 4s", plan.Seek)
	}
	if !geom.AlmostEqual(plan.Pose, geom.NewPoseRPY(0, 0, 10, 0, 1.5, 0), 1e-9) {
		t.Errorf("pose = %v", plan.Pose)
	}
	if plan.Text != "replay" {
		t.Errorf("text = %q", plan.Text)
	}
}

func TestDirectorMissingVisual(t *testing.T) {
	for _, nanOnly := range []bool{false, true} {
		fs := newFakeSink()
		fs.nanOnly = nanOnly
		s := newStore(t, lookat("0"), lookat("1"))
		s.SetCursor(1)

		_, err := NewDirector(s, fs, "talk", nil).Compute()
		if !errors.Is(err, sink.ErrNotFound) {
			t.Errorf("nanOnly=%v: error = %v, want ErrNotFound", nanOnly, err)
		}
		if c := s.Cursor(); c != 1 {
			t.Errorf("cursor moved to %d", c)
		}
	}
}

func TestDirectorScenario(t *testing.T) {
	fs := newFakeSink()
	for i := 0; i < 4; i++ {
		fs.addSlide("talk", i, geom.NewPoseRPY(float64(i)*10, 0, 0, 0, 0, 0))
	}
	s := newStore(t,
		keyframe.Description{Type: "cam_pose", Pose: "1 2 3 0 0 0"},
		lookat("0"),
		stack("1"),
		stack("2"),
		lookat("3"),
	)
	d := NewDirector(s, fs, "talk", nil)

	// Start of presentation.
	s.SetCursor(0)
	plan, err := d.Compute()
	if err != nil {
		t.Fatalf("keyframe 0: %v", err)
	}
	if !geom.AlmostEqual(plan.Pose, geom.NewPoseRPY(1, 2, 3, 0, 0, 0), 0) || len(plan.Updates) != 0 {
		t.Errorf("keyframe 0: plan = %+v", plan)
	}

	// Look at slide 0: no stack updates.
	s.Advance(Next)
	plan, err = d.Compute()
	if err != nil {
		t.Fatalf("keyframe 1: %v", err)
	}
	if want := (r3.Vector{Y: -1.8, Z: 0.45}); plan.Pose.Pos.Sub(want).Norm() > 1e-9 {
		t.Errorf("keyframe 1: eye = %v, want %v", plan.Pose.Pos, want)
	}
	if len(plan.Updates) != 0 {
		t.Errorf("keyframe 1: updates = %+v, want none", plan.Updates)
	}

	// First stack member: slides 1 and 2 form the stack, 1 is shown.
	s.Advance(Next)
	plan, err = d.Compute()
	if err != nil {
		t.Fatalf("keyframe 2: %v", err)
	}
	want := []VisualUpdate{
		{Name: "talk-1::link::visual", Slide: 1, Active: true},
		{Name: "talk-2::link::visual", Slide: 2, Active: false},
	}
	if diff := cmp.Diff(want, plan.Updates); diff != "" {
		t.Errorf("keyframe 2 updates mismatch (-want +got):\n%s", diff)
	}

	// Second stack member swaps which one is shown.
	s.Advance(Next)
	plan, err = d.Compute()
	if err != nil {
		t.Fatalf("keyframe 3: %v", err)
	}
	want[0].Active, want[1].Active = false, true
	if diff := cmp.Diff(want, plan.Updates); diff != "" {
		t.Errorf("keyframe 3 updates mismatch (-want +got):\n%s", diff)
	}
}
