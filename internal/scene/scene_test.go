package scene

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/ivlev/simslides/internal/config"
	"github.com/ivlev/simslides/internal/controller"
	"github.com/ivlev/simslides/internal/director"
	"github.com/ivlev/simslides/internal/geom"
	"github.com/ivlev/simslides/internal/keyframe"
	"github.com/ivlev/simslides/internal/sink"
)

func newScene(mode config.StackMode) (*Scene, *clock.Mock) {
	mock := clock.NewMock()
	s := New(mock, Options{
		TweenDuration: time.Second,
		StackMode:     mode,
		InitialCamera: geom.NewPoseRPY(-5, 0, 2, 0, 0, 0),
	}, nil)
	return s, mock
}

func TestEaseInOutCubic(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{0.25, 0.0625},
	}
	for _, tt := range tests {
		if got := easeInOutCubic(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("easeInOutCubic(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCameraFlight(t *testing.T) {
	s, mock := newScene(config.StackHide)
	target := geom.NewPoseRPY(5, 0, 2, 0, 0, math.Pi/2)

	if err := s.MoveCameraTo(target); err != nil {
		t.Fatalf("MoveCameraTo failed: %v", err)
	}
	if !s.Moving() {
		t.Fatal("camera should be moving")
	}

	mock.Add(500 * time.Millisecond)
	if !s.Step() {
		t.Error("Step at half time reported arrival")
	}
	mid := s.CurrentCameraPose()
	if math.Abs(mid.Pos.X) > 1e-9 {
		t.Errorf("half way x = %v, want 0", mid.Pos.X)
	}
	if _, _, yaw := mid.RPY(); math.Abs(yaw-math.Pi/4) > 1e-9 {
		t.Errorf("half way yaw = %v, want pi/4", yaw)
	}

	mock.Add(600 * time.Millisecond)
	if s.Step() {
		t.Error("Step after the flight still moving")
	}
	if !geom.AlmostEqual(s.CurrentCameraPose(), target, 1e-12) {
		t.Errorf("camera = %v, want %v", s.CurrentCameraPose(), target)
	}
}

func TestCameraRetarget(t *testing.T) {
	s, mock := newScene(config.StackHide)
	if err := s.MoveCameraTo(geom.NewPoseRPY(5, 0, 2, 0, 0, 0)); err != nil {
		t.Fatal(err)
	}
	mock.Add(500 * time.Millisecond)

	// The second flight starts where the first one is now.
	if err := s.MoveCameraTo(geom.NewPoseRPY(0, 10, 2, 0, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if got := s.CurrentCameraPose().Pos; got.Sub(r3.Vector{Z: 2}).Norm() > 1e-9 {
		t.Errorf("retargeted flight starts at %v, want (0 0 2)", got)
	}

	mock.Add(time.Second)
	s.Step()
	if got := s.CurrentCameraPose().Pos; got != (r3.Vector{Y: 10, Z: 2}) {
		t.Errorf("camera at %v, want (0 10 2)", got)
	}
}

func TestCameraInstantMove(t *testing.T) {
	s := New(clock.NewMock(), Options{}, nil)
	target := geom.NewPoseRPY(1, 2, 3, 0, 0, 0)
	if err := s.MoveCameraTo(target); err != nil {
		t.Fatal(err)
	}
	if got := s.CurrentCameraPose(); got != target {
		t.Errorf("camera = %v, want %v", got, target)
	}
	if err := s.MoveCameraTo(geom.NaNPose()); err == nil {
		t.Error("NaN pose accepted")
	}
}

func TestVisuals(t *testing.T) {
	s, _ := newScene(config.StackHide)
	s.AddVisual("a::link::visual", geom.NewPoseRPY(1, 0, 0, 0, 0, 0), r3.Vector{X: 1, Y: 0.01, Z: 1})

	if _, err := s.VisualWorldPose("b::link::visual"); !errors.Is(err, sink.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if p, _ := s.VisualWorldPose("b::link::visual"); !p.HasNaN() {
		t.Error("unknown visual should have a NaN pose")
	}
	if _, err := s.VisualGeometrySize("b::link::visual"); !errors.Is(err, sink.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if err := s.SetVisualActive("b::link::visual", true); !errors.Is(err, sink.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	size, err := s.VisualGeometrySize("a::link::visual")
	if err != nil || size.Z != 1 {
		t.Errorf("size = %v, %v", size, err)
	}
}

func TestStackModes(t *testing.T) {
	tests := []struct {
		mode    config.StackMode
		visible bool
		scale   float64
	}{
		{config.StackHide, false, 1},
		{config.StackShrink, true, ShrinkScale},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			s, _ := newScene(tt.mode)
			s.AddVisual("a", geom.Pose{}, r3.Vector{})

			if err := s.SetVisualActive("a", false); err != nil {
				t.Fatal(err)
			}
			v, _ := s.Visual("a")
			if v.Visible != tt.visible || v.Scale != tt.scale {
				t.Errorf("inactive = visible %v scale %v, want %v %v", v.Visible, v.Scale, tt.visible, tt.scale)
			}

			if err := s.SetVisualActive("a", true); err != nil {
				t.Fatal(err)
			}
			if v, _ := s.Visual("a"); !v.Visible || v.Scale != 1 {
				t.Errorf("active = visible %v scale %v", v.Visible, v.Scale)
			}
		})
	}
}

func TestLogPlayback(t *testing.T) {
	s, mock := newScene(config.StackHide)
	if _, paused := s.LogTime(); !paused {
		t.Error("playback should start paused")
	}

	if err := s.SeekLog(10 * time.Second); err != nil {
		t.Fatal(err)
	}
	mock.Add(2 * time.Second)
	s.Step()
	if got, paused := s.LogTime(); got != 12*time.Second || paused {
		t.Errorf("LogTime = %v paused %v, want 12s playing", got, paused)
	}

	s.PauseLog()
	mock.Add(5 * time.Second)
	if got, _ := s.LogTime(); got != 12*time.Second {
		t.Errorf("paused LogTime = %v, want 12s", got)
	}

	if err := s.SeekLog(-time.Second); err == nil {
		t.Error("negative seek accepted")
	}
}

func TestClipPlanes(t *testing.T) {
	s, _ := newScene(config.StackHide)
	if err := s.SetClipPlanes(1, 0.5); err == nil {
		t.Error("far before near accepted")
	}
	if err := s.SetClipPlanes(0.1, 200); err != nil {
		t.Fatal(err)
	}
	if near, far := s.ClipPlanes(); near != 0.1 || far != 200 {
		t.Errorf("ClipPlanes = %v %v", near, far)
	}
}

const testWorld = `<?xml version='1.0' ?>
<sdf version='1.6'>
  <world name='default'>
    <gui>
      <camera name='user_camera'>
        <pose>-6 0 3 0 0.3 0</pose>
      </camera>
      <plugin name='simslides' filename='libsimslides.so'>
        <slide_prefix>talk</slide_prefix>
        <keyframe type='lookat' number='0'/>
        <keyframe type='stack' number='1'/>
        <keyframe type='stack' number='2'/>
      </plugin>
    </gui>
    <include>
      <uri>model://sun</uri>
    </include>
    <include>
      <name>talk-0</name>
      <pose>0 0 0 0 0 0</pose>
      <uri>model://talk-0</uri>
    </include>
    <include>
      <name>talk-1</name>
      <pose>10 0 0 0 0 0</pose>
      <uri>model://talk-1</uri>
    </include>
    <include>
      <name>talk-2</name>
      <pose>10 0 0 0 0 0</pose>
      <uri>model://talk-2</uri>
    </include>
    <model name='wall'>
      <pose>0 5 0 0 0 0</pose>
      <link name='link'>
        <visual name='visual'>
          <geometry><box><size>4 0.1 2</size></box></geometry>
        </visual>
      </link>
    </model>
  </world>
</sdf>`

func writeModel(t *testing.T, dir, name string) {
	t.Helper()
	modelDir := filepath.Join(dir, name)
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		t.Fatal(err)
	}
	sdf := `<?xml version='1.0' ?>
<sdf version='1.6'>
  <model name='` + name + `'>
    <static>true</static>
    <link name='link'>
      <pose>0 0 0.45 0 0 0</pose>
      <visual name='visual'>
        <geometry><box><size>1.6 0.01 0.9</size></box></geometry>
      </visual>
    </link>
  </model>
</sdf>`
	if err := os.WriteFile(filepath.Join(modelDir, "model.sdf"), []byte(sdf), 0644); err != nil {
		t.Fatal(err)
	}
}

func writeTestWorld(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		writeModel(t, dir, keyframe.SlideModelName("talk", i))
	}
	path := filepath.Join(dir, "talk.world")
	if err := os.WriteFile(path, []byte(testWorld), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWorld(t *testing.T) {
	s, _ := newScene(config.StackHide)
	n, err := s.LoadWorld(writeTestWorld(t))
	if err != nil {
		t.Fatalf("LoadWorld failed: %v", err)
	}
	if n != 4 {
		t.Errorf("added %d visuals, want 4", n)
	}

	pose, err := s.VisualWorldPose("talk-1::link::visual")
	if err != nil {
		t.Fatal(err)
	}
	if want := (r3.Vector{X: 10, Z: 0.45}); pose.Pos.Sub(want).Norm() > 1e-12 {
		t.Errorf("talk-1 at %v, want %v", pose.Pos, want)
	}
	size, _ := s.VisualGeometrySize("talk-1::link::visual")
	if size != (r3.Vector{X: 1.6, Y: 0.01, Z: 0.9}) {
		t.Errorf("talk-1 size = %v", size)
	}

	if pose, err := s.VisualWorldPose("wall::link::visual"); err != nil || pose.Pos != (r3.Vector{Y: 5}) {
		t.Errorf("inline model at %v, %v", pose.Pos, err)
	}

	if got := s.InitialCameraPose().Pos; got != (r3.Vector{X: -6, Z: 3}) {
		t.Errorf("initial camera at %v, want gui camera pose", got)
	}
	if got := s.CurrentCameraPose().Pos; got != (r3.Vector{X: -6, Z: 3}) {
		t.Errorf("camera at %v, want initial pose", got)
	}
}

func TestLoadWorldMissingFile(t *testing.T) {
	s, _ := newScene(config.StackHide)
	if _, err := s.LoadWorld(filepath.Join(t.TempDir(), "none.world")); err == nil {
		t.Error("missing world accepted")
	}
}

// TestPresentWorld runs a presentation over a loaded world the way the
// present command does.
func TestPresentWorld(t *testing.T) {
	path := writeTestWorld(t)
	s, mock := newScene(config.StackHide)
	if _, err := s.LoadWorld(path); err != nil {
		t.Fatal(err)
	}
	pres, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	store := director.NewStore(nil)
	if _, err := store.Load(pres.Keyframes); err != nil {
		t.Fatal(err)
	}
	c := controller.New(store, s, pres.SlidePrefix, nil)
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	frame := func() {
		c.Tick()
		for i := 0; i < 40 && s.Step(); i++ {
			mock.Add(50 * time.Millisecond)
		}
	}

	frame()
	cam := s.CurrentCameraPose()
	if want := (r3.Vector{Y: -1.8, Z: 0.9}); cam.Pos.Sub(want).Norm() > 1e-9 {
		t.Errorf("camera at %v, want %v in front of slide 0", cam.Pos, want)
	}

	c.OnControlKey(controller.KeyRight)
	frame()
	if v, _ := s.Visual("talk-2::link::visual"); v.Visible {
		t.Error("talk-2 should be hidden behind talk-1")
	}

	c.OnControlKey(controller.KeyRight)
	frame()
	if v, _ := s.Visual("talk-1::link::visual"); v.Visible {
		t.Error("talk-1 should be hidden behind talk-2")
	}
	if v, _ := s.Visual("talk-2::link::visual"); !v.Visible {
		t.Error("talk-2 should be shown")
	}
	cam = s.CurrentCameraPose()
	if want := (r3.Vector{X: 10, Y: -1.8, Z: 0.9}); cam.Pos.Sub(want).Norm() > 1e-9 {
		t.Errorf("camera at %v, want %v in front of the stack", cam.Pos, want)
	}
}
