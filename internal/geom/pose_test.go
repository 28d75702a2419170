package geom

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

const tol = 1e-9

func TestParsePose(t *testing.T) {
	tests := []struct {
		in      string
		want    Pose
		wantErr bool
	}{
		{"0 0 0 0 0 0", Pose{}, false},
		{"1 2 3", NewPoseRPY(1, 2, 3, 0, 0, 0), false},
		{"1 -2 0.5 0 0 1.5707963267948966", NewPoseRPY(1, -2, 0.5, 0, 0, math.Pi/2), false},
		{"1 2", Pose{}, true},
		{"a b c d e f", Pose{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePose(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePose(%q) failed: %v", tt.in, err)
			}
			if !AlmostEqual(got, tt.want, tol) {
				t.Errorf("ParsePose(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestZeroPose(t *testing.T) {
	if !(Pose{}).IsZero() {
		t.Error("zero value should be the zero pose")
	}
	p, _ := ParsePose("0 0 0 0 0 0")
	if !p.IsZero() {
		t.Error("parsed all-zero pose should be zero")
	}
	if NewPoseRPY(0, 0, 0, 0, 0, 0.1).IsZero() {
		t.Error("rotated pose should not be zero")
	}
	if NewPoseRPY(0, 0.001, 0, 0, 0, 0).IsZero() {
		t.Error("translated pose should not be zero")
	}
}

func TestNaNPose(t *testing.T) {
	if !NaNPose().HasNaN() {
		t.Error("NaNPose should report NaN")
	}
	if NewPoseRPY(1, 2, 3, 0, 0, 0).HasNaN() {
		t.Error("regular pose should not report NaN")
	}
}

func TestRPYRoundTrip(t *testing.T) {
	p := NewPoseRPY(0, 0, 0, 0.1, -0.2, 1.2)
	r, pi, y := p.RPY()
	if math.Abs(r-0.1) > tol || math.Abs(pi+0.2) > tol || math.Abs(y-1.2) > tol {
		t.Errorf("RPY = (%f, %f, %f), want (0.1, -0.2, 1.2)", r, pi, y)
	}
}

func TestCompose(t *testing.T) {
	// A frame yawed 90 degrees at (1, 0, 0): its local +X is world +Y.
	parent := NewPoseRPY(1, 0, 0, 0, 0, math.Pi/2)
	child := NewPoseRPY(2, 0, 0, 0, 0, 0)

	got := Compose(parent, child)
	want := NewPoseRPY(1, 2, 0, 0, 0, math.Pi/2)
	if !AlmostEqual(got, want, 1e-9) {
		t.Errorf("Compose = %v, want %v", got, want)
	}

	// Yaws add up.
	got = Compose(parent, NewPoseRPY(0, 0, 0, 0, 0, math.Pi/2))
	_, _, yaw := got.RPY()
	if math.Abs(math.Abs(yaw)-math.Pi) > 1e-9 {
		t.Errorf("composed yaw = %f, want pi", yaw)
	}
}

func TestLookAt(t *testing.T) {
	tests := []struct {
		name          string
		eye, target   r3.Vector
		wantYaw       float64
		wantPitchSign float64
	}{
		{"facing +Y", r3.Vector{Y: -2}, r3.Vector{}, math.Pi / 2, 0},
		{"facing +X", r3.Vector{X: -3}, r3.Vector{}, 0, 0},
		{"facing -X", r3.Vector{X: 3}, r3.Vector{}, math.Pi, 0},
		{"looking down", r3.Vector{X: -1, Z: 1}, r3.Vector{}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := LookAt(tt.eye, tt.target)
			if p.Pos != tt.eye {
				t.Errorf("position = %v, want %v", p.Pos, tt.eye)
			}
			_, pitch, yaw := p.RPY()
			if math.Abs(math.Abs(yaw)-math.Abs(tt.wantYaw)) > 1e-9 {
				t.Errorf("yaw = %f, want %f", yaw, tt.wantYaw)
			}
			switch {
			case tt.wantPitchSign == 0 && math.Abs(pitch) > 1e-9:
				t.Errorf("pitch = %f, want 0", pitch)
			case tt.wantPitchSign > 0 && pitch <= 0:
				t.Errorf("pitch = %f, want positive (nose down)", pitch)
			}

			// The camera's forward axis must point at the target.
			fwd := Compose(p, NewPoseRPY(1, 0, 0, 0, 0, 0)).Pos.Sub(p.Pos)
			dir := tt.target.Sub(tt.eye).Normalize()
			if fwd.Sub(dir).Norm() > 1e-9 {
				t.Errorf("forward = %v, want %v", fwd, dir)
			}
		})
	}
}

func TestLookAtDegenerate(t *testing.T) {
	p := LookAt(r3.Vector{Z: 5}, r3.Vector{})
	if p.HasNaN() {
		t.Fatalf("looking straight down produced NaN: %v", p)
	}
	p = LookAt(r3.Vector{X: 1}, r3.Vector{X: 1})
	if p.HasNaN() {
		t.Fatalf("eye on target produced NaN: %v", p)
	}
}
