// Package geom defines the rigid poses used to place the presentation camera
// and the slides it looks at.
package geom

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a position plus an orientation in a parent frame.
// The zero value is the identity pose.
type Pose struct {
	Pos r3.Vector
	Rot quat.Number
}

var identityRot = quat.Number{Real: 1}

// NewPose returns a pose from a position and an orientation.
func NewPose(pos r3.Vector, rot quat.Number) Pose {
	return Pose{Pos: pos, Rot: rot}
}

// NewPoseRPY returns a pose from a position and fixed-axis roll, pitch, yaw
// angles in radians, the same convention SDF files use.
func NewPoseRPY(x, y, z, roll, pitch, yaw float64) Pose {
	return Pose{Pos: r3.Vector{X: x, Y: y, Z: z}, Rot: RPYToQuat(roll, pitch, yaw)}
}

// NaNPose is returned by lookups that could not resolve a frame.
func NaNPose() Pose {
	n := math.NaN()
	return Pose{Pos: r3.Vector{X: n, Y: n, Z: n}, Rot: quat.Number{Real: n, Imag: n, Jmag: n, Kmag: n}}
}

// Orientation returns the rotation, mapping the all-zero quaternion of an
// uninitialized Pose to the identity.
func (p Pose) Orientation() quat.Number {
	if p.Rot == (quat.Number{}) {
		return identityRot
	}
	return p.Rot
}

// IsZero reports whether p has no translation and no rotation.
func (p Pose) IsZero() bool {
	if p.Pos != (r3.Vector{}) {
		return false
	}
	r := p.Orientation()
	return r == identityRot || r == quat.Number{Real: -1}
}

// HasNaN reports whether any component of p is NaN.
func (p Pose) HasNaN() bool {
	r := p.Rot
	for _, v := range []float64{p.Pos.X, p.Pos.Y, p.Pos.Z, r.Real, r.Imag, r.Jmag, r.Kmag} {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// RPY returns roll, pitch and yaw in radians.
func (p Pose) RPY() (roll, pitch, yaw float64) {
	q := p.Orientation()
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))

	sinp := 2 * (w*y - z*x)
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}

	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}

// Matrix returns the homogeneous transform of p.
func (p Pose) Matrix() mgl64.Mat4 {
	r := p.Orientation()
	q := mgl64.Quat{W: r.Real, V: mgl64.Vec3{r.Imag, r.Jmag, r.Kmag}}.Normalize()
	return mgl64.Translate3D(p.Pos.X, p.Pos.Y, p.Pos.Z).Mul4(q.Mat4())
}

// PoseFromMatrix extracts the pose of a rigid homogeneous transform.
func PoseFromMatrix(m mgl64.Mat4) Pose {
	t := m.Col(3)
	q := mgl64.Mat4ToQuat(m).Normalize()
	return Pose{
		Pos: r3.Vector{X: t[0], Y: t[1], Z: t[2]},
		Rot: quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]},
	}
}

// Compose returns a*b: b expressed in the frame of a, mapped to a's parent.
func Compose(a, b Pose) Pose {
	return PoseFromMatrix(a.Matrix().Mul4(b.Matrix()))
}

// Distance is the euclidean distance between the positions of a and b.
func Distance(a, b Pose) float64 {
	return a.Pos.Sub(b.Pos).Norm()
}

// AlmostEqual compares positions within tol and orientations within tol,
// treating q and -q as the same rotation.
func AlmostEqual(a, b Pose, tol float64) bool {
	if Distance(a, b) > tol {
		return false
	}
	qa, qb := a.Orientation(), b.Orientation()
	dot := qa.Real*qb.Real + qa.Imag*qb.Imag + qa.Jmag*qb.Jmag + qa.Kmag*qb.Kmag
	return 1-math.Abs(dot) <= tol
}

// String formats p as "x y z roll pitch yaw".
func (p Pose) String() string {
	r, pi, y := p.RPY()
	return fmt.Sprintf("%g %g %g %g %g %g", p.Pos.X, p.Pos.Y, p.Pos.Z, r, pi, y)
}

// ParsePose reads "x y z roll pitch yaw". A bare "x y z" has no rotation.
func ParsePose(s string) (Pose, error) {
	fields := strings.Fields(s)
	if len(fields) != 6 && len(fields) != 3 {
		return Pose{}, errors.Errorf("pose %q: want 6 values, got %d", s, len(fields))
	}
	vals := make([]float64, 6)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Pose{}, errors.Wrapf(err, "pose %q", s)
		}
		vals[i] = v
	}
	return NewPoseRPY(vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]), nil
}

// RPYToQuat converts fixed-axis roll, pitch, yaw to a unit quaternion.
func RPYToQuat(roll, pitch, yaw float64) quat.Number {
	qx := quat.Number{Real: math.Cos(roll / 2), Imag: math.Sin(roll / 2)}
	qy := quat.Number{Real: math.Cos(pitch / 2), Jmag: math.Sin(pitch / 2)}
	qz := quat.Number{Real: math.Cos(yaw / 2), Kmag: math.Sin(yaw / 2)}
	return quat.Mul(quat.Mul(qz, qy), qx)
}
