package scene

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/ivlev/simslides/internal/geom"
)

// cameraMove is a camera flight from one pose to another.
type cameraMove struct {
	from, to geom.Pose
	start    time.Time
	duration time.Duration
}

// progress is the eased fraction of the move done at now, and whether the
// move is over.
func (m *cameraMove) progress(now time.Time) (float64, bool) {
	if m.duration <= 0 {
		return 1, true
	}
	t := float64(now.Sub(m.start)) / float64(m.duration)
	if t >= 1 {
		return 1, true
	}
	if t < 0 {
		t = 0
	}
	return easeInOutCubic(t), false
}

func (m *cameraMove) poseAt(now time.Time) (geom.Pose, bool) {
	t, done := m.progress(now)
	if done {
		return m.to, true
	}
	return interpolate(m.from, m.to, t), false
}

// interpolate blends positions linearly and orientations spherically.
func interpolate(a, b geom.Pose, t float64) geom.Pose {
	pos := r3.Vector{
		X: lerp(a.Pos.X, b.Pos.X, t),
		Y: lerp(a.Pos.Y, b.Pos.Y, t),
		Z: lerp(a.Pos.Z, b.Pos.Z, t),
	}

	qa, qb := toMgl(a.Orientation()), toMgl(b.Orientation())
	if qa.Dot(qb) < 0 {
		qb = qb.Scale(-1)
	}
	q := mgl64.QuatSlerp(qa, qb, t).Normalize()
	return geom.NewPose(pos, fromMgl(q))
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// easeInOutCubic applies smooth easing function
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

func toMgl(q quat.Number) mgl64.Quat {
	return mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}
}

func fromMgl(q mgl64.Quat) quat.Number {
	return quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]}
}
