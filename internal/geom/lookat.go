package geom

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

const lookAtEpsilon = 1e-6

// WorldUp is the +Z axis, the up direction of the simulator world.
var WorldUp = r3.Vector{Z: 1}

// LookAt returns a camera pose at eye whose forward (+X) axis points at
// target, with +Z kept as close to WorldUp as possible. The camera's +Y axis
// points to its left.
func LookAt(eye, target r3.Vector) Pose {
	front := target.Sub(eye)
	if front.Norm() < lookAtEpsilon {
		front = r3.Vector{X: 1}
	}
	front = front.Normalize()

	left := WorldUp.Cross(front)
	if left.Norm() < lookAtEpsilon {
		left = r3.Vector{Y: 1}
	}
	left = left.Normalize()
	up := front.Cross(left).Normalize()

	rot := mgl64.Mat3FromCols(vec3(front), vec3(left), vec3(up)).Mat4()
	p := PoseFromMatrix(rot)
	p.Pos = eye
	return p
}

func vec3(v r3.Vector) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}
