// Package sink defines the seam between the presentation core and the
// simulator that actually owns the camera and the slide visuals.
package sink

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/ivlev/simslides/internal/geom"
)

// ErrNotFound is returned when a visual is not in the scene.
var ErrNotFound = errors.New("visual not found")

// Sink reads and writes scene and camera state on behalf of the
// presentation. Implementations are only called from the goroutine that
// owns the scene.
type Sink interface {
	// MoveCameraTo starts moving the camera to pose. It does not wait for
	// the move to finish.
	MoveCameraTo(pose geom.Pose) error
	CurrentCameraPose() geom.Pose
	// InitialCameraPose is where the camera was when the scene loaded.
	InitialCameraPose() geom.Pose

	// VisualWorldPose returns a NaN pose and ErrNotFound for unknown names.
	VisualWorldPose(name string) (geom.Pose, error)
	VisualGeometrySize(name string) (r3.Vector, error)
	// SetVisualActive marks a stack member as the shown one or not. How an
	// inactive member looks is up to the implementation.
	SetVisualActive(name string, active bool) error

	SeekLog(t time.Duration) error
}

// ClipSetter is implemented by sinks whose camera clip planes can be set.
type ClipSetter interface {
	SetClipPlanes(near, far float64) error
}

// NotFound wraps ErrNotFound with the visual name.
func NotFound(name string) error {
	return errors.Wrapf(ErrNotFound, "visual %q", name)
}
