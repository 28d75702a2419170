// Package keyframe defines one step of a slide presentation and how it is
// read from its structured description.
package keyframe

import (
	"fmt"
	"strings"
	"time"

	"github.com/ivlev/simslides/internal/geom"
)

// Type tells the director how to treat a keyframe.
type Type int

const (
	// None is never stored; it marks a description whose type is unknown.
	None Type = iota
	// LookAt moves the camera to look at a slide.
	LookAt
	// Stack looks at a slide that shares its position with its neighbours.
	// A Stack keyframe is always also a LookAt target.
	Stack
	// LogSeek seeks log playback to a time and moves the camera to a pose.
	LogSeek
	// CamPose moves the camera to an absolute pose in the world.
	CamPose
)

var typeNames = map[Type]string{
	LookAt:  "lookat",
	Stack:   "stack",
	LogSeek: "log_seek",
	CamPose: "cam_pose",
}

// String returns the name used in presentation files.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "none"
}

// IsLookAt reports whether keyframes of this type aim the camera at a slide.
func (t Type) IsLookAt() bool {
	return t == LookAt || t == Stack
}

// ParseType maps a presentation file name to a Type.
func ParseType(s string) (Type, bool) {
	for t, name := range typeNames {
		if name == s {
			return t, true
		}
	}
	return None, false
}

// Keyframe is one step of a presentation. Only the fields relevant to its
// Type are meaningful.
type Keyframe struct {
	Type Type

	// Slide is the slide number of LookAt and Stack keyframes.
	Slide int
	// Visual is an explicit scoped visual name. When empty the name is
	// derived from the slide prefix and Slide.
	Visual string
	// EyeOffset is the camera offset in the slide frame. The zero pose
	// selects the default offset, so a deliberate zero offset cannot be
	// expressed.
	EyeOffset geom.Pose

	// CamPose is the world camera pose of CamPose and LogSeek keyframes.
	CamPose geom.Pose
	// LogSeek is the log playback time of LogSeek keyframes.
	LogSeek time.Duration

	// Text is shown next to the slide.
	Text string
}

// VisualName returns the scoped name of the visual k looks at.
func (k Keyframe) VisualName(slidePrefix string) string {
	if k.Visual != "" {
		return k.Visual
	}
	return SlideVisualName(slidePrefix, k.Slide)
}

// SlideVisualName is the visual of slide n in a set of imported slide models.
func SlideVisualName(slidePrefix string, n int) string {
	return fmt.Sprintf("%s::link::visual", SlideModelName(slidePrefix, n))
}

// SlideModelName is the model name of slide n.
func SlideModelName(slidePrefix string, n int) string {
	return fmt.Sprintf("%s-%d", slidePrefix, n)
}

var textEscaper = strings.NewReplacer("<<", "&lt;", ">>", "&gt;")

// EscapeText turns the "<<" and ">>" markers users write in presentation
// files into HTML entities, so they survive as literal angle brackets in the
// rich-text display after the file parser has decoded real entities.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}
