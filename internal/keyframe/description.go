package keyframe

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ivlev/simslides/internal/geom"
)

var (
	// ErrUnknownType is returned for a keyframe type no presenter understands.
	ErrUnknownType = errors.New("unsupported keyframe type")
	// ErrMissingAttribute is returned when a type specific attribute is absent.
	ErrMissingAttribute = errors.New("missing keyframe attribute")
)

// Description is a keyframe as written in a presentation file, either as
// the attributes of a <keyframe/> element or as a YAML mapping.
type Description struct {
	Type      string `xml:"type,attr" yaml:"type"`
	Number    string `xml:"number,attr,omitempty" yaml:"number,omitempty"`
	Visual    string `xml:"visual,attr,omitempty" yaml:"visual,omitempty"`
	EyeOffset string `xml:"eye_offset,attr,omitempty" yaml:"eye_offset,omitempty"`
	CamPose   string `xml:"cam_pose,attr,omitempty" yaml:"cam_pose,omitempty"`
	Pose      string `xml:"pose,attr,omitempty" yaml:"pose,omitempty"`
	Time      string `xml:"time,attr,omitempty" yaml:"time,omitempty"`
	Text      string `xml:"text,attr,omitempty" yaml:"text,omitempty"`
}

// Parse builds a Keyframe from its description.
func Parse(d Description) (Keyframe, error) {
	t, ok := ParseType(strings.TrimSpace(d.Type))
	if !ok {
		return Keyframe{}, errors.Wrapf(ErrUnknownType, "type %q", d.Type)
	}

	k := Keyframe{Type: t, Text: EscapeText(d.Text), Visual: strings.TrimSpace(d.Visual)}

	if d.EyeOffset != "" {
		off, err := geom.ParsePose(d.EyeOffset)
		if err != nil {
			return Keyframe{}, errors.Wrap(err, "eye_offset")
		}
		k.EyeOffset = off
	}

	switch t {
	case LookAt, Stack:
		if d.Number == "" {
			if k.Visual == "" {
				return Keyframe{}, errors.Wrapf(ErrMissingAttribute, "%s keyframe needs number or visual", t)
			}
			k.Slide = -1
			break
		}
		n, err := strconv.Atoi(strings.TrimSpace(d.Number))
		if err != nil {
			return Keyframe{}, errors.Wrapf(err, "number %q", d.Number)
		}
		k.Slide = n

	case LogSeek:
		pose, err := camPose(d)
		if err != nil {
			return Keyframe{}, err
		}
		k.CamPose = pose
		if d.Time == "" {
			return Keyframe{}, errors.Wrap(ErrMissingAttribute, "log_seek keyframe needs time")
		}
		if k.LogSeek, err = ParseLogTime(d.Time); err != nil {
			return Keyframe{}, err
		}

	case CamPose:
		pose, err := camPose(d)
		if err != nil {
			return Keyframe{}, err
		}
		k.CamPose = pose
	}

	return k, nil
}

func camPose(d Description) (geom.Pose, error) {
	s := d.CamPose
	if s == "" {
		s = d.Pose
	}
	if s == "" {
		return geom.Pose{}, errors.Wrapf(ErrMissingAttribute, "%s keyframe needs cam_pose", d.Type)
	}
	p, err := geom.ParsePose(s)
	if err != nil {
		return geom.Pose{}, errors.Wrap(err, "cam_pose")
	}
	return p, nil
}

// ParseLogTime reads a log time written as "sec nsec", as decimal seconds,
// or as a Go duration such as "1m30s".
func ParseLogTime(s string) (time.Duration, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 2:
		sec, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "time %q", s)
		}
		nsec, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "time %q", s)
		}
		return time.Duration(sec)*time.Second + time.Duration(nsec), nil
	case 1:
		if secs, err := strconv.ParseFloat(fields[0], 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		d, err := time.ParseDuration(fields[0])
		if err != nil {
			return 0, errors.Wrapf(err, "time %q", s)
		}
		return d, nil
	}
	return 0, errors.Errorf("time %q: want \"sec nsec\", seconds or a duration", s)
}

// Describe is the inverse of Parse, used when writing presentation files.
func Describe(k Keyframe) Description {
	d := Description{Type: k.Type.String(), Visual: k.Visual}
	if k.Type.IsLookAt() && k.Slide >= 0 {
		d.Number = strconv.Itoa(k.Slide)
	}
	if !k.EyeOffset.IsZero() {
		d.EyeOffset = k.EyeOffset.String()
	}
	if k.Type == CamPose || k.Type == LogSeek {
		d.CamPose = k.CamPose.String()
	}
	if k.Type == LogSeek {
		d.Time = k.LogSeek.String()
	}
	d.Text = unescapeText(k.Text)
	return d
}

var textUnescaper = strings.NewReplacer("&lt;", "<<", "&gt;", ">>")

func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}
