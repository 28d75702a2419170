// Package config reads presentation files and holds the runtime options of
// the presenter.
package config

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/simslides/internal/keyframe"
)

// ErrNoPresentation is returned for a world file without a presentation
// plugin block.
var ErrNoPresentation = errors.New("no presentation plugin found")

// Presentation is the content of a presentation file: the slide naming,
// optional camera clip planes and the keyframes in presentation order.
type Presentation struct {
	XMLName  xml.Name `xml:"plugin" yaml:"-"`
	Filename string   `xml:"filename,attr,omitempty" yaml:"-"`
	Name     string   `xml:"name,attr,omitempty" yaml:"-"`

	SlidePrefix string                 `xml:"slide_prefix" yaml:"slide_prefix"`
	NearClip    *float64               `xml:"near_clip,omitempty" yaml:"near_clip,omitempty"`
	FarClip     *float64               `xml:"far_clip,omitempty" yaml:"far_clip,omitempty"`
	Keyframes   []keyframe.Description `xml:"keyframe" yaml:"keyframes"`
}

// ClipPlanes returns the near and far clip distances. ok is false unless
// both are set.
func (p *Presentation) ClipPlanes() (near, far float64, ok bool) {
	if p.NearClip == nil || p.FarClip == nil {
		return 0, 0, false
	}
	return *p.NearClip, *p.FarClip, true
}

// worldFile is the part of an SDF world that can carry a presentation.
type worldFile struct {
	Worlds []struct {
		GUI []guiBlock `xml:"gui"`
	} `xml:"world"`
}

type guiBlock struct {
	Plugins []Presentation `xml:"plugin"`
}

// ParseXML reads a presentation from XML. The root may be the <plugin>
// element itself, a <gui> block, or a whole <sdf> world; in the last two
// cases the first plugin with keyframes or a slide prefix is used.
func ParseXML(data []byte) (*Presentation, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, errors.Wrap(ErrNoPresentation, "empty document")
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read XML")
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "plugin":
			var p Presentation
			if err := dec.DecodeElement(&p, &start); err != nil {
				return nil, errors.Wrap(err, "failed to decode plugin")
			}
			return &p, nil
		case "gui":
			var g guiBlock
			if err := dec.DecodeElement(&g, &start); err != nil {
				return nil, errors.Wrap(err, "failed to decode gui")
			}
			return pick([]guiBlock{g})
		case "sdf":
			var w worldFile
			if err := dec.DecodeElement(&w, &start); err != nil {
				return nil, errors.Wrap(err, "failed to decode world")
			}
			var guis []guiBlock
			for _, world := range w.Worlds {
				guis = append(guis, world.GUI...)
			}
			return pick(guis)
		default:
			return nil, errors.Errorf("unexpected root element <%s>", start.Name.Local)
		}
	}
}

func pick(guis []guiBlock) (*Presentation, error) {
	for _, g := range guis {
		for i := range g.Plugins {
			p := g.Plugins[i]
			if p.SlidePrefix != "" || len(p.Keyframes) > 0 {
				return &p, nil
			}
		}
	}
	return nil, ErrNoPresentation
}

// ParseYAML reads a presentation from YAML.
func ParseYAML(data []byte) (*Presentation, error) {
	var p Presentation
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML")
	}
	return &p, nil
}

// Load reads a presentation file. Files ending in .yaml or .yml are YAML,
// anything else is XML.
func Load(path string) (*Presentation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var p *Presentation
	if isYAML(path) {
		p, err = ParseYAML(data)
	} else {
		p, err = ParseXML(data)
	}
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return p, nil
}

// Normalized returns a copy of p whose keyframes are ks written back in
// their canonical form. Keyframes that failed to parse are thereby dropped.
func (p *Presentation) Normalized(ks []keyframe.Keyframe) *Presentation {
	out := *p
	out.Keyframes = make([]keyframe.Description, len(ks))
	for i, k := range ks {
		out.Keyframes[i] = keyframe.Describe(k)
	}
	return &out
}

// WriteYAML writes p to path as YAML.
func WriteYAML(p *Presentation, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// StackMode selects how the inactive members of a stack are shown.
type StackMode string

const (
	StackHide   StackMode = "hide"
	StackShrink StackMode = "shrink"
)

// Options are the runtime settings of the presenter, filled from the
// command line.
type Options struct {
	LogLevel   zapcore.Level
	ListenAddr string
	StackMode  StackMode
	// TweenDuration is how long a camera move takes.
	TweenDuration time.Duration
	// TickRate is how often the render loop runs.
	TickRate time.Duration
	Watch    bool
	Headless bool
}

// DefaultOptions returns the options used when no flag overrides them.
func DefaultOptions() Options {
	return Options{
		LogLevel:      zapcore.InfoLevel,
		ListenAddr:    "127.0.0.1:8765",
		StackMode:     StackHide,
		TweenDuration: time.Second,
		TickRate:      time.Second / 30,
	}
}

// Validate checks the options for values the presenter cannot use.
func (o Options) Validate() error {
	switch o.StackMode {
	case StackHide, StackShrink:
	default:
		return errors.Errorf("unknown stack mode %q", o.StackMode)
	}
	if o.TweenDuration < 0 {
		return errors.Errorf("negative tween duration %s", o.TweenDuration)
	}
	if o.TickRate <= 0 {
		return errors.Errorf("tick rate must be positive, got %s", o.TickRate)
	}
	return nil
}
