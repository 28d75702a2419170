package scene

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ivlev/simslides/internal/geom"
)

// ModelPathEnv lists extra model directories, separated by colons.
const ModelPathEnv = "GAZEBO_MODEL_PATH"

type worldSDF struct {
	World struct {
		Name string `xml:"name,attr"`
		GUI  struct {
			Camera struct {
				Pose string `xml:"pose"`
			} `xml:"camera"`
		} `xml:"gui"`
		Includes []includeSDF `xml:"include"`
		Models   []modelSDF   `xml:"model"`
	} `xml:"world"`
}

type includeSDF struct {
	Name string `xml:"name"`
	Pose string `xml:"pose"`
	URI  string `xml:"uri"`
}

type modelFile struct {
	Model modelSDF `xml:"model"`
}

type modelSDF struct {
	Name  string `xml:"name,attr"`
	Pose  string `xml:"pose"`
	Links []struct {
		Name    string `xml:"name,attr"`
		Pose    string `xml:"pose"`
		Visuals []struct {
			Name     string `xml:"name,attr"`
			Pose     string `xml:"pose"`
			Geometry struct {
				Box *struct {
					Size string `xml:"size"`
				} `xml:"box"`
			} `xml:"geometry"`
		} `xml:"visual"`
	} `xml:"link"`
}

// LoadWorld adds the visuals of a world file to the scene: its inline
// models and every included model found next to the world file, in
// modelPaths or in ModelPathEnv. Includes whose model cannot be found are
// skipped. A camera pose in the world's gui block becomes the initial
// camera pose. It returns the number of visuals added.
func (s *Scene) LoadWorld(path string, modelPaths ...string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read world %s", path)
	}
	var w worldSDF
	if err := xml.Unmarshal(data, &w); err != nil {
		return 0, errors.Wrapf(err, "failed to parse world %s", path)
	}

	if p := strings.TrimSpace(w.World.GUI.Camera.Pose); p != "" {
		pose, err := geom.ParsePose(p)
		if err != nil {
			return 0, errors.Wrap(err, "gui camera")
		}
		s.SetInitialCameraPose(pose)
	}

	search := append([]string{filepath.Dir(path)}, modelPaths...)
	if env := os.Getenv(ModelPathEnv); env != "" {
		search = append(search, filepath.SplitList(env)...)
	}

	added := 0
	var errs error
	for _, m := range w.World.Models {
		n, err := s.addModel(m, "", geom.Pose{})
		added += n
		errs = multierr.Append(errs, err)
	}

	for _, inc := range w.World.Includes {
		dir, ok := resolveModel(inc.URI, search)
		if !ok {
			s.logger.Debugw("skipping include", "uri", inc.URI)
			continue
		}
		m, err := readModel(dir)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		pose, err := parseOptionalPose(inc.Pose)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "include %s", inc.URI))
			continue
		}
		n, err := s.addModel(m, strings.TrimSpace(inc.Name), pose)
		added += n
		errs = multierr.Append(errs, err)
	}

	s.logger.Infow("world loaded", "path", path, "world", w.World.Name, "visuals", added)
	return added, errs
}

// addModel adds the visuals of m. A non-empty name overrides the model
// name and a non-zero pose the model pose, as an <include> does.
func (s *Scene) addModel(m modelSDF, name string, pose geom.Pose) (int, error) {
	if name == "" {
		name = m.Name
	}
	modelPose := pose
	if pose.IsZero() {
		var err error
		if modelPose, err = parseOptionalPose(m.Pose); err != nil {
			return 0, errors.Wrapf(err, "model %s", name)
		}
	}

	added := 0
	for _, l := range m.Links {
		linkPose, err := parseOptionalPose(l.Pose)
		if err != nil {
			return added, errors.Wrapf(err, "link %s::%s", name, l.Name)
		}
		for _, v := range l.Visuals {
			scoped := name + "::" + l.Name + "::" + v.Name
			visualPose, err := parseOptionalPose(v.Pose)
			if err != nil {
				return added, errors.Wrapf(err, "visual %s", scoped)
			}
			var size r3.Vector
			if v.Geometry.Box != nil {
				if size, err = parseSize(v.Geometry.Box.Size); err != nil {
					return added, errors.Wrapf(err, "visual %s", scoped)
				}
			}
			world := geom.Compose(geom.Compose(modelPose, linkPose), visualPose)
			s.AddVisual(scoped, world, size)
			added++
		}
	}
	return added, nil
}

func resolveModel(uri string, search []string) (string, bool) {
	name, ok := strings.CutPrefix(strings.TrimSpace(uri), "model://")
	if !ok || name == "" {
		return "", false
	}
	for _, dir := range search {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(filepath.Join(candidate, "model.sdf")); err == nil {
			return candidate, true
		}
	}
	return "", false
}

func readModel(dir string) (modelSDF, error) {
	path := filepath.Join(dir, "model.sdf")
	data, err := os.ReadFile(path)
	if err != nil {
		return modelSDF{}, err
	}
	var f modelFile
	if err := xml.Unmarshal(data, &f); err != nil {
		return modelSDF{}, errors.Wrapf(err, "failed to parse %s", path)
	}
	return f.Model, nil
}

func parseOptionalPose(s string) (geom.Pose, error) {
	if strings.TrimSpace(s) == "" {
		return geom.Pose{}, nil
	}
	return geom.ParsePose(s)
}

func parseSize(s string) (r3.Vector, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return r3.Vector{}, errors.Errorf("box size %q: want 3 values", s)
	}
	var v [3]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return r3.Vector{}, errors.Wrapf(err, "box size %q", s)
		}
		v[i] = x
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}
