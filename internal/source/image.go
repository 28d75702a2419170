package source

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ImageSource treats each image file of a directory as a page, in name
// order. A single file is a one page source.
type ImageSource struct {
	paths []string
}

// NewImageSource lists the JPEG and PNG files at path.
func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !fi.IsDir() {
		return &ImageSource{paths: []string{path}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(path, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no images in %s", path)
	}
	sort.Strings(paths)
	return &ImageSource{paths: paths}, nil
}

func (s *ImageSource) PageCount() int {
	return len(s.paths)
}

func (s *ImageSource) PageSize(index int) (float64, float64, error) {
	if index < 0 || index >= len(s.paths) {
		return 0, 0, errors.Wrapf(ErrPageRange, "page %d", index)
	}
	f, err := os.Open(s.paths[index])
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, errors.Wrap(err, s.paths[index])
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

// RenderPage decodes the image; dpi is ignored.
func (s *ImageSource) RenderPage(index int, _ int) (image.Image, error) {
	if index < 0 || index >= len(s.paths) {
		return nil, errors.Wrapf(ErrPageRange, "page %d", index)
	}
	f, err := os.Open(s.paths[index])
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, s.paths[index])
	}
	return img, nil
}

func (s *ImageSource) Close() error {
	return nil
}
