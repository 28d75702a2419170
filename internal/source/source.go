// Package source reads the pages that become slides, from a PDF or from a
// directory of images.
package source

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pkg/errors"
)

// ErrPageRange is returned for a page index outside the source.
var ErrPageRange = errors.New("page out of range")

// Source is an ordered set of pages.
type Source interface {
	PageCount() int
	// PageSize is the page size in points for PDFs and pixels for images.
	PageSize(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open returns a PDF source for a .pdf file and an image source otherwise.
func Open(path string) (Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewPDFSource(path)
	}
	return NewImageSource(path)
}

// PDFSource renders PDF pages with MuPDF.
type PDFSource struct {
	doc  *fitz.Document
	path string
}

// NewPDFSource opens the PDF at path.
func NewPDFSource(path string) (*PDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return &PDFSource{doc: doc, path: path}, nil
}

func (s *PDFSource) PageCount() int {
	return s.doc.NumPage()
}

func (s *PDFSource) PageSize(index int) (float64, float64, error) {
	if index < 0 || index >= s.doc.NumPage() {
		return 0, 0, errors.Wrapf(ErrPageRange, "page %d", index)
	}
	rect, err := s.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

// RenderPage rasterizes a page. A MuPDF document must not be shared
// between goroutines, so each call opens its own.
func (s *PDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	if index < 0 || index >= s.doc.NumPage() {
		return nil, errors.Wrapf(ErrPageRange, "page %d", index)
	}
	doc, err := fitz.New(s.path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	img, err := doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to render page %d", index)
	}
	return img, nil
}

func (s *PDFSource) Close() error {
	return s.doc.Close()
}
