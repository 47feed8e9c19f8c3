package extract

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

type fitzSource struct {
	doc *fitz.Document
}

var _ Source = (*fitzSource)(nil)

func openFitz(path string) (Source, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &fitzSource{doc: doc}, nil
}

func (s *fitzSource) NumPages() int {
	return s.doc.NumPage()
}

func (s *fitzSource) Text(page int) (string, error) {
	return s.doc.Text(page)
}

func (s *fitzSource) Image(page int) (image.Image, error) {
	return s.doc.Image(page)
}

func (s *fitzSource) Close() error {
	return s.doc.Close()
}
