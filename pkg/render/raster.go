package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// JPEG output quality for final certificates.
const jpegQuality = 95

// RasterConverter renders the first page of a fixed-layout document to a
// raster image at the requested resolution.
type RasterConverter interface {
	Rasterize(ctx context.Context, document []byte, encoding string, dpi int) ([]byte, error)
}

// RasterError reports a conversion failure. A document with zero pages is a
// pipeline bug, not a user error; fatal either way.
type RasterError struct {
	Err error
}

func (e *RasterError) Error() string {
	return fmt.Sprintf("raster conversion failed: %v", e.Err)
}

func (e *RasterError) Unwrap() error { return e.Err }

// FitzConverter rasterizes PDF documents with MuPDF.
type FitzConverter struct{}

func NewRasterConverter() *FitzConverter {
	return &FitzConverter{}
}

func (c *FitzConverter) Rasterize(ctx context.Context, document []byte, encoding string, dpi int) ([]byte, error) {
	doc, err := fitz.NewFromMemory(document)
	if err != nil {
		return nil, &RasterError{Err: err}
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, &RasterError{Err: errors.New("document produced zero pages")}
	}

	img, err := doc.ImageDPI(0, float64(dpi))
	if err != nil {
		return nil, &RasterError{Err: err}
	}
	return EncodeImage(img, encoding)
}

// EncodeImage encodes an image as png or jpg/jpeg. PNG keeps the alpha
// channel; JPEG has none, so the image is flattened against an opaque white
// background first.
func EncodeImage(img image.Image, encoding string) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(encoding) {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, &RasterError{Err: err}
		}
	case "jpg", "jpeg":
		if err := jpeg.Encode(&buf, flattenAlpha(img), &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, &RasterError{Err: err}
		}
	default:
		return nil, &RasterError{Err: fmt.Errorf("unsupported raster encoding %q", encoding)}
	}
	return buf.Bytes(), nil
}

func flattenAlpha(img image.Image) image.Image {
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return flat
}
