package loaders

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // JPEG decoder
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ToRGBA wraps a width*height RGBA8 render buffer as an image without copying
func ToRGBA(buffer []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(buffer) != width*height*4 {
		return nil, fmt.Errorf("buffer of %d bytes does not hold a %dx%d image", len(buffer), width, height)
	}
	return &image.RGBA{
		Pix:    buffer,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}

// EncodeImage writes img in the format named by ext (".png", ".bmp", ".tif" or ".tiff")
func EncodeImage(w io.Writer, img image.Image, ext string) error {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Encode(w, img)
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("image extension %q: %w", ext, ErrUnknownFormat)
	}
}

// SaveImage writes a render buffer to filename, picking the encoder from its extension
func SaveImage(filename string, buffer []byte, width, height int) error {
	img, err := ToRGBA(buffer, width, height)
	if err != nil {
		return err
	}

	ext := filepath.Ext(filename)
	if err := checkImageExt(ext); err != nil {
		return err
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	if err := EncodeImage(file, img, ext); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return file.Close()
}

// checkImageExt validates ext before any file is created
func checkImageExt(ext string) error {
	switch strings.ToLower(ext) {
	case ".png", ".bmp", ".tif", ".tiff":
		return nil
	default:
		return fmt.Errorf("image extension %q: %w", ext, ErrUnknownFormat)
	}
}

// LoadImage decodes a PNG, JPEG, BMP or TIFF file into an RGBA8 buffer
func LoadImage(filename string) ([]byte, int, int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	// Decode image (auto-detects the format from the file header)
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			rgba.Set(x, y, color.RGBAModel.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)))
		}
	}

	return rgba.Pix, width, height, nil
}
