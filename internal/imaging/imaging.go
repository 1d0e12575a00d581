// Package imaging re-encodes user-selected pictures into bounded JPEG data URLs.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const DataURLPrefix = "data:image/jpeg;base64,"

// ErrDecode is returned when the input is not a decodable bitmap.
var ErrDecode = errors.New("failed to decode image")

// Options управляют размером и качеством результата
type Options struct {
	MaxWidth int
	// Quality in (0, 1], as accepted by canvas.toDataURL.
	Quality float64
}

var DefaultOptions = Options{MaxWidth: 800, Quality: 0.7}

// Compress decodes r, scales it down to MaxWidth keeping the aspect ratio, flattens
// transparency onto white and returns the JPEG as a data URL. Narrower images keep their size.
func Compress(r io.Reader, opts Options) (string, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := src.Bounds()
	width, height := targetSize(bounds.Dx(), bounds.Dy(), opts.MaxWidth)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality(opts.Quality)}); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return DataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// CompressFile opens path on fs and compresses it. The returned name is the base file name.
func CompressFile(fs afero.Fs, path string, opts Options) (dataURL, name string, err error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	dataURL, err = Compress(f, opts)
	if err != nil {
		return "", "", fmt.Errorf("failed to compress %s: %w", path, err)
	}
	return dataURL, filepath.Base(path), nil
}

func targetSize(width, height, maxWidth int) (int, int) {
	if maxWidth <= 0 || width <= maxWidth {
		return width, height
	}
	scaled := int(math.Round(float64(height) * float64(maxWidth) / float64(width)))
	if scaled < 1 {
		scaled = 1
	}
	return maxWidth, scaled
}

func jpegQuality(q float64) int {
	if q <= 0 || q > 1 {
		q = DefaultOptions.Quality
	}
	quality := int(math.Round(q * 100))
	if quality < 1 {
		return 1
	}
	return quality
}
