package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func decodeDataURL(t *testing.T, dataURL string) image.Image {
	t.Helper()
	if !strings.HasPrefix(dataURL, DataURLPrefix) {
		t.Fatalf("expected jpeg data URL, but got prefix '%.30s'", dataURL)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, DataURLPrefix))
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to decode jpeg: %v", err)
	}
	return img
}

func TestCompress(t *testing.T) {
	tests := []struct {
		name           string
		width, height  int
		opts           Options
		expectedWidth  int
		expectedHeight int
	}{
		{name: "wide_image_scaled", width: 1600, height: 400, opts: DefaultOptions, expectedWidth: 800, expectedHeight: 200},
		{name: "narrow_image_kept", width: 120, height: 90, opts: DefaultOptions, expectedWidth: 120, expectedHeight: 90},
		{name: "exact_width_kept", width: 800, height: 600, opts: DefaultOptions, expectedWidth: 800, expectedHeight: 600},
		{name: "odd_ratio_rounded", width: 1000, height: 333, opts: Options{MaxWidth: 500, Quality: 0.5}, expectedWidth: 500, expectedHeight: 167},
		{name: "no_limit", width: 1200, height: 10, opts: Options{Quality: 0.9}, expectedWidth: 1200, expectedHeight: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tt.width, tt.height))
			for x := 0; x < tt.width; x++ {
				src.Set(x, 0, color.RGBA{R: 200, A: 255})
			}

			dataURL, err := Compress(bytes.NewReader(encodePNG(t, src)), tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := decodeDataURL(t, dataURL).Bounds()
			if got.Dx() != tt.expectedWidth || got.Dy() != tt.expectedHeight {
				t.Errorf("expected %dx%d, but got %dx%d", tt.expectedWidth, tt.expectedHeight, got.Dx(), got.Dy())
			}
		})
	}
}

func TestCompressFlattensTransparency(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))

	dataURL, err := Compress(bytes.NewReader(encodePNG(t, src)), DefaultOptions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, g, b, _ := decodeDataURL(t, dataURL).At(8, 8).RGBA()
	if r>>8 < 245 || g>>8 < 245 || b>>8 < 245 {
		t.Errorf("expected white background, but got rgb(%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestCompressRejectsGarbage(t *testing.T) {
	_, err := Compress(strings.NewReader("definitely not an image"), DefaultOptions)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, but got %v", err)
	}
}

func TestCompressFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := image.NewRGBA(image.Rect(0, 0, 1024, 512))
	if err := afero.WriteFile(fs, "/uploads/dui-front.png", encodePNG(t, src), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	dataURL, name, err := CompressFile(fs, "/uploads/dui-front.png", DefaultOptions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "dui-front.png" {
		t.Errorf("expected name 'dui-front.png', but got '%s'", name)
	}
	if got := decodeDataURL(t, dataURL).Bounds().Dx(); got != 800 {
		t.Errorf("expected width 800, but got %d", got)
	}

	if _, _, err := CompressFile(fs, "/uploads/missing.png", DefaultOptions); err == nil {
		t.Error("expected error for missing file, but got nil")
	}
}
