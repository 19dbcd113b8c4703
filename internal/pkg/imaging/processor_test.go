package imaging

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/apperror"
)

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

// withPHYs inserts a pHYs chunk right after IHDR.
func withPHYs(data []byte, x, y uint32, unit byte) []byte {
	payload := make([]byte, 9)
	binary.BigEndian.PutUint32(payload[0:4], x)
	binary.BigEndian.PutUint32(payload[4:8], y)
	payload[8] = unit

	chunk := make([]byte, 0, 21)
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(payload)))
	typed := append([]byte("pHYs"), payload...)
	chunk = append(chunk, typed...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(typed))

	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	out := append([]byte{}, data[:ihdrEnd]...)
	out = append(out, chunk...)
	return append(out, data[ihdrEnd:]...)
}

// withSegment inserts a marker segment right after SOI.
func withSegment(data []byte, marker byte, payload []byte) []byte {
	segment := []byte{0xFF, marker}
	segment = binary.BigEndian.AppendUint16(segment, uint16(len(payload)+2))
	segment = append(segment, payload...)

	out := append([]byte{}, data[:2]...)
	out = append(out, segment...)
	return append(out, data[2:]...)
}

func withJFIF(data []byte, unit byte, x, y uint16) []byte {
	payload := append([]byte("JFIF\x00"), 1, 1, unit)
	payload = binary.BigEndian.AppendUint16(payload, x)
	payload = binary.BigEndian.AppendUint16(payload, y)
	payload = append(payload, 0, 0)
	return withSegment(data, 0xE0, payload)
}

// withExif inserts a minimal big-endian EXIF block carrying IFD0
// XResolution and ResolutionUnit.
func withExif(data []byte, num, den uint32, unit uint16) []byte {
	tiff := []byte{'M', 'M', 0x00, 0x2A}
	tiff = binary.BigEndian.AppendUint32(tiff, 8)
	tiff = binary.BigEndian.AppendUint16(tiff, 2)

	// XResolution, RATIONAL, value at offset 38
	tiff = binary.BigEndian.AppendUint16(tiff, 0x011A)
	tiff = binary.BigEndian.AppendUint16(tiff, 5)
	tiff = binary.BigEndian.AppendUint32(tiff, 1)
	tiff = binary.BigEndian.AppendUint32(tiff, 38)

	// ResolutionUnit, SHORT, inline
	tiff = binary.BigEndian.AppendUint16(tiff, 0x0128)
	tiff = binary.BigEndian.AppendUint16(tiff, 3)
	tiff = binary.BigEndian.AppendUint32(tiff, 1)
	tiff = binary.BigEndian.AppendUint16(tiff, unit)
	tiff = binary.BigEndian.AppendUint16(tiff, 0)

	tiff = binary.BigEndian.AppendUint32(tiff, 0)
	tiff = binary.BigEndian.AppendUint32(tiff, num)
	tiff = binary.BigEndian.AppendUint32(tiff, den)

	return withSegment(data, 0xE1, append([]byte("Exif\x00\x00"), tiff...))
}

func decodedSize(t *testing.T, data []byte) (int, int, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	return cfg.Width, cfg.Height, format
}

func TestPixelLength(t *testing.T) {
	tests := []struct {
		name       string
		dpi        float64
		size       Size
		wantWidth  int
		wantHeight int
	}{
		{"default 96 dpi", 96, Size{5, 4}, 189, 151},
		{"300 dpi", 300, Size{5, 4}, 591, 472},
		{"72 dpi", 72, Size{5, 4}, 142, 113},
		{"150 dpi custom size", 150, Size{10, 7.5}, 591, 443},
		{"tiny length raised to one pixel", 96, Size{0.001, 0.001}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := PixelLength(tt.size.WidthCM, tt.dpi)
			h := PixelLength(tt.size.HeightCM, tt.dpi)
			if w != tt.wantWidth || h != tt.wantHeight {
				t.Fatalf("PixelLength = %dx%d, want %dx%d", w, h, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestReadResolution(t *testing.T) {
	img := solidImage(8, 6, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	plainPNG := encodePNG(t, img)
	plainJPEG := encodeJPEG(t, img)

	tests := []struct {
		name   string
		data   []byte
		want   float64
		wantOK bool
	}{
		{"png without pHYs", plainPNG, 0, false},
		{"png pHYs per metre", withPHYs(plainPNG, 11811, 11811, 1), 299.9994, true},
		{"png pHYs unknown unit", withPHYs(plainPNG, 11811, 11811, 0), 0, false},
		{"png pHYs zero density", withPHYs(plainPNG, 0, 0, 1), 0, false},
		{"jpeg without metadata", plainJPEG, 0, false},
		{"jpeg jfif dpi", withJFIF(plainJPEG, 1, 300, 300), 300, true},
		{"jpeg jfif dots per cm", withJFIF(plainJPEG, 2, 118, 118), 299.72, true},
		{"jpeg jfif aspect only", withJFIF(plainJPEG, 0, 1, 1), 0, false},
		{"jpeg exif inch", withExif(plainJPEG, 300, 1, 2), 300, true},
		{"jpeg exif centimetre", withExif(plainJPEG, 118, 1, 3), 299.72, true},
		{"jpeg exif zero denominator", withExif(plainJPEG, 300, 0, 2), ExifFallbackResolution, true},
		{"jfif wins over exif", withJFIF(withExif(plainJPEG, 300, 1, 2), 1, 150, 150), 150, true},
		{"jfif aspect only falls back to exif", withJFIF(withExif(plainJPEG, 240, 1, 2), 0, 1, 1), 240, true},
		{"not an image", []byte("plain text"), 0, false},
		{"empty", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReadResolution(tt.data)
			if ok != tt.wantOK {
				t.Fatalf("ReadResolution ok = %v, want %v (value %v)", ok, tt.wantOK, got)
			}
			if math.Abs(got-tt.want) > 0.001 {
				t.Fatalf("ReadResolution = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize_Dimensions(t *testing.T) {
	img := solidImage(40, 30, color.NRGBA{R: 20, G: 120, B: 200, A: 255})
	plainPNG := encodePNG(t, img)
	plainJPEG := encodeJPEG(t, img)

	tests := []struct {
		name       string
		asset      Asset
		size       Size
		wantWidth  int
		wantHeight int
		wantDPI    float64
	}{
		{"png without metadata uses 96", Asset{Name: "a.png", Data: plainPNG}, Size{5, 4}, 189, 151, 96},
		{"jpeg without metadata uses 96", Asset{Name: "a.jpg", Data: plainJPEG}, Size{5, 4}, 189, 151, 96},
		{"jfif 300 dpi", Asset{Name: "b.jpg", Data: withJFIF(plainJPEG, 1, 300, 300)}, Size{5, 4}, 591, 472, 300},
		{"exif 72 dpi", Asset{Name: "c.jpg", Data: withExif(plainJPEG, 72, 1, 2)}, Size{5, 4}, 142, 113, 72},
		{"explicit resolution wins", Asset{Name: "d.jpg", Data: withJFIF(plainJPEG, 1, 300, 300), Resolution: 150}, Size{10, 7.5}, 591, 443, 150},
		{
			"horizontal resolution used for both axes",
			Asset{Name: "e.png", Data: withPHYs(plainPNG, 11811, 3780, 1)},
			Size{5, 4}, 591, 472, 299.9994,
		},
	}

	n := NewNormalizer(DefaultConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := n.Normalize(context.Background(), tt.asset, tt.size)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if out.Width != tt.wantWidth || out.Height != tt.wantHeight {
				t.Fatalf("size = %dx%d, want %dx%d", out.Width, out.Height, tt.wantWidth, tt.wantHeight)
			}
			if math.Abs(out.Resolution-tt.wantDPI) > 0.001 {
				t.Fatalf("resolution = %v, want %v", out.Resolution, tt.wantDPI)
			}
			if out.ContentType != ContentTypeJPEG {
				t.Fatalf("content type = %q", out.ContentType)
			}
			if out.Size != tt.size {
				t.Fatalf("physical size = %v, want %v", out.Size, tt.size)
			}

			w, h, format := decodedSize(t, out.Data)
			if format != "jpeg" || w != tt.wantWidth || h != tt.wantHeight {
				t.Fatalf("encoded = %s %dx%d, want jpeg %dx%d", format, w, h, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestNormalize_ConfiguredDefaultResolution(t *testing.T) {
	data := encodePNG(t, solidImage(10, 10, color.Black))
	n := NewNormalizer(Config{DefaultResolution: 300, Quality: 90}, nil)

	out, err := n.Normalize(context.Background(), Asset{Name: "x.png", Data: data}, Size{5, 4})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.Width != 591 || out.Height != 472 {
		t.Fatalf("size = %dx%d, want 591x472", out.Width, out.Height)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	data := encodePNG(t, solidImage(33, 21, color.NRGBA{R: 90, G: 90, B: 30, A: 255}))
	n := NewNormalizer(DefaultConfig(), nil)

	first, err := n.Normalize(context.Background(), Asset{Name: "x.png", Data: data}, Size{5, 4})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	second, err := n.Normalize(context.Background(), Asset{Name: "x.png", Data: data}, Size{5, 4})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Fatal("normalizing the same asset twice produced different bytes")
	}
}

func TestNormalize_DecodeError(t *testing.T) {
	n := NewNormalizer(DefaultConfig(), nil)

	_, err := n.Normalize(context.Background(), Asset{Name: "broken.jpg", Data: []byte("not an image")}, Size{5, 4})
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperror.IsKind(err, apperror.KindDecode) {
		t.Fatalf("kind = %q, want decode (%v)", apperror.KindOf(err), err)
	}
}

func TestNormalize_InvalidSize(t *testing.T) {
	n := NewNormalizer(DefaultConfig(), nil)
	data := encodePNG(t, solidImage(4, 4, color.White))

	for _, size := range []Size{{0, 4}, {5, 0}, {-1, 4}, {5, math.NaN()}} {
		_, err := n.Normalize(context.Background(), Asset{Name: "x.png", Data: data}, size)
		if !apperror.IsKind(err, apperror.KindValidation) {
			t.Errorf("size %v: kind = %q, want validation", size, apperror.KindOf(err))
		}
	}
}

func TestNormalize_Cancelled(t *testing.T) {
	n := NewNormalizer(DefaultConfig(), nil)
	data := encodePNG(t, solidImage(4, 4, color.White))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := n.Normalize(ctx, Asset{Name: "x.png", Data: data}, Size{5, 4})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNormalize_TransparencyFlattenedToWhite(t *testing.T) {
	data := encodePNG(t, solidImage(20, 20, color.NRGBA{}))
	n := NewNormalizer(DefaultConfig(), nil)

	out, err := n.Normalize(context.Background(), Asset{Name: "clear.png", Data: data}, Size{1, 1})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("jpeg.Decode: %v", err)
	}
	r, g, b, _ := img.At(img.Bounds().Dx()/2, img.Bounds().Dy()/2).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Fatalf("center pixel = (%d,%d,%d), want near white", r>>8, g>>8, b>>8)
	}
}

func TestNormalize_DiskSpoolReleasesScratch(t *testing.T) {
	dir := t.TempDir()
	n := NewNormalizer(DefaultConfig(), NewDiskSpool(dir))
	data := encodeJPEG(t, solidImage(16, 12, color.NRGBA{R: 1, G: 2, B: 3, A: 255}))

	out, err := n.Normalize(context.Background(), Asset{Name: "x.jpg", Data: data}, Size{5, 4})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if w, h, _ := decodedSize(t, out.Data); w != 189 || h != 151 {
		t.Fatalf("encoded size = %dx%d, want 189x151", w, h)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch dir still holds %d file(s)", len(entries))
	}
}

func TestNormalize_DiskSpoolUnavailable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	n := NewNormalizer(DefaultConfig(), NewDiskSpool(missing))
	data := encodePNG(t, solidImage(4, 4, color.White))

	_, err := n.Normalize(context.Background(), Asset{Name: "x.png", Data: data}, Size{5, 4})
	if !apperror.IsKind(err, apperror.KindResource) {
		t.Fatalf("kind = %q, want resource (%v)", apperror.KindOf(err), err)
	}
}

func TestMemoryScratch_UseAfterRelease(t *testing.T) {
	scratch, err := MemorySpool{}.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := scratch.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := scratch.Write([]byte("x")); err == nil {
		t.Fatal("expected write after release to fail")
	}
}
