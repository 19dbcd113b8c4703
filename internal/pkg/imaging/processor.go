package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/apperror"
)

const (
	// DefaultResolution is used when an image carries no resolution metadata.
	DefaultResolution = 96.0

	// DefaultQuality matches the default quality of common JPEG encoders.
	DefaultQuality = 75

	// ContentTypeJPEG is the content type of every normalized image.
	ContentTypeJPEG = "image/jpeg"

	cmPerInch = 2.54
)

// Size is a physical length pair in centimetres.
type Size struct {
	WidthCM  float64 `yaml:"width_cm" json:"width_cm"`
	HeightCM float64 `yaml:"height_cm" json:"height_cm"`
}

// Valid reports whether both lengths are strictly positive and finite.
func (s Size) Valid() bool {
	return s.WidthCM > 0 && s.HeightCM > 0 &&
		!math.IsInf(s.WidthCM, 0) && !math.IsInf(s.HeightCM, 0)
}

func (s Size) String() string {
	return fmt.Sprintf("%gx%gcm", s.WidthCM, s.HeightCM)
}

// Asset is an uploaded photograph. Resolution, when positive, overrides the
// resolution embedded in Data.
type Asset struct {
	Name       string
	Data       []byte
	Resolution float64
}

// NormalizedImage is a photograph resized for a physical size and re-encoded as JPEG.
type NormalizedImage struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Resolution  float64
	Size        Size
}

// Config for image normalization
type Config struct {
	DefaultResolution float64 // dots per inch when metadata is absent (default 96)
	Quality           int     // JPEG quality 1-100 (default 75)
}

// DefaultConfig returns default normalization config
func DefaultConfig() Config {
	return Config{
		DefaultResolution: DefaultResolution,
		Quality:           DefaultQuality,
	}
}

// Normalizer resizes photographs to a physical size using their resolution metadata.
type Normalizer struct {
	config Config
	spool  Spool
}

// NewNormalizer creates a normalizer. A nil spool keeps scratch buffers in memory.
func NewNormalizer(config Config, spool Spool) *Normalizer {
	if config.DefaultResolution <= 0 {
		config.DefaultResolution = DefaultResolution
	}
	if config.Quality < 1 || config.Quality > 100 {
		config.Quality = DefaultQuality
	}
	if spool == nil {
		spool = MemorySpool{}
	}
	return &Normalizer{config: config, spool: spool}
}

// PixelLength converts a physical length to pixels at the given resolution.
// Lengths that round to zero pixels are raised to one.
func PixelLength(cm, dpi float64) int {
	px := int(math.Round(cm / cmPerInch * dpi))
	if px < 1 {
		return 1
	}
	return px
}

// Resolution returns the horizontal resolution used for an asset: the explicit
// override, then embedded metadata, then the configured default.
func (n *Normalizer) Resolution(asset Asset) float64 {
	if asset.Resolution > 0 && !math.IsInf(asset.Resolution, 0) {
		return asset.Resolution
	}
	if dpi, ok := ReadResolution(asset.Data); ok {
		return dpi
	}
	return n.config.DefaultResolution
}

// Normalize decodes asset, resizes it to size and re-encodes it as JPEG.
// The same horizontal resolution is applied to both axes.
func (n *Normalizer) Normalize(ctx context.Context, asset Asset, size Size) (out *NormalizedImage, err error) {
	if !size.Valid() {
		return nil, apperror.New(apperror.KindValidation, "normalize",
			fmt.Sprintf("target size must be positive, got %s", size))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dpi := n.Resolution(asset)
	width := PixelLength(size.WidthCM, dpi)
	height := PixelLength(size.HeightCM, dpi)

	img, err := imaging.Decode(bytes.NewReader(asset.Data))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindDecode, "normalize",
			fmt.Sprintf("failed to decode image %q", asset.Name), err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resized := flatten(imaging.Resize(img, width, height, imaging.Lanczos))

	buf, err := n.spool.Acquire()
	if err != nil {
		return nil, apperror.Wrap(apperror.KindResource, "normalize", "failed to acquire scratch buffer", err)
	}
	defer func() {
		if relErr := buf.Release(); relErr != nil && err == nil {
			out = nil
			err = apperror.Wrap(apperror.KindResource, "normalize", "failed to release scratch buffer", relErr)
		}
	}()

	if err := imaging.Encode(buf, resized, imaging.JPEG, imaging.JPEGQuality(n.config.Quality)); err != nil {
		return nil, apperror.Wrap(apperror.KindEncode, "normalize",
			fmt.Sprintf("failed to encode image %q", asset.Name), err)
	}

	data, err := buf.Bytes()
	if err != nil {
		return nil, apperror.Wrap(apperror.KindResource, "normalize", "failed to read scratch buffer", err)
	}

	return &NormalizedImage{
		Data:        data,
		ContentType: ContentTypeJPEG,
		Width:       width,
		Height:      height,
		Resolution:  dpi,
		Size:        size,
	}, nil
}

// flatten composites img over an opaque white background so transparent
// regions do not turn black in the JPEG output.
func flatten(img *image.NRGBA) *image.NRGBA {
	if img.Opaque() {
		return img
	}
	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}
