package imaging

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/rwcarlsen/goexif/exif"
)

// ExifFallbackResolution is reported for JPEGs whose EXIF block exists but
// does not yield a usable horizontal resolution.
const ExifFallbackResolution = 72.0

var (
	jpegSOI      = []byte{0xFF, 0xD8}
	pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	jfifID       = []byte("JFIF\x00")
	exifID       = []byte("Exif\x00\x00")
)

// ReadResolution returns the horizontal resolution, in dots per inch, embedded
// in a JPEG (JFIF density, then EXIF) or PNG (pHYs) file. Pixel data is not decoded.
func ReadResolution(data []byte) (float64, bool) {
	switch {
	case bytes.HasPrefix(data, jpegSOI):
		return jpegResolution(data)
	case bytes.HasPrefix(data, pngSignature):
		return pngResolution(data)
	default:
		return 0, false
	}
}

func jpegResolution(data []byte) (float64, bool) {
	hasExif := false
	i := len(jpegSOI)

	for i+4 <= len(data) {
		if data[i] != 0xFF {
			break
		}
		marker := data[i+1]
		if marker == 0xFF {
			i++
			continue
		}
		// standalone markers carry no length
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD8) {
			i += 2
			continue
		}
		if marker == 0xDA || marker == 0xD9 {
			break
		}

		length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if length < 2 || i+2+length > len(data) {
			break
		}
		segment := data[i+4 : i+2+length]

		switch marker {
		case 0xE0:
			if dpi, ok := jfifResolution(segment); ok {
				return dpi, true
			}
		case 0xE1:
			if bytes.HasPrefix(segment, exifID) {
				hasExif = true
			}
		}
		i += 2 + length
	}

	if hasExif {
		return exifResolution(data), true
	}
	return 0, false
}

// jfifResolution reads the APP0 density. Unit 0 only describes an aspect ratio.
func jfifResolution(segment []byte) (float64, bool) {
	if !bytes.HasPrefix(segment, jfifID) || len(segment) < 12 {
		return 0, false
	}
	density := float64(binary.BigEndian.Uint16(segment[8:10]))

	var dpi float64
	switch segment[7] {
	case 1:
		dpi = density
	case 2:
		dpi = density * cmPerInch
	default:
		return 0, false
	}
	return usable(dpi)
}

func exifResolution(data []byte) float64 {
	// a partially decoded block still carries IFD0
	x, _ := exif.Decode(bytes.NewReader(data))
	if x == nil {
		return ExifFallbackResolution
	}

	unitTag, err := x.Get(exif.ResolutionUnit)
	if err != nil {
		return ExifFallbackResolution
	}
	unit, err := unitTag.Int(0)
	if err != nil {
		return ExifFallbackResolution
	}

	resTag, err := x.Get(exif.XResolution)
	if err != nil {
		return ExifFallbackResolution
	}
	num, den, err := resTag.Rat2(0)
	if err != nil || den == 0 {
		return ExifFallbackResolution
	}

	dpi := float64(num) / float64(den)
	if unit == 3 {
		dpi *= cmPerInch
	}
	if v, ok := usable(dpi); ok {
		return v
	}
	return ExifFallbackResolution
}

func pngResolution(data []byte) (float64, bool) {
	i := len(pngSignature)

	for i+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[i : i+4]))
		kind := string(data[i+4 : i+8])
		start := i + 8
		end := start + length
		if length < 0 || end+4 > len(data) {
			break
		}

		switch kind {
		case "pHYs":
			if length < 9 {
				return 0, false
			}
			chunk := data[start:end]
			if chunk[8] != 1 {
				return 0, false
			}
			perMetre := float64(binary.BigEndian.Uint32(chunk[0:4]))
			return usable(perMetre * 0.0254)
		case "IDAT", "IEND":
			return 0, false
		}
		i = end + 4
	}
	return 0, false
}

func usable(dpi float64) (float64, bool) {
	if dpi <= 0 || math.IsNaN(dpi) || math.IsInf(dpi, 0) {
		return 0, false
	}
	return dpi, true
}
