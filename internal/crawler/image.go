package crawler

import (
	"bytes"
	"encoding/binary"
	"image"
	_ "image/gif"  // register GIF for DecodeConfig
	_ "image/jpeg" // register JPEG for DecodeConfig
	_ "image/png"  // register PNG for DecodeConfig
	"math"

	exif "github.com/dsoprea/go-exif/v3"
)

// maxEXIFEntries bounds how many EXIF tags are stored per image, so a
// pathological file cannot bloat the record.
const maxEXIFEntries = 32

// ImageInfo is the analysis result for one fetched image.
type ImageInfo struct {
	// Format is the detected format (jpeg, png, gif, webp), "" when
	// unrecognized.
	Format string

	// Width and Height are pixel dimensions, 0 when unavailable.
	Width  int
	Height int

	// AspectRatio is Width/Height rounded to four decimals.
	AspectRatio float64

	// EXIF maps tag names to formatted values.
	EXIF map[string]string
}

// AnalyzeImage probes an image payload for format, dimensions, and EXIF
// metadata. Dimension extraction first tries the registered stdlib
// decoders; when those fail, magic-byte signatures identify the format
// (including WEBP, which has no stdlib decoder) without dimensions.
func AnalyzeImage(data []byte) ImageInfo {
	info := ImageInfo{}

	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		info.Format = format
		info.Width = cfg.Width
		info.Height = cfg.Height
	} else {
		info.Format = sniffImageFormat(data)
		if info.Format == "webp" {
			info.Width, info.Height = webpDimensions(data)
		}
	}

	if info.Width > 0 && info.Height > 0 {
		info.AspectRatio = math.Round(float64(info.Width)/float64(info.Height)*10000) / 10000
	}

	info.EXIF = extractEXIF(data)
	return info
}

// sniffImageFormat identifies an image format from magic bytes.
func sniffImageFormat(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "jpeg"
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a")):
		return "gif"
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp"
	default:
		return ""
	}
}

// webpDimensions parses dimensions from a WEBP container's first chunk.
// Supports the lossy (VP8), lossless (VP8L), and extended (VP8X)
// layouts; returns zeros for anything it cannot decode.
func webpDimensions(data []byte) (int, int) {
	if len(data) < 30 {
		return 0, 0
	}

	switch string(data[12:16]) {
	case "VP8 ":
		// Lossy bitstream: dimensions at byte 26, 14 bits each.
		w := int(binary.LittleEndian.Uint16(data[26:28])) & 0x3FFF
		h := int(binary.LittleEndian.Uint16(data[28:30])) & 0x3FFF
		return w, h
	case "VP8L":
		// Lossless: 14-bit fields packed after the signature byte.
		bits := binary.LittleEndian.Uint32(data[21:25])
		w := int(bits&0x3FFF) + 1
		h := int((bits>>14)&0x3FFF) + 1
		return w, h
	case "VP8X":
		// Extended: 24-bit canvas fields minus one at byte 24.
		w := int(uint32(data[24])|uint32(data[25])<<8|uint32(data[26])<<16) + 1
		h := int(uint32(data[27])|uint32(data[28])<<8|uint32(data[29])<<16) + 1
		return w, h
	default:
		return 0, 0
	}
}

// extractEXIF pulls flat EXIF tags from an image payload. Images
// without EXIF (or with unparseable EXIF) yield nil; metadata problems
// never fail the record.
func extractEXIF(data []byte) map[string]string {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil || len(entries) == 0 {
		return nil
	}

	tags := make(map[string]string, len(entries))
	for _, entry := range entries {
		if len(tags) >= maxEXIFEntries {
			break
		}
		if entry.TagName == "" || entry.Formatted == "" {
			continue
		}
		tags[entry.TagName] = entry.Formatted
	}

	if len(tags) == 0 {
		return nil
	}
	return tags
}
