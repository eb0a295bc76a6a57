package media

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	"solar_sdr_backend/platform/apperr"
)

const maxImageBytes = 1 << 20

// DownscaleImage re-encodes images larger than 1 MB so the vision model
// accepts them. The output is always JPEG; smaller inputs pass through
// untouched.
func DownscaleImage(data []byte) ([]byte, string, error) {
	if len(data) <= maxImageBytes {
		mime := "image/jpeg"
		if bytes.HasPrefix(data, sigPNG) {
			mime = "image/png"
		}
		return data, mime, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindBadRequest, "failed to decode image", err)
	}

	// Scale the pixel count by the byte ratio; compressed size tracks pixel
	// count closely enough for a first pass.
	factor := math.Sqrt(float64(maxImageBytes) / float64(len(data)))
	bounds := src.Bounds()
	width := int(float64(bounds.Dx()) * factor)
	height := int(float64(bounds.Dy()) * factor)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	for quality := 85; quality >= 40; quality -= 15 {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", apperr.Wrap(apperr.KindInternal, "failed to encode image", err)
		}
		if buf.Len() <= maxImageBytes {
			return buf.Bytes(), "image/jpeg", nil
		}

		// Still too big: halve the dimensions for the next pass.
		width /= 2
		height /= 2
		if width < 1 || height < 1 {
			break
		}
	}

	return nil, "", apperr.New(apperr.KindBadRequest, "image could not be reduced below size limit")
}
