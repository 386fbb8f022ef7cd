package imagegen

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// maxDimension caps stored image size; anything larger is scaled down to
// keep canvas rendering responsive.
const maxDimension = 4096

// normalizeImage re-encodes downloaded image bytes so the browser's
// <img> and canvas rendering paths agree: decoding and re-encoding drops
// embedded color-profile metadata, opaque images become JPEG, images
// with transparency keep their alpha as PNG. Returns the normalized
// bytes and the extension to store under. Undecodable input comes back
// unchanged with ok=false so the caller can store the raw bytes.
func normalizeImage(data []byte) (out []byte, ext string, ok bool) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, "", false
	}

	img = scaleDown(img)

	if isOpaque(img) {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
			return data, "", false
		}
		return buf.Bytes(), ".jpg", true
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return data, "", false
	}
	return buf.Bytes(), ".png", true
}

func scaleDown(img image.Image) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDimension && height <= maxDimension {
		return img
	}
	scale := float64(maxDimension) / float64(width)
	if height > width {
		scale = float64(maxDimension) / float64(height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func isOpaque(img image.Image) bool {
	if op, ok := img.(interface{ Opaque() bool }); ok {
		return op.Opaque()
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}
