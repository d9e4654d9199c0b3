// Package imaging provides the pixel-grid primitives the pipeline needs:
// decoding, resizing, rotation about the image center, clamped cropping,
// and packing pixels into the tensor layouts the networks expect.
// Images are treated as immutable; every operation returns a fresh buffer.
package imaging

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
)

// Point is a 2D point in pixel coordinates.
type Point struct {
	X, Y float64
}

// Open decodes an image file into an RGBA pixel grid.
func Open(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return ToRGBA(img), nil
}

// ToRGBA converts any image to RGBA with a zero-based origin.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == image.Pt(0, 0) {
		return rgba
	}
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(out, out.Bounds(), img, bounds.Min, xdraw.Src)
	return out
}

// Resize scales the image to width x height with bilinear interpolation.
func Resize(img image.Image, width, height int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return out
}

// RotatePoint rotates p about center by angle degrees, with the rotation
// matrix [[cos, -sin], [sin, cos]] applied in image coordinates (y down).
func RotatePoint(p, center Point, angleDeg float64) Point {
	rad := angleDeg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	dx := p.X - center.X
	dy := p.Y - center.Y
	return Point{
		X: center.X + cos*dx - sin*dy,
		Y: center.Y + sin*dx + cos*dy,
	}
}

// Rotate rotates the image content about its center. After
// out := Rotate(img, deg), content located at point q in img appears at
// RotatePoint(q, center, -deg) in out: point coordinates must be remapped
// with the negated angle to follow rotated content. Pixels sampled from
// outside the source stay black.
func Rotate(img *image.RGBA, angleDeg float64) *image.RGBA {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	center := Point{X: float64(w) / 2, Y: float64(h) / 2}

	rad := angleDeg * math.Pi / 180
	sin, cos := math.Sincos(rad)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Inverse mapping: the output pixel pulls from the source
			// position rotated by +angle.
			dx := float64(x) + 0.5 - center.X
			dy := float64(y) + 0.5 - center.Y
			srcX := center.X + cos*dx - sin*dy - 0.5
			srcY := center.Y + sin*dx + cos*dy - 0.5

			r, g, b, a := sampleBilinear(img, srcX, srcY)
			i := out.PixOffset(x, y)
			out.Pix[i+0] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
			out.Pix[i+3] = a
		}
	}
	return out
}

// Crop extracts the given rectangle, clamped to the image bounds first so a
// rectangle extending past the canvas never reads out of bounds.
func Crop(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Rect)
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	if rect.Empty() {
		return out
	}
	xdraw.Draw(out, out.Bounds(), img, rect.Min, xdraw.Src)
	return out
}

func sampleBilinear(img *image.RGBA, x, y float64) (uint8, uint8, uint8, uint8) {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	var acc [4]float64
	for _, s := range [4]struct {
		dx, dy int
		w      float64
	}{
		{0, 0, (1 - fx) * (1 - fy)},
		{1, 0, fx * (1 - fy)},
		{0, 1, (1 - fx) * fy},
		{1, 1, fx * fy},
	} {
		px := x0 + s.dx
		py := y0 + s.dy
		if px < img.Rect.Min.X || px >= img.Rect.Max.X || py < img.Rect.Min.Y || py >= img.Rect.Max.Y {
			continue
		}
		i := img.PixOffset(px, py)
		acc[0] += s.w * float64(img.Pix[i+0])
		acc[1] += s.w * float64(img.Pix[i+1])
		acc[2] += s.w * float64(img.Pix[i+2])
		acc[3] += s.w * float64(img.Pix[i+3])
	}
	return clampByte(acc[0]), clampByte(acc[1]), clampByte(acc[2]), clampByte(acc[3])
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
