// Package crop trims frames down to the part of them that is actually visible.
package crop

import (
	nImage "image"

	"github.com/disintegration/imaging"
)

// Normalize returns the frame in an alpha capable layout.
func Normalize(img nImage.Image) *nImage.NRGBA {
	if n, ok := img.(*nImage.NRGBA); ok {
		return n
	}

	return imaging.Clone(img)
}

// BoundingBox returns the smallest rectangle holding every pixel with a non zero alpha.
// ok is false when the frame is fully transparent.
func BoundingBox(img *nImage.NRGBA) (box nImage.Rectangle, ok bool) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := b.Min.X; x < b.Max.X; x++ {
			if row[(x-b.Min.X)*4+3] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < minX {
		return nImage.Rectangle{}, false
	}

	return nImage.Rect(minX, minY, maxX+1, maxY+1), true
}

// Frame crops the frame to its bounding box. A frame without one is kept whole.
func Frame(img *nImage.NRGBA) (*nImage.NRGBA, bool) {
	box, ok := BoundingBox(img)
	if !ok {
		return img, false
	}

	return imaging.Crop(img, box), true
}
