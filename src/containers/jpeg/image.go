package jpeg

import (
	"io"

	"github.com/disintegration/imaging"
	"github.com/seventv/GifCropper/src/image"
)

func Test(data []byte) bool {
	if len(data) < 4 {
		return false
	}

	// SOI ... EOI
	return data[0] == 0xFF && data[1] == 0xD8 &&
		data[len(data)-2] == 0xFF && data[len(data)-1] == 0xD9
}

// Decode reads a jpeg honoring its exif orientation. jpegs carry no alpha, so the crop
// always keeps the whole frame.
func Decode(r io.Reader, defaultDelay int) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return image.Image{}, err
	}

	return image.Still(image.JPEG, img, defaultDelay), nil
}
