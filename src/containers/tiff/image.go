package tiff

import (
	"io"

	"github.com/disintegration/imaging"
	"github.com/seventv/GifCropper/src/image"
)

// Test accepts little and big endian tiff headers.
func Test(data []byte) bool {
	if len(data) < 4 {
		return false
	}

	return string(data[:4]) == "II*\x00" || string(data[:4]) == "MM\x00*"
}

func Decode(r io.Reader, defaultDelay int) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return image.Image{}, err
	}

	return image.Still(image.TIFF, img, defaultDelay), nil
}
