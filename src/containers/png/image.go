package png

import (
	"io"

	"github.com/disintegration/imaging"
	"github.com/seventv/GifCropper/src/image"
)

// Test checks the png signature.
func Test(data []byte) bool {
	// https://www.garykessler.net/library/file_sigs.html
	return len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n"
}

func Decode(r io.Reader, defaultDelay int) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return image.Image{}, err
	}

	return image.Still(image.PNG, img, defaultDelay), nil
}
