package containers

import (
	"bytes"
	"fmt"

	"github.com/seventv/GifCropper/src/containers/gif"
	"github.com/seventv/GifCropper/src/containers/jpeg"
	"github.com/seventv/GifCropper/src/containers/png"
	"github.com/seventv/GifCropper/src/containers/tiff"
	"github.com/seventv/GifCropper/src/image"
)

var ErrUnknownFormat = fmt.Errorf("unknown image format")

func ToType(data []byte) (image.ImageType, error) {
	if gif.Test(data) {
		return image.GIF, nil
	} else if png.Test(data) {
		return image.PNG, nil
	} else if jpeg.Test(data) {
		return image.JPEG, nil
	} else if tiff.Test(data) {
		return image.TIFF, nil
	}

	return "", ErrUnknownFormat
}

// Decode sniffs data and decodes every frame it holds. Formats without animation yield a single
// Static frame lasting defaultDelay milliseconds.
func Decode(data []byte, defaultDelay int) (image.Image, error) {
	imgType, err := ToType(data)
	if err != nil {
		return image.Image{}, err
	}

	r := bytes.NewReader(data)

	var img image.Image
	switch imgType {
	case image.GIF:
		img, err = gif.Decode(r, defaultDelay)
	case image.PNG:
		img, err = png.Decode(r, defaultDelay)
	case image.JPEG:
		img, err = jpeg.Decode(r, defaultDelay)
	case image.TIFF:
		img, err = tiff.Decode(r, defaultDelay)
	default:
		return image.Image{}, ErrUnknownFormat
	}
	if err != nil {
		return image.Image{}, fmt.Errorf("%s decode failed: %w", imgType, err)
	}

	return img, nil
}
