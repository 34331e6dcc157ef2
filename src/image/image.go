package image

import (
	nImage "image"
)

// Kind tells a single-frame source from an animated one.
type Kind int

const (
	Static Kind = iota
	Animated
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Animated:
		return "animated"
	}
	return "unknown"
}

// Image is a decoded source. Frames and Delays are index aligned, delays are in milliseconds.
type Image struct {
	Type   ImageType
	Kind   Kind
	Width  int
	Height int
	Frames []nImage.Image
	Delays []int
}

func (i Image) FrameCount() int {
	return len(i.Frames)
}

// KindOf returns the kind of a source holding n frames.
func KindOf(n int) Kind {
	if n > 1 {
		return Animated
	}
	return Static
}

type ImageType string

const (
	GIF  ImageType = "gif"
	JPEG ImageType = "jpeg"
	PNG  ImageType = "png"
	TIFF ImageType = "tiff"
)

// Still wraps a single decoded picture as a Static source.
func Still(t ImageType, img nImage.Image, delay int) Image {
	b := img.Bounds()

	return Image{
		Type:   t,
		Kind:   Static,
		Width:  b.Dx(),
		Height: b.Dy(),
		Frames: []nImage.Image{img},
		Delays: []int{delay},
	}
}
