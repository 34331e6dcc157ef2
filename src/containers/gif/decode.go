package gif

import (
	"fmt"
	nImage "image"
	"image/draw"
	nGif "image/gif"
	"io"

	"github.com/disintegration/imaging"
	"github.com/seventv/GifCropper/src/image"
)

var ErrNoFrames = fmt.Errorf("gif has no frames")

// Test reports whether data starts with a GIF87a or GIF89a signature. Whatever follows the
// trailer is left for the decoder to judge.
func Test(data []byte) bool {
	if len(data) < 6 {
		return false
	}

	// https://www.garykessler.net/library/file_sigs.html
	return string(data[:4]) == "GIF8" &&
		(data[4] == '7' || data[4] == '9') &&
		data[5] == 'a'
}

// Decode reads every frame of a gif. Each returned frame is the full canvas as it is visible
// once that frame has been drawn, so frames that only update part of the picture still carry
// everything around them. Delays are returned in milliseconds, a missing delay becomes
// defaultDelay.
func Decode(r io.Reader, defaultDelay int) (image.Image, error) {
	g, err := nGif.DecodeAll(r)
	if err != nil {
		return image.Image{}, err
	}

	if len(g.Image) == 0 {
		return image.Image{}, ErrNoFrames
	}

	width, height := g.Config.Width, g.Config.Height
	if width == 0 || height == 0 {
		width, height = dimensions(g)
	}

	canvas := nImage.NewNRGBA(nImage.Rect(0, 0, width, height))
	frames := make([]nImage.Image, len(g.Image))
	delays := make([]int, len(g.Image))

	var previous []uint8
	for i, frame := range g.Image {
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		if disposal == nGif.DisposalPrevious {
			previous = append(previous[:0], canvas.Pix...)
		}

		bounds := frame.Bounds()
		draw.Draw(canvas, bounds, frame, bounds.Min, draw.Over)

		frames[i] = imaging.Clone(canvas)
		delays[i] = ToMilliseconds(g.Delay[i], defaultDelay)

		switch disposal {
		case nGif.DisposalBackground:
			draw.Draw(canvas, bounds, nImage.Transparent, nImage.Point{}, draw.Src)
		case nGif.DisposalPrevious:
			copy(canvas.Pix, previous)
		}
	}

	return image.Image{
		Type:   image.GIF,
		Kind:   image.KindOf(len(frames)),
		Width:  width,
		Height: height,
		Frames: frames,
		Delays: delays,
	}, nil
}

// dimensions is the union of all frame bounds, for files with an empty logical screen.
func dimensions(g *nGif.GIF) (x, y int) {
	for _, img := range g.Image {
		if img.Rect.Max.X > x {
			x = img.Rect.Max.X
		}
		if img.Rect.Max.Y > y {
			y = img.Rect.Max.Y
		}
	}

	return x, y
}

// ToMilliseconds converts a gif delay (hundredths of a second) to milliseconds. A delay of 0 is
// treated as unset and becomes defaultDelay, even when the file stores that 0 explicitly.
func ToMilliseconds(delay int, defaultDelay int) int {
	if delay <= 0 {
		return defaultDelay
	}

	return delay * 10
}

// ToDelay converts milliseconds to a gif delay. Any positive duration stays at least one tick.
func ToDelay(ms int) int {
	if ms <= 0 {
		return 0
	}

	d := (ms + 5) / 10
	if d == 0 {
		d = 1
	}

	return d
}
