package gif

import (
	"fmt"
	nImage "image"
	"image/color"
	"image/color/palette"

	"github.com/andybons/gogif"
)

const (
	QuantizerMedianCut = "mediancut"
	QuantizerWebSafe   = "websafe"
)

// TransparentIndex is the palette slot every quantizer keeps for fully transparent pixels.
const TransparentIndex = 0

var ErrUnknownQuantizer = fmt.Errorf("unknown quantizer")

// Quantizer turns a frame into a paletted image of at most 256 colors whose palette entry
// TransparentIndex is transparent. The result always starts at the origin.
type Quantizer interface {
	Quantize(img *nImage.NRGBA) *nImage.Paletted
}

func NewQuantizer(name string) (Quantizer, error) {
	switch name {
	case QuantizerMedianCut, "":
		return MedianCut{Colors: 255}, nil
	case QuantizerWebSafe:
		return WebSafe{}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownQuantizer, name)
}

// MedianCut builds an adaptive palette per frame.
type MedianCut struct {
	Colors int
}

func (q MedianCut) Quantize(img *nImage.NRGBA) *nImage.Paletted {
	b := img.Bounds()
	r := nImage.Rect(0, 0, b.Dx(), b.Dy())

	tmp := nImage.NewPaletted(r, nil)
	mc := &gogif.MedianCutQuantizer{NumColor: q.Colors}
	mc.Quantize(tmp, r, opaque(img), nImage.Point{})

	pal := make(color.Palette, 0, len(tmp.Palette)+1)
	pal = append(pal, color.NRGBA{})
	pal = append(pal, tmp.Palette...)

	pm := nImage.NewPaletted(r, pal)
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			if img.NRGBAAt(b.Min.X+x, b.Min.Y+y).A == 0 {
				continue
			}
			pm.SetColorIndex(x, y, tmp.ColorIndexAt(x, y)+1)
		}
	}

	return pm
}

var webSafe = append(color.Palette{color.NRGBA{}}, palette.WebSafe...)

// WebSafe maps every frame onto the fixed 216 color web safe palette.
type WebSafe struct{}

func (WebSafe) Quantize(img *nImage.NRGBA) *nImage.Paletted {
	b := img.Bounds()
	r := nImage.Rect(0, 0, b.Dx(), b.Dy())
	pm := nImage.NewPaletted(r, webSafe)

	opaqueColors := webSafe[1:]
	seen := map[color.NRGBA]uint8{}
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			c := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			if c.A == 0 {
				continue
			}

			c.A = 0xff
			idx, ok := seen[c]
			if !ok {
				idx = uint8(opaqueColors.Index(c) + 1)
				seen[c] = idx
			}
			pm.SetColorIndex(x, y, idx)
		}
	}

	return pm
}

// opaque copies img to the origin with every pixel made fully opaque, so partially
// transparent edges keep their color instead of fading to black. Fully transparent pixels
// repeat the last visible color before them, so they add nothing new to the palette.
func opaque(img *nImage.NRGBA) *nImage.NRGBA {
	b := img.Bounds()
	out := nImage.NewNRGBA(nImage.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()*4], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
	}

	var fill []uint8
	for i := 3; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 0 {
			fill = out.Pix[i-3 : i]
			break
		}
	}
	if fill == nil {
		fill = []uint8{0, 0, 0}
	}

	last := [3]uint8{fill[0], fill[1], fill[2]}
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i+3] == 0 {
			copy(out.Pix[i:i+3], last[:])
		} else {
			copy(last[:], out.Pix[i:i+3])
		}
		out.Pix[i+3] = 0xff
	}

	return out
}
