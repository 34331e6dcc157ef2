package gif

import (
	"fmt"
	nImage "image"
	nGif "image/gif"
	"io"
)

var ErrFrameMismatch = fmt.Errorf("frame and delay count differ")

// Encode writes frames as one gif that loops forever. delays are in milliseconds and must be
// index aligned with frames. Frames may differ in size, the logical screen is sized to fit the
// largest of them and every frame is cleared before the next one is drawn.
func Encode(w io.Writer, frames []*nImage.NRGBA, delays []int, q Quantizer) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}

	if len(frames) != len(delays) {
		return fmt.Errorf("%w: %d frames, %d delays", ErrFrameMismatch, len(frames), len(delays))
	}

	out := &nGif.GIF{
		Image:     make([]*nImage.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		Disposal:  make([]byte, len(frames)),
		LoopCount: 0,
	}

	for i, frame := range frames {
		pm := q.Quantize(frame)

		if width := pm.Rect.Dx(); width > out.Config.Width {
			out.Config.Width = width
		}
		if height := pm.Rect.Dy(); height > out.Config.Height {
			out.Config.Height = height
		}

		out.Image[i] = pm
		out.Delay[i] = ToDelay(delays[i])
		out.Disposal[i] = nGif.DisposalBackground
	}

	return nGif.EncodeAll(w, out)
}
