package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	nImage "image"
	"image/color"
	nGif "image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/seventv/GifCropper/src/configure"
	"github.com/seventv/GifCropper/src/global"
	"github.com/seventv/GifCropper/src/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pal = color.Palette{color.RGBA{}, color.RGBA{R: 0xff, A: 0xff}, color.RGBA{G: 0xff, A: 0xff}}

type fakeS3 struct {
	objects     map[string][]byte
	contentType string
}

func (f *fakeS3) UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType, acl, cacheControl *string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}

	f.objects[bucket+"/"+key] = b
	if contentType != nil {
		f.contentType = *contentType
	}
	return nil
}

func (f *fakeS3) DownloadFile(ctx context.Context, bucket, key string, file io.WriterAt) error {
	b, ok := f.objects[bucket+"/"+key]
	if !ok {
		return fmt.Errorf("no such key: %s", key)
	}

	_, err := file.WriteAt(b, 0)
	return err
}

func newContext(ctx context.Context) global.Context {
	return global.New(ctx, &configure.Config{})
}

func paletted(r nImage.Rectangle, idx uint8) *nImage.Paletted {
	pm := nImage.NewPaletted(nImage.Rect(0, 0, 10, 8), pal)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			pm.SetColorIndex(x, y, idx)
		}
	}
	return pm
}

func gifData(t *testing.T, rects []nImage.Rectangle, delays []int) []byte {
	t.Helper()

	g := &nGif.GIF{}
	for i, r := range rects {
		g.Image = append(g.Image, paletted(r, uint8(1+i%2)))
		g.Delay = append(g.Delay, delays[i])
		g.Disposal = append(g.Disposal, nGif.DisposalBackground)
	}

	buf := bytes.NewBuffer(nil)
	require.NoError(t, nGif.EncodeAll(buf, g))
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0600))
	return p
}

func newTask(t *testing.T, src, dst string) (*Task, *[]TaskEvent) {
	t.Helper()

	j, err := job.New(src, dst)
	require.NoError(t, err)

	events := &[]TaskEvent{}
	return New(j, func(e TaskEvent) {
		*events = append(*events, e)
	}), events
}

func decodeFile(t *testing.T, path string) *nGif.GIF {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	g, err := nGif.DecodeAll(f)
	require.NoError(t, err)
	return g
}

func ofType(events []TaskEvent, typ TaskEventType) []TaskEvent {
	out := []TaskEvent{}
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestRunAnimated(t *testing.T) {
	dir := t.TempDir()
	rects := []nImage.Rectangle{
		nImage.Rect(1, 1, 3, 2),
		nImage.Rect(5, 2, 9, 7),
		nImage.Rect(0, 0, 10, 8),
	}
	src := writeFile(t, dir, "owl.gif", gifData(t, rects, []int{5, 20, 0}))
	dst := filepath.Join(dir, "owl-cropped.gif")

	task, events := newTask(t, src, dst)
	require.NoError(t, task.Run(newContext(context.Background())))

	g := decodeFile(t, dst)
	require.Len(t, g.Image, 3)
	assert.Equal(t, []int{5, 20, 10}, g.Delay)
	assert.Equal(t, 0, g.LoopCount)

	for i, pm := range g.Image {
		b := pm.Bounds()
		assert.Equal(t, rects[i].Dx(), b.Dx(), "frame %d", i)
		assert.Equal(t, rects[i].Dy(), b.Dy(), "frame %d", i)
		assert.LessOrEqual(t, b.Dx(), 10)
		assert.LessOrEqual(t, b.Dy(), 8)
	}

	decoded := ofType(*events, Decoded)
	require.Len(t, decoded, 1)
	assert.Equal(t, 3, decoded[0].FrameCount)
	assert.Equal(t, 10, decoded[0].Width)
	assert.Equal(t, 8, decoded[0].Height)

	cropped := ofType(*events, FrameCropped)
	require.Len(t, cropped, 3)
	for i, e := range cropped {
		assert.Equal(t, i, e.Frame)
		assert.True(t, e.Cropped)
	}

	assert.Len(t, ofType(*events, Completed), 1)
	assert.Empty(t, ofType(*events, Failed))

	res := task.Result()
	assert.True(t, res.Success)
	require.NotNil(t, res.File)
	assert.True(t, res.File.Animated)
	assert.Equal(t, "image/gif", res.File.ContentType)
	require.Len(t, res.File.Frames, 3)
	assert.Equal(t, 200, res.File.Frames[1].Delay)
	assert.Equal(t, 100, res.File.Frames[2].Delay)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, int64(res.File.Size), info.Size())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp file left behind")
}

func TestRunStatic(t *testing.T) {
	dir := t.TempDir()

	img := nImage.NewNRGBA(nImage.Rect(0, 0, 6, 5))
	for y := 1; y < 3; y++ {
		for x := 2; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 0x20, G: 0x80, B: 0xff, A: 0xff})
		}
	}
	buf := bytes.NewBuffer(nil)
	require.NoError(t, png.Encode(buf, img))

	src := writeFile(t, dir, "owl.png", buf.Bytes())
	dst := filepath.Join(dir, "owl.gif")

	task, _ := newTask(t, src, dst)
	require.NoError(t, task.Run(newContext(context.Background())))

	g := decodeFile(t, dst)
	require.Len(t, g.Image, 1)
	assert.Equal(t, nImage.Rect(0, 0, 2, 2), g.Image[0].Bounds())
	assert.Equal(t, []int{10}, g.Delay)
	assert.False(t, task.Result().File.Animated)
}

func TestRunUniform(t *testing.T) {
	dir := t.TempDir()

	g := &nGif.GIF{
		Image: []*nImage.Paletted{
			paletted(nImage.Rectangle{}, 0),
			paletted(nImage.Rect(0, 0, 10, 8), 1),
		},
		Delay: []int{10, 10},
	}
	buf := bytes.NewBuffer(nil)
	require.NoError(t, nGif.EncodeAll(buf, g))

	src := writeFile(t, dir, "blank.gif", buf.Bytes())
	dst := filepath.Join(dir, "out.gif")

	task, events := newTask(t, src, dst)
	require.NoError(t, task.Run(newContext(context.Background())))

	out := decodeFile(t, dst)
	require.Len(t, out.Image, 2)
	for _, pm := range out.Image {
		assert.Equal(t, nImage.Rect(0, 0, 10, 8), pm.Bounds())
	}

	cropped := ofType(*events, FrameCropped)
	require.Len(t, cropped, 2)
	assert.False(t, cropped[0].Cropped)
	assert.True(t, cropped[1].Cropped)
}

func TestRunMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.gif")

	task, events := newTask(t, filepath.Join(dir, "missing.gif"), dst)
	err := task.Run(newContext(context.Background()))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, errors.Is(err, ErrEncode))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageOpen, stageErr.Stage)
	assert.NotEmpty(t, stageErr.Stack)

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))

	assert.False(t, task.Result().Success)
	assert.NotEmpty(t, task.Result().Error)
	assert.Len(t, ofType(*events, Failed), 1)
	assert.Empty(t, ofType(*events, Completed))
}

func TestRunTrailingBytes(t *testing.T) {
	dir := t.TempDir()
	data := gifData(t, []nImage.Rectangle{nImage.Rect(2, 1, 5, 3), nImage.Rect(0, 0, 4, 4)}, []int{5, 5})
	src := writeFile(t, dir, "owl.gif", append(data, '\n'))
	dst := filepath.Join(dir, "out.gif")

	task, _ := newTask(t, src, dst)
	require.NoError(t, task.Run(newContext(context.Background())))

	g := decodeFile(t, dst)
	require.Len(t, g.Image, 2)
	assert.Equal(t, nImage.Rect(0, 0, 3, 2), g.Image[0].Bounds())
	assert.Equal(t, nImage.Rect(0, 0, 4, 4), g.Image[1].Bounds())
}

func TestRunBadSource(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "notes.txt", []byte("definitely not an image"))

	task, _ := newTask(t, src, filepath.Join(dir, "out.gif"))
	err := task.Run(newContext(context.Background()))

	assert.ErrorIs(t, err, ErrDecode)
	assert.False(t, errors.Is(err, ErrOpen))
}

func TestRunEncodeFailure(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "owl.gif", gifData(t, []nImage.Rectangle{nImage.Rect(1, 1, 2, 2)}, []int{0}))

	task, _ := newTask(t, src, filepath.Join(dir, "missing", "out.gif"))
	err := task.Run(newContext(context.Background()))

	assert.ErrorIs(t, err, ErrEncode)

	entries, rErr := os.ReadDir(dir)
	require.NoError(t, rErr)
	assert.Len(t, entries, 1)
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "owl.gif", gifData(t, []nImage.Rectangle{nImage.Rect(1, 1, 2, 2)}, []int{0}))
	dst := filepath.Join(dir, "out.gif")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task, _ := newTask(t, src, dst)
	err := task.Run(newContext(ctx))

	assert.ErrorIs(t, err, ErrCrop)
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunS3(t *testing.T) {
	s3 := &fakeS3{objects: map[string][]byte{
		"emotes/raw/owl.gif": gifData(t, []nImage.Rectangle{nImage.Rect(1, 1, 3, 2), nImage.Rect(2, 2, 3, 3)}, []int{4, 4}),
	}}

	ctx := newContext(context.Background())
	ctx.Instances().AwsS3 = s3

	task, _ := newTask(t, "s3://emotes/raw/owl.gif", "s3://emotes/cropped/owl.gif")
	require.NoError(t, task.Run(ctx))

	data, ok := s3.objects["emotes/cropped/owl.gif"]
	require.True(t, ok)
	assert.Equal(t, "image/gif", s3.contentType)

	g, err := nGif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, g.Image, 2)
	assert.Equal(t, nImage.Rect(0, 0, 2, 1), g.Image[0].Bounds())
	assert.Equal(t, nImage.Rect(0, 0, 1, 1), g.Image[1].Bounds())
	assert.Equal(t, []int{4, 4}, g.Delay)
}

func TestRunS3NotConfigured(t *testing.T) {
	task, _ := newTask(t, "s3://emotes/raw/owl.gif", filepath.Join(t.TempDir(), "out.gif"))
	err := task.Run(newContext(context.Background()))

	assert.ErrorIs(t, err, ErrOpen)
	assert.ErrorIs(t, err, ErrNoS3)
}
