package main

import (
	"bytes"
	"context"
	"errors"
	nImage "image"
	"image/color"
	nGif "image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/seventv/GifCropper/src/configure"
	"github.com/seventv/GifCropper/src/global"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.gif")

	ctx := global.New(context.Background(), &configure.Config{
		Source:      filepath.Join(dir, "missing.gif"),
		Destination: dst,
	})

	stderr := bytes.NewBuffer(nil)
	assert.Equal(t, 1, run(ctx, stderr))

	_, err := os.Stat(dst)
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	out := stderr.String()
	assert.Contains(t, out, "runtime/debug.Stack")
	assert.Contains(t, out, "task.StageError")
	assert.Contains(t, out, "missing.gif")
}

func TestRunCrops(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "owl.gif")
	dst := filepath.Join(dir, "out.gif")

	pm := nImage.NewPaletted(nImage.Rect(0, 0, 6, 6), color.Palette{color.RGBA{}, color.RGBA{R: 0xff, A: 0xff}})
	pm.SetColorIndex(2, 3, 1)
	pm.SetColorIndex(3, 4, 1)

	buf := bytes.NewBuffer(nil)
	require.NoError(t, nGif.EncodeAll(buf, &nGif.GIF{Image: []*nImage.Paletted{pm}, Delay: []int{0}}))
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0600))

	ctx := global.New(context.Background(), &configure.Config{
		Source:       src,
		Destination:  dst,
		DefaultDelay: 100,
	})

	stderr := bytes.NewBuffer(nil)
	require.Equal(t, 0, run(ctx, stderr))
	assert.Empty(t, stderr.String())

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()

	g, err := nGif.DecodeAll(f)
	require.NoError(t, err)
	require.Len(t, g.Image, 1)
	assert.Equal(t, nImage.Rect(0, 0, 2, 2), g.Image[0].Bounds())
	assert.Equal(t, []int{10}, g.Delay)
}

func TestTracePlainError(t *testing.T) {
	w := bytes.NewBuffer(nil)
	trace(w, errors.New("disk on fire"))

	assert.Contains(t, w.String(), "disk on fire")
	assert.NotContains(t, w.String(), "runtime/debug.Stack")
}
