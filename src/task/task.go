package task

import (
	"bytes"
	"fmt"
	nImage "image"
	"io"
	"os"
	"path/filepath"
	"time"

	Aws "github.com/aws/aws-sdk-go/aws"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/seventv/GifCropper/src/aws"
	"github.com/seventv/GifCropper/src/containers"
	"github.com/seventv/GifCropper/src/containers/gif"
	"github.com/seventv/GifCropper/src/crop"
	"github.com/seventv/GifCropper/src/global"
	"github.com/seventv/GifCropper/src/image"
	"github.com/seventv/GifCropper/src/job"
	"github.com/seventv/GifCropper/src/utils"
	"github.com/sirupsen/logrus"
)

const contentType = "image/gif"

// Task crops every frame of one source into one destination gif. It runs synchronously, stage
// after stage, and reports its progress through the event handler.
type Task struct {
	id uuid.UUID

	job job.Job

	onEvent func(TaskEvent)

	tmp    string
	result job.Result
}

func New(j job.Job, onEvent func(TaskEvent)) *Task {
	id, _ := uuid.NewRandom()
	if onEvent == nil {
		onEvent = func(TaskEvent) {}
	}

	return &Task{
		id:      id,
		job:     j,
		onEvent: onEvent,
	}
}

func (t *Task) ID() uuid.UUID {
	return t.id
}

// Result describes the outcome of the last Run.
func (t *Task) Result() job.Result {
	return t.result
}

func (t *Task) emit(e TaskEvent) {
	e.JobID = t.job.ID
	e.Timestamp = time.Now()
	t.onEvent(e)
}

// Run executes the task. A nil error with a nil result file means the source had no frames
// and nothing was written. Errors are always *StageError.
func (t *Task) Run(ctx global.Context) error {
	start := time.Now()
	ctx = ctx.WithFields(logrus.Fields{"job": t.job.ID})
	t.emit(TaskEvent{Type: Started})

	file, err := t.run(ctx, start)

	if cErr := t.cleanup(); cErr != nil {
		ctx.Log().Warn("failed to cleanup: ", cErr)
	}

	t.result = job.Result{
		JobID:   t.job.ID,
		Success: err == nil,
		File:    file,
	}

	if err != nil {
		t.result.Error = err.Error()
		t.emit(TaskEvent{Type: Failed, Err: err})
		return err
	}

	t.emit(TaskEvent{Type: Completed, Location: t.job.Destination.String()})

	return nil
}

func (t *Task) run(ctx global.Context, start time.Time) (*job.File, error) {
	data, err := t.open(ctx)
	if err != nil {
		return nil, newStageError(StageOpen, err)
	}

	t.emit(TaskEvent{Type: Opened, Location: t.job.Source.String()})

	img, err := containers.Decode(data, t.job.DefaultDelay)
	if err != nil {
		return nil, newStageError(StageDecode, err)
	}

	t.emit(TaskEvent{
		Type:       Decoded,
		FrameCount: img.FrameCount(),
		Width:      img.Width,
		Height:     img.Height,
	})

	frames, delays, sizes, err := t.crop(ctx, img)
	if err != nil {
		return nil, newStageError(StageCrop, err)
	}

	if len(frames) == 0 {
		t.emit(TaskEvent{Type: Skipped})
		return nil, nil
	}

	size, err := t.encode(ctx, frames, delays)
	if err != nil {
		return nil, newStageError(StageEncode, err)
	}

	t.emit(TaskEvent{Type: Encoded, FrameCount: len(frames)})

	file := &job.File{
		Name:        t.job.Destination.String(),
		Size:        size,
		ContentType: contentType,
		Animated:    img.Kind == image.Animated,
		Frames:      sizes,
		TimeTaken:   time.Since(start),
	}
	for _, s := range sizes {
		if s.Width > file.Width {
			file.Width = s.Width
		}
		if s.Height > file.Height {
			file.Height = s.Height
		}
	}

	return file, nil
}

func (t *Task) open(ctx global.Context) ([]byte, error) {
	src := t.job.Source

	switch src.Provider {
	case job.LocalProvider:
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		return io.ReadAll(f)
	case job.AwsProvider:
		s3 := ctx.Instances().AwsS3
		if s3 == nil {
			return nil, ErrNoS3
		}

		buf := Aws.NewWriteAtBuffer([]byte{})
		if err := s3.DownloadFile(ctx, src.Bucket, src.Key, buf); err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	}

	return nil, fmt.Errorf("%w: unknown provider %q", job.ErrBadLocation, src.Provider)
}

// crop normalizes and crops the frames in order. A frame goes into the list only once it has
// been cropped.
func (t *Task) crop(ctx global.Context, img image.Image) ([]*nImage.NRGBA, []int, []job.FrameSize, error) {
	if len(img.Frames) != len(img.Delays) {
		return nil, nil, nil, fmt.Errorf("%w: %d frames, %d delays", gif.ErrFrameMismatch, len(img.Frames), len(img.Delays))
	}

	frames := make([]*nImage.NRGBA, 0, img.FrameCount())
	delays := make([]int, 0, img.FrameCount())
	sizes := make([]job.FrameSize, 0, img.FrameCount())

	for i, frame := range img.Frames {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}

		normalized := crop.Normalize(frame)
		if normalized.Bounds().Empty() {
			return nil, nil, nil, fmt.Errorf("frame %d: %w", i, ErrEmptyFrame)
		}

		cropped, ok := crop.Frame(normalized)
		if !ok {
			ctx.Log().Debugf("frame %d has no visible pixels, keeping it whole", i)
		}

		b := cropped.Bounds()
		frames = append(frames, cropped)
		delays = append(delays, img.Delays[i])
		sizes = append(sizes, job.FrameSize{
			Width:   b.Dx(),
			Height:  b.Dy(),
			Delay:   img.Delays[i],
			Cropped: ok,
		})

		t.emit(TaskEvent{
			Type:    FrameCropped,
			Frame:   i,
			Width:   b.Dx(),
			Height:  b.Dy(),
			Cropped: ok,
		})
	}

	return frames, delays, sizes, nil
}

func (t *Task) encode(ctx global.Context, frames []*nImage.NRGBA, delays []int) (int, error) {
	q, err := gif.NewQuantizer(t.job.Quantizer)
	if err != nil {
		return 0, err
	}

	buf := bytes.NewBuffer(nil)
	if err := gif.Encode(buf, frames, delays, q); err != nil {
		return 0, err
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	size := buf.Len()
	dst := t.job.Destination

	switch dst.Provider {
	case job.LocalProvider:
		return size, t.writeLocal(dst.Path, buf)
	case job.AwsProvider:
		s3 := ctx.Instances().AwsS3
		if s3 == nil {
			return 0, ErrNoS3
		}

		return size, s3.UploadFile(
			ctx,
			dst.Bucket,
			dst.Key,
			buf,
			utils.StringPointer(contentType),
			nil,
			aws.DefaultCacheControl,
		)
	}

	return 0, fmt.Errorf("%w: unknown provider %q", job.ErrBadLocation, dst.Provider)
}

// writeLocal writes next to the destination first and renames over it, so a failed write
// never leaves a half written gif behind.
func (t *Task) writeLocal(path string, data io.Reader) error {
	t.tmp = filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), t.id))

	f, err := os.OpenFile(t.tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, data); err != nil {
		return multierror.Append(err, f.Close()).ErrorOrNil()
	}

	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Rename(t.tmp, path); err != nil {
		return err
	}

	t.tmp = ""
	return nil
}

func (t *Task) cleanup() error {
	if t.tmp == "" {
		return nil
	}

	t.emit(TaskEvent{
		Type:     Cleaned,
		Location: t.tmp,
	})

	err := os.Remove(t.tmp)
	t.tmp = ""
	if os.IsNotExist(err) {
		return nil
	}

	return err
}
