package task

import (
	"fmt"
	"runtime/debug"
)

type Stage string

const (
	StageOpen   Stage = "open"
	StageDecode Stage = "decode"
	StageCrop   Stage = "crop"
	StageEncode Stage = "encode"
)

var (
	ErrOpen   = fmt.Errorf("open failed")
	ErrDecode = fmt.Errorf("decode failed")
	ErrCrop   = fmt.Errorf("crop failed")
	ErrEncode = fmt.Errorf("encode failed")

	ErrNoS3       = fmt.Errorf("s3 is not configured")
	ErrEmptyFrame = fmt.Errorf("frame is empty")
)

// StageError is returned for every failure of a task. It matches the sentinel of its stage
// with errors.Is and keeps the stack of the point where the stage gave up.
type StageError struct {
	Stage Stage
	Err   error
	Stack []byte
}

func newStageError(stage Stage, err error) *StageError {
	return &StageError{
		Stage: stage,
		Err:   err,
		Stack: debug.Stack(),
	}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Err.Error())
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) Is(target error) bool {
	switch e.Stage {
	case StageOpen:
		return target == ErrOpen
	case StageDecode:
		return target == ErrDecode
	case StageCrop:
		return target == ErrCrop
	case StageEncode:
		return target == ErrEncode
	}
	return false
}
