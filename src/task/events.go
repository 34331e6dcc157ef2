package task

import "time"

type TaskEvent struct {
	JobID     string
	Type      TaskEventType
	Timestamp time.Time

	// Location is set on Opened and Completed.
	Location string
	// FrameCount, Width and Height describe the source on Decoded.
	FrameCount int
	// Frame is the frame index on FrameCropped, Width and Height its size after the crop.
	Frame   int
	Width   int
	Height  int
	Cropped bool

	Err error
}

type TaskEventType string

const (
	Started      TaskEventType = "started"
	Opened       TaskEventType = "opened"
	Decoded      TaskEventType = "decoded"
	FrameCropped TaskEventType = "frame-cropped"
	Encoded      TaskEventType = "encoded"
	Skipped      TaskEventType = "skipped"
	Failed       TaskEventType = "failed"
	Completed    TaskEventType = "completed"
	Cleaned      TaskEventType = "cleaned"
)
