package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrBadLocation = fmt.Errorf("bad location")

type Job struct {
	ID string `json:"id"`

	Source      Location `json:"source"`
	Destination Location `json:"destination"`

	// DefaultDelay is used for frames whose source carries no duration, in milliseconds.
	DefaultDelay int    `json:"default_delay"`
	Quantizer    string `json:"quantizer"`
}

// New parses both locations and gives the job a fresh id.
func New(source, destination string) (Job, error) {
	src, err := ParseLocation(source)
	if err != nil {
		return Job{}, fmt.Errorf("source: %w", err)
	}

	dst, err := ParseLocation(destination)
	if err != nil {
		return Job{}, fmt.Errorf("destination: %w", err)
	}

	return Job{
		ID:           uuid.NewString(),
		Source:       src,
		Destination:  dst,
		DefaultDelay: 100,
	}, nil
}

type Provider string

const (
	AwsProvider   Provider = "aws"
	LocalProvider Provider = "local"
)

// Location is either a path on disk or an object in a bucket.
type Location struct {
	Provider Provider `json:"provider"`
	Path     string   `json:"path,omitempty"`
	Bucket   string   `json:"bucket,omitempty"`
	Key      string   `json:"key,omitempty"`
}

func ParseLocation(s string) (Location, error) {
	if s == "" {
		return Location{}, fmt.Errorf("%w: empty", ErrBadLocation)
	}

	if rest := strings.TrimPrefix(s, "s3://"); rest != s {
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return Location{}, fmt.Errorf("%w: %q, want s3://bucket/key", ErrBadLocation, s)
		}

		return Location{
			Provider: AwsProvider,
			Bucket:   parts[0],
			Key:      parts[1],
		}, nil
	}

	return Location{
		Provider: LocalProvider,
		Path:     s,
	}, nil
}

func (l Location) String() string {
	if l.Provider == AwsProvider {
		return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
	}
	return l.Path
}

type FrameSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// Delay in milliseconds
	Delay   int  `json:"delay"`
	Cropped bool `json:"cropped"`
}

type File struct {
	Name        string        `json:"name"`
	Size        int           `json:"size"`
	ContentType string        `json:"content_type"`
	Animated    bool          `json:"animated"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	Frames      []FrameSize   `json:"frames"`
	TimeTaken   time.Duration `json:"time_taken"`
}

type Result struct {
	JobID   string `json:"job_id"`
	Success bool   `json:"success"`
	File    *File  `json:"file,omitempty"`
	Error   string `json:"error,omitempty"`
}
