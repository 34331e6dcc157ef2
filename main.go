package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"syscall"
	"time"

	"github.com/bugsnag/panicwrap"
	"github.com/davecgh/go-spew/spew"
	jsoniter "github.com/json-iterator/go"

	"github.com/seventv/GifCropper/src/aws"
	"github.com/seventv/GifCropper/src/configure"
	"github.com/seventv/GifCropper/src/global"
	"github.com/seventv/GifCropper/src/job"
	"github.com/seventv/GifCropper/src/task"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	Version = "development"
	Unix    = ""
	Time    = "unknown"
	User    = "unknown"
)

func init() {
	debug.SetGCPercent(2000)
	if i, err := strconv.Atoi(Unix); err == nil {
		Time = time.Unix(int64(i), 0).Format(time.RFC3339)
	}
}

func main() {
	config := configure.New()

	exitStatus, err := panicwrap.BasicWrap(func(s string) {
		logrus.Error(s)
	})
	if err != nil {
		logrus.Error("failed to setup panic handler: ", err)
		os.Exit(2)
	}

	if exitStatus >= 0 {
		os.Exit(exitStatus)
	}

	if !config.NoHeader {
		logrus.Info("7TV Gif Cropper")
		logrus.Infof("Version: %s", Version)
		logrus.Infof("build.Time: %s", Time)
		logrus.Infof("build.User: %s", User)
	}

	c, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cancel := stop
	if config.MaxTaskDuration > 0 {
		var cancelTimeout context.CancelFunc
		c, cancelTimeout = context.WithTimeout(c, time.Second*time.Duration(config.MaxTaskDuration))
		cancel = func() {
			cancelTimeout()
			stop()
		}
	}

	ctx := global.New(c, config)

	code := run(ctx, os.Stderr)
	cancel()

	os.Exit(code)
}

// run processes the configured job and returns the exit status. Diagnostics for a failed run
// are written to stderr.
func run(ctx global.Context, stderr io.Writer) int {
	cfg := ctx.Config()

	j, err := job.New(cfg.Source, cfg.Destination)
	if err != nil {
		logrus.WithError(err).Error("bad job")
		return 1
	}

	j.DefaultDelay = cfg.DefaultDelay
	j.Quantizer = cfg.Quantizer

	usesS3 := j.Source.Provider == job.AwsProvider || j.Destination.Provider == job.AwsProvider
	if usesS3 && cfg.Aws.Region != "" {
		s3, err := aws.NewS3(ctx)
		if err != nil {
			logrus.WithError(err).Error("failed to setup s3")
			return 1
		}
		ctx.Instances().AwsS3 = s3
	}

	t := task.New(j, progress)

	logrus.Debug("starting task: ", t.ID())

	err = t.Run(ctx)

	if cfg.Report {
		if b, mErr := json.Marshal(t.Result()); mErr == nil {
			fmt.Println(string(b))
		} else {
			logrus.Warn("failed to marshal report: ", mErr)
		}
	}

	if err != nil {
		trace(stderr, err)
		return 1
	}

	return 0
}

func progress(e task.TaskEvent) {
	switch e.Type {
	case task.Opened:
		logrus.Infof("opened: %s", e.Location)
	case task.Decoded:
		logrus.Infof("frames: %d", e.FrameCount)
		logrus.Infof("size: %dx%d", e.Width, e.Height)
	case task.FrameCropped:
		logrus.Infof("frame %d: %dx%d", e.Frame, e.Width, e.Height)
	case task.Skipped:
		logrus.Warn("no frames decoded, nothing written")
	case task.Completed:
		logrus.Infof("saved: %s", e.Location)
	default:
		logrus.Debugf("task %s: %s", e.JobID, e.Type)
	}
}

// trace prints the failure followed by everything useful for debugging it.
func trace(w io.Writer, err error) {
	logrus.Errorf("failed: %s", err)

	var stageErr *task.StageError
	if errors.As(err, &stageErr) {
		_, _ = w.Write(stageErr.Stack)
	}

	spew.Fdump(w, err)
}
