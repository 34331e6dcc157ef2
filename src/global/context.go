package global

import (
	"context"
	"io"

	"github.com/seventv/GifCropper/src/configure"
	"github.com/sirupsen/logrus"
)

// Context is the root context of one run. It carries the config, the service clients created
// for it and a logger that later stages can decorate with fields.
type Context interface {
	context.Context
	Instances() *Instances
	Config() *configure.Config
	Log() *logrus.Entry
	WithFields(fields logrus.Fields) Context
}

type Instances struct {
	// AwsS3 is only set when a location points at a bucket.
	AwsS3 AwsS3
}

type AwsS3 interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType, acl, cacheControl *string) error
	DownloadFile(ctx context.Context, bucket, key string, file io.WriterAt) error
}

type GlobalContext struct {
	context.Context
	Insts *Instances
	Cfg   *configure.Config
	log   *logrus.Entry
}

func New(ctx context.Context, config *configure.Config) Context {
	return &GlobalContext{
		Context: ctx,
		Insts:   &Instances{},
		Cfg:     config,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
}

func (g *GlobalContext) Instances() *Instances {
	return g.Insts
}

func (g *GlobalContext) Config() *configure.Config {
	return g.Cfg
}

func (g *GlobalContext) Log() *logrus.Entry {
	return g.log
}

// WithFields returns a child sharing config and instances whose logger carries fields.
func (g *GlobalContext) WithFields(fields logrus.Fields) Context {
	return &GlobalContext{
		Context: g.Context,
		Insts:   g.Insts,
		Cfg:     g.Cfg,
		log:     g.log.WithFields(fields),
	}
}
