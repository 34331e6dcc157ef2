package aws

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/seventv/GifCropper/src/global"
)

var DefaultCacheControl = aws.String("public, max-age=15552000")

type S3Instance struct {
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
}

// NewS3 creates the S3 client from the aws section of the config. Without an access token the
// default credential chain of the sdk is used.
func NewS3(ctx global.Context) (global.AwsS3, error) {
	cfg := ctx.Config().Aws

	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.AccessToken != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessToken, cfg.SecretKey, ""))
	}
	if cfg.Endpoint != "" {
		// minio and friends
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}

	return &S3Instance{
		uploader:   s3manager.NewUploader(sess),
		downloader: s3manager.NewDownloader(sess),
	}, nil
}

func (a *S3Instance) UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType, acl, cacheControl *string) error {
	_, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:       aws.String(bucket),
		Key:          aws.String(key),
		Body:         data,
		ContentType:  contentType,
		ACL:          acl,
		CacheControl: cacheControl,
	})

	return err
}

func (a *S3Instance) DownloadFile(ctx context.Context, bucket, key string, file io.WriterAt) error {
	_, err := a.downloader.DownloadWithContext(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})

	return err
}
