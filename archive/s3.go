package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"newsdigest/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config contains minimal configuration for creating an S3 client.
// Values are optional and fall back to the standard AWS config/credential chain.
type S3Config struct {
	Bucket string
	Prefix string
	// Region to use for requests, e.g. "us-east-1"
	Region string
	// Profile selects a named shared config/credentials profile
	Profile string
	// UsePathStyle forces path-style addressing (useful for S3-compatible providers)
	UsePathStyle bool
}

// ObjectPutter is the part of the S3 client the archiver needs
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores each report as JSON under prefix/YYYY/MM/DD/<run-id>.json
type S3Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Archiver builds a client from the default AWS configuration chain
func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3_BUCKET is required for the archive")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3ArchiverWith(client, cfg.Bucket, cfg.Prefix), nil
}

func NewS3ArchiverWith(client ObjectPutter, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (a *S3Archiver) Name() string { return "s3" }

// Key returns the object key for report
func (a *S3Archiver) Key(report *types.Report) string {
	day := report.StartedAt.UTC().Format("2006/01/02")
	return path.Join(a.prefix, day, report.RunID+".json")
}

func (a *S3Archiver) Deliver(ctx context.Context, report *types.Report) error {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	key := a.Key(report)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(a.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("no-cache"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("s3 put %s: %s: %s", key, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}
