package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	appconfig "s3aid/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type objectUploader interface {
	UploadObject(ctx context.Context, input *transfermanager.UploadObjectInput, opts ...func(*transfermanager.Options)) (*transfermanager.UploadObjectOutput, error)
}

// accessDeniedCodes are S3 error codes reported as ErrAccessDenied.
var accessDeniedCodes = map[string]struct{}{
	"AccessDenied":          {},
	"AllAccessDisabled":     {},
	"InvalidAccessKeyId":    {},
	"SignatureDoesNotMatch": {},
}

type S3Client struct {
	api           s3API
	uploader      objectUploader
	logger        *slog.Logger
	maxKeys       int32
	listTimeout   time.Duration
	putTimeout    time.Duration
	deleteTimeout time.Duration
}

func NewS3Client(ctx context.Context, cfg *appconfig.Config, logger *slog.Logger) (*S3Client, error) {
	if cfg.S3.Region == "" {
		return nil, errors.New("s3 region is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3.Region),
	}
	if cfg.Credentials.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Credentials.AccessKeyID, cfg.Credentials.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.S3.Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &S3Client{
		api:           client,
		uploader:      transfermanager.New(client),
		logger:        logger,
		maxKeys:       cfg.S3.MaxKeys,
		listTimeout:   cfg.S3.ListTimeout.Duration,
		putTimeout:    cfg.S3.PutTimeout.Duration,
		deleteTimeout: cfg.S3.DeleteTimeout.Duration,
	}, nil
}

// List issues a single ListObjectsV2 request. A truncated page is logged and
// the remaining keys are not fetched.
func (c *S3Client) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	if c.api == nil {
		return nil, errors.New("s3 api client is not configured")
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	if c.maxKeys > 0 {
		input.MaxKeys = aws.Int32(c.maxKeys)
	}

	listCtx, cancel := withOptionalTimeout(ctx, c.listTimeout)
	defer cancel()

	out, err := c.api.ListObjectsV2(listCtx, input)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", classifyS3(err))
	}

	objects := make([]ObjectInfo, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		objects = append(objects, ObjectInfo{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
		})
	}
	if aws.ToBool(out.IsTruncated) {
		c.logger.WarnContext(ctx, "listing truncated to a single page",
			"bucket", bucket,
			"prefix", prefix,
			"returned", len(objects))
	}
	return objects, nil
}

func (c *S3Client) Put(ctx context.Context, bucket, key, localPath string) error {
	if c.uploader == nil {
		return errors.New("s3 uploader is not configured")
	}

	f, err := openSource(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLocalFileNotFound, err)
	}

	putCtx, cancel := withOptionalTimeout(ctx, c.putTimeout)
	defer cancel()

	_, err = c.uploader.UploadObject(putCtx, &transfermanager.UploadObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", classifyS3(err))
	}
	return nil
}

func (c *S3Client) Delete(ctx context.Context, bucket, key string) error {
	if c.api == nil {
		return errors.New("s3 api client is not configured")
	}

	deleteCtx, cancel := withOptionalTimeout(ctx, c.deleteTimeout)
	defer cancel()

	_, err := c.api.DeleteObject(deleteCtx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", classifyS3(err))
	}
	return nil
}

// classifyS3 marks authorization failures with ErrAccessDenied and leaves
// every other error untouched.
func classifyS3(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := accessDeniedCodes[apiErr.ErrorCode()]; ok {
			return fmt.Errorf("%w: %w", ErrAccessDenied, err)
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusForbidden {
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	return err
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
