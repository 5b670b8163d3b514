package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/umstimetable/timetable-api/pkg/logger"
	"github.com/umstimetable/timetable-api/pkg/metrics"
	"go.uber.org/zap"
)

const captchaPrefix = "captcha"

// Options configures the S3-compatible endpoint
type Options struct {
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string
	Region          string
}

// putObjectAPI is the slice of the S3 client the archive needs
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// CaptchaArchive keeps fetched captcha images with their solved text for offline inspection
type CaptchaArchive struct {
	s3Client   putObjectAPI
	bucketName string
}

// NewCaptchaArchive creates an archive on top of an S3-compatible bucket
func NewCaptchaArchive(opts Options) (*CaptchaArchive, error) {
	if opts.BucketName == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}

	s3opts := s3.Options{
		Region: opts.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"", // session token not needed
		),
	}
	if opts.Endpoint != "" {
		s3opts.BaseEndpoint = aws.String(opts.Endpoint)
		// MinIO and most S3 clones don't serve virtual-hosted buckets
		s3opts.UsePathStyle = true
	}

	logger.Info("Captcha archive initialized",
		zap.String("bucket", opts.BucketName),
		zap.String("endpoint", opts.Endpoint),
		zap.String("region", opts.Region),
	)

	return &CaptchaArchive{
		s3Client:   s3.New(s3opts),
		bucketName: opts.BucketName,
	}, nil
}

// Save uploads one captcha image under captcha/{vcid}-{issuedAtMs}.{ext}.
// solvedText is stored as object metadata.
func (a *CaptchaArchive) Save(ctx context.Context, vcid string, issuedAt time.Time, image []byte, solvedText string) (string, error) {
	start := time.Now()
	operation := "saveCaptcha"

	contentType := http.DetectContentType(image)
	key := CaptchaKey(vcid, issuedAt, Extension(contentType))

	_, err := a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(image),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"solved-text": solvedText,
			"vcid":        vcid,
		},
	})

	duration := metrics.MeasureDuration(start)

	if err != nil {
		metrics.StorageRequestDuration.WithLabelValues(operation, "error").Observe(duration)
		metrics.StorageRequestTotal.WithLabelValues(operation, "error").Inc()
		logger.LogAPICall("s3", operation, "error", duration,
			zap.Error(err),
			zap.String("key", key),
		)
		return "", fmt.Errorf("failed to upload captcha image: %w", err)
	}

	metrics.StorageRequestDuration.WithLabelValues(operation, "success").Observe(duration)
	metrics.StorageRequestTotal.WithLabelValues(operation, "success").Inc()
	logger.LogAPICall("s3", operation, "success", duration,
		zap.String("key", key),
		zap.Int("size_bytes", len(image)),
	)

	return key, nil
}

// CaptchaKey builds the object key for one challenge
func CaptchaKey(vcid string, issuedAt time.Time, ext string) string {
	return fmt.Sprintf("%s/%s-%d.%s", captchaPrefix, vcid, issuedAt.UnixMilli(), ext)
}

// Extension maps a sniffed image content type to a file extension
func Extension(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "bin"
	}
}
