// Package filestore puts project attachments into S3-compatible object
// storage and hands back a public URL for the timeline entry.
package filestore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

type S3Options struct {
	Region    string
	Endpoint  string // 自建 MinIO 时填内网地址
	Bucket    string
	PublicURL string
}

func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true // MinIO / LocalStack 需要 path-style
		}
	})

	return &S3Store{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}, nil
}

// Upload stores one attachment under projects/<id>/ and returns its key
// and public URL. The key embeds a UUID so filenames never collide.
func (s *S3Store) Upload(ctx context.Context, projectID int64, filename, contentType string, body io.Reader) (key, url string, err error) {
	ext := path.Ext(filename)
	key = fmt.Sprintf("projects/%d/%s/%s%s",
		projectID, time.Now().UTC().Format("2006-01"), uuid.NewString(), ext)

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("s3 put failed: %w", err)
	}

	return key, s.URLFor(key), nil
}

func (s *S3Store) URLFor(key string) string {
	return s.publicURL + "/" + key
}

// Delete removes an attachment, used when a timeline insert fails after
// the object was already uploaded.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed for %s: %w", key, err)
	}
	return nil
}
