package storage

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/services/storage/aws_client"
)

// ObjectStorageService implements StorageService on top of an S3 compatible client.
type ObjectStorageService struct {
	client     aws_client.S3Client
	bucketName string
}

func NewStorageService(client aws_client.S3Client, bucketName string) interfaces.StorageService {
	return &ObjectStorageService{
		client:     client,
		bucketName: bucketName,
	}
}

func (s *ObjectStorageService) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("bucket", s.bucketName, "key", key, "bytes", len(data))

	err := s.client.Upload(ctx, s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (s *ObjectStorageService) Download(ctx context.Context, key string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Download")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	content, err := s.client.Download(ctx, s.bucketName, key)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return content, nil
}

func (s *ObjectStorageService) Delete(ctx context.Context, key string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Delete")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	return s.client.Delete(ctx, s.bucketName, key)
}
