package upload

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectStore is the slice of the S3 client used for photo processing,
// extracted for mocking in tests.
type objectStore interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ProcessedPhoto describes the stored renditions of a processed photo.
type ProcessedPhoto struct {
	Key          string `json:"key"`
	ThumbnailKey string `json:"thumbnail_key"`
	SizeBytes    int64  `json:"size_bytes"`
}

// ThumbnailKey derives the grid-thumbnail object key for a photo key.
// Processed photos are always JPEG regardless of the upload format.
func ThumbnailKey(key string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + "_thumb.jpg"
}

// ProcessStoredPhoto sanitizes a directly-uploaded photo in place: it
// fetches the object, strips EXIF metadata (including GPS coordinates) and
// caps its dimensions, writes the sanitized rendition back under the same
// key, and stores a grid thumbnail alongside it.
func (s *Service) ProcessStoredPhoto(ctx context.Context, key string) (*ProcessedPhoto, error) {
	obj, err := s.store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch uploaded photo: %w", err)
	}
	defer obj.Body.Close()

	sanitized, err := s.sanitize(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to sanitize photo: %w", err)
	}

	if _, err := s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(sanitized),
		ContentType: aws.String(MIMEImageJPEG),
	}); err != nil {
		return nil, fmt.Errorf("failed to store sanitized photo: %w", err)
	}

	thumb, err := s.thumbnail(sanitized)
	if err != nil {
		return nil, fmt.Errorf("failed to build thumbnail: %w", err)
	}
	thumbKey := ThumbnailKey(key)
	if _, err := s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(thumbKey),
		Body:        bytes.NewReader(thumb),
		ContentType: aws.String(MIMEImageJPEG),
	}); err != nil {
		return nil, fmt.Errorf("failed to store thumbnail: %w", err)
	}

	return &ProcessedPhoto{
		Key:          key,
		ThumbnailKey: thumbKey,
		SizeBytes:    int64(len(sanitized)),
	}, nil
}
