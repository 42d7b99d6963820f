// Package media issues presigned S3 URLs for chat attachments and checks
// that referenced objects exist.
package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// ErrForeignKey is returned for keys outside the upload prefix.
var ErrForeignKey = errors.New("key is outside the upload prefix")

// Store signs uploads and reads against one bucket.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a Store. Upload keys are placed under prefix.
func NewStore(client *s3.Client, bucket, prefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		prefix:  prefix,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Upload is a presigned PUT plus the key the client must reference when
// sending the message.
type Upload struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UploadURL generates a presigned URL for uploading a file.
func (s *Store) UploadURL(ctx context.Context, fileName, contentType string) (*Upload, error) {
	now := s.now()
	key := objectKey(s.prefix, fileName, now, uuid.NewString()[:8])
	params := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	req, err := s.presign.PresignPutObject(ctx, params, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("presign upload %s: %w", key, err)
	}
	return &Upload{URL: req.URL, Key: key, ExpiresAt: now.Add(s.ttl)}, nil
}

// ReadURL generates a presigned URL for reading a file.
func (s *Store) ReadURL(ctx context.Context, key string) (string, error) {
	if !s.owns(key) {
		return "", fmt.Errorf("read %q: %w", key, ErrForeignKey)
	}
	params := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	req, err := s.presign.PresignGetObject(ctx, params, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign read %s: %w", key, err)
	}
	return req.URL, nil
}

// Exists reports whether key names an uploaded object. Keys outside the
// upload prefix never exist.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if !s.owns(key) {
		return false, nil
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, fmt.Errorf("head %s: %w", key, err)
}

func (s *Store) owns(key string) bool {
	return key != "" && strings.HasPrefix(key, s.prefix) && !strings.Contains(key, "..")
}

// objectKey builds prefix + timestamp-id-name, keeping only the base name
// of what the client sent.
func objectKey(prefix, fileName string, now time.Time, id string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
	if name == "" || name == "." || name == ".." {
		name = "file"
	}
	return prefix + now.UTC().Format("20060102150405") + "-" + id + "-" + name
}
