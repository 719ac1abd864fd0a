package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/sirupsen/logrus"
)

// S3Store stores objects in Amazon S3 or a compatible service.
type S3Store struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed object store. Static credentials are used
// when provided; otherwise the default AWS credential chain applies.
func NewS3Store(bucket, prefix, region, endpoint, accessKey, secretKey string) (*S3Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("storage: s3 bucket is required")
	}

	cfg := aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create aws session: %w", err)
	}

	return &S3Store{
		client: s3.New(sess),
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
	}, nil
}

func (s *S3Store) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

// SignUpload presigns a PUT of the object bytes.
func (s *S3Store) SignUpload(_ context.Context, path, contentType string, ttl time.Duration) (string, error) {
	req, _ := s.client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(path)),
		ContentType: aws.String(contentType),
	})
	signed, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("storage: presign upload: %w", err)
	}
	return signed, nil
}

// SignDownload presigns a GET of an existing object.
func (s *S3Store) SignDownload(_ context.Context, path string, ttl time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	signed, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("storage: presign download: %w", err)
	}
	return signed, nil
}

// Put writes object bytes directly. Uploads normally flow through signed
// URLs; this path exists for completeness and tooling.
func (s *S3Store) Put(ctx context.Context, path, contentType string, r io.Reader) error {
	data, errRead := io.ReadAll(r)
	if errRead != nil {
		return fmt.Errorf("storage: read upload body: %w", errRead)
	}
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(path)),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("storage: put %s: %w", path, err)
	}
	return nil
}

// Move relocates an object via server-side copy followed by a best-effort
// delete of the source. S3 has no atomic move primitive.
func (s *S3Store) Move(ctx context.Context, src, dst string) (MoveOutcome, error) {
	copySource := url.PathEscape(s.bucket + "/" + s.key(src))
	_, errCopy := s.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(copySource),
		Key:        aws.String(s.key(dst)),
	})
	if errCopy != nil {
		return MoveOutcomeFailed, fmt.Errorf("storage: copy %s -> %s: %w", src, dst, errCopy)
	}

	if errDelete := s.Delete(ctx, src); errDelete != nil {
		log.WithError(errDelete).WithField("path", src).Warn("failed to delete source after copy")
		return MoveOutcomeCopied, nil
	}
	return MoveOutcomeMoved, nil
}

// Delete removes an object.
func (s *S3Store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok && awsErr.Code() == s3.ErrCodeNoSuchKey {
			return ErrNotFound
		}
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// List enumerates objects under a prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	}
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			out = append(out, ObjectInfo{
				Path:       key,
				Size:       aws.Int64Value(obj.Size),
				ModifiedAt: aws.TimeValue(obj.LastModified),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", prefix, err)
	}
	return out, nil
}

// DirectUpload reports false: S3 clients upload through signed URLs.
func (s *S3Store) DirectUpload() bool { return false }
