package libraries

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"oncology-assist-backend/internal/config"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

var ErrInvalidLocation = errors.New("invalid file location")

// FileStore persists uploaded report files. Save returns the location that
// is recorded on the report and later handed back to Open.
type FileStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	Delete(ctx context.Context, location string) error
}

// NewFileStore picks the backend named by UPLOAD_BACKEND.
func NewFileStore(ctx context.Context, cfg *config.Config, gcp *GCPClients) (FileStore, error) {
	switch cfg.UploadBackend {
	case config.UploadBackendGCS:
		if gcp == nil || gcp.GCS == nil {
			return nil, errors.New("gcs client is not initialised")
		}
		return NewGCSStore(gcp.GCS, cfg.GCSBucket), nil
	case config.UploadBackendS3:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, errors.Wrap(err, "load aws config")
		}
		return NewS3Store(s3.NewFromConfig(awsCfg), cfg.S3Bucket), nil
	default:
		return NewLocalStore(cfg.UploadDir)
	}
}

// LocalStore writes files under a directory on disk.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create upload dir %s", dir)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes to a temp file and renames it into place, so Open never sees a
// partial file.
func (s *LocalStore) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(key))
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", errors.Wrap(err, "create temp upload")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, "write upload")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, "close upload")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, "rename upload")
	}
	return path, nil
}

func (s *LocalStore) Open(_ context.Context, location string) (io.ReadCloser, error) {
	if filepath.Dir(filepath.Clean(location)) != filepath.Clean(s.dir) {
		return nil, errors.Wrap(ErrInvalidLocation, location)
	}
	f, err := os.Open(location)
	if err != nil {
		return nil, errors.Wrap(err, "open upload")
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, location string) error {
	if filepath.Dir(filepath.Clean(location)) != filepath.Clean(s.dir) {
		return errors.Wrap(ErrInvalidLocation, location)
	}
	if err := os.Remove(location); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove upload")
	}
	return nil
}

// GCSStore keeps uploads in a Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket}
}

func (s *GCSStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", errors.Wrap(err, "gcs write")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "gcs close")
	}
	return "gs://" + s.bucket + "/" + key, nil
}

func (s *GCSStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	key, ok := objectKey(location, "gs://", s.bucket)
	if !ok {
		return nil, errors.Wrap(ErrInvalidLocation, location)
	}
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "gcs read")
	}
	return r, nil
}

func (s *GCSStore) Delete(ctx context.Context, location string) error {
	key, ok := objectKey(location, "gs://", s.bucket)
	if !ok {
		return errors.Wrap(ErrInvalidLocation, location)
	}
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrap(err, "gcs delete")
	}
	return nil
}

// S3Store keeps uploads in an S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func (s *S3Store) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", errors.Wrap(err, "s3 put object")
	}
	return "s3://" + s.bucket + "/" + key, nil
}

func (s *S3Store) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	key, ok := objectKey(location, "s3://", s.bucket)
	if !ok {
		return nil, errors.Wrap(ErrInvalidLocation, location)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrap(err, "s3 get object")
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, location string) error {
	key, ok := objectKey(location, "s3://", s.bucket)
	if !ok {
		return errors.Wrap(ErrInvalidLocation, location)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrap(err, "s3 delete object")
	}
	return nil
}

func objectKey(location, scheme, bucket string) (string, bool) {
	prefix := scheme + bucket + "/"
	if !strings.HasPrefix(location, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(location, prefix)
	return key, key != ""
}
