package mirror

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/errors"
)

// MinIOConfig locates the mirror bucket.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

// MinIOUploader mirrors content into an S3-compatible bucket.
type MinIOUploader struct {
	client *minio.Client
	bucket string
	base   string
}

var _ Uploader = (*MinIOUploader)(nil)

// NewMinIOUploader connects to the bucket, creating it if needed.
func NewMinIOUploader(ctx context.Context, cfg MinIOConfig) (*MinIOUploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.NewConfigError("mirror", "minio endpoint and bucket are required", nil)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.NewConfigError("mirror", "failed to create minio client", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.WrapResource("check", "bucket", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.WrapResource("create", "bucket", cfg.Bucket, err)
		}
	}

	endpoint := client.EndpointURL()
	return &MinIOUploader{
		client: client,
		bucket: cfg.Bucket,
		base:   fmt.Sprintf("%s://%s/%s/", endpoint.Scheme, endpoint.Host, cfg.Bucket),
	}, nil
}

// BookURL returns <base>/books/<source>/<type>/<identifier>/<title>.<ext>.
func (u *MinIOUploader) BookURL(identifier *catalog.Identifier, source, title, extension string) string {
	name := identifier.Value
	if title != "" {
		name = title
	}
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return u.base + join("books", source, identifier.Type, identifier.Value, name+extension)
}

// CoverImageURL returns <base>/covers/<source>/<type>/<identifier>/<filename>.
func (u *MinIOUploader) CoverImageURL(source string, identifier *catalog.Identifier, filename string) string {
	return u.base + join("covers", source, identifier.Type, identifier.Value, filename)
}

// Upload puts the representation's content at url, which must be one
// of ours.
func (u *MinIOUploader) Upload(ctx context.Context, rep *catalog.Representation, target string) error {
	if !strings.HasPrefix(target, u.base) {
		return errors.NewValidationError("url", target, "not inside the mirror bucket")
	}
	key, err := url.PathUnescape(strings.TrimPrefix(target, u.base))
	if err != nil {
		return errors.WrapValidation("url", err)
	}
	_, err = u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(rep.Content), int64(len(rep.Content)),
		minio.PutObjectOptions{ContentType: rep.MediaType})
	if err != nil {
		return errors.WrapIO("upload", key, err)
	}
	return nil
}

func join(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.Join(escaped, "/")
}
