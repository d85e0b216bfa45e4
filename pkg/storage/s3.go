package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Contract: signed URLs stay valid for at least one hour.
const signedURLLifetime = time.Hour

// S3Config configures the remote object backend. Endpoint is optional and
// enables S3-compatible services (MinIO, Wasabi).
type S3Config struct {
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint,omitempty"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	PublicBucket    bool   `json:"public_bucket"`
	UsePathStyle    bool   `json:"use_path_style"`
}

func (c S3Config) validate() error {
	if c.Bucket == "" {
		return errors.New("s3 backend: bucket is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("s3 backend: access_key_id is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("s3 backend: secret_access_key is required")
	}
	return nil
}

// S3Backend stores artifacts in an S3 bucket. Public buckets get direct object
// URLs; private buckets fall back to time-limited signed URLs.
type S3Backend struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	cfg      S3Config
}

func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("s3 backend: failed to load config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Backend{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		cfg:      cfg,
	}, nil
}

func (b *S3Backend) Save(ctx context.Context, data []byte, certificateID, format string) (string, error) {
	rel := RelativePath(certificateID, format)
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.cfg.Bucket),
		Key:         aws.String(rel),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType(format)),
	})
	if err != nil {
		return "", &Error{Backend: "s3", Op: "save", Err: err}
	}
	return rel, nil
}

func (b *S3Backend) DownloadURL(ctx context.Context, relativePath string) (string, error) {
	if b.cfg.PublicBucket {
		return b.publicURL(relativePath), nil
	}

	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(relativePath),
	}, s3.WithPresignExpires(signedURLLifetime))
	if err != nil {
		return "", &Error{Backend: "s3", Op: "presign", Err: err}
	}
	return req.URL, nil
}

func (b *S3Backend) publicURL(relativePath string) string {
	if b.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(b.cfg.Endpoint, "/"), b.cfg.Bucket, relativePath)
	}
	region := b.cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.cfg.Bucket, region, relativePath)
}

func (b *S3Backend) Exists(ctx context.Context, relativePath string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(relativePath),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, &Error{Backend: "s3", Op: "head", Err: err}
	}
	return true, nil
}

func (b *S3Backend) Read(ctx context.Context, relativePath string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(relativePath),
	})
	if err != nil {
		return nil, &Error{Backend: "s3", Op: "read", Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &Error{Backend: "s3", Op: "read", Err: err}
	}
	return data, nil
}

func (b *S3Backend) Delete(ctx context.Context, relativePath string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(relativePath),
	})
	if err != nil {
		return &Error{Backend: "s3", Op: "delete", Err: err}
	}
	return nil
}

// RelativeFromURL handles virtual-hosted public URLs, path-style URLs and
// signed URLs alike: the object key is the URL path minus an optional leading
// bucket segment, with any query (signature) dropped.
func (b *S3Backend) RelativeFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	path := strings.TrimPrefix(u.Path, "/")
	path = strings.TrimPrefix(path, b.cfg.Bucket+"/")
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return ""
	}
	return unescaped
}
